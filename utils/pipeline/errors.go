package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure
type Kind string

const (
	KindNotFound               Kind = "NotFound"
	KindUnsupportedType        Kind = "UnsupportedType"
	KindRemoteProcessingFailed Kind = "RemoteProcessingFailed"
	KindRemoteCallFailed       Kind = "RemoteCallFailed"
	KindUploadTimeout          Kind = "UploadTimeout"
	KindAnalysisFailed         Kind = "AnalysisFailed"
	KindCompositionFailed      Kind = "CompositionFailed"
	KindPersistenceFailed      Kind = "PersistenceFailed"
	KindConfigurationMissing   Kind = "ConfigurationMissing"
	KindEvaluationFailed       Kind = "EvaluationFailed"
)

// Stage names a unit of the pipeline for error reporting
type Stage string

const (
	StageIngest   Stage = "ingest"
	StageAnalyze  Stage = "analyze"
	StageCompose  Stage = "compose"
	StageSave     Stage = "save"
	StageConfig   Stage = "config"
	StageEvaluate Stage = "evaluate"
)

// ErrorMarker prefixes every failure text, both ours and the models'
const ErrorMarker = "ERROR"

// Error is a stage failure. Its text always starts with ErrorMarker and names
// the failing stage.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s stage failed (%s): %s", ErrorMarker, e.Stage, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new stage error
func NewError(kind Kind, stage Stage, message string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Err: err}
}

// ConfigurationError reports a setting the process cannot start without
func ConfigurationError(err error) *Error {
	return NewError(KindConfigurationMissing, StageConfig, "required configuration is missing", err)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsErrorMarked reports whether a stage's text output signals failure
func IsErrorMarked(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), ErrorMarker)
}

// asStageError keeps an existing *Error and wraps anything else with the
// stage's default kind
func asStageError(err error, stage Stage, kind Kind) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(kind, stage, "stage returned an error", err)
}
