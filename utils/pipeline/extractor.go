package pipeline

import (
	"context"
	"strings"

	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/rs/zerolog"
)

// Extractor turns an uploaded file into a list of technical facts
type Extractor interface {
	ExtractFacts(ctx context.Context, hist *History, ref FileReference, userContext string) (string, error)
}

// FactExtractor asks the analyst model for facts about a remote file
type FactExtractor struct {
	agent  Agent
	logger zerolog.Logger
}

// NewFactExtractor creates a fact extractor. The generator must be able to
// read remote files.
func NewFactExtractor(generator models.Generator, model string, logger zerolog.Logger) *FactExtractor {
	return &FactExtractor{
		agent:  NewAgent(AnalystName, AnalystInstruction, model, generator),
		logger: logger.With().Str("stage", string(StageAnalyze)).Logger(),
	}
}

// ExtractFacts returns the model's fact list. An injection report in the
// response is logged and otherwise passed through.
func (e *FactExtractor) ExtractFacts(ctx context.Context, hist *History, ref FileReference, userContext string) (string, error) {
	file := &models.FileData{URI: ref.URI, MIMEType: ref.MIMEType}
	resp, err := e.agent.Invoke(ctx, hist, analysisPrompt(ref, userContext), file)
	if err != nil {
		return "", NewError(KindRemoteCallFailed, StageAnalyze, "generation call failed", err)
	}
	if strings.TrimSpace(resp) == "" {
		return "", NewError(KindAnalysisFailed, StageAnalyze, "model returned an empty response", nil)
	}
	if IsErrorMarked(resp) {
		return "", NewError(KindAnalysisFailed, StageAnalyze, resp, nil)
	}
	if strings.Contains(resp, InjectionMarker) {
		e.logger.Warn().Str("file", ref.URI).Msg("model reported an injection attempt in the file content")
	}

	e.logger.Debug().Int("length", len(resp)).Msg("facts extracted")
	return resp, nil
}
