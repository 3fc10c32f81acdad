package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorText(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewError(KindRemoteCallFailed, StageIngest, "upload failed", cause)

	assert.Equal(t, "ERROR: ingest stage failed (RemoteCallFailed): upload failed: connection reset", err.Error())
	assert.True(t, strings.HasPrefix(err.Error(), ErrorMarker))
	assert.ErrorIs(t, err, cause)

	noCause := NewError(KindNotFound, StageIngest, "file x does not exist", nil)
	assert.Equal(t, "ERROR: ingest stage failed (NotFound): file x does not exist", noCause.Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewError(KindAnalysisFailed, StageAnalyze, "bad", nil))
	assert.Equal(t, KindAnalysisFailed, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestConfigurationError(t *testing.T) {
	cause := errors.New("GOOGLE_API_KEY not found")
	err := ConfigurationError(cause)
	assert.Equal(t, KindConfigurationMissing, err.Kind)
	assert.Equal(t, StageConfig, err.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestIsErrorMarked(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"ERROR: could not read the file", true},
		{"  ERROR CRITICAL: boom", true},
		{"1. ran systemctl\n2. log shows ERROR 42", false},
		{InjectionMarker + " ignored embedded orders", false},
		{"", false},
		{"error: lowercase is content", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsErrorMarked(tt.text), tt.text)
	}
}

func TestAsStageErrorKeepsExisting(t *testing.T) {
	orig := NewError(KindUploadTimeout, StageIngest, "slow", nil)
	assert.Same(t, orig, asStageError(fmt.Errorf("wrap: %w", orig), StageIngest, KindRemoteCallFailed))

	got := asStageError(errors.New("disk full"), StageSave, KindPersistenceFailed)
	assert.Equal(t, KindPersistenceFailed, got.Kind)
	assert.Equal(t, StageSave, got.Stage)
}
