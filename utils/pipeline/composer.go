package pipeline

import (
	"context"
	"strings"

	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/rs/zerolog"
)

// Composer turns facts into a Markdown document
type Composer interface {
	ComposeDocument(ctx context.Context, hist *History, facts string) (string, error)
}

// DocumentComposer asks the writer model for the final document
type DocumentComposer struct {
	agent  Agent
	logger zerolog.Logger
}

// NewDocumentComposer creates a document composer
func NewDocumentComposer(generator models.Generator, model string, logger zerolog.Logger) *DocumentComposer {
	return &DocumentComposer{
		agent:  NewAgent(WriterName, WriterInstruction, model, generator),
		logger: logger.With().Str("stage", string(StageCompose)).Logger(),
	}
}

// ComposeDocument returns the model output as is
func (c *DocumentComposer) ComposeDocument(ctx context.Context, hist *History, facts string) (string, error) {
	resp, err := c.agent.Invoke(ctx, hist, compositionPrompt(facts), nil)
	if err != nil {
		return "", NewError(KindRemoteCallFailed, StageCompose, "generation call failed", err)
	}
	if strings.TrimSpace(resp) == "" {
		return "", NewError(KindCompositionFailed, StageCompose, "no document was generated", nil)
	}
	if IsErrorMarked(resp) {
		return "", NewError(KindCompositionFailed, StageCompose, resp, nil)
	}

	c.logger.Debug().Int("length", len(resp)).Msg("document composed")
	return resp, nil
}
