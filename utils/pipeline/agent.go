package pipeline

import (
	"context"
	"strings"

	"github.com/kris-hansen/docsquad/utils/models"
)

// Agent binds a system instruction and a model to a generator. Stages differ
// only in the Agent they hold.
type Agent struct {
	name        string
	instruction string
	model       string
	generator   models.Generator
}

// NewAgent creates an agent
func NewAgent(name, instruction, model string, generator models.Generator) Agent {
	return Agent{name: name, instruction: instruction, model: model, generator: generator}
}

// Name returns the agent name, which is also its history key
func (a Agent) Name() string { return a.name }

// Model returns the model the agent calls
func (a Agent) Model() string { return a.model }

// Invoke sends prompt, prefixed by this agent's history, to the model and
// returns the raw response. Usable responses are recorded in hist.
func (a Agent) Invoke(ctx context.Context, hist *History, prompt string, file *models.FileData) (string, error) {
	resp, err := a.generator.Generate(ctx, models.GenerateRequest{
		Model:             a.model,
		SystemInstruction: a.instruction,
		Prompt:            hist.Wrap(a.name, prompt),
		File:              file,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp) != "" && !IsErrorMarked(resp) {
		hist.Append(a.name, prompt, resp)
	}
	return resp, nil
}
