package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/rs/zerolog"
)

// EvaluatorName identifies the judge agent
const EvaluatorName = "EvaluatorAgent"

// EvaluatorInstruction is the judge's standing instruction
const EvaluatorInstruction = `You are an expert evaluator of technical documentation. Compare a GENERATED DOCUMENT against an IDEAL DOCUMENT written by a human expert and judge how close the generated one comes.

Criteria:
1. Completeness: does the generated document include every key step, command and piece of information in the ideal one?
2. Accuracy: are the commands, values and technical facts correct?
3. Format: does it use Markdown well (headings, lists, code blocks) for readability?
4. Clarity and coherence: is the text easy to follow, with a logical progression?

Reply format:
- The first line must be exactly "Score: <n>/100", where <n> is an integer from 1 to 100.
- Then a detailed summary of the evaluation covering the strengths of the generated document and the areas where it should improve.`

var scorePattern = regexp.MustCompile(`(?i)^[\s*#_]*score[\s*_]*[:=][\s*_]*(\d{1,3})`)

// Evaluation is the judge's verdict on a generated document
type Evaluation struct {
	Score   int    `json:"score"` // 1 to 100
	Summary string `json:"summary"`
}

// Evaluator judges a generated document against a reference one
type Evaluator interface {
	Evaluate(ctx context.Context, generated, golden string) (*Evaluation, error)
}

// DocumentEvaluator asks a model to score generated documents
type DocumentEvaluator struct {
	agent  Agent
	logger zerolog.Logger
}

// NewDocumentEvaluator creates a document evaluator
func NewDocumentEvaluator(generator models.Generator, model string, logger zerolog.Logger) *DocumentEvaluator {
	return &DocumentEvaluator{
		agent:  NewAgent(EvaluatorName, EvaluatorInstruction, model, generator),
		logger: logger.With().Str("stage", string(StageEvaluate)).Logger(),
	}
}

// Evaluate scores generated against golden. A reply without a usable score
// line is a failure.
func (e *DocumentEvaluator) Evaluate(ctx context.Context, generated, golden string) (*Evaluation, error) {
	if strings.TrimSpace(generated) == "" {
		return nil, NewError(KindEvaluationFailed, StageEvaluate, "generated document is empty", nil)
	}
	if strings.TrimSpace(golden) == "" {
		return nil, NewError(KindEvaluationFailed, StageEvaluate, "ideal document is empty", nil)
	}

	resp, err := e.agent.Invoke(ctx, nil, evaluationPrompt(generated, golden), nil)
	if err != nil {
		return nil, NewError(KindRemoteCallFailed, StageEvaluate, "evaluation call failed", err)
	}
	if strings.TrimSpace(resp) == "" {
		return nil, NewError(KindEvaluationFailed, StageEvaluate, "no evaluation was returned", nil)
	}
	if IsErrorMarked(resp) {
		return nil, NewError(KindEvaluationFailed, StageEvaluate, resp, nil)
	}

	score, summary, ok := parseEvaluation(resp)
	if !ok {
		return nil, NewError(KindEvaluationFailed, StageEvaluate, "evaluation has no score line", nil)
	}
	if score < 1 || score > 100 {
		return nil, NewError(KindEvaluationFailed, StageEvaluate, "score "+strconv.Itoa(score)+" is outside 1-100", nil)
	}

	e.logger.Debug().Int("score", score).Int("summary_length", len(summary)).Msg("document evaluated")
	return &Evaluation{Score: score, Summary: summary}, nil
}

func evaluationPrompt(generated, golden string) string {
	var b strings.Builder
	b.WriteString("Evaluate the generated document against the ideal one using the criteria in your instructions.\n\n")
	b.WriteString("---\nGENERATED DOCUMENT:\n")
	b.WriteString(generated)
	b.WriteString("\n---\nIDEAL DOCUMENT:\n")
	b.WriteString(golden)
	b.WriteString("\n---\nEVALUATION:\n")
	return b.String()
}

// parseEvaluation takes the first score line as the score and the remaining
// text as the summary.
func parseEvaluation(text string) (int, string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := scorePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		score, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, "", false
		}
		rest := append(append([]string{}, lines[:i]...), lines[i+1:]...)
		return score, strings.TrimSpace(strings.Join(rest, "\n")), true
	}
	return 0, "", false
}
