package pipeline

import "strings"

// Exchange is one prompt and the response it produced
type Exchange struct {
	Prompt   string
	Response string
}

// History keeps each stage's prior exchanges within a single run. Stages
// only ever see their own entries. A nil *History records nothing.
type History struct {
	entries map[string][]Exchange
}

// NewHistory returns an empty history
func NewHistory() *History {
	return &History{entries: make(map[string][]Exchange)}
}

// Append records a successful exchange for stage
func (h *History) Append(stage, prompt, response string) {
	if h == nil {
		return
	}
	h.entries[stage] = append(h.entries[stage], Exchange{Prompt: prompt, Response: response})
}

// Exchanges returns a copy of stage's exchanges in order
func (h *History) Exchanges(stage string) []Exchange {
	if h == nil {
		return nil
	}
	return append([]Exchange(nil), h.entries[stage]...)
}

// Len returns the number of exchanges recorded for stage
func (h *History) Len(stage string) int {
	if h == nil {
		return 0
	}
	return len(h.entries[stage])
}

// Render formats stage's exchanges as a preamble
func (h *History) Render(stage string) string {
	exchanges := h.Exchanges(stage)
	if len(exchanges) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(exchanges))
	for _, ex := range exchanges {
		blocks = append(blocks, "Previous history:\n- Prompt: "+ex.Prompt+"\n- Response: "+ex.Response)
	}
	return strings.Join(blocks, "\n")
}

// Wrap prefixes prompt with stage's rendered history. Without history the
// prompt is returned unchanged.
func (h *History) Wrap(stage, prompt string) string {
	preamble := h.Render(stage)
	if preamble == "" {
		return prompt
	}
	return preamble + "\n\nCurrent task: " + prompt
}
