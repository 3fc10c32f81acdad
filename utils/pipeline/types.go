package pipeline

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Request is one pipeline invocation
type Request struct {
	FilePath    string
	UserContext string
}

// FileReference is the remote handle of an uploaded file
type FileReference struct {
	URI         string
	Name        string
	MIMEType    string
	DisplayName string
	Checksum    string // xxhash64 of the local bytes, hex encoded
}

// Outcome is the result of a successful run
type Outcome struct {
	RunID         string
	Document      string
	Confirmation  string
	OutputPath    string
	FileReference FileReference
	Facts         string
	States        []State
}

// State is a step of the orchestrator state machine
type State int

const (
	StateIdle State = iota
	StateIngesting
	StateAnalyzing
	StateComposing
	StateSaving
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateIngesting: "ingesting",
	StateAnalyzing: "analyzing",
	StateComposing: "composing",
	StateSaving:    "saving",
	StateDone:      "done",
	StateFailed:    "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Label is the display form of the state, e.g. "Analyzing". A Caser is
// stateful, so one is built per call.
func (s State) Label() string {
	return cases.Title(language.English).String(s.String())
}

// Terminal reports whether the run has ended
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Status is a progress notification for a run
type Status struct {
	RunID   string
	State   State
	Message string
}
