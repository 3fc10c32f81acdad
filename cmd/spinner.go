package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kris-hansen/docsquad/utils/pipeline"
	"golang.org/x/term"
)

// stageMessages is what the spinner shows while a run is in each state
var stageMessages = map[pipeline.State]string{
	pipeline.StateIngesting: "Uploading file",
	pipeline.StateAnalyzing: "Extracting facts",
	pipeline.StateComposing: "Composing document",
	pipeline.StateSaving:    "Saving document",
}

// Spinner renders run progress. On a terminal it animates the current step;
// anywhere else it prints one line per finished step.
type Spinner struct {
	chars    []string
	index    int
	message  string
	out      io.Writer
	animate  bool
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	disabled bool
}

func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{
		chars:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		out:     out,
		animate: isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Disable prevents the spinner from showing any output
func (s *Spinner) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

// Start begins a new step, finishing the current one as done
func (s *Spinner) Start(message string) {
	s.Stop()

	s.mu.Lock()
	if s.disabled {
		s.mu.Unlock()
		return
	}
	s.message = message
	s.running = true
	s.stop = make(chan struct{})
	animate := s.animate
	s.mu.Unlock()

	if !animate {
		return
	}

	s.wg.Add(1)
	go func(stop chan struct{}) {
		defer s.wg.Done()
		fmt.Fprint(s.out, "\033[?25l")
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s... %s", s.message, s.chars[s.index])
			s.index = (s.index + 1) % len(s.chars)
			s.mu.Unlock()

			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}(s.stop)
}

// Stop finishes the current step as done
func (s *Spinner) Stop() {
	s.finish(pipeline.StateDone.Label() + "!")
}

// Fail finishes the current step as failed
func (s *Spinner) Fail() {
	s.finish(pipeline.StateFailed.Label())
}

func (s *Spinner) finish(result string) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	animate := s.animate
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s... %s     \n", s.message, result)
	if animate {
		fmt.Fprint(s.out, "\033[?25h")
	}
}

// OnStatus drives the spinner from orchestrator state transitions
func (s *Spinner) OnStatus(status pipeline.Status) {
	switch status.State {
	case pipeline.StateDone:
		s.Stop()
	case pipeline.StateFailed:
		s.Fail()
	default:
		if msg, ok := stageMessages[status.State]; ok {
			s.Start(msg)
		}
	}
}
