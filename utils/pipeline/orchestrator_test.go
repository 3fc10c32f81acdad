package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kris-hansen/docsquad/utils/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type stubs struct {
	uploader  *stubUploader
	extractor *stubExtractor
	composer  *stubComposer
	persister *stubPersister
}

func newStubs() *stubs {
	return &stubs{
		uploader:  &stubUploader{ref: FileReference{URI: "ref-123", MIMEType: "video/mp4"}},
		extractor: &stubExtractor{facts: "Fact 1: command 'ls -l'"},
		composer:  &stubComposer{document: "# Final Document"},
		persister: &stubPersister{},
	}
}

func (s *stubs) orchestrator(opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = fixedClock
	}
	return NewOrchestrator(s.uploader, s.extractor, s.composer, s.persister, opts)
}

func TestRunMockedEndToEnd(t *testing.T) {
	s := newStubs()
	o := s.orchestrator(Options{})

	out, err := o.Run(context.Background(), Request{FilePath: "/videos/setup.mp4", UserContext: "nginx install"})
	require.NoError(t, err)

	assert.Equal(t, "# Final Document", out.Document)
	assert.Equal(t, "Fact 1: command 'ls -l'", out.Facts)
	assert.Equal(t, "ref-123", out.FileReference.URI)
	assert.NotEmpty(t, out.RunID)

	assert.Equal(t, []string{"/videos/setup.mp4"}, s.uploader.paths)
	assert.Equal(t, "ref-123", s.extractor.received[0].URI)
	assert.Equal(t, "nginx install", s.extractor.contexts[0])
	assert.Contains(t, s.composer.received[0], "Fact 1: command 'ls -l'")
	assert.Equal(t, "# Final Document", s.persister.contents[0])

	assert.Equal(t, "setup_doc_20240309_140507.md", s.persister.filenames[0])
	assert.Equal(t, "output/setup_doc_20240309_140507.md", out.OutputPath)
	assert.Equal(t, ConfirmationPrefix+"output/setup_doc_20240309_140507.md", out.Confirmation)
	assert.Equal(t, []State{StateIdle, StateIngesting, StateAnalyzing, StateComposing, StateSaving, StateDone}, out.States)
}

func TestRunPromptsCarryUpstreamOutput(t *testing.T) {
	analyst := &fakeGenerator{responses: []string{"Fact 1: command 'ls -l'"}}
	writer := &fakeGenerator{responses: []string{"# Final Document"}}
	s := newStubs()
	o := NewOrchestrator(
		s.uploader,
		NewFactExtractor(analyst, "gemini-2.5-pro", zerolog.Nop()),
		NewDocumentComposer(writer, "gemini-2.5-pro", zerolog.Nop()),
		s.persister,
		Options{Now: fixedClock, PreserveHistory: true},
	)

	out, err := o.Run(context.Background(), Request{FilePath: "demo.mp4"})
	require.NoError(t, err)

	assert.Equal(t, "# Final Document", out.Document)
	assert.Contains(t, analyst.Requests()[0].Prompt, "ref-123")
	assert.Contains(t, writer.Requests()[0].Prompt, "Fact 1: command 'ls -l'")
	assert.Equal(t, "# Final Document", s.persister.contents[0])
}

func TestRunStageSkipOnMissingFile(t *testing.T) {
	s := newStubs()
	s.uploader.err = NewError(KindNotFound, StageIngest, "file missing.mp4 does not exist on local storage", nil)
	o := s.orchestrator(Options{})

	out, err := o.Run(context.Background(), Request{FilePath: "missing.mp4"})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 0, s.extractor.calls)
	assert.Equal(t, 0, s.composer.calls)
	assert.Equal(t, 0, s.persister.calls)
}

func TestRunEmptyPath(t *testing.T) {
	s := newStubs()
	_, err := s.orchestrator(Options{}).Run(context.Background(), Request{FilePath: "  "})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 0, s.uploader.calls)
}

func TestRunShortCircuits(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *stubs)
		wantKind  Kind
		wantCalls [4]int // uploader, extractor, composer, persister
	}{
		{
			name:      "upload error",
			mutate:    func(s *stubs) { s.uploader.err = errors.New("connection reset") },
			wantKind:  KindRemoteCallFailed,
			wantCalls: [4]int{1, 0, 0, 0},
		},
		{
			name:      "upload returns empty reference",
			mutate:    func(s *stubs) { s.uploader.ref = FileReference{} },
			wantKind:  KindRemoteCallFailed,
			wantCalls: [4]int{1, 0, 0, 0},
		},
		{
			name:      "upload returns error marked reference",
			mutate:    func(s *stubs) { s.uploader.ref = FileReference{URI: "ERROR: processing failed"} },
			wantKind:  KindRemoteCallFailed,
			wantCalls: [4]int{1, 0, 0, 0},
		},
		{
			name:      "extractor error",
			mutate:    func(s *stubs) { s.extractor.err = NewError(KindAnalysisFailed, StageAnalyze, "bad", nil) },
			wantKind:  KindAnalysisFailed,
			wantCalls: [4]int{1, 1, 0, 0},
		},
		{
			name:      "extractor error marked text",
			mutate:    func(s *stubs) { s.extractor.facts = "ERROR: cannot see the video" },
			wantKind:  KindAnalysisFailed,
			wantCalls: [4]int{1, 1, 0, 0},
		},
		{
			name:      "extractor empty text",
			mutate:    func(s *stubs) { s.extractor.facts = "" },
			wantKind:  KindAnalysisFailed,
			wantCalls: [4]int{1, 1, 0, 0},
		},
		{
			name:      "composer plain error",
			mutate:    func(s *stubs) { s.composer.err = errors.New("quota") },
			wantKind:  KindCompositionFailed,
			wantCalls: [4]int{1, 1, 1, 0},
		},
		{
			name:      "composer empty text",
			mutate:    func(s *stubs) { s.composer.document = " " },
			wantKind:  KindCompositionFailed,
			wantCalls: [4]int{1, 1, 1, 0},
		},
		{
			name:      "persister error",
			mutate:    func(s *stubs) { s.persister.err = errors.New("disk full") },
			wantKind:  KindPersistenceFailed,
			wantCalls: [4]int{1, 1, 1, 1},
		},
		{
			name:      "persister error marked text",
			mutate:    func(s *stubs) { s.persister.reply = "ERROR: read-only file system" },
			wantKind:  KindPersistenceFailed,
			wantCalls: [4]int{1, 1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStubs()
			tt.mutate(s)
			var statuses []Status
			o := s.orchestrator(Options{OnStatus: func(st Status) { statuses = append(statuses, st) }})

			out, err := o.Run(context.Background(), Request{FilePath: "demo.mp4"})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.True(t, strings.HasPrefix(err.Error(), "ERROR:"))
			assert.Equal(t, tt.wantCalls, [4]int{s.uploader.calls, s.extractor.calls, s.composer.calls, s.persister.calls})

			require.NotEmpty(t, statuses)
			last := statuses[len(statuses)-1]
			assert.Equal(t, StateFailed, last.State)
			assert.Equal(t, err.Error(), last.Message)
		})
	}
}

func TestRunReportsStatus(t *testing.T) {
	s := newStubs()
	var statuses []Status
	o := s.orchestrator(Options{OnStatus: func(st Status) { statuses = append(statuses, st) }})

	out, err := o.Run(context.Background(), Request{FilePath: "demo.mp4"})
	require.NoError(t, err)

	require.Len(t, statuses, 6)
	for i, st := range statuses {
		assert.Equal(t, out.RunID, st.RunID)
		assert.Equal(t, out.States[i], st.State)
		assert.NotEmpty(t, st.Message)
	}
	assert.Equal(t, out.Confirmation, statuses[5].Message)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		input string
		ext   string
		want  string
	}{
		{"/tmp/my file.mp4", ".md", "my file_doc_20240309_140507.md"},
		{"clip.tar.gz", ".txt", "clip.tar_doc_20240309_140507.txt"},
		{"README", ".md", "README_doc_20240309_140507.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.input, fixedNow, tt.ext))
	}
}

func TestOptionsNormalizeExtension(t *testing.T) {
	s := newStubs()
	_, err := s.orchestrator(Options{OutputExt: "txt"}).Run(context.Background(), Request{FilePath: "demo.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "demo_doc_20240309_140507.txt", s.persister.filenames[0])
}

func TestStateLabels(t *testing.T) {
	assert.Equal(t, "Analyzing", StateAnalyzing.Label())
	assert.Equal(t, "Done", StateDone.Label())
	assert.Equal(t, "Failed", StateFailed.Label())
	assert.Equal(t, "done", StateDone.String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateSaving.Terminal())
	assert.Equal(t, "unknown", State(42).String())
}

func TestConcurrentRunsAreIsolated(t *testing.T) {
	outDir := t.TempDir()
	files := map[string]string{
		"alpha.mp4": writeInput(t, "alpha.mp4", "alpha bytes"),
		"beta.mp4":  writeInput(t, "beta.mp4", "beta bytes"),
	}

	analyst := &fakeGenerator{responses: []string{"Fact 1: uname -a"}}
	writer := &fakeGenerator{responses: []string{"# Runbook"}}
	logger := zerolog.Nop()
	o := NewOrchestrator(
		&uploaderFunc{fn: func(ctx context.Context, path string) (FileReference, error) {
			fs := &fakeFileService{initial: readyFile()}
			return NewGeminiUploader(fs, retry.PollConfig{Interval: time.Millisecond, MaxWait: time.Second}, logger).Upload(ctx, path)
		}},
		NewFactExtractor(analyst, "gemini-2.5-pro", logger),
		NewDocumentComposer(writer, "gemini-2.5-pro", logger),
		NewFilePersister(outDir),
		Options{Now: fixedClock, PreserveHistory: true},
	)

	var wg sync.WaitGroup
	outcomes := make([]*Outcome, 2)
	errs := make([]error, 2)
	paths := []string{files["alpha.mp4"], files["beta.mp4"]}
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			outcomes[i], errs[i] = o.Run(context.Background(), Request{FilePath: p})
		}(i, p)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotEqual(t, outcomes[0].RunID, outcomes[1].RunID)
	assert.NotEqual(t, outcomes[0].OutputPath, outcomes[1].OutputPath)
	assert.Equal(t, filepath.Join(outDir, "alpha_doc_20240309_140507.md"), outcomes[0].OutputPath)
	assert.Equal(t, filepath.Join(outDir, "beta_doc_20240309_140507.md"), outcomes[1].OutputPath)

	for _, out := range outcomes {
		data, err := os.ReadFile(out.OutputPath)
		require.NoError(t, err)
		assert.Equal(t, "# Runbook", string(data))
	}

	// Each run owns its history, so no prompt carries another run's exchanges
	for _, req := range append(analyst.Requests(), writer.Requests()...) {
		assert.NotContains(t, req.Prompt, "Previous history")
	}
}

type uploaderFunc struct {
	fn func(ctx context.Context, path string) (FileReference, error)
}

func (u *uploaderFunc) Upload(ctx context.Context, path string) (FileReference, error) {
	return u.fn(ctx, path)
}
