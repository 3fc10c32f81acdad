package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kris-hansen/docsquad/utils/fileutil"
	"github.com/rs/zerolog"
)

// DefaultOutputExt is used when Options.OutputExt is empty
const DefaultOutputExt = ".md"

// Options tunes an Orchestrator
type Options struct {
	OutputExt       string           // Document extension, default ".md"
	PreserveHistory bool             // Give each stage its own prior exchanges as context
	Now             func() time.Time // Clock for output names, default time.Now
	OnStatus        func(Status)     // Called on every state transition
	Logger          *zerolog.Logger
}

// Orchestrator runs the four stages in order and stops at the first failure
type Orchestrator struct {
	uploader  Uploader
	extractor Extractor
	composer  Composer
	persister Persister
	opts      Options
	logger    zerolog.Logger
}

// NewOrchestrator creates an orchestrator. It holds no per-run state and is
// safe for concurrent use when its stages are.
func NewOrchestrator(u Uploader, e Extractor, c Composer, p Persister, opts Options) *Orchestrator {
	if opts.OutputExt == "" {
		opts.OutputExt = DefaultOutputExt
	} else if !strings.HasPrefix(opts.OutputExt, ".") {
		opts.OutputExt = "." + opts.OutputExt
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Orchestrator{
		uploader:  u,
		extractor: e,
		composer:  c,
		persister: p,
		opts:      opts,
		logger:    logger,
	}
}

// OutputName builds <base>_doc_<YYYYMMDD_HHMMSS><ext> for an input path
func OutputName(inputPath string, now time.Time, ext string) string {
	return fileutil.BaseName(inputPath) + "_doc_" + now.Format("20060102_150405") + ext
}

// run is the mutable state of one invocation
type run struct {
	o      *Orchestrator
	id     string
	states []State
	logger zerolog.Logger
}

func (r *run) enter(state State, msg string) {
	r.states = append(r.states, state)
	ev := r.logger.Info()
	if state == StateFailed {
		ev = r.logger.Error()
	}
	ev.Str("state", state.String()).Msg(msg)
	if r.o.opts.OnStatus != nil {
		r.o.opts.OnStatus(Status{RunID: r.id, State: state, Message: msg})
	}
}

func (r *run) fail(err *Error) error {
	r.enter(StateFailed, err.Error())
	return err
}

// Run executes one pipeline run. On failure it returns a *Error naming the
// stage, and no later stage is invoked.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	r := &run{o: o, id: uuid.NewString()}
	r.logger = o.logger.With().Str("run_id", r.id).Logger()
	r.enter(StateIdle, fmt.Sprintf("starting pipeline for %s", req.FilePath))

	if strings.TrimSpace(req.FilePath) == "" {
		r.enter(StateIngesting, "ingesting file")
		return nil, r.fail(NewError(KindNotFound, StageIngest, "no file path given", nil))
	}

	var hist *History
	if o.opts.PreserveHistory {
		hist = NewHistory()
	}

	r.enter(StateIngesting, fmt.Sprintf("uploading %s", req.FilePath))
	ref, err := o.uploader.Upload(ctx, req.FilePath)
	if err != nil {
		return nil, r.fail(asStageError(err, StageIngest, KindRemoteCallFailed))
	}
	if strings.TrimSpace(ref.URI) == "" || IsErrorMarked(ref.URI) {
		return nil, r.fail(NewError(KindRemoteCallFailed, StageIngest, fmt.Sprintf("unusable file reference %q", ref.URI), nil))
	}

	r.enter(StateAnalyzing, fmt.Sprintf("file uploaded: %s", ref.URI))
	facts, err := o.extractor.ExtractFacts(ctx, hist, ref, req.UserContext)
	if err != nil {
		return nil, r.fail(asStageError(err, StageAnalyze, KindAnalysisFailed))
	}
	if msg := unusable(facts); msg != "" {
		return nil, r.fail(NewError(KindAnalysisFailed, StageAnalyze, msg, nil))
	}

	r.enter(StateComposing, "facts extracted")
	document, err := o.composer.ComposeDocument(ctx, hist, facts)
	if err != nil {
		return nil, r.fail(asStageError(err, StageCompose, KindCompositionFailed))
	}
	if msg := unusable(document); msg != "" {
		return nil, r.fail(NewError(KindCompositionFailed, StageCompose, msg, nil))
	}

	filename := OutputName(req.FilePath, o.opts.Now(), o.opts.OutputExt)
	r.enter(StateSaving, fmt.Sprintf("saving %s", filename))
	confirmation, err := o.persister.Save(filename, document)
	if err != nil {
		return nil, r.fail(asStageError(err, StageSave, KindPersistenceFailed))
	}
	if msg := unusable(confirmation); msg != "" {
		return nil, r.fail(NewError(KindPersistenceFailed, StageSave, msg, nil))
	}

	r.enter(StateDone, confirmation)
	return &Outcome{
		RunID:         r.id,
		Document:      document,
		Confirmation:  confirmation,
		OutputPath:    PathFromConfirmation(confirmation),
		FileReference: ref,
		Facts:         facts,
		States:        r.states,
	}, nil
}

// unusable describes why a stage's text output cannot be passed on, or
// returns "" when it can
func unusable(text string) string {
	switch {
	case strings.TrimSpace(text) == "":
		return "stage returned an empty result"
	case IsErrorMarked(text):
		return text
	}
	return ""
}
