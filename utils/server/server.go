package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kris-hansen/docsquad/utils/config"
	"github.com/kris-hansen/docsquad/utils/pipeline"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// Server exposes the pipeline over HTTP
type Server struct {
	config *config.ServerConfig
	runner Runner
	pool   *ants.Pool
	logger zerolog.Logger
}

// New creates a server. runner may be nil, in which case run requests fail
// with 500 until the process is restarted with a working configuration.
func New(cfg *config.ServerConfig, runner Runner, logger zerolog.Logger) (*Server, error) {
	size := cfg.MaxConcurrentRuns
	if size < 1 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create run pool: %w", err)
	}
	return &Server{
		config: cfg,
		runner: runner,
		pool:   pool,
		logger: logger.With().Str("component", "server").Logger(),
	}, nil
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/document", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Post("/upload", s.handleUpload)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// releases the run pool
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", srv.Addr).Int("max_concurrent_runs", s.pool.Cap()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases the run pool
func (s *Server) Close() {
	s.pool.Release()
}

// result carries a pooled run back to its handler
type result struct {
	outcome *pipeline.Outcome
	err     error
}

// execute runs the pipeline on a pool worker, waiting for a free slot if all
// are busy. after, if set, runs on the worker once the run has finished and
// before the result is handed back, even if the handler stopped waiting.
func (s *Server) execute(ctx context.Context, req pipeline.Request, after func()) (*pipeline.Outcome, error) {
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	done := make(chan result, 1)
	task := func() {
		var res result
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					res = result{err: fmt.Errorf("pipeline run panicked: %v", rec)}
				}
			}()
			res.outcome, res.err = s.runner.Run(ctx, req)
		}()
		if after != nil {
			after()
		}
		done <- res
	}

	if err := s.pool.Submit(task); err != nil {
		if after != nil {
			after()
		}
		return nil, fmt.Errorf("failed to schedule pipeline run: %w", err)
	}

	select {
	case res := <-done:
		return res.outcome, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("pipeline run abandoned: %w", ctx.Err())
	}
}
