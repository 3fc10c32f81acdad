package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kris-hansen/docsquad/utils/config"
	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/kris-hansen/docsquad/utils/pipeline"
	"github.com/kris-hansen/docsquad/utils/retry"
	"github.com/rs/zerolog"
)

// buildOrchestrator wires the pipeline stages from cfg. The returned cleanup
// closes the provider clients and must be called once the orchestrator is
// no longer used.
func buildOrchestrator(ctx context.Context, cfg *config.Config, log zerolog.Logger, onStatus func(pipeline.Status)) (*pipeline.Orchestrator, func(), error) {
	if err := validateConfig(cfg); err != nil {
		return nil, nil, err
	}
	creds := credentials(cfg)

	// The extractor reads the uploaded file, so it must run on the provider
	// that holds it.
	google := models.NewGoogleProvider()
	if !google.SupportsModel(cfg.Models.Extractor) {
		return nil, nil, fmt.Errorf("extractor model %q is not a Gemini model", cfg.Models.Extractor)
	}
	google.SetLogger(log)
	if err := google.Configure(ctx, creds); err != nil {
		return nil, nil, pipeline.ConfigurationError(err)
	}
	closers := []func() error{google.Close}
	cleanup := func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("failed to close provider")
			}
		}
	}

	var composerGen models.Generator = google
	if !google.SupportsModel(cfg.Models.Composer) {
		provider, err := models.ForModel(ctx, cfg.Models.Composer, creds, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to set up composer model: %w", err)
		}
		closers = append(closers, provider.Close)
		composerGen = provider
	}

	uploader := pipeline.NewGeminiUploader(google, retry.PollConfig{
		Interval: cfg.Upload.PollInterval,
		MaxWait:  cfg.Upload.MaxWait,
	}, log)
	extractor := pipeline.NewFactExtractor(google, cfg.Models.Extractor, log)
	composer := pipeline.NewDocumentComposer(composerGen, cfg.Models.Composer, log)
	persister := pipeline.NewFilePersister(cfg.Output.Dir)

	orch := pipeline.NewOrchestrator(uploader, extractor, composer, persister, pipeline.Options{
		OutputExt:       cfg.Output.Extension,
		PreserveHistory: cfg.Pipeline.PreserveHistory,
		OnStatus:        onStatus,
		Logger:          &log,
	})

	log.Debug().
		Str("extractor", cfg.Models.Extractor).
		Str("composer", cfg.Models.Composer).
		Str("output_dir", cfg.Output.Dir).
		Msg("pipeline ready")
	return orch, cleanup, nil
}

// validateConfig reports a missing API key as a ConfigurationMissing failure
func validateConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			return pipeline.ConfigurationError(err)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func credentials(cfg *config.Config) models.Credentials {
	return models.Credentials{
		GoogleAPIKey:  cfg.GoogleAPIKey,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIURL,
		AWSRegion:     cfg.AWSRegion,
	}
}
