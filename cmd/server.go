package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kris-hansen/docsquad/utils/pipeline"
	"github.com/kris-hansen/docsquad/utils/server"
	"github.com/spf13/cobra"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the documentation pipeline over HTTP",
	Long: `Start the Docsquad HTTP server on the configured port (default: 8000).

Endpoints:
  GET  /                  Welcome message
  GET  /health            Health check
  POST /document/run      Run the pipeline on a server-side file named in the prompt
  POST /document/upload   Run the pipeline on an uploaded file (multipart field "file")

The server refuses to start when GOOGLE_API_KEY is missing. If the pipeline
cannot be set up for any other reason (for example an unusable composer
model) the server still starts, reports "degraded" on /health and run
requests fail with 500 until it is restarted.`,
	Example: `  # Start the server
  docsquad server

  # Start on another port with debug logging
  docsquad server --port 9000 --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serverPort != 0 {
			appConfig.Server.Port = serverPort
		}

		var runner server.Runner
		orch, cleanup, err := buildOrchestrator(ctx, appConfig, logger, nil)
		switch {
		case pipeline.KindOf(err) == pipeline.KindConfigurationMissing:
			return err
		case err != nil:
			logger.Error().Err(err).Msg("pipeline unavailable, run requests will fail")
		default:
			defer cleanup()
			runner = orch
		}

		srv, err := server.New(&appConfig.Server, runner, logger)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

func init() {
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
