package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kris-hansen/docsquad/utils/fileutil"
	"github.com/kris-hansen/docsquad/utils/pipeline"
	"github.com/spf13/cobra"
)

var (
	runUserContext string
	runOutputDir   string
	runPrint       bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Generate a document from a media or log file",
	Long: `Upload a file, extract the technical facts it contains and compose a
Markdown document from them. The document is saved as
<output-dir>/<name>_doc_<YYYYMMDD_HHMMSS>.md.`,
	Example: `  # Document a screen recording
  docsquad run ~/Videos/deploy.mp4

  # Give the analyst some context
  docsquad run server.log --context "nginx upgrade on the staging box"

  # Write somewhere else and print the result
  docsquad run session.mp4 --output-dir docs --print`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runOutputDir != "" {
			appConfig.Output.Dir = runOutputDir
		}

		out := cmd.OutOrStdout()
		spinner := NewSpinner(out)
		if verbose {
			// Log lines and the spinner share the terminal
			spinner.Disable()
		}

		path, err := fileutil.ExpandPath(args[0])
		if err != nil {
			return err
		}

		orch, cleanup, err := buildOrchestrator(ctx, appConfig, logger, spinner.OnStatus)
		if err != nil {
			return err
		}
		defer cleanup()

		outcome, err := orch.Run(ctx, pipeline.Request{
			FilePath:    path,
			UserContext: runUserContext,
		})
		if err != nil {
			return err
		}

		styler := NewStyler()
		fmt.Fprintln(out, styler.Success(outcome.Confirmation))
		fmt.Fprintln(out, styler.Summary(outcome))
		if runPrint {
			fmt.Fprintln(out)
			fmt.Fprintln(out, outcome.Document)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runUserContext, "context", "", "optional context for the analyst")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "directory for generated documents (overrides config)")
	runCmd.Flags().BoolVarP(&runPrint, "print", "p", false, "print the generated document")
	rootCmd.AddCommand(runCmd)
}
