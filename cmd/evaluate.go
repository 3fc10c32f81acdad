package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/kris-hansen/docsquad/utils/fileutil"
	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/kris-hansen/docsquad/utils/pipeline"
	"github.com/spf13/cobra"
)

var evaluateModel string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <generated.md> <golden.md>",
	Short: "Score a generated document against a reference document",
	Long: `Ask a model to judge a generated document against an ideal one written by
a person. The judge weighs completeness, accuracy, Markdown format, clarity
and coherence, then returns a score from 1 to 100 with a summary of
strengths and areas to improve.

The judge model comes from models.evaluator in the config file unless
--model is given.`,
	Example: `  # Compare a generated guide with the hand-written one
  docsquad evaluate output/deploy_doc_20240309_140507.md docs/deploy.md

  # Use another judge
  docsquad evaluate generated.md golden.md --model gpt-4o`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := validateConfig(appConfig); err != nil {
			return err
		}

		generated, err := readDocument(args[0])
		if err != nil {
			return err
		}
		golden, err := readDocument(args[1])
		if err != nil {
			return err
		}

		model := appConfig.Models.Evaluator
		if evaluateModel != "" {
			model = evaluateModel
		}
		provider, err := models.ForModel(ctx, model, credentials(appConfig), logger)
		if err != nil {
			return fmt.Errorf("failed to set up evaluator model: %w", err)
		}
		defer func() {
			if err := provider.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close provider")
			}
		}()

		out := cmd.OutOrStdout()
		spinner := NewSpinner(out)
		if verbose {
			spinner.Disable()
		}

		spinner.Start("Evaluating document")
		evaluator := pipeline.NewDocumentEvaluator(provider, model, logger)
		ev, err := evaluator.Evaluate(ctx, generated, golden)
		if err != nil {
			spinner.Fail()
			return err
		}
		spinner.Stop()

		fmt.Fprintln(out, NewStyler().Evaluation(ev))
		return nil
	},
}

func readDocument(arg string) (string, error) {
	path, err := fileutil.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", pipeline.NewError(pipeline.KindNotFound, pipeline.StageEvaluate, fmt.Sprintf("file %s does not exist", path), nil)
	}
	if err != nil {
		return "", pipeline.NewError(pipeline.KindEvaluationFailed, pipeline.StageEvaluate, "could not read "+path, err)
	}
	return string(data), nil
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateModel, "model", "m", "", "judge model (overrides config)")
	rootCmd.AddCommand(evaluateCmd)
}
