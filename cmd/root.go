package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kris-hansen/docsquad/utils/config"
	"github.com/kris-hansen/docsquad/utils/logging"
	"github.com/spf13/cobra"
)

// version is a placeholder for the version string, which will be set at build time.
var version string

var verbose bool
var configPath string

// appConfig holds the loaded configuration, available to all commands
var appConfig *config.Config

// logger is the process logger built from appConfig
var logger = logging.Nop()

// logFile holds the log file handle for proper cleanup
var logFile *os.File

var rootCmd = &cobra.Command{
	Use:   "docsquad",
	Short: "Turn recordings and logs into technical documentation",
	Long: `Docsquad uploads a media or log file, extracts the technical facts it
contains and composes a Markdown procedure document from them.

Getting Started:
  1. export GOOGLE_API_KEY=...     or put it in .env / docsquad.yaml
  2. docsquad run session.mp4      Generate a document from a file
  3. docsquad server               Serve the pipeline over HTTP

Documents are written to ./output unless configured otherwise.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		appConfig = cfg

		var out io.Writer = os.Stderr
		// Optional: file-based logging preserves logs after the session ends
		if cfg.Log.File != "" {
			file, err := logging.OpenFile(cfg.Log.File)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v, continuing with stderr logging\n", err)
			} else {
				logFile = file
				out = file
			}
		}

		logger = logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: out,
		})
		logger.Debug().Str("config", path).Msg("configuration loaded")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func closeLogFile() {
	if logFile == nil {
		return
	}
	if err := logFile.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to sync log file: %v\n", err)
	}
	logFile.Close()
	logFile = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $DOCSQUAD_CONFIG or ./docsquad.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// getVersion returns the version string.
// Priority: build-time ldflags > VERSION file (for development)
func getVersion() string {
	if version != "" {
		return version
	}

	// go run . has no ldflags; read VERSION from the project root
	_, filename, _, ok := runtime.Caller(0)
	if ok {
		projectRoot := filepath.Dir(filepath.Dir(filename))
		content, err := os.ReadFile(filepath.Join(projectRoot, "VERSION"))
		if err == nil {
			return "v" + strings.TrimSpace(string(content)) + "-dev"
		}
	}

	return "unknown (build with: go build -ldflags \"-X 'github.com/kris-hansen/docsquad/cmd.version=vX.Y.Z'\")"
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the current Docsquad version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Docsquad version: %s\n", getVersion())
	},
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		closeLogFile()
		fmt.Fprintln(os.Stderr, NewStyler().Failure(err))
		os.Exit(1)
	}
}
