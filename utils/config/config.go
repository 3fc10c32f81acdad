package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when no Google API key is configured.
var ErrMissingAPIKey = errors.New("GOOGLE_API_KEY not found in environment, .env file or config file")

// Environment variables understood by Load
const (
	EnvConfigPath = "DOCSQUAD_CONFIG"
	EnvGoogleKey  = "GOOGLE_API_KEY"
	EnvOpenAIKey  = "OPENAI_API_KEY"
	EnvOpenAIURL  = "OPENAI_BASE_URL"
	EnvAWSRegion  = "AWS_REGION"
	EnvOutputDir  = "DOCSQUAD_OUTPUT_DIR"
	EnvPort       = "DOCSQUAD_PORT"
	EnvLogLevel   = "DOCSQUAD_LOG_LEVEL"
	EnvLogFile    = "DOCSQUAD_LOG_FILE"

	DefaultConfigFile = "docsquad.yaml"
)

// Config is the process-wide configuration. It is built once at startup and
// handed explicitly to every component that needs it.
type Config struct {
	GoogleAPIKey string         `yaml:"google_api_key"`
	OpenAIAPIKey string         `yaml:"openai_api_key"`
	OpenAIURL    string         `yaml:"openai_base_url"` // OpenAI compatible endpoint for the composer
	AWSRegion    string         `yaml:"aws_region"`
	Models       ModelsConfig   `yaml:"models"`
	Output       OutputConfig   `yaml:"output"`
	Upload       UploadConfig   `yaml:"upload"`
	Pipeline     PipelineConfig `yaml:"pipeline"`
	Server       ServerConfig   `yaml:"server"`
	Log          LogConfig      `yaml:"log"`
}

// ModelsConfig selects the model used by each generation stage
type ModelsConfig struct {
	Extractor string `yaml:"extractor"`
	Composer  string `yaml:"composer"`
	Evaluator string `yaml:"evaluator"`
}

// OutputConfig controls where composed documents are written
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`
}

// UploadConfig bounds the wait for remote file processing
type UploadConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// PipelineConfig holds orchestrator switches
type PipelineConfig struct {
	PreserveHistory bool `yaml:"preserve_history"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
	File   string `yaml:"file"`
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		AWSRegion: "us-east-1",
		Models: ModelsConfig{
			Extractor: "gemini-2.5-pro",
			Composer:  "gemini-2.5-pro",
			Evaluator: "gemini-2.5-pro",
		},
		Output: OutputConfig{
			Dir:       "output",
			Extension: ".md",
		},
		Upload: UploadConfig{
			PollInterval: 5 * time.Second,
			MaxWait:      10 * time.Minute,
		},
		Pipeline: PipelineConfig{
			PreserveHistory: true,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8000,
			RuntimeDir:        ".docsquad/runtime",
			RequestTimeout:    15 * time.Minute,
			ShutdownTimeout:   30 * time.Second,
			MaxConcurrentRuns: 4,
			MaxUploadBytes:    512 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetConfigPath returns the config file path from DOCSQUAD_CONFIG or the default
func GetConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigFile
}

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then a .env file in the working directory, then the environment.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// optional
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Ignore error if .env doesn't exist
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvGoogleKey); v != "" {
		c.GoogleAPIKey = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv(EnvOpenAIURL); v != "" {
		c.OpenAIURL = v
	}
	if v := os.Getenv(EnvAWSRegion); v != "" {
		c.AWSRegion = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvPort, v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the settings the process cannot start without and
// normalizes the output extension and run limit.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GoogleAPIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Upload.PollInterval <= 0 {
		return fmt.Errorf("upload.poll_interval must be positive, got %s", c.Upload.PollInterval)
	}
	if c.Upload.MaxWait < c.Upload.PollInterval {
		return fmt.Errorf("upload.max_wait (%s) must be at least upload.poll_interval (%s)", c.Upload.MaxWait, c.Upload.PollInterval)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if c.Output.Extension != "" && !strings.HasPrefix(c.Output.Extension, ".") {
		c.Output.Extension = "." + c.Output.Extension
	}
	if c.Server.MaxConcurrentRuns < 1 {
		c.Server.MaxConcurrentRuns = 1
	}
	return nil
}

// MaskKey hides all but the last four characters of a credential
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "..." + key[len(key)-4:]
}

// Redacted returns a copy of the config with credentials masked, suitable for display
func (c *Config) Redacted() Config {
	out := *c
	out.GoogleAPIKey = MaskKey(c.GoogleAPIKey)
	out.OpenAIAPIKey = MaskKey(c.OpenAIAPIKey)
	return out
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
