package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvGoogleKey, EnvOpenAIKey, EnvOpenAIURL, EnvAWSRegion, EnvOutputDir, EnvPort, EnvLogLevel, EnvLogFile} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	chdirForTest(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Models.Extractor)
	assert.Equal(t, "gemini-2.5-pro", cfg.Models.Evaluator)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, ".md", cfg.Output.Extension)
	assert.Equal(t, 5*time.Second, cfg.Upload.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Upload.MaxWait)
	assert.True(t, cfg.Pipeline.PreserveHistory)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadFileThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	chdirForTest(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "docsquad.yaml")
	content := `google_api_key: from-file
models:
  extractor: gemini-2.5-flash
  composer: gpt-4o
  evaluator: gpt-4o-mini
output:
  dir: docs
upload:
  poll_interval: 2s
  max_wait: 1m
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv(EnvGoogleKey, "from-env")
	t.Setenv(EnvPort, "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GoogleAPIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Models.Extractor)
	assert.Equal(t, "gpt-4o", cfg.Models.Composer)
	assert.Equal(t, "gpt-4o-mini", cfg.Models.Evaluator)
	assert.Equal(t, "docs", cfg.Output.Dir)
	assert.Equal(t, 2*time.Second, cfg.Upload.PollInterval)
	assert.Equal(t, time.Minute, cfg.Upload.MaxWait)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvGoogleKey)
	dir := t.TempDir()
	chdirForTest(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=dotenv-key-1234\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key-1234", cfg.GoogleAPIKey)
	os.Unsetenv(EnvGoogleKey)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "eighty")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.GoogleAPIKey = "  " },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:   "valid",
			mutate: func(c *Config) { c.GoogleAPIKey = "key" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := Default()
	cfg.GoogleAPIKey = "key"
	cfg.Output.Extension = "txt"
	cfg.Server.MaxConcurrentRuns = 0

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".txt", cfg.Output.Extension)
	assert.Equal(t, 1, cfg.Server.MaxConcurrentRuns)
}

func TestValidateRejectsBadPolling(t *testing.T) {
	cfg := Default()
	cfg.GoogleAPIKey = "key"
	cfg.Upload.MaxWait = time.Second
	cfg.Upload.PollInterval = 5 * time.Second
	assert.Error(t, cfg.Validate())
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "(not set)", MaskKey(""))
	assert.Equal(t, "****", MaskKey("abcd"))
	assert.Equal(t, "...1234", MaskKey("test-key-1234"))
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", s.Addr())
}

// chdirForTest changes the working directory for the duration of the test
// and restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
