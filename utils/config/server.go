package config

import "time"

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	RuntimeDir        string        `yaml:"runtime_dir"` // Scratch directory for uploaded files, removed after each run
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxConcurrentRuns int           `yaml:"max_concurrent_runs"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
}

// Addr returns the listen address for the server
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
