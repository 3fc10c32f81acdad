package models

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// FileData points a generation call at a file already held by the remote service
type FileData struct {
	URI      string
	MIMEType string
}

// GenerateRequest is a single-turn generation call
type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Prompt            string
	File              *FileData // Optional; only providers that host files accept it
}

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Credentials carries what each provider needs to authenticate
type Credentials struct {
	GoogleAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string // Optional OpenAI compatible endpoint (vLLM, Ollama, DeepSeek...)
	AWSRegion     string
}

// Provider represents a model provider (e.g., Google, OpenAI, Bedrock)
type Provider interface {
	Generator
	Name() string
	SupportsModel(modelName string) bool
	Configure(ctx context.Context, creds Credentials) error
	SetLogger(logger zerolog.Logger)
	Close() error
}

// FileState is the processing state the remote file service reports
type FileState int

const (
	FileStateUnspecified FileState = iota
	FileStateProcessing
	FileStateActive
	FileStateFailed
)

func (s FileState) String() string {
	switch s {
	case FileStateProcessing:
		return "PROCESSING"
	case FileStateActive:
		return "ACTIVE"
	case FileStateFailed:
		return "FAILED"
	default:
		return "STATE_UNSPECIFIED"
	}
}

// RemoteFile is the remote service's view of an uploaded file
type RemoteFile struct {
	Name        string
	URI         string
	MIMEType    string
	DisplayName string
	SizeBytes   int64
	State       FileState
}

// UploadOptions describes a file being uploaded
type UploadOptions struct {
	MIMEType    string
	DisplayName string
}

// FileService uploads files to a generation provider and reports their state
type FileService interface {
	UploadFile(ctx context.Context, r io.Reader, opts UploadOptions) (*RemoteFile, error)
	GetFile(ctx context.Context, name string) (*RemoteFile, error)
	DeleteFile(ctx context.Context, name string) error
}

// DetectProviderFunc is the type for the provider detection function
type DetectProviderFunc func(modelName string) Provider

// DetectProvider determines the appropriate provider based on the model name
var DetectProvider DetectProviderFunc = defaultDetectProvider

func defaultDetectProvider(modelName string) Provider {
	// Ordered from most specific to most general
	providers := []Provider{
		NewGoogleProvider(),  // Handles gemini- models
		NewBedrockProvider(), // Handles vendor-qualified model IDs
		NewOpenAIProvider(),  // Handles gpt- and o-series models
	}

	for _, provider := range providers {
		if provider.SupportsModel(modelName) {
			return provider
		}
	}
	return nil
}

// ForModel detects, configures and returns the provider serving modelName
func ForModel(ctx context.Context, modelName string, creds Credentials, logger zerolog.Logger) (Provider, error) {
	modelName = strings.TrimSpace(modelName)
	provider := DetectProvider(modelName)
	if provider == nil && creds.OpenAIBaseURL != "" {
		// Local and third-party servers name their models freely
		provider = NewOpenAIProvider()
	}
	if provider == nil {
		return nil, fmt.Errorf("no provider supports model %q", modelName)
	}
	provider.SetLogger(logger)
	if err := provider.Configure(ctx, creds); err != nil {
		return nil, fmt.Errorf("failed to configure %s provider for model %s: %w", provider.Name(), modelName, err)
	}
	logger.Debug().Str("provider", provider.Name()).Str("model", modelName).Msg("provider configured")
	return provider, nil
}
