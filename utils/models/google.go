package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GoogleProvider handles Gemini models and the Gemini Files API
type GoogleProvider struct {
	apiKey string
	client *genai.Client
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewGoogleProvider creates a new Google provider instance
func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{logger: zerolog.Nop()}
}

// Name returns the provider name
func (g *GoogleProvider) Name() string {
	return "google"
}

// SetLogger sets the logger used for debug output
func (g *GoogleProvider) SetLogger(logger zerolog.Logger) {
	g.logger = logger
}

func (g *GoogleProvider) debugf(format string, args ...interface{}) {
	g.logger.Debug().Str("provider", "google").Msgf(format, args...)
}

// SupportsModel checks if the given model name is a Gemini model
func (g *GoogleProvider) SupportsModel(modelName string) bool {
	supported := GetRegistry().ValidateModel("google", modelName)
	g.debugf("Model %s supported: %t", modelName, supported)
	return supported
}

// Configure creates the Gemini client
func (g *GoogleProvider) Configure(ctx context.Context, creds Credentials) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if strings.TrimSpace(creds.GoogleAPIKey) == "" {
		return fmt.Errorf("API key is required for Google provider")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(creds.GoogleAPIKey))
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if g.client != nil {
		g.client.Close()
	}
	g.apiKey = creds.GoogleAPIKey
	g.client = client
	g.debugf("API key configured successfully")
	return nil
}

func (g *GoogleProvider) getClient() (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil, fmt.Errorf("Google provider not configured: missing API key")
	}
	return g.client, nil
}

// Generate sends a prompt, and optionally a remote file, to a Gemini model
func (g *GoogleProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	client, err := g.getClient()
	if err != nil {
		return "", err
	}
	if !g.SupportsModel(req.Model) {
		return "", fmt.Errorf("invalid Google model: %s", req.Model)
	}

	model := client.GenerativeModel(req.Model)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.File != nil {
		g.debugf("Attaching file %s (%s)", req.File.URI, req.File.MIMEType)
		parts = append(parts, genai.FileData{MIMEType: req.File.MIMEType, URI: req.File.URI})
	}

	g.debugf("Sending prompt to %s, prompt length: %d characters", req.Model, len(req.Prompt))
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := responseText(resp)
	g.debugf("API call completed, response length: %d characters", len(text))
	return text, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// UploadFile sends file bytes to the Gemini Files API
func (g *GoogleProvider) UploadFile(ctx context.Context, r io.Reader, opts UploadOptions) (*RemoteFile, error) {
	client, err := g.getClient()
	if err != nil {
		return nil, err
	}
	g.debugf("Uploading %s (%s)", opts.DisplayName, opts.MIMEType)
	f, err := client.UploadFile(ctx, "", r, &genai.UploadFileOptions{
		MIMEType:    opts.MIMEType,
		DisplayName: opts.DisplayName,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini upload error: %w", err)
	}
	return fromGenaiFile(f), nil
}

// GetFile fetches the current state of an uploaded file
func (g *GoogleProvider) GetFile(ctx context.Context, name string) (*RemoteFile, error) {
	client, err := g.getClient()
	if err != nil {
		return nil, err
	}
	f, err := client.GetFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("Gemini get file error: %w", err)
	}
	return fromGenaiFile(f), nil
}

// DeleteFile removes an uploaded file
func (g *GoogleProvider) DeleteFile(ctx context.Context, name string) error {
	client, err := g.getClient()
	if err != nil {
		return err
	}
	if err := client.DeleteFile(ctx, name); err != nil {
		return fmt.Errorf("Gemini delete file error: %w", err)
	}
	return nil
}

// Close releases the Gemini client
func (g *GoogleProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func fromGenaiFile(f *genai.File) *RemoteFile {
	if f == nil {
		return &RemoteFile{}
	}
	return &RemoteFile{
		Name:        f.Name,
		URI:         f.URI,
		MIMEType:    f.MIMEType,
		DisplayName: f.DisplayName,
		SizeBytes:   f.SizeBytes,
		State:       fromGenaiState(f.State),
	}
}

func fromGenaiState(s genai.FileState) FileState {
	switch s {
	case genai.FileStateProcessing:
		return FileStateProcessing
	case genai.FileStateActive:
		return FileStateActive
	case genai.FileStateFailed:
		return FileStateFailed
	default:
		return FileStateUnspecified
	}
}

var _ FileService = (*GoogleProvider)(nil)

// errNoFileSupport is returned by providers that cannot read remote files
var errNoFileSupport = errors.New("provider cannot read remote files; use a Gemini model for this stage")
