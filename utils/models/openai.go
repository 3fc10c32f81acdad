package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider handles OpenAI chat models
type OpenAIProvider struct {
	client  *openai.Client
	baseURL string
	logger  zerolog.Logger
	mu      sync.Mutex
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{logger: zerolog.Nop()}
}

// Name returns the provider name
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// SetLogger sets the logger used for debug output
func (o *OpenAIProvider) SetLogger(logger zerolog.Logger) {
	o.logger = logger
}

// SetBaseURL points the client at an OpenAI compatible endpoint. It must be
// called before Configure.
func (o *OpenAIProvider) SetBaseURL(url string) {
	o.baseURL = url
}

func (o *OpenAIProvider) debugf(format string, args ...interface{}) {
	o.logger.Debug().Str("provider", "openai").Msgf(format, args...)
}

// SupportsModel checks if the given model name is an OpenAI model
func (o *OpenAIProvider) SupportsModel(modelName string) bool {
	return GetRegistry().ValidateModel("openai", modelName)
}

// Configure sets up the provider with necessary credentials
func (o *OpenAIProvider) Configure(ctx context.Context, creds Credentials) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if strings.TrimSpace(creds.OpenAIAPIKey) == "" {
		return fmt.Errorf("API key is required for OpenAI provider")
	}
	cfg := openai.DefaultConfig(creds.OpenAIAPIKey)
	switch {
	case o.baseURL != "":
		cfg.BaseURL = o.baseURL
	case creds.OpenAIBaseURL != "":
		cfg.BaseURL = strings.TrimRight(creds.OpenAIBaseURL, "/")
	}
	o.client = openai.NewClientWithConfig(cfg)
	o.debugf("API key configured successfully")
	return nil
}

// Generate sends a system instruction and prompt as a chat completion
func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	o.mu.Lock()
	client := o.client
	o.mu.Unlock()
	if client == nil {
		return "", fmt.Errorf("OpenAI provider not configured: missing API key")
	}
	if req.File != nil {
		return "", errNoFileSupport
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	o.debugf("Sending prompt to %s, prompt length: %d characters", req.Model, len(req.Prompt))
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	o.debugf("API call completed, response length: %d characters", len(content))
	return content, nil
}

// Close is a no-op; the HTTP client holds no resources
func (o *OpenAIProvider) Close() error {
	return nil
}
