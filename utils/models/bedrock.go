package models

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/rs/zerolog"
)

// crossRegionPrefixes qualify Bedrock inference profile IDs
var crossRegionPrefixes = []string{"us.", "eu.", "apac.", "global."}

// converseAPI is the subset of the Bedrock runtime client used here
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider handles models served by AWS Bedrock through the Converse API
type BedrockProvider struct {
	client converseAPI
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewBedrockProvider creates a new Bedrock provider instance
func NewBedrockProvider() *BedrockProvider {
	return &BedrockProvider{logger: zerolog.Nop()}
}

// Name returns the provider name
func (b *BedrockProvider) Name() string {
	return "bedrock"
}

// SetLogger sets the logger used for debug output
func (b *BedrockProvider) SetLogger(logger zerolog.Logger) {
	b.logger = logger
}

func (b *BedrockProvider) debugf(format string, args ...interface{}) {
	b.logger.Debug().Str("provider", "bedrock").Msgf(format, args...)
}

// SupportsModel checks if the model name is a vendor-qualified Bedrock model ID
func (b *BedrockProvider) SupportsModel(modelName string) bool {
	name := strings.ToLower(strings.TrimSpace(modelName))
	for _, prefix := range crossRegionPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}
	return GetRegistry().ValidateModel("bedrock", name)
}

// Configure loads AWS credentials from the default chain for the given region
func (b *BedrockProvider) Configure(ctx context.Context, creds Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if strings.TrimSpace(creds.AWSRegion) == "" {
		return fmt.Errorf("AWS region is required for Bedrock provider")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(creds.AWSRegion))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	b.client = bedrockruntime.NewFromConfig(cfg)
	b.debugf("Configured for region %s", creds.AWSRegion)
	return nil
}

// Generate sends a system instruction and prompt through Converse
func (b *BedrockProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return "", fmt.Errorf("Bedrock provider not configured: missing AWS region")
	}
	if req.File != nil {
		return "", errNoFileSupport
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
			},
		},
	}
	if req.SystemInstruction != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.SystemInstruction},
		}
	}

	b.debugf("Sending prompt to %s, prompt length: %d characters", req.Model, len(req.Prompt))
	out, err := client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("Bedrock API error: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected Bedrock output type %T", out.Output)
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}
	b.debugf("API call completed, response length: %d characters", text.Len())
	return text.String(), nil
}

// Close is a no-op; the SDK client holds no resources
func (b *BedrockProvider) Close() error {
	return nil
}
