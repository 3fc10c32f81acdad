package models

import (
	"strings"
	"sync"
)

// ModelRegistry is a centralized registry for all supported models across providers
type ModelRegistry struct {
	// Map of provider name to list of supported models
	models map[string][]string
	// Map of provider name to list of model families (prefixes)
	families map[string][]string
	mu       sync.RWMutex
}

var globalRegistry = NewModelRegistry()

// NewModelRegistry creates a new model registry
func NewModelRegistry() *ModelRegistry {
	registry := &ModelRegistry{
		models:   make(map[string][]string),
		families: make(map[string][]string),
	}
	registry.initializeDefaultModels()
	return registry
}

func (r *ModelRegistry) initializeDefaultModels() {
	// Google models; only these can read uploaded media
	r.RegisterModels("google", []string{
		"gemini-3-pro-preview",
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-pro-latest",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	})
	r.RegisterFamilies("google", []string{
		"gemini-",
	})

	r.RegisterModels("openai", []string{
		"gpt-5",
		"gpt-5-mini",
		"gpt-4.1",
		"gpt-4o",
		"gpt-4o-mini",
		"o3",
		"o3-mini",
		"o4-mini",
	})
	r.RegisterFamilies("openai", []string{
		"gpt-",
		"chatgpt-",
		"o1",
		"o3",
		"o4",
	})

	// Bedrock model IDs are vendor qualified, optionally behind a
	// cross-region inference profile prefix such as "us."
	r.RegisterModels("bedrock", []string{
		"anthropic.claude-3-5-sonnet-20240620-v1:0",
		"anthropic.claude-3-haiku-20240307-v1:0",
		"amazon.nova-pro-v1:0",
		"meta.llama3-70b-instruct-v1:0",
	})
	r.RegisterFamilies("bedrock", []string{
		"anthropic.",
		"amazon.",
		"meta.",
		"mistral.",
		"cohere.",
		"ai21.",
	})
}

// RegisterModels adds models to the registry for a specific provider
func (r *ModelRegistry) RegisterModels(provider string, models []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[provider] = append(r.models[provider], models...)
}

// RegisterFamilies adds model families (prefixes) to the registry for a specific provider
func (r *ModelRegistry) RegisterFamilies(provider string, families []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[provider] = append(r.families[provider], families...)
}

// GetModels returns the list of models for a specific provider
func (r *ModelRegistry) GetModels(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.models[provider]...)
}

// GetFamilies returns the list of model families for a specific provider
func (r *ModelRegistry) GetFamilies(provider string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.families[provider]...)
}

// ValidateModel checks if a model is valid for a specific provider
func (r *ModelRegistry) ValidateModel(provider string, modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modelName = strings.TrimSpace(strings.ToLower(modelName))
	if modelName == "" {
		return false
	}

	for _, valid := range r.models[provider] {
		if modelName == valid {
			return true
		}
	}

	for _, family := range r.families[provider] {
		if strings.HasPrefix(modelName, family) {
			return true
		}
	}

	return false
}

// GetAllModels returns a map of all models for all providers
func (r *ModelRegistry) GetAllModels() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]string)
	for provider, models := range r.models {
		result[provider] = append([]string{}, models...)
	}
	return result
}

// GetRegistry returns the global model registry instance
func GetRegistry() *ModelRegistry {
	return globalRegistry
}
