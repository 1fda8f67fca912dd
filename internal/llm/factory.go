package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// apiKeyEnv lists the environment variables consulted when no key is configured
var apiKeyEnv = map[string][]string{
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// NewProvider creates a new LLM provider based on configuration
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)
	config.APIKey = ResolveAPIKey(provider, config.APIKey)

	switch provider {
	case "openai", "":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(ctx, config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, gemini, ollama)", config.Provider)
	}
}

// ResolveAPIKey returns key, or the provider's environment variable when key is empty
func ResolveAPIKey(provider, key string) string {
	if key != "" {
		return key
	}
	switch provider {
	case "", "openai":
		provider = "openai"
	case "claude":
		provider = "anthropic"
	case "google":
		provider = "gemini"
	}
	for _, name := range apiKeyEnv[provider] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
