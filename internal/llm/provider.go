package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/util"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system+user exchange and returns the model's text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is a single-turn prompt
type CompletionRequest struct {
	System string
	Prompt string

	// JSON asks the backend for a JSON object when it supports a response format
	JSON bool

	// MaxTokens overrides the configured limit when non-zero
	MaxTokens int
}

// CompletionResponse is the model's reply
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "gemini", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	Timeout     time.Duration
	MaxTokens   int
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Timeout:     60 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// ConfigFromModel converts the file configuration to a provider Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:    llmCfg.Provider,
		Model:       llmCfg.Model,
		APIKey:      llmCfg.APIKey,
		BaseURL:     llmCfg.BaseURL,
		Timeout:     llmCfg.Timeout,
		MaxTokens:   llmCfg.MaxTokens,
		Temperature: llmCfg.Temperature,
		HTTPProxy:   httpCfg.HTTPProxy,
		HTTPSProxy:  httpCfg.HTTPSProxy,
		NoProxy:     httpCfg.NoProxy,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 60 * time.Second
	}
	return c.Timeout
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1024
}

// httpClient builds a client that honors the configured proxy
func (c Config) httpClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(c.HTTPProxy, c.HTTPSProxy, c.NoProxy)
	return &http.Client{
		Timeout:   c.timeout(),
		Transport: transport,
	}
}
