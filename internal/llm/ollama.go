package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	olla "github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.1"

// OllamaProvider implements the Provider interface for Ollama local models
type OllamaProvider struct {
	client *olla.Client
	config Config
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &OllamaProvider{
		client: olla.NewClient(parsedURL, config.httpClient()),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the Ollama server answers
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	return p.client.Heartbeat(ctx) == nil
}

// Complete runs one non-streaming generate request
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := p.config.Model
	if model == "" {
		model = defaultOllamaModel
	}

	genReq := &olla.GenerateRequest{
		Model:  model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: &[]bool{false}[0],
		Options: map[string]any{
			"temperature": p.config.Temperature,
			"num_predict": p.config.maxTokens(req.MaxTokens),
		},
	}
	if req.JSON {
		genReq.Format = []byte(`"json"`)
	}

	var text strings.Builder
	tokens := 0
	err := p.client.Generate(ctx, genReq, func(resp olla.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.Done {
			tokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response from ollama")
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      model,
		TokensUsed: tokens,
	}, nil
}
