package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(config.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable reports whether a client was constructed
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	return p.client != nil
}

// Close releases the underlying connection
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Complete runs one GenerateContent request
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	name := p.config.Model
	if name == "" {
		name = defaultGeminiModel
	}

	gm := p.client.GenerativeModel(name)
	gm.SetTemperature(float32(p.config.Temperature))
	gm.SetMaxOutputTokens(int32(p.config.maxTokens(req.MaxTokens)))
	if req.System != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.JSON {
		gm.ResponseMIMEType = "application/json"
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		break
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CompletionResponse{
		Text:       strings.TrimSpace(text.String()),
		Model:      name,
		TokensUsed: tokens,
	}, nil
}
