package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiProvider_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, ok := req["systemInstruction"]; !ok {
			t.Errorf("Expected systemInstruction in request, got %v", req)
		}
		gen, _ := req["generationConfig"].(map[string]any)
		if gen["responseMimeType"] != "application/json" {
			t.Errorf("Expected JSON response MIME type, got %v", gen)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": " {\"verdict\": \"Supported\"} "}]},
				"finishReason": 1
			}],
			"usageMetadata": {"totalTokenCount": 42}
		}`))
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(context.Background(), Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-test",
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	defer func() { _ = provider.Close() }()

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		System: "You are a fact checker.",
		Prompt: "Judge this sentence.",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Text != `{"verdict": "Supported"}` {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.Model != "gemini-test" || resp.TokensUsed != 42 {
		t.Errorf("Unexpected response metadata: %+v", resp)
	}
}

func TestGeminiProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(context.Background(), Config{APIKey: "test-key", BaseURL: server.URL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	defer func() { _ = provider.Close() }()

	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error for 429 response")
	}
}

func TestGeminiProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
