package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("Expected stream=false")
		}
		if req.Model != "llama3.2-vision" {
			t.Errorf("Unexpected model: %s", req.Model)
		}

		resp := ollamaResponse{
			Model:     req.Model,
			Response:  `{"records": []}`,
			Done:      true,
			EvalCount: 50,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.2-vision", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "extract"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Text != `{"records": []}` {
		t.Errorf("Unexpected response: %s", resp.Text)
	}
}

func TestOllamaProvider_Generate_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model not found"})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), GenerateRequest{Prompt: "extract"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	provider, err := NewOllamaProvider(Config{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if _, err := provider.Generate(context.Background(), GenerateRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error for missing model")
	}
}

func TestNewProvider_Factory(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openai", APIKey: "k"})
	if err != nil || p == nil || p.Name() != "openai" {
		t.Errorf("expected openai provider, got %v, %v", p, err)
	}

	p, err = NewProvider(Config{Provider: "ollama"})
	if err != nil || p == nil || p.Name() != "ollama" {
		t.Errorf("expected ollama provider, got %v, %v", p, err)
	}

	p, err = NewProvider(Config{Provider: ""})
	if err != nil || p != nil {
		t.Errorf("expected nil provider for empty config, got %v, %v", p, err)
	}

	if _, err = NewProvider(Config{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
