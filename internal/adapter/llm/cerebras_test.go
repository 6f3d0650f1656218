package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCerebras(t *testing.T, handler http.HandlerFunc) (*CerebrasProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewCerebrasProvider(config.ProviderConfig{
		Name:    "cerebras",
		Type:    "cerebras",
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "llama3.1-8b",
	}, testLogger())
	p.client = srv.Client()
	return p, srv
}

func TestCerebrasGenerate(t *testing.T) {
	var gotReq cerebrasRequest
	p, _ := newTestCerebras(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(cerebrasResponse{
			Model:   "llama3.1-8b",
			Choices: []cerebrasChoice{{Message: cerebrasMessage{Role: "assistant", Content: "hello there"}}},
			Usage:   cerebrasUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	})

	text, err := p.Generate(context.Background(), domain.GenerateRequest{
		Prompt:      "say hello",
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)

	assert.Equal(t, "llama3.1-8b", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "say hello", gotReq.Messages[0].Content)
	require.NotNil(t, gotReq.Temperature)
	assert.InDelta(t, 0.1, *gotReq.Temperature, 0.001)
	assert.Equal(t, 2000, gotReq.MaxTokens)
}

func TestCerebrasGenerateDefaultTemperature(t *testing.T) {
	var gotReq cerebrasRequest
	p, _ := newTestCerebras(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(cerebrasResponse{
			Choices: []cerebrasChoice{{Message: cerebrasMessage{Content: "ok"}}},
		})
	})

	_, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	require.NotNil(t, gotReq.Temperature)
	assert.InDelta(t, defaultTemperature, *gotReq.Temperature, 0.001)
}

func TestCerebrasGenerateMissingAPIKey(t *testing.T) {
	p := NewCerebrasProvider(config.ProviderConfig{
		Name:  "cerebras",
		Model: "llama3.1-8b",
	}, testLogger())

	_, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCredentialMissing))
}

func TestCerebrasGenerateEmptyChoices(t *testing.T) {
	p, _ := newTestCerebras(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cerebrasResponse{})
	})

	_, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGenerationFailed))
}

func TestCerebrasGenerateServerError(t *testing.T) {
	p, _ := newTestCerebras(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := p.Generate(context.Background(), domain.GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderError))
}

func TestCerebrasDefaults(t *testing.T) {
	p := NewCerebrasProvider(config.ProviderConfig{Name: "cerebras", Model: "llama3.1-8b"}, testLogger())
	assert.Equal(t, "https://api.cerebras.ai/v1", p.baseURL)
	assert.Equal(t, 2000, p.maxTokens)
	assert.Equal(t, "cerebras", p.Name())
}
