package domain

import "context"

// GenerateRequest is a single-turn text generation request.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// TextGenerator is the interface for any LLM text backend.
type TextGenerator interface {
	// Generate sends a prompt and returns the completed text.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Name returns the provider's identifier (e.g., "cerebras").
	Name() string
}
