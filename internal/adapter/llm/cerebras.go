package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
	"skillsocket/internal/infra/tracer"
)

const defaultTemperature = 0.5

// CerebrasProvider implements domain.TextGenerator for the Cerebras
// inference API. The API is OpenAI-compatible, so the wire types below
// follow the chat completions shape.
type CerebrasProvider struct {
	name      string
	model     string
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
}

// NewCerebrasProvider creates a provider with configured timeouts.
func NewCerebrasProvider(cfg config.ProviderConfig, logger *slog.Logger) *CerebrasProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.cerebras.ai/v1"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	return &CerebrasProvider{
		name:      cfg.Name,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    NewHTTPClient(cfg),
		logger:    logger,
	}
}

// Generate implements domain.TextGenerator.
func (p *CerebrasProvider) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.generate",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", p.model),
		),
	)
	defer span.End()

	if p.apiKey == "" {
		err := domain.NewDomainError("Cerebras.Generate", domain.ErrCredentialMissing, "api key not configured")
		tracer.RecordError(span, err)
		return "", err
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	body, err := json.Marshal(cerebrasRequest{
		Model:       p.model,
		Messages:    []cerebrasMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return "", domain.WrapOp("Cerebras.Generate", err)
	}

	var resp cerebrasResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		tracer.RecordError(span, err)
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := domain.NewDomainError("Cerebras.Generate", domain.ErrGenerationFailed, "response has no choices")
		tracer.RecordError(span, err)
		return "", err
	}

	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", resp.Usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", resp.Usage.CompletionTokens),
	)
	tracer.SetOK(span)
	p.logger.Debug("llm generate completed",
		"provider", p.name,
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp.Choices[0].Message.Content, nil
}

// Name implements domain.TextGenerator.
func (p *CerebrasProvider) Name() string { return p.name }

// --- Cerebras API wire types ---

type cerebrasRequest struct {
	Model       string            `json:"model"`
	Messages    []cerebrasMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
}

type cerebrasMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cerebrasResponse struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Choices []cerebrasChoice `json:"choices"`
	Usage   cerebrasUsage    `json:"usage"`
}

type cerebrasChoice struct {
	Index        int             `json:"index"`
	Message      cerebrasMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type cerebrasUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

var _ domain.TextGenerator = (*CerebrasProvider)(nil)
