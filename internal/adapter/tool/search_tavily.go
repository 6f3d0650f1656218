package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"skillsocket/internal/domain"
)

const maxSearchBodySize = 512 * 1024 // 512KB

const defaultTavilyURL = "https://api.tavily.com"

// tavilyRequest models the Tavily search request. The API key travels in
// the request body, not a header.
type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

// tavilyResponse models the relevant portion of the Tavily JSON response.
type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// TavilyBackend searches the web via the Tavily API.
type TavilyBackend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewTavilyBackend creates a search backend backed by the Tavily API.
func NewTavilyBackend(baseURL, apiKey string, logger *slog.Logger) *TavilyBackend {
	if baseURL == "" {
		baseURL = defaultTavilyURL
	}
	return &TavilyBackend{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
	}
}

func (b *TavilyBackend) Name() string { return "tavily" }

func (b *TavilyBackend) Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error) {
	if b.apiKey == "" {
		return nil, domain.NewDomainError("Tavily.Search", domain.ErrCredentialMissing, "api key not configured")
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      b.apiKey,
		Query:       query,
		SearchDepth: "advanced",
		MaxResults:  count,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrSearchFailed, resp.StatusCode, string(respBody))
	}

	var tavResp tavilyResponse
	if err := json.Unmarshal(respBody, &tavResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(tavResp.Results))
	for _, r := range tavResp.Results {
		if len(results) >= count {
			break
		}
		results = append(results, domain.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}

	b.logger.Debug("tavily search completed", "query", query, "results", len(results))
	return results, nil
}

var _ SearchBackend = (*TavilyBackend)(nil)
