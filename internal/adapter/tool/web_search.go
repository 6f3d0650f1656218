package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/tracer"
)

const (
	defaultSearchCount = 5
	maxSearchCount     = 20
	defaultCacheTTL    = 15 * time.Minute
)

// cacheEntry holds a cached search response with its expiration time.
type cacheEntry struct {
	result    domain.SearchResponse
	expiresAt time.Time
}

// WebSearchTool performs web searches via a pluggable SearchBackend.
// Results are returned as a JSON-encoded domain.SearchResponse so agents
// can work with structured sources instead of re-parsing prose.
type WebSearchTool struct {
	backend  SearchBackend
	cacheTTL time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewWebSearchTool creates a web search tool backed by the given SearchBackend.
func NewWebSearchTool(backend SearchBackend, cacheTTL time.Duration, logger *slog.Logger) *WebSearchTool {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &WebSearchTool{
		backend:  backend,
		cacheTTL: cacheTTL,
		logger:   logger,
		cache:    make(map[string]cacheEntry),
	}
}

func (t *WebSearchTool) Name() string        { return "web_search" }
func (t *WebSearchTool) Description() string { return "Search the web" }

func (t *WebSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "The search query"},
				"count": {"type": "integer", "minimum": 1, "maximum": 20, "description": "Number of results (default: 5)"}
			},
			"required": ["query"]
		}`),
	}
}

type webSearchParams struct {
	Query string `json:"query"`
	Count int    `json:"count,omitempty"`
}

func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.web_search", t.logger, params,
		func(ctx context.Context, span trace.Span, p webSearchParams) (any, error) {
			if strings.TrimSpace(p.Query) == "" {
				return nil, fmt.Errorf("query must not be empty")
			}

			span.SetAttributes(tracer.StringAttr("tool.query", p.Query))

			if p.Count <= 0 {
				p.Count = defaultSearchCount
			}
			if p.Count > maxSearchCount {
				p.Count = maxSearchCount
			}

			cacheKey := fmt.Sprintf("%s|%d", p.Query, p.Count)
			if cached, ok := t.getCached(cacheKey); ok {
				t.logger.Debug("web search cache hit", "query", p.Query)
				span.SetAttributes(tracer.StringAttr("tool.cache", "hit"))
				return cached, nil
			}

			results, err := t.backend.Search(ctx, p.Query, p.Count)
			if err != nil {
				return nil, err
			}

			if len(results) > p.Count {
				results = results[:p.Count]
			}

			resp := domain.SearchResponse{Results: results}
			t.putCache(cacheKey, resp)

			t.logger.Debug("web search completed", "query", p.Query, "results", len(results))
			return resp, nil
		},
	)
}

// getCached returns a cached response if it exists and has not expired.
func (t *WebSearchTool) getCached(key string) (domain.SearchResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.cache[key]
	if !ok {
		return domain.SearchResponse{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(t.cache, key)
		return domain.SearchResponse{}, false
	}
	return entry.result, true
}

// putCache stores a response in the cache with the configured TTL.
func (t *WebSearchTool) putCache(key string, resp domain.SearchResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache[key] = cacheEntry{
		result:    resp,
		expiresAt: time.Now().Add(t.cacheTTL),
	}

	// Lazy eviction: remove expired entries if cache grows large
	if len(t.cache) > 100 {
		now := time.Now()
		for k, v := range t.cache {
			if now.After(v.expiresAt) {
				delete(t.cache, k)
			}
		}
	}
}

var _ domain.Tool = (*WebSearchTool)(nil)
