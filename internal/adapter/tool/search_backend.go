package tool

import (
	"context"

	"skillsocket/internal/domain"
)

// SearchBackend abstracts a web search engine.
type SearchBackend interface {
	// Search performs a web search and returns results.
	Search(ctx context.Context, query string, count int) ([]domain.SearchResult, error)
	// Name returns the backend identifier (e.g. "tavily").
	Name() string
}
