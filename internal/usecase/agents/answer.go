// Package agents implements the query agents the router dispatches to:
// web-grounded answers, learning roadmaps, and skill matching.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"skillsocket/internal/domain"
)

const noResultsAnswer = "Sorry, I couldn't find relevant information online."

// AnswerAgent answers questions grounded in web search results.
type AnswerAgent struct {
	llm    domain.TextGenerator
	tools  domain.ToolExecutor
	logger *slog.Logger
}

// NewAnswerAgent creates the answer agent.
func NewAnswerAgent(llm domain.TextGenerator, tools domain.ToolExecutor, logger *slog.Logger) *AnswerAgent {
	return &AnswerAgent{llm: llm, tools: tools, logger: logger}
}

func (a *AnswerAgent) Name() domain.AgentName { return domain.AgentAnswer }

func (a *AnswerAgent) Description() string {
	return "Answers general questions using live web search results with cited sources"
}

// Run searches the web for the query and synthesizes an answer from the
// results. No results short-circuits to a fixed answer without an LLM
// call.
func (a *AnswerAgent) Run(ctx context.Context, query string) (*domain.AgentResult, error) {
	results, err := runWebSearch(ctx, a.tools, query)
	if err != nil {
		return nil, domain.WrapOp("AnswerAgent.Run", err)
	}
	if len(results) == 0 {
		a.logger.Debug("answer agent found no results", "query", query)
		return &domain.AgentResult{Answer: noResultsAnswer}, nil
	}

	answer, err := a.llm.Generate(ctx, domain.GenerateRequest{
		Prompt: a.answerPrompt(query, results),
	})
	if err != nil {
		return nil, domain.WrapOp("AnswerAgent.Run", err)
	}

	return &domain.AgentResult{
		Answer:  strings.TrimSpace(answer),
		Sources: dedupeSources(results),
	}, nil
}

// answerPrompt numbers each result so the model can cite them.
func (a *AnswerAgent) answerPrompt(query string, results []domain.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the user's question using only the sources below. Cite sources by number.\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "Source [%d]: %s (URL: %s)\n", i+1, r.Content, r.URL)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

// dedupeSources keeps the first occurrence of each URL in result order.
func dedupeSources(results []domain.SearchResult) []domain.Source {
	seen := make(map[string]struct{}, len(results))
	sources := make([]domain.Source, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		sources = append(sources, domain.Source{Title: r.Title, URL: r.URL})
	}
	return sources
}

// runWebSearch executes the web_search tool and decodes its structured
// response.
func runWebSearch(ctx context.Context, tools domain.ToolExecutor, query string) ([]domain.SearchResult, error) {
	tool, err := tools.Get("web_search")
	if err != nil {
		return nil, err
	}

	params, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal search params: %w", err)
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		return nil, fmt.Errorf("%w: %s", domain.ErrSearchFailed, result.Content)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal([]byte(result.Content), &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Results, nil
}

var _ domain.Agent = (*AnswerAgent)(nil)
