package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"skillsocket/internal/domain"
)

const roadmapTemperature = 0.7

// RoadmapAgent produces structured learning roadmaps for a topic,
// seeded with fresh search results so recommendations stay current.
type RoadmapAgent struct {
	llm    domain.TextGenerator
	tools  domain.ToolExecutor
	logger *slog.Logger
}

// NewRoadmapAgent creates the roadmap agent.
func NewRoadmapAgent(llm domain.TextGenerator, tools domain.ToolExecutor, logger *slog.Logger) *RoadmapAgent {
	return &RoadmapAgent{llm: llm, tools: tools, logger: logger}
}

func (a *RoadmapAgent) Name() domain.AgentName { return domain.AgentRoadmap }

func (a *RoadmapAgent) Description() string {
	return "Creates step-by-step learning roadmaps for a skill or technology"
}

// Run builds a Beginner/Intermediate/Advanced roadmap for the topic.
// Search failures are tolerated; the roadmap is then generated from the
// model's own knowledge.
func (a *RoadmapAgent) Run(ctx context.Context, topic string) (*domain.AgentResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.NewSubSystemError("agent", "RoadmapAgent.Run", domain.ErrInvalidInput, "empty topic")
	}

	results, err := runWebSearch(ctx, a.tools, "learning path and key concepts for "+topic)
	if err != nil {
		a.logger.Warn("roadmap search failed, generating without context", "topic", topic, "error", err)
		results = nil
	}

	roadmap, err := a.llm.Generate(ctx, domain.GenerateRequest{
		Prompt:      a.roadmapPrompt(topic, results),
		Temperature: roadmapTemperature,
	})
	if err != nil {
		return nil, domain.WrapOp("RoadmapAgent.Run", err)
	}

	return &domain.AgentResult{
		Topic:   topic,
		Roadmap: strings.TrimSpace(roadmap),
		Sources: dedupeSources(results),
	}, nil
}

func (a *RoadmapAgent) roadmapPrompt(topic string, results []domain.SearchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a learning roadmap for %q.\n", topic)
	sb.WriteString("Structure it into three stages: Beginner, Intermediate, and Advanced.\n")
	sb.WriteString("For each stage list the key concepts to master, concrete practice projects, and an estimated time investment.\n")
	if len(results) > 0 {
		sb.WriteString("\nRecent references you may draw on:\n")
		for i, r := range results {
			fmt.Fprintf(&sb, "Source [%d]: %s (URL: %s)\n", i+1, r.Content, r.URL)
		}
	}
	return sb.String()
}

var _ domain.Agent = (*RoadmapAgent)(nil)
