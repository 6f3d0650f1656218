package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsocket/internal/domain"
)

func TestRoadmapAgentBuildsRoadmap(t *testing.T) {
	search := &fakeSearchTool{results: someResults()}
	llm := &fakeLLM{response: "Beginner: ...\nIntermediate: ...\nAdvanced: ..."}
	agent := NewRoadmapAgent(llm, &fakeToolExecutor{tool: search}, testLogger())

	res, err := agent.Run(context.Background(), "rust")
	require.NoError(t, err)
	assert.Equal(t, "rust", res.Topic)
	assert.Contains(t, res.Roadmap, "Beginner")
	assert.Len(t, res.Sources, 2)

	// Roadmaps are generated warm, with search context in the prompt.
	assert.InDelta(t, roadmapTemperature, llm.lastReq.Temperature, 0.001)
	assert.Contains(t, llm.lastReq.Prompt, "Beginner, Intermediate, and Advanced")
	assert.Contains(t, llm.lastReq.Prompt, "Source [1]:")
	assert.Equal(t, []string{"learning path and key concepts for rust"}, search.queries)
}

func TestRoadmapAgentToleratesSearchFailure(t *testing.T) {
	search := &fakeSearchTool{err: errors.New("tavily down")}
	llm := &fakeLLM{response: "a roadmap from memory"}
	agent := NewRoadmapAgent(llm, &fakeToolExecutor{tool: search}, testLogger())

	res, err := agent.Run(context.Background(), "kubernetes")
	require.NoError(t, err)
	assert.Equal(t, "a roadmap from memory", res.Roadmap)
	assert.Empty(t, res.Sources)
	assert.NotContains(t, llm.lastReq.Prompt, "Source [")
}

func TestRoadmapAgentEmptyTopic(t *testing.T) {
	agent := NewRoadmapAgent(&fakeLLM{}, &fakeToolExecutor{}, testLogger())

	_, err := agent.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRoadmapAgentGenerationError(t *testing.T) {
	search := &fakeSearchTool{results: someResults()}
	llm := &fakeLLM{err: errors.New("provider down")}
	agent := NewRoadmapAgent(llm, &fakeToolExecutor{tool: search}, testLogger())

	_, err := agent.Run(context.Background(), "go")
	require.Error(t, err)
}
