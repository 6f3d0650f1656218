package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillsocket/internal/domain"
)

type fakeMatcher struct {
	pingErr     error
	matches     []domain.MatchedUser
	matchErr    error
	gotRequired string
	gotOffered  string
	matchCalls  int
}

func (f *fakeMatcher) Ping(context.Context) error { return f.pingErr }

func (f *fakeMatcher) Match(_ context.Context, required, offered string) ([]domain.MatchedUser, error) {
	f.matchCalls++
	f.gotRequired = required
	f.gotOffered = offered
	return f.matches, f.matchErr
}

func TestSkillMatchAgentHappyPath(t *testing.T) {
	matcher := &fakeMatcher{matches: []domain.MatchedUser{
		{ID: "u1", Name: "Alice"},
		{ID: "u2", Name: "Bob"},
	}}
	llm := &fakeLLM{response: `{"skills_required":["Flutter"],"skills_offered":["Java"]}`}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	res, err := agent.Run(context.Background(), "I want to learn flutter and can teach java")
	require.NoError(t, err)
	assert.Equal(t, 2, res.MatchCount)
	assert.Len(t, res.Matches, 2)
	require.NotNil(t, res.Skills)
	assert.Equal(t, []string{"flutter"}, res.Skills.Required)
	assert.Equal(t, []string{"java"}, res.Skills.Offered)
	assert.Equal(t, "flutter", matcher.gotRequired)
	assert.Equal(t, "java", matcher.gotOffered)
	assert.Contains(t, res.Response, "Alice")
	assert.Contains(t, res.Response, "Bob")

	assert.InDelta(t, extractTemperature, llm.lastReq.Temperature, 0.001)
}

func TestSkillMatchAgentProbeFailure(t *testing.T) {
	matcher := &fakeMatcher{pingErr: domain.ErrMatchUnreachable}
	llm := &fakeLLM{}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	res, err := agent.Run(context.Background(), "find me a match")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "unavailable")
	assert.Zero(t, matcher.matchCalls)
	assert.Zero(t, llm.calls)
}

func TestSkillMatchAgentLLMFailureFallsBackToKeywords(t *testing.T) {
	matcher := &fakeMatcher{}
	llm := &fakeLLM{err: errors.New("provider down")}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	_, err := agent.Run(context.Background(), "I want to learn python, I can teach react")
	require.NoError(t, err)
	assert.Equal(t, "python", matcher.gotRequired)
	assert.Equal(t, "react", matcher.gotOffered)
}

func TestSkillMatchAgentGarbageExtractionFallsBack(t *testing.T) {
	for _, resp := range []string{
		"here are the skills you asked about",
		`{"skills_required": [1, 2]}`,
		`{"skills_required":[],"skills_offered":[]}`,
	} {
		matcher := &fakeMatcher{}
		agent := NewSkillMatchAgent(&fakeLLM{response: resp}, matcher, testLogger())

		_, err := agent.Run(context.Background(), "I want to learn docker, I know sql")
		require.NoError(t, err, "response: %s", resp)
		assert.Equal(t, "docker", matcher.gotRequired, "response: %s", resp)
		assert.Equal(t, "sql", matcher.gotOffered, "response: %s", resp)
	}
}

func TestSkillMatchAgentNoSkillsFoundSkipsLookup(t *testing.T) {
	matcher := &fakeMatcher{matches: []domain.MatchedUser{{ID: "u1", Name: "Alice"}}}
	agent := NewSkillMatchAgent(&fakeLLM{response: "no json"}, matcher, testLogger())

	res, err := agent.Run(context.Background(), "help me find study partners")
	require.NoError(t, err)
	// No skills in the query: nothing is looked up, nothing is invented.
	assert.Zero(t, matcher.matchCalls)
	assert.Empty(t, res.Matches)
	assert.Contains(t, res.Response, "couldn't find any skills")
}

func TestSkillMatchAgentPartialExtractionAsksForOtherSide(t *testing.T) {
	matcher := &fakeMatcher{}
	llm := &fakeLLM{response: `{"skills_required":["rust"],"skills_offered":[]}`}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	res, err := agent.Run(context.Background(), "I want to learn rust")
	require.NoError(t, err)
	assert.Zero(t, matcher.matchCalls)
	assert.Contains(t, res.Response, "rust")
	assert.Contains(t, res.Response, "what you can teach")
}

func TestSkillMatchAgentTimeoutGuidance(t *testing.T) {
	matcher := &fakeMatcher{matchErr: domain.NewSubSystemError("match", "Client.Match", domain.ErrMatchTimeout, "deadline")}
	llm := &fakeLLM{response: `{"skills_required":["go"],"skills_offered":["java"]}`}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "taking too long")
	assert.Empty(t, res.Matches)
}

func TestSkillMatchAgentUnreachableGuidance(t *testing.T) {
	matcher := &fakeMatcher{matchErr: domain.ErrMatchUnreachable}
	llm := &fakeLLM{response: `{"skills_required":["go"],"skills_offered":["java"]}`}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, res.Response, "unavailable")
}

func TestSkillMatchAgentNoMatches(t *testing.T) {
	matcher := &fakeMatcher{}
	llm := &fakeLLM{response: `{"skills_required":["cobol"],"skills_offered":["fortran"]}`}
	agent := NewSkillMatchAgent(llm, matcher, testLogger())

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Zero(t, res.MatchCount)
	assert.Contains(t, res.Response, "No users found")
}
