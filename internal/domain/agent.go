package domain

import "context"

// AgentName identifies a query agent.
type AgentName string

const (
	// AgentAnswer answers general questions from live web search results.
	AgentAnswer AgentName = "answer"
	// AgentRoadmap builds structured learning roadmaps for a topic.
	AgentRoadmap AgentName = "roadmap"
	// AgentSkillMatch finds users with complementary skills.
	AgentSkillMatch AgentName = "skillmatch"
)

// Source is a web citation attached to an agent answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AgentResult is the outcome of running a query agent. Fields are
// populated per agent: Answer+Sources by the answer agent, Roadmap by
// the roadmap agent, Response+Matches+Skills by the skill-match agent.
type AgentResult struct {
	Answer     string        `json:"answer,omitempty"`
	Sources    []Source      `json:"sources,omitempty"`
	Roadmap    string        `json:"roadmap,omitempty"`
	Topic      string        `json:"topic,omitempty"`
	Response   string        `json:"response,omitempty"`
	Matches    []MatchedUser `json:"matches,omitempty"`
	MatchCount int           `json:"match_count,omitempty"`
	Skills     *SkillSet     `json:"skills,omitempty"`
}

// Agent handles one category of user query.
type Agent interface {
	Name() AgentName
	Description() string
	Run(ctx context.Context, query string) (*AgentResult, error)
}

// RoutingDecision records which agent handled a query and with what
// input. AgentUsed carries the "(fallback)" suffix when classification
// failed and the query went to the fallback agent verbatim.
type RoutingDecision struct {
	Agent     AgentName    `json:"agent"`
	AgentUsed string       `json:"agent_used"`
	Input     string       `json:"input"`
	Result    *AgentResult `json:"result"`
}
