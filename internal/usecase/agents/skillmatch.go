package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/routing"
)

const extractTemperature = 0.1

// MatchClient is the matching-service surface the agent needs.
type MatchClient interface {
	Ping(ctx context.Context) error
	Match(ctx context.Context, required, offered string) ([]domain.MatchedUser, error)
}

// SkillMatchAgent extracts a skill swap from a natural-language query
// and looks up complementary users. It never returns an error for
// matching failures: the user always gets guidance text instead.
type SkillMatchAgent struct {
	llm     domain.TextGenerator
	matcher MatchClient
	logger  *slog.Logger
}

// NewSkillMatchAgent creates the skill match agent.
func NewSkillMatchAgent(llm domain.TextGenerator, matcher MatchClient, logger *slog.Logger) *SkillMatchAgent {
	return &SkillMatchAgent{llm: llm, matcher: matcher, logger: logger}
}

func (a *SkillMatchAgent) Name() domain.AgentName { return domain.AgentSkillMatch }

func (a *SkillMatchAgent) Description() string {
	return "Finds users to swap skills with based on what the user wants to learn and can teach"
}

// Run probes the matching service, extracts the skill swap, and queries
// for matches.
func (a *SkillMatchAgent) Run(ctx context.Context, query string) (*domain.AgentResult, error) {
	if err := a.matcher.Ping(ctx); err != nil {
		a.logger.Warn("matching service unreachable", "error", err)
		return &domain.AgentResult{
			Response: "The skill matching service is currently unavailable. Please try again in a few minutes.",
		}, nil
	}

	skills := a.extractSkills(ctx, query)
	required := first(skills.Required)
	offered := first(skills.Offered)

	// The match API needs both halves of the swap; with either missing
	// there is nothing to look up yet.
	if required == "" || offered == "" {
		return &domain.AgentResult{
			Skills:   &skills,
			Response: incompleteSkillsResponse(required, offered),
		}, nil
	}

	matches, err := a.matcher.Match(ctx, required, offered)
	if err != nil {
		return &domain.AgentResult{
			Skills:   &skills,
			Response: matchFailureResponse(err),
		}, nil
	}

	return &domain.AgentResult{
		Skills:     &skills,
		Matches:    matches,
		MatchCount: len(matches),
		Response:   matchSummary(required, offered, matches),
	}, nil
}

// extractSkills asks the LLM for a structured skill set, falling back to
// keyword extraction when the model fails or returns garbage.
func (a *SkillMatchAgent) extractSkills(ctx context.Context, query string) domain.SkillSet {
	raw, err := a.llm.Generate(ctx, domain.GenerateRequest{
		Prompt:      extractPrompt(query),
		Temperature: extractTemperature,
	})
	if err != nil {
		a.logger.Warn("skill extraction failed, using keyword fallback", "error", err)
		return extractSkillsKeyword(query)
	}

	obj := routing.ExtractJSONObject(raw)
	if obj == "" {
		return extractSkillsKeyword(query)
	}

	var set domain.SkillSet
	if err := json.Unmarshal([]byte(obj), &set); err != nil {
		return extractSkillsKeyword(query)
	}
	set.Required = normalizeSkills(set.Required)
	set.Offered = normalizeSkills(set.Offered)
	if len(set.Required) == 0 && len(set.Offered) == 0 {
		return extractSkillsKeyword(query)
	}
	return set
}

func extractPrompt(query string) string {
	return `Extract the skills from this skill-swap request.
"skills_required" are skills the user wants to learn; "skills_offered" are skills the user can teach.
Respond with ONLY a JSON object, no other text:
{"skills_required": ["..."], "skills_offered": ["..."]}

Request: ` + query
}

func normalizeSkills(skills []string) []string {
	out := skills[:0]
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = appendUnique(out, s)
		}
	}
	return out
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// incompleteSkillsResponse asks the user for the missing half of the
// swap.
func incompleteSkillsResponse(required, offered string) string {
	switch {
	case required == "" && offered == "":
		return `I couldn't find any skills in your request. Tell me what you want to learn and what you can teach, for example: "I want to learn Flutter and can teach Java".`
	case required == "":
		return fmt.Sprintf("I see you can teach %s, but not what you want to learn. Tell me the skill you're looking for and I'll find a match.", offered)
	default:
		return fmt.Sprintf("I see you want to learn %s, but not what you can teach in return. Tell me a skill you can offer and I'll find a match.", required)
	}
}

func matchFailureResponse(err error) string {
	switch {
	case errors.Is(err, domain.ErrMatchTimeout):
		return "The matching service is taking too long to respond. Please try again shortly."
	case errors.Is(err, domain.ErrMatchUnreachable):
		return "The skill matching service is currently unavailable. Please try again in a few minutes."
	default:
		return "Something went wrong while looking for matches. Please try again."
	}
}

func matchSummary(required, offered string, matches []domain.MatchedUser) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No users found who can teach %s and want to learn %s right now. Try broadening your skills or check back later.", required, offered)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	return fmt.Sprintf("Found %d user(s) who can teach %s and want to learn %s: %s.",
		len(matches), required, offered, strings.Join(names, ", "))
}

var _ domain.Agent = (*SkillMatchAgent)(nil)
