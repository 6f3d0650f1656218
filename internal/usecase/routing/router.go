// Package routing classifies natural-language queries and dispatches
// them to the matching agent. Classification runs through the LLM at low
// temperature; anything the classifier gets wrong degrades to the answer
// agent rather than failing the query.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/tracer"
	"skillsocket/internal/usecase/eventbus"
)

const classifyTemperature = 0.1

// Router holds the registered agents and the classifier LLM.
type Router struct {
	llm    domain.TextGenerator
	agents map[domain.AgentName]domain.Agent
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewRouter creates a router. Agents are added with Register.
func NewRouter(llm domain.TextGenerator, bus *eventbus.Bus, logger *slog.Logger) *Router {
	return &Router{
		llm:    llm,
		agents: make(map[domain.AgentName]domain.Agent),
		bus:    bus,
		logger: logger,
	}
}

// Register adds an agent. Returns error if its name is already taken.
func (r *Router) Register(a domain.Agent) error {
	name := a.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.agents[name] = a
	return nil
}

// classification is the JSON shape the classifier must produce.
type classification struct {
	Agent string `json:"agent"`
	Input string `json:"input"`
}

// Route classifies the query, runs the selected agent, and returns the
// decision. Classification failures of any kind fall back to the answer
// agent with the original query; errors from the executed agent
// propagate.
func (r *Router) Route(ctx context.Context, query string) (*domain.RoutingDecision, error) {
	ctx, span := tracer.StartSpan(ctx, "routing.route")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.NewSubSystemError("routing", "Router.Route", domain.ErrInvalidInput, "empty query")
	}

	name, input, classified := r.classify(ctx, query)
	if !classified {
		return r.fallback(ctx, span, query)
	}

	agent := r.agents[name]
	span.SetAttributes(tracer.StringAttr("routing.agent", string(name)))

	result, err := agent.Run(ctx, input)
	if err != nil {
		tracer.RecordError(span, err)
		r.bus.PublishType(ctx, domain.EventAgentError, "", map[string]string{
			"agent": string(name),
			"error": err.Error(),
		})
		return nil, domain.WrapOp("Router.Route", err)
	}

	r.bus.PublishType(ctx, domain.EventQueryRouted, "", map[string]string{
		"agent": string(name),
	})
	tracer.SetOK(span)
	r.logger.Debug("query routed", "agent", name)

	return &domain.RoutingDecision{
		Agent:     name,
		AgentUsed: string(name),
		Input:     input,
		Result:    result,
	}, nil
}

// classify asks the LLM which agent should handle the query. Returns
// classified=false when the LLM call fails, the response holds no valid
// JSON, or the named agent is unknown.
func (r *Router) classify(ctx context.Context, query string) (domain.AgentName, string, bool) {
	raw, err := r.llm.Generate(ctx, domain.GenerateRequest{
		Prompt:      r.classifyPrompt(query),
		Temperature: classifyTemperature,
	})
	if err != nil {
		r.logger.Warn("classification failed", "error", err)
		return "", "", false
	}

	obj := ExtractJSONObject(raw)
	if obj == "" {
		r.logger.Warn("classifier returned no JSON", "response", truncate(raw, 200))
		return "", "", false
	}

	var c classification
	if err := json.Unmarshal([]byte(obj), &c); err != nil {
		r.logger.Warn("classifier JSON unparseable", "error", err)
		return "", "", false
	}

	name := domain.AgentName(strings.ToLower(strings.TrimSpace(c.Agent)))
	if _, ok := r.agents[name]; !ok {
		r.logger.Warn("classifier picked unknown agent", "agent", c.Agent)
		return "", "", false
	}

	input := strings.TrimSpace(c.Input)
	if input == "" {
		input = query
	}
	return name, input, true
}

// fallback runs the answer agent with the untouched original query.
func (r *Router) fallback(ctx context.Context, span trace.Span, query string) (*domain.RoutingDecision, error) {
	agent, ok := r.agents[domain.AgentAnswer]
	if !ok {
		return nil, domain.NewSubSystemError("routing", "Router.Route", domain.ErrAgentNotFound, string(domain.AgentAnswer))
	}

	span.SetAttributes(tracer.StringAttr("routing.agent", "answer (fallback)"))
	r.bus.PublishType(ctx, domain.EventQueryFallback, "", nil)
	r.logger.Info("routing fell back to answer agent")

	result, err := agent.Run(ctx, query)
	if err != nil {
		tracer.RecordError(span, err)
		r.bus.PublishType(ctx, domain.EventAgentError, "", map[string]string{
			"agent": string(domain.AgentAnswer),
			"error": err.Error(),
		})
		return nil, domain.WrapOp("Router.Route", err)
	}

	tracer.SetOK(span)
	return &domain.RoutingDecision{
		Agent:     domain.AgentAnswer,
		AgentUsed: string(domain.AgentAnswer) + " (fallback)",
		Input:     query,
		Result:    result,
	}, nil
}

// classifyPrompt builds the routing prompt with the registered agents
// listed in stable order.
func (r *Router) classifyPrompt(query string) string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, string(name))
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("You are a routing assistant. Pick the single best agent for the user's query.\n\nAgents:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s: %s\n", name, r.agents[domain.AgentName(name)].Description())
	}
	sb.WriteString("\nRespond with ONLY a JSON object, no other text:\n")
	sb.WriteString(`{"agent": "<agent name>", "input": "<the part of the query the agent needs>"}`)
	sb.WriteString("\n\nUser query: ")
	sb.WriteString(query)
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
