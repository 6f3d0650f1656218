package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateLLM(cfg, ve)
	validateSearch(cfg, ve)
	validateMatcher(cfg, ve)
	validateStore(cfg, ve)
	validateChat(cfg, ve)
	validatePush(cfg, ve)
	validateNotifications(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateServer(cfg *Config, ve *ValidationError) {
	if cfg.Server.Addr == "" {
		ve.Add("server.addr is required")
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		ve.Add("server.addr %q is not a valid host:port", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit.Enabled {
		if cfg.Server.RateLimit.RequestsPerMin <= 0 {
			ve.Add("server.rate_limit.requests_per_min must be > 0 when enabled")
		}
		if cfg.Server.RateLimit.Burst <= 0 {
			ve.Add("server.rate_limit.burst must be > 0 when enabled")
		}
	}
}

var validProviderTypes = map[string]bool{
	"cerebras": true,
	"openai":   true,
}

func validateLLM(cfg *Config, ve *ValidationError) {
	if cfg.LLM.DefaultProvider == "" {
		ve.Add("llm.default_provider is required")
	}
	if len(cfg.LLM.Providers) == 0 {
		ve.Add("llm.providers must not be empty")
		return
	}

	names := map[string]bool{}
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			ve.Add("llm.providers[%d].name is required", i)
			continue
		}
		if names[p.Name] {
			ve.Add("llm.providers[%d]: duplicate provider name %q", i, p.Name)
		}
		names[p.Name] = true
		if !validProviderTypes[p.Type] {
			ve.Add("llm.providers[%d]: unknown type %q", i, p.Type)
		}
		if p.Model == "" {
			ve.Add("llm.providers[%d].model is required", i)
		}
		if p.MaxTokens < 0 {
			ve.Add("llm.providers[%d].max_tokens must be >= 0", i)
		}
	}
	if cfg.LLM.DefaultProvider != "" && !names[cfg.LLM.DefaultProvider] {
		ve.Add("llm.default_provider %q is not a configured provider", cfg.LLM.DefaultProvider)
	}

	if cfg.LLM.CircuitBreaker.Enabled {
		if cfg.LLM.CircuitBreaker.MaxFailures == 0 {
			ve.Add("llm.circuit_breaker.max_failures must be > 0 when enabled")
		}
		if cfg.LLM.CircuitBreaker.Timeout <= 0 {
			ve.Add("llm.circuit_breaker.timeout must be > 0 when enabled")
		}
	}
}

var validSearchBackends = map[string]bool{
	"tavily": true,
}

func validateSearch(cfg *Config, ve *ValidationError) {
	if !validSearchBackends[cfg.Search.Backend] {
		ve.Add("search.backend %q is not supported", cfg.Search.Backend)
	}
	if cfg.Search.MaxResults <= 0 {
		ve.Add("search.max_results must be > 0")
	}
	if cfg.Search.BaseURL != "" {
		if _, err := url.Parse(cfg.Search.BaseURL); err != nil {
			ve.Add("search.base_url %q is not a valid URL", cfg.Search.BaseURL)
		}
	}
}

func validateMatcher(cfg *Config, ve *ValidationError) {
	if cfg.Matcher.BaseURL == "" {
		ve.Add("matcher.base_url is required")
		return
	}
	u, err := url.Parse(cfg.Matcher.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		ve.Add("matcher.base_url %q is not a valid URL", cfg.Matcher.BaseURL)
	}
	if cfg.Matcher.ProbeTimeout <= 0 {
		ve.Add("matcher.probe_timeout must be > 0")
	}
	if cfg.Matcher.MatchTimeout <= 0 {
		ve.Add("matcher.match_timeout must be > 0")
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Path == "" {
		ve.Add("store.path is required")
	}
}

func validateChat(cfg *Config, ve *ValidationError) {
	if cfg.Chat.ReadReceiptDelay < 0 {
		ve.Add("chat.read_receipt_delay must be >= 0")
	}
	if cfg.Chat.SendQueueSize <= 0 {
		ve.Add("chat.send_queue_size must be > 0")
	}
}

func validatePush(cfg *Config, ve *ValidationError) {
	if !cfg.Push.Enabled {
		return
	}
	if cfg.Push.Endpoint == "" {
		ve.Add("push.endpoint is required when push is enabled")
	}
	if cfg.Push.ServerKey == "" {
		ve.Add("push.server_key is required when push is enabled")
	}
	if cfg.Push.Timeout <= 0 {
		ve.Add("push.timeout must be > 0 when push is enabled")
	}
}

func validateNotifications(cfg *Config, ve *ValidationError) {
	if cfg.Notifications.Retention <= 0 {
		ve.Add("notifications.retention must be > 0")
	}
	if cfg.Notifications.PurgeSchedule == "" {
		ve.Add("notifications.purge_schedule is required")
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if cfg.Logger.Level != "" && !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not valid", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is not valid (want text or json)", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "noop", "stdout", "":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}
