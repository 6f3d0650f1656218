package config

import (
	"strings"
	"testing"
)

func TestValidateDefaultsPass(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateServerAddrEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Addr = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "server.addr is required")
}

func TestValidateServerAddrMalformed(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Addr = "not-a-hostport"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "not a valid host:port")
}

func TestValidateRateLimitZero(t *testing.T) {
	cfg := Defaults()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.RateLimit.RequestsPerMin = 0
	cfg.Server.RateLimit.Burst = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "requests_per_min must be > 0")
	assertContains(t, err.Error(), "burst must be > 0")
}

func TestValidateLLMDefaultProviderEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.DefaultProvider = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "llm.default_provider is required")
}

func TestValidateLLMNoProviders(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers = nil
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "llm.providers must not be empty")
}

func TestValidateLLMUnknownType(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers[0].Type = "mystery"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `unknown type "mystery"`)
}

func TestValidateLLMDefaultNotConfigured(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.DefaultProvider = "ghost"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `"ghost" is not a configured provider`)
}

func TestValidateLLMDuplicateProvider(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers = append(cfg.LLM.Providers, cfg.LLM.Providers[0])
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "duplicate provider name")
}

func TestValidateSearchBackendUnknown(t *testing.T) {
	cfg := Defaults()
	cfg.Search.Backend = "bing"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `search.backend "bing" is not supported`)
}

func TestValidateMatcherBaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.Matcher.BaseURL = "://bad"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "matcher.base_url")
}

func TestValidateMatcherTimeouts(t *testing.T) {
	cfg := Defaults()
	cfg.Matcher.ProbeTimeout = 0
	cfg.Matcher.MatchTimeout = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "matcher.probe_timeout must be > 0")
	assertContains(t, err.Error(), "matcher.match_timeout must be > 0")
}

func TestValidateStorePathEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Path = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "store.path is required")
}

func TestValidatePushEnabledMissingFields(t *testing.T) {
	cfg := Defaults()
	cfg.Push.Enabled = true
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "push.endpoint is required")
	assertContains(t, err.Error(), "push.server_key is required")
}

func TestValidateNotificationsRetention(t *testing.T) {
	cfg := Defaults()
	cfg.Notifications.Retention = 0
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "notifications.retention must be > 0")
}

func TestValidateLoggerLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "verbose"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `logger.level "verbose" is not valid`)
}

func TestValidateTracerExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer.Enabled = true
	cfg.Tracer.Exporter = "jaeger"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `tracer.exporter "jaeger" is not supported`)
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Addr = ""
	cfg.Store.Path = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) < 2 {
		t.Errorf("expected at least 2 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func assertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("expected %q to contain %q", haystack, needle)
	}
}
