// Package matcher is an HTTP client for the user-matching API. The
// skillmatch agent probes the service before extracting skills so it can
// fail fast when the backend is down.
package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
	"skillsocket/internal/infra/tracer"
)

const maxMatchBodySize = 1 * 1024 * 1024 // 1MB

const (
	defaultProbeTimeout = 5 * time.Second
	defaultMatchTimeout = 8 * time.Second
)

// Client talks to the matching service over HTTP.
type Client struct {
	client       *http.Client
	baseURL      string
	probeTimeout time.Duration
	matchTimeout time.Duration
	logger       *slog.Logger
}

// NewClient creates a matcher client. Zero-valued timeouts fall back to
// defaults.
func NewClient(cfg config.MatcherConfig, logger *slog.Logger) *Client {
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout == 0 {
		probeTimeout = defaultProbeTimeout
	}
	matchTimeout := cfg.MatchTimeout
	if matchTimeout == 0 {
		matchTimeout = defaultMatchTimeout
	}

	return &Client{
		client:       &http.Client{},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		probeTimeout: probeTimeout,
		matchTimeout: matchTimeout,
		logger:       logger,
	}
}

// Ping probes the matching service health endpoint. Returns
// ErrMatchUnreachable when the service cannot be reached or reports an
// unhealthy status.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewSubSystemError("match", "Matcher.Ping", domain.ErrMatchUnreachable, err.Error())
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxMatchBodySize))

	if resp.StatusCode != http.StatusOK {
		return domain.NewSubSystemError("match", "Matcher.Ping", domain.ErrMatchUnreachable,
			fmt.Sprintf("health check returned HTTP %d", resp.StatusCode))
	}
	return nil
}

// Match queries for users who offer a required skill and need an offered
// one. Timeouts map to ErrMatchTimeout, connection failures to
// ErrMatchUnreachable.
func (c *Client) Match(ctx context.Context, required, offered string) ([]domain.MatchedUser, error) {
	ctx, span := tracer.StartSpan(ctx, "matcher.match",
		trace.WithAttributes(
			tracer.StringAttr("match.required", required),
			tracer.StringAttr("match.offered", offered),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.matchTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("required", required)
	q.Set("offered", offered)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/match?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		derr := c.classifyTransportError(err)
		tracer.RecordError(span, derr)
		return nil, derr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMatchBodySize))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		derr := domain.NewSubSystemError("match", "Matcher.Match", domain.ErrMatchUnreachable,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)))
		tracer.RecordError(span, derr)
		return nil, derr
	}

	var matches []domain.MatchedUser
	if err := json.Unmarshal(body, &matches); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("parse response: %w", err)
	}

	span.SetAttributes(tracer.IntAttr("match.count", len(matches)))
	tracer.SetOK(span)
	c.logger.Debug("match lookup completed",
		"required", required, "offered", offered, "matches", len(matches))
	return matches, nil
}

// classifyTransportError separates slow backends from dead ones.
func (c *Client) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewSubSystemError("match", "Matcher.Match", domain.ErrMatchTimeout,
			fmt.Sprintf("no response within %s", c.matchTimeout))
	}
	return domain.NewSubSystemError("match", "Matcher.Match", domain.ErrMatchUnreachable, err.Error())
}
