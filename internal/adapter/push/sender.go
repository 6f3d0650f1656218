// Package push delivers push notifications to user devices through an
// external delivery service. Delivery is best-effort: chat never blocks
// or fails because a push could not be sent.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/config"
)

const maxPushBodySize = 64 * 1024 // 64KB

const defaultPushTimeout = 10 * time.Second

// Sender delivers a notification to the recipient's registered devices.
type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
	Name() string
}

// pushRequest is the delivery service wire format.
type pushRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// HTTPSender posts notifications to a delivery endpoint authenticated
// with a server key.
type HTTPSender struct {
	client    *http.Client
	endpoint  string
	serverKey string
	logger    *slog.Logger
}

// NewHTTPSender creates a sender for the configured delivery endpoint.
func NewHTTPSender(cfg config.PushConfig, logger *slog.Logger) *HTTPSender {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultPushTimeout
	}
	return &HTTPSender{
		client:    &http.Client{Timeout: timeout},
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		serverKey: cfg.ServerKey,
		logger:    logger,
	}
}

func (s *HTTPSender) Name() string { return "http" }

func (s *HTTPSender) Send(ctx context.Context, n domain.Notification) error {
	if s.serverKey == "" {
		return domain.NewSubSystemError("push", "Push.Send", domain.ErrCredentialMissing, "server key not configured")
	}

	body, err := json.Marshal(pushRequest{
		To:    n.Recipient,
		Title: n.Title,
		Body:  n.Body,
		Data:  n.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.NewSubSystemError("push", "Push.Send", domain.ErrPushFailed, err.Error())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxPushBodySize))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.NewSubSystemError("push", "Push.Send", domain.ErrPushFailed,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	s.logger.Debug("push delivered", "recipient", n.Recipient, "type", n.Type)
	return nil
}

// NoopSender discards notifications. Used when push delivery is disabled.
type NoopSender struct{}

func (NoopSender) Name() string { return "noop" }

func (NoopSender) Send(ctx context.Context, n domain.Notification) error { return nil }

var (
	_ Sender = (*HTTPSender)(nil)
	_ Sender = NoopSender{}
)
