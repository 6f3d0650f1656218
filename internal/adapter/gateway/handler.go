package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/chat"
	"skillsocket/internal/usecase/eventbus"
	"skillsocket/internal/usecase/notify"
	"skillsocket/internal/usecase/presence"
	"skillsocket/internal/usecase/routing"
)

// HandlerDeps holds dependencies needed by the HTTP API handlers.
type HandlerDeps struct {
	Chat        *chat.Service
	Users       domain.UserStore
	Connections domain.ConnectionStore
	Notifier    *notify.Dispatcher
	Presence    *presence.Registry
	Router      *routing.Router
	Health      func(ctx context.Context) error // store ping; nil means always healthy
	Bus         *eventbus.Bus
	Logger      *slog.Logger
}

// RegisterRESTHandlers registers the HTTP API on the gateway server and
// wires the metrics counters to the event bus. Health and match routes
// stay unauthenticated: the skillmatch agent probes them service-to-service.
func RegisterRESTHandlers(s *Server, deps HandlerDeps) *Metrics {
	startTime := time.Now()
	metrics := &Metrics{}

	if deps.Bus != nil {
		count := func(t domain.EventType, counter *atomic.Int64) {
			deps.Bus.Subscribe(t, func(_ context.Context, _ domain.Event) {
				counter.Add(1)
			})
		}
		count(domain.EventMessageSent, &metrics.MessagesSent)
		count(domain.EventMessageSeen, &metrics.MessagesSeen)
		count(domain.EventQueryRouted, &metrics.QueriesRouted)
		count(domain.EventQueryFallback, &metrics.QueryFallbacks)
		count(domain.EventAgentError, &metrics.AgentErrors)
		count(domain.EventNotificationPushed, &metrics.NotificationsPushed)
		count(domain.EventNotificationFailed, &metrics.NotificationsFailed)
	}

	// Auth middleware for the private REST endpoints.
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				token = r.Header.Get("Authorization")
				if len(token) > 7 && token[:7] == "Bearer " {
					token = token[7:]
				}
			}
			if _, err := s.auth.Authenticate(token); err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			next(w, r)
		}
	}

	s.RegisterHTTPRoute("/health", healthHandler(startTime))
	s.RegisterHTTPRoute("/api/health", apiHealthHandler(deps))
	s.RegisterHTTPRoute("/api/users/match", matchHandler(deps))

	s.RegisterHTTPRoute("/mcp/invoke", auth(invokeHandler(deps)))

	s.RegisterHTTPRoute("/api/messages/conversations", auth(conversationsHandler(deps)))
	s.RegisterHTTPRoute("/api/messages/history", auth(historyHandler(deps)))
	s.RegisterHTTPRoute("/api/messages/mark-read", auth(markReadHandler(deps)))
	s.RegisterHTTPRoute("/api/messages/search-users", auth(searchUsersHandler(deps)))
	s.RegisterHTTPRoute("/api/messages/online-users", auth(onlineUsersHandler(deps)))

	s.RegisterHTTPRoute("/api/notifications", auth(notificationsHandler(deps)))
	s.RegisterHTTPRoute("/api/notifications/mark-read", auth(notificationsMarkReadHandler(deps)))

	s.RegisterHTTPRoute("/api/connections/request", auth(connectionRequestHandler(deps)))
	s.RegisterHTTPRoute("/api/connections/respond", auth(connectionRespondHandler(deps)))
	s.RegisterHTTPRoute("/api/connections/pending", auth(connectionsPendingHandler(deps)))

	s.RegisterHTTPRoute("/metrics", auth(metricsHandler(deps, startTime, metrics)))

	return metrics
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(domain.ErrorCodeOf(err)),
	})
}

// writeDomainError maps a domain error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, httpStatusOf(err), err)
}

func httpStatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrRPCInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimit):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, domain.NewDomainError("gateway.http", domain.ErrInvalidInput, "malformed JSON body"))
		return false
	}
	return true
}
