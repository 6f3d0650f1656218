package gateway

import (
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks counters for the metrics endpoint, fed by event bus
// subscriptions.
type Metrics struct {
	MessagesSent        atomic.Int64
	MessagesSeen        atomic.Int64
	QueriesRouted       atomic.Int64
	QueryFallbacks      atomic.Int64
	AgentErrors         atomic.Int64
	NotificationsPushed atomic.Int64
	NotificationsFailed atomic.Int64
}

// HealthResponse is the JSON body returned by GET /health.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Service       string    `json:"service"`
}

// healthHandler reports process liveness without touching dependencies.
func healthHandler(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:        "ok",
			Timestamp:     time.Now().UTC(),
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Service:       "skillsocket",
		})
	}
}

// apiHealthHandler is the store-aware health check; the skillmatch agent
// probes it before attempting a match lookup.
func apiHealthHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		if deps.Health != nil {
			if err := deps.Health(r.Context()); err != nil {
				deps.Logger.Warn("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
