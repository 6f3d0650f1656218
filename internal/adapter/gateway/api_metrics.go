package gateway

import (
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// metricsHandler returns an HTTP handler for GET /metrics in Prometheus text format.
// This uses the lightweight text format to avoid pulling in the full prometheus client.
func metricsHandler(deps HandlerDeps, startTime time.Time, metrics *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		counter := func(name, help string, value int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n", name, value)
		}
		gauge := func(name, help string, value int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s gauge\n", name)
			fmt.Fprintf(w, "%s %d\n", name, value)
		}

		counter("skillsocket_messages_sent_total", "Total chat messages sent.", metrics.MessagesSent.Load())
		counter("skillsocket_messages_seen_total", "Total mark-seen operations.", metrics.MessagesSeen.Load())
		counter("skillsocket_queries_routed_total", "Total queries dispatched to a classified agent.", metrics.QueriesRouted.Load())
		counter("skillsocket_query_fallbacks_total", "Total queries handled by the fallback agent.", metrics.QueryFallbacks.Load())
		counter("skillsocket_agent_errors_total", "Total agent execution errors.", metrics.AgentErrors.Load())
		counter("skillsocket_notifications_pushed_total", "Total notifications delivered to the push provider.", metrics.NotificationsPushed.Load())
		counter("skillsocket_notifications_failed_total", "Total notification push failures.", metrics.NotificationsFailed.Load())

		if deps.Presence != nil {
			gauge("skillsocket_users_online", "Users with a live websocket connection.", int64(deps.Presence.Count()))
		}
		gauge("skillsocket_uptime_seconds", "Seconds since the server started.", int64(time.Since(startTime).Seconds()))

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		gauge("go_goroutines", "Number of goroutines.", int64(runtime.NumGoroutine()))
		gauge("go_memstats_alloc_bytes", "Bytes of allocated heap objects.", int64(mem.Alloc))
		gauge("go_memstats_sys_bytes", "Total bytes of memory obtained from the OS.", int64(mem.Sys))
	}
}
