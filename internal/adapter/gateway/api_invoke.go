package gateway

import (
	"net/http"
	"strings"

	"skillsocket/internal/domain"
)

// InvokeRequest is the body of POST /mcp/invoke.
type InvokeRequest struct {
	Query string `json:"query"`
}

// invokeHandler runs a natural-language query through the router. Router
// failures never surface raw classification detail; clients get the
// domain error code.
func invokeHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req InvokeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeError(w, http.StatusBadRequest,
				domain.NewSubSystemError("routing", "gateway.invoke", domain.ErrInvalidInput, "query is required"))
			return
		}

		decision, err := deps.Router.Route(r.Context(), req.Query)
		if err != nil {
			deps.Logger.Error("query invocation failed", "error", err)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, decision)
	}
}
