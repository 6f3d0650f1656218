package gateway

import (
	"net/http"

	"skillsocket/internal/domain"
)

// matchHandler serves GET /api/users/match?required=&offered=. The body
// is a bare JSON array so the matcher client can decode it directly.
func matchHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		required := r.URL.Query().Get("required")
		offered := r.URL.Query().Get("offered")
		if required == "" || offered == "" {
			writeError(w, http.StatusBadRequest,
				domain.NewSubSystemError("match", "gateway.match", domain.ErrInvalidInput, "required and offered are both required"))
			return
		}

		matches, err := deps.Users.MatchComplementary(r.Context(), required, offered)
		if err != nil {
			deps.Logger.Error("match lookup failed", "error", err)
			writeDomainError(w, err)
			return
		}
		if matches == nil {
			matches = []domain.MatchedUser{}
		}
		writeJSON(w, http.StatusOK, matches)
	}
}
