package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"skillsocket/internal/domain"
)

func missingParam(op, name string) error {
	return domain.NewDomainError(op, domain.ErrInvalidInput, name+" is required")
}

// conversationsHandler serves GET /api/messages/conversations?user_id=.
func conversationsHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.conversations", "user_id"))
			return
		}

		conversations, err := deps.Chat.Conversations(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if conversations == nil {
			conversations = []domain.Conversation{}
		}
		writeJSON(w, http.StatusOK, conversations)
	}
}

// historyHandler serves GET /api/messages/history?user_id=&partner_id=,
// oldest message first.
func historyHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		userID := r.URL.Query().Get("user_id")
		partnerID := r.URL.Query().Get("partner_id")
		if userID == "" || partnerID == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.history", "user_id and partner_id"))
			return
		}

		messages, err := deps.Chat.History(r.Context(), userID, partnerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if messages == nil {
			messages = []domain.ChatMessage{}
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

// markReadHandler serves POST /api/messages/mark-read {from, to}: marks
// messages from -> to as seen, with the same receipt side effects as the
// websocket chat.mark_seen method.
func markReadHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.From == "" || req.To == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.markRead", "from and to"))
			return
		}

		updated, err := deps.Chat.MarkSeen(r.Context(), req.From, req.To)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
	}
}

// searchUsersHandler serves GET /api/messages/search-users?q=&user_id=&limit=.
func searchUsersHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		query := r.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.searchUsers", "q"))
			return
		}
		excludeID := r.URL.Query().Get("user_id")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		users, err := deps.Users.SearchUsers(r.Context(), query, excludeID, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if users == nil {
			users = []domain.UserSummary{}
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// onlineUsersHandler serves GET /api/messages/online-users.
func onlineUsersHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		online := deps.Presence.OnlineUsers()
		writeJSON(w, http.StatusOK, map[string]any{
			"online": online,
			"count":  len(online),
		})
	}
}

// notificationsHandler serves GET /api/notifications?user_id=&limit=.
func notificationsHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.notifications", "user_id"))
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		notifications, err := deps.Notifier.List(r.Context(), userID, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if notifications == nil {
			notifications = []domain.Notification{}
		}
		writeJSON(w, http.StatusOK, notifications)
	}
}

// notificationsMarkReadHandler serves POST /api/notifications/mark-read {user_id}.
func notificationsMarkReadHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req struct {
			UserID string `json:"user_id"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.notificationsMarkRead", "user_id"))
			return
		}

		updated, err := deps.Notifier.MarkRead(r.Context(), req.UserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
	}
}

// connectionRequestHandler serves POST /api/connections/request {from, to}.
// A pending pair in either direction is a conflict. The recipient gets an
// in-app notification.
func connectionRequestHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.From == "" || req.To == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.connectionRequest", "from and to"))
			return
		}
		if req.From == req.To {
			writeError(w, http.StatusBadRequest,
				domain.NewDomainError("gateway.connectionRequest", domain.ErrInvalidInput, "cannot connect to yourself"))
			return
		}

		sender, err := deps.Users.GetUser(r.Context(), req.From)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if _, err := deps.Users.GetUser(r.Context(), req.To); err != nil {
			writeDomainError(w, err)
			return
		}

		cr := domain.ConnectionRequest{
			ID:   domain.NewID(),
			From: req.From,
			To:   req.To,
		}
		if err := deps.Connections.CreateConnectionRequest(r.Context(), &cr); err != nil {
			writeDomainError(w, err)
			return
		}

		notifyConnection(deps, r, domain.Notification{
			Recipient: cr.To,
			Sender:    cr.From,
			Type:      domain.NotifConnectionRequest,
			Title:     "New connection request",
			Body:      fmt.Sprintf("%s wants to connect with you", sender.Name),
			Data:      map[string]string{"request_id": cr.ID},
		})

		writeJSON(w, http.StatusCreated, cr)
	}
}

// connectionRespondHandler serves POST /api/connections/respond {id, status}.
// Status must be accepted or rejected; the requester is notified either way.
func connectionRespondHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ID == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.connectionRespond", "id"))
			return
		}
		status := domain.ConnectionStatus(req.Status)
		if status != domain.ConnectionAccepted && status != domain.ConnectionRejected {
			writeError(w, http.StatusBadRequest,
				domain.NewDomainError("gateway.connectionRespond", domain.ErrInvalidInput, "status must be accepted or rejected"))
			return
		}

		cr, err := deps.Connections.GetConnectionRequest(r.Context(), req.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := deps.Connections.UpdateConnectionStatus(r.Context(), req.ID, status); err != nil {
			writeDomainError(w, err)
			return
		}
		cr.Status = status

		notifyConnection(deps, r, domain.Notification{
			Recipient: cr.From,
			Sender:    cr.To,
			Type:      domain.NotifConnectionUpdate,
			Title:     "Connection request " + string(status),
			Body:      fmt.Sprintf("Your connection request was %s", status),
			Data:      map[string]string{"request_id": cr.ID, "status": string(status)},
		})

		writeJSON(w, http.StatusOK, cr)
	}
}

// connectionsPendingHandler serves GET /api/connections/pending?user_id=:
// requests still awaiting the user's answer.
func connectionsPendingHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, missingParam("gateway.connectionsPending", "user_id"))
			return
		}

		all, err := deps.Connections.ConnectionsFor(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		pending := make([]domain.ConnectionRequest, 0, len(all))
		for _, cr := range all {
			if cr.Status == domain.ConnectionPending && cr.To == userID {
				pending = append(pending, cr)
			}
		}
		writeJSON(w, http.StatusOK, pending)
	}
}

// notifyConnection dispatches a connection lifecycle notification.
// Failures are logged, never surfaced to the HTTP caller.
func notifyConnection(deps HandlerDeps, r *http.Request, n domain.Notification) {
	if deps.Notifier == nil {
		return
	}
	if err := deps.Notifier.Dispatch(r.Context(), &n); err != nil {
		deps.Logger.Warn("connection notification failed", "recipient", n.Recipient, "error", err)
	}
}
