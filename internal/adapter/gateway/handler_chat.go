package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"skillsocket/internal/domain"
	"skillsocket/internal/usecase/chat"
)

// RegisterChatHandlers wires the chat RPC methods and the disconnect hook.
func RegisterChatHandlers(s *Server, svc *chat.Service) {
	s.SetDisconnectHook(svc.Disconnected)
	s.RegisterHandler("chat.join", chatJoinHandler(s))
	s.RegisterHandler("chat.send", chatSendHandler(s, svc))
	s.RegisterHandler("chat.typing", chatTypingHandler(s, svc.Typing))
	s.RegisterHandler("chat.stop_typing", chatTypingHandler(s, svc.StopTyping))
	s.RegisterHandler("chat.mark_seen", chatMarkSeenHandler(s, svc))
}

func invalidPayload(detail string) error {
	return domain.NewDomainError("gateway.rpc", domain.ErrRPCInvalidPayload, detail)
}

// requireJoined resolves the session's user, erroring when the connection
// has not completed chat.join yet.
func requireJoined(sess *Session) (string, error) {
	if sess.UserID == "" {
		return "", domain.NewDomainError("gateway.rpc", domain.ErrPermissionDenied, "chat.join required")
	}
	return sess.UserID, nil
}

// chatJoinHandler binds the connection to a user and registers presence.
// Joining again on the same connection switches the bound user.
func chatJoinHandler(s *Server) RPCHandler {
	return func(ctx context.Context, sess *Session, payload json.RawMessage) (json.RawMessage, error) {
		var params struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, invalidPayload("chat.join: " + err.Error())
		}
		params.UserID = strings.TrimSpace(params.UserID)
		if params.UserID == "" {
			return nil, invalidPayload("chat.join: user_id required")
		}

		s.presence.Join(params.UserID, sess.ConnID)
		s.setConnUser(sess.ConnID, params.UserID)

		s.bus.PublishType(ctx, domain.EventPresenceJoined, params.UserID, map[string]any{
			"conn_id": sess.ConnID,
		})
		s.logger.Info("user joined", "user", params.UserID, "conn_id", sess.ConnID)

		return json.Marshal(map[string]any{
			"user_id":      params.UserID,
			"online_users": s.presence.OnlineUsers(),
		})
	}
}

func chatSendHandler(s *Server, svc *chat.Service) RPCHandler {
	return func(ctx context.Context, sess *Session, payload json.RawMessage) (json.RawMessage, error) {
		from, err := requireJoined(sess)
		if err != nil {
			return nil, err
		}
		var params struct {
			To      string `json:"to"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, invalidPayload("chat.send: " + err.Error())
		}
		if params.To == "" {
			return nil, invalidPayload("chat.send: to required")
		}

		view, err := svc.Send(ctx, from, params.To, params.Content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(view)
	}
}

// chatTypingHandler serves both chat.typing and chat.stop_typing; forward
// carries the indicator to the recipient.
func chatTypingHandler(s *Server, forward func(from, to string)) RPCHandler {
	return func(_ context.Context, sess *Session, payload json.RawMessage) (json.RawMessage, error) {
		from, err := requireJoined(sess)
		if err != nil {
			return nil, err
		}
		var params struct {
			To string `json:"to"`
		}
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, invalidPayload("typing: " + err.Error())
		}
		if params.To == "" {
			return nil, invalidPayload("typing: to required")
		}

		forward(from, params.To)
		return json.Marshal(map[string]bool{"ok": true})
	}
}

// chatMarkSeenHandler marks the conversation with a partner as seen; the
// caller is the recipient of the messages being acknowledged.
func chatMarkSeenHandler(s *Server, svc *chat.Service) RPCHandler {
	return func(ctx context.Context, sess *Session, payload json.RawMessage) (json.RawMessage, error) {
		me, err := requireJoined(sess)
		if err != nil {
			return nil, err
		}
		var params struct {
			From string `json:"from"`
		}
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, invalidPayload("chat.mark_seen: " + err.Error())
		}
		if params.From == "" {
			return nil, invalidPayload("chat.mark_seen: from required")
		}

		updated, err := svc.MarkSeen(ctx, params.From, me)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]int64{"updated": updated})
	}
}
