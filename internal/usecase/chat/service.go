// Package chat implements direct messaging: persistence, real-time
// delivery to online recipients, delivery/read receipts for senders, and
// push notifications for everyone else.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"skillsocket/internal/domain"
	"skillsocket/internal/infra/tracer"
	"skillsocket/internal/usecase/eventbus"
	"skillsocket/internal/usecase/notify"
	"skillsocket/internal/usecase/presence"
)

const notificationBodyLimit = 120

// Service coordinates message flow between the store, the presence
// registry, the gateway emitter, and the notification dispatcher.
type Service struct {
	messages domain.MessageStore
	users    domain.UserStore
	presence *presence.Registry
	emitter  domain.Emitter
	notifier *notify.Dispatcher
	receipts *ReceiptScheduler
	bus      *eventbus.Bus
	logger   *slog.Logger
}

// NewService creates a chat service.
func NewService(
	messages domain.MessageStore,
	users domain.UserStore,
	pres *presence.Registry,
	emitter domain.Emitter,
	notifier *notify.Dispatcher,
	receipts *ReceiptScheduler,
	bus *eventbus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{
		messages: messages,
		users:    users,
		presence: pres,
		emitter:  emitter,
		notifier: notifier,
		receipts: receipts,
		bus:      bus,
		logger:   logger,
	}
}

// Send persists a message and fans it out: receiveMessage to the
// recipient if online, a push notification always, and delivery plus
// scheduled read receipts back to the sender when the recipient was
// reachable.
func (s *Service) Send(ctx context.Context, from, to, content string) (*domain.ChatMessageView, error) {
	ctx, span := tracer.StartSpan(ctx, "chat.send",
		trace.WithAttributes(tracer.StringAttr("chat.from", from)),
	)
	defer span.End()

	if content == "" {
		return nil, domain.NewSubSystemError("chat", "Chat.Send", domain.ErrInvalidInput, "empty message content")
	}
	if from == to {
		return nil, domain.NewSubSystemError("chat", "Chat.Send", domain.ErrInvalidInput, "cannot message yourself")
	}

	sender, err := s.users.GetUser(ctx, from)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("Chat.Send", err)
	}
	recipient, err := s.users.GetUser(ctx, to)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("Chat.Send", err)
	}

	msg := domain.ChatMessage{
		ID:        domain.NewID(),
		From:      from,
		To:        to,
		Content:   content,
		Seen:      false,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.SaveMessage(ctx, &msg); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.WrapOp("Chat.Send", err)
	}

	view := &domain.ChatMessageView{
		ChatMessage: msg,
		FromUser:    sender.Summary(),
		ToUser:      recipient.Summary(),
	}

	delivered := s.deliver(to, domain.EventReceiveMessage, to, view)

	// Push fires regardless of presence: the recipient may have the app
	// backgrounded even with a live socket.
	s.notifyRecipient(ctx, sender, msg)

	if delivered {
		s.deliver(from, domain.EventMessageDelivered, from, map[string]string{
			"message_id": msg.ID,
			"to":         to,
		})
		s.scheduleReadReceipt(msg)
	}

	s.bus.PublishType(ctx, domain.EventMessageSent, from, map[string]any{
		"message_id": msg.ID,
		"to":         to,
		"delivered":  delivered,
	})
	tracer.SetOK(span)
	s.logger.Debug("message sent", "message", msg.ID, "from", from, "to", to, "delivered", delivered)
	return view, nil
}

// MarkSeen marks all unseen messages from -> to as seen, tells the sender
// if they are online, and drops any pending simulated read receipts for
// the pair.
func (s *Service) MarkSeen(ctx context.Context, from, to string) (int64, error) {
	updated, err := s.messages.MarkSeen(ctx, from, to)
	if err != nil {
		return 0, domain.WrapOp("Chat.MarkSeen", err)
	}
	if updated == 0 {
		return 0, nil
	}

	s.receipts.CancelPair(from, to)
	s.deliver(from, domain.EventMessagesSeen, from, map[string]string{"by": to})

	s.bus.PublishType(ctx, domain.EventMessageSeen, to, map[string]any{
		"from":    from,
		"updated": updated,
	})
	return updated, nil
}

// Typing forwards a typing indicator to the recipient if online.
func (s *Service) Typing(from, to string) {
	s.deliver(to, domain.EventTyping, to, map[string]string{"from": from})
}

// StopTyping forwards a stop-typing indicator to the recipient if online.
func (s *Service) StopTyping(from, to string) {
	s.deliver(to, domain.EventStopTyping, to, map[string]string{"from": from})
}

// History returns the full message history between two users, oldest
// first.
func (s *Service) History(ctx context.Context, a, b string) ([]domain.ChatMessage, error) {
	return s.messages.MessagesBetween(ctx, a, b)
}

// Conversations returns the user's inbox.
func (s *Service) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.messages.Conversations(ctx, userID)
}

// Disconnected clears state tied to a user's live connection.
func (s *Service) Disconnected(userID string) {
	s.receipts.CancelRecipient(userID)
}

// deliver emits an event to userID's connection. Returns false when the
// user is offline or their send queue rejected the event.
func (s *Service) deliver(userID string, eventType domain.EventType, eventUser string, payload any) bool {
	connID, ok := s.presence.Lookup(userID)
	if !ok {
		return false
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("event payload marshal failed", "event", string(eventType), "error", err)
		return false
	}
	return s.emitter.Emit(connID, domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		UserID:    eventUser,
		Payload:   raw,
	})
}

// scheduleReadReceipt arms the simulated read receipt for a delivered
// message. The timer is cancelled if the conversation is marked seen or
// the recipient disconnects first.
func (s *Service) scheduleReadReceipt(msg domain.ChatMessage) {
	s.receipts.Schedule(msg.ID, msg.From, msg.To, func() {
		s.deliver(msg.From, domain.EventMessageRead, msg.From, map[string]string{
			"message_id": msg.ID,
			"by":         msg.To,
		})
	})
}

// notifyRecipient sends the device push for a new message. No in-app
// notification record is stored for ordinary messages; the message
// itself is what the recipient sees in the app. Failures never
// interrupt the send path.
func (s *Service) notifyRecipient(ctx context.Context, sender *domain.User, msg domain.ChatMessage) {
	body := msg.Content
	if len(body) > notificationBodyLimit {
		body = body[:notificationBodyLimit] + "..."
	}
	n := domain.Notification{
		Recipient: msg.To,
		Sender:    msg.From,
		Type:      domain.NotifMessage,
		Title:     fmt.Sprintf("New message from %s", sender.Name),
		Body:      body,
		Data: map[string]string{
			"message_id": msg.ID,
			"from":       msg.From,
		},
	}
	if err := s.notifier.Push(ctx, &n); err != nil {
		s.logger.Warn("message push failed", "message", msg.ID, "error", err)
	}
}
