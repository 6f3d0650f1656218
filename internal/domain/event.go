package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

// Internal bus events. These drive metrics, logging and maintenance
// subscribers; they never leave the process.
const (
	EventMessageSent        EventType = "message.sent"
	EventMessageSeen        EventType = "message.seen"
	EventPresenceJoined     EventType = "presence.joined"
	EventPresenceLeft       EventType = "presence.left"
	EventQueryRouted        EventType = "query.routed"
	EventQueryFallback      EventType = "query.fallback"
	EventAgentError         EventType = "agent.error"
	EventNotificationPushed EventType = "notification.pushed"
	EventNotificationFailed EventType = "notification.failed"
)

// Client-facing events, pushed to websocket connections. The names are part
// of the wire protocol and must not change without a client migration.
const (
	EventReceiveMessage   EventType = "receiveMessage"
	EventMessageDelivered EventType = "messageDelivered"
	EventMessageRead      EventType = "messageRead"
	EventMessagesSeen     EventType = "messagesSeen"
	EventTyping           EventType = "typing"
	EventStopTyping       EventType = "stopTyping"
)

// Event is the envelope published on the event bus and pushed to clients.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}

// Emitter delivers an event to a single gateway connection.
// Returns false if the connection is gone or its send queue is full;
// callers treat that as the recipient having dropped offline.
type Emitter interface {
	Emit(connID uint64, event Event) bool
}
