package domain

import (
	"context"
	"time"
)

// UserStore persists user records and serves match lookups.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	// SearchUsers matches name or email by substring, excluding excludeID.
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]UserSummary, error)
	// MatchComplementary returns users who offer the required skill and
	// require the offered one.
	MatchComplementary(ctx context.Context, required, offered string) ([]MatchedUser, error)
}

// MessageStore persists direct messages.
type MessageStore interface {
	SaveMessage(ctx context.Context, m *ChatMessage) error
	// MessagesBetween returns the full history between two users,
	// oldest first.
	MessagesBetween(ctx context.Context, a, b string) ([]ChatMessage, error)
	// Conversations returns one entry per chat partner of userID, newest
	// last message first.
	Conversations(ctx context.Context, userID string) ([]Conversation, error)
	// MarkSeen marks all unseen messages from -> to as seen and returns
	// how many rows changed.
	MarkSeen(ctx context.Context, from, to string) (int64, error)
}

// NotificationStore persists notification records.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *Notification) error
	MarkDelivered(ctx context.Context, id string) error
	ListNotifications(ctx context.Context, recipient string, limit int) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context, recipient string) (int64, error)
	// PurgeRead deletes read notifications created before cutoff and
	// returns how many rows were removed.
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// ConnectionStore persists connection requests between users.
type ConnectionStore interface {
	CreateConnectionRequest(ctx context.Context, r *ConnectionRequest) error
	GetConnectionRequest(ctx context.Context, id string) (*ConnectionRequest, error)
	UpdateConnectionStatus(ctx context.Context, id string, status ConnectionStatus) error
	// ConnectionsFor returns all requests where userID is sender or
	// recipient, newest first.
	ConnectionsFor(ctx context.Context, userID string) ([]ConnectionRequest, error)
}
