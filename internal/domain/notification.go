package domain

import "time"

// NotificationType categorizes notifications for client rendering.
type NotificationType string

const (
	NotifMessage           NotificationType = "message"
	NotifConnectionRequest NotificationType = "connection_request"
	NotifConnectionUpdate  NotificationType = "connection_update"
)

// Notification is a persisted notification record. Delivered tracks
// whether the push provider accepted it; Read tracks whether the
// recipient has opened it.
type Notification struct {
	ID        string            `json:"id"`
	Recipient string            `json:"recipient"`
	Sender    string            `json:"sender,omitempty"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Delivered bool              `json:"delivered"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
