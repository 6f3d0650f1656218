package domain

import "time"

// ConnectionStatus is the lifecycle state of a connection request.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
)

// ConnectionRequest links two users once accepted. A pending pair
// (From, To) is unique; re-sending while pending is a duplicate.
type ConnectionRequest struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ValidConnectionStatus reports whether s is a known status value.
func ValidConnectionStatus(s ConnectionStatus) bool {
	switch s {
	case ConnectionPending, ConnectionAccepted, ConnectionRejected:
		return true
	}
	return false
}
