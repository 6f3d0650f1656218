package domain

import "time"

// ChatMessage is a single direct message between two users.
type ChatMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageView is a message enriched with sender/recipient profile
// summaries, as delivered to clients.
type ChatMessageView struct {
	ChatMessage
	FromUser UserSummary `json:"from_user"`
	ToUser   UserSummary `json:"to_user"`
}

// Conversation is one entry in a user's inbox: the partner, the most
// recent message exchanged with them, and how many of their messages
// remain unread.
type Conversation struct {
	Partner     UserSummary `json:"partner"`
	LastMessage ChatMessage `json:"last_message"`
	Unread      int         `json:"unread"`
}
