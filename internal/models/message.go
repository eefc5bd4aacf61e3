package models

import (
	"time"
)

const (
	MessageTypeReCorrection = "re-correction request"
	MessageTypeModule       = "module message"

	// SystemAuthor is used as the author of messages generated by the daemon
	// itself rather than by a user.
	SystemAuthor = "system"
)

// Message is a single entry in a user's inbox.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Inbox is the document stored per user in the UserMessages collection.
type Inbox struct {
	Messages []Message `json:"messages"`
}
