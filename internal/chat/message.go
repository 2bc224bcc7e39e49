// Copyright (c) 2026 Xit. All rights reserved.

package chat

import (
	"context"
	"time"
)

// Message is a persisted chat message. Rooms themselves are ephemeral, but
// the messages that flow through them are durable history.
type Message struct {
	ID       int64     `json:"-"`
	RoomName string    `json:"room"`
	SenderID string    `json:"sender"` // Public identifier of the sender.
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// MessageStore is the persistence contract for chat history.
type MessageStore interface {
	// Save appends a message to the room's history.
	Save(ctx context.Context, message *Message) error

	// ListRecent returns up to limit messages for the room, newest first.
	ListRecent(ctx context.Context, roomName string, limit int) ([]Message, error)
}
