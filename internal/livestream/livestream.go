// Copyright (c) 2026 Xit. All rights reserved.

// Package livestream manages the lifecycle of live broadcasts: starting a
// stream, ending it, and gating entry to its chat room.
//
// A stream's chat lives in the shared chat system under the room name
// "livestream-<identifier>". This package contributes the [ChatGuard] that
// keeps those rooms closed unless the stream is actually live.
package livestream

import (
	"net/http"
	"time"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// RoomPrefix prefixes the chat room name of every livestream.
const RoomPrefix = "livestream-"

var (
	// ErrStreamNotLive rejects joining the chat of a stream that does not
	// exist or has already ended.
	ErrStreamNotLive = apperr.New("STREAM_NOT_LIVE", "The livestream is not live", http.StatusNotFound)

	// ErrStreamAlreadyLive rejects starting a second stream while the owner
	// already has one running.
	ErrStreamAlreadyLive = apperr.New("STREAM_ALREADY_LIVE", "You already have an active livestream", http.StatusConflict)
)

// Livestream is one broadcast, live or finished.
type Livestream struct {
	ID          int64      `json:"-"`
	Identifier  string     `json:"identifier"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	OwnerID     string     `json:"owner_id"`
	IsActive    bool       `json:"is_active"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RoomName returns the chat room attached to this stream.
func (stream *Livestream) RoomName() string {
	return RoomPrefix + stream.Identifier
}
