// Copyright (c) 2026 Xit. All rights reserved.

// Package notification implements the asynchronous notification dispatch
// pipeline: a Redis-backed job queue feeding a fan-out worker that persists
// per-recipient rows and pushes them over per-recipient channels.
//
// # Architecture
//
// Producers (livestream/podcast publish, admin announcements) enqueue a
// small job describing the event. The worker owns everything after that:
// resolving the source entity, enumerating recipients, writing durable rows,
// and best-effort real-time push. A failed push never fails the job; a gone
// source entity cancels it permanently.
package notification

import (
	"net/http"
	"time"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// Kind classifies what a notification is about.
type Kind string

const (
	KindLivestream Kind = "LIVESTREAM"
	KindPodcast    Kind = "PODCAST"
	KindGeneral    Kind = "GENERAL"
)

// Valid reports whether the kind is one of the known values.
func (kind Kind) Valid() bool {
	switch kind {
	case KindLivestream, KindPodcast, KindGeneral:
		return true
	}
	return false
}

// ErrSourceEntityGone marks a job whose source entity (the livestream or
// podcast it announces) disappeared before the worker ran. The job is
// cancelled permanently; retrying cannot bring the entity back.
var ErrSourceEntityGone = apperr.New("SOURCE_ENTITY_GONE", "The announced entity no longer exists", http.StatusNotFound)

// Notification is one recipient's copy of an announcement.
//
// Fan-out materializes one row per recipient at dispatch time, so reads and
// the read/unread state are trivially per-user.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID string    `json:"-"` // Implied by the authenticated request.
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	SourceID    string    `json:"source_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
