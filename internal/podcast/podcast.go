// Copyright (c) 2026 Xit. All rights reserved.

// Package podcast manages podcast episodes: draft creation, publishing, and
// the public catalog. Publishing an episode enqueues a platform-wide
// notification.
package podcast

import (
	"net/http"
	"time"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// ErrAlreadyPublished rejects publishing an episode twice.
var ErrAlreadyPublished = apperr.New("ALREADY_PUBLISHED", "The episode is already published", http.StatusConflict)

// Podcast is one episode, draft or published.
type Podcast struct {
	ID          int64      `json:"-"`
	Identifier  string     `json:"identifier"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AudioURL    string     `json:"audio_url"`
	OwnerID     string     `json:"owner_id"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
