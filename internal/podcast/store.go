// Copyright (c) 2026 Xit. All rights reserved.

package podcast

import (
	"context"
	"time"

	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// Repository is the persistence contract for podcast episodes.
type Repository interface {
	// Create persists a new draft. ID is populated from the sequence.
	Create(ctx context.Context, episode *Podcast) error

	// FindByIdentifier retrieves an episode by its public identifier.
	//
	// Returns [apperr.NotFound] if no episode exists.
	FindByIdentifier(ctx context.Context, identifier string) (*Podcast, error)

	// MarkPublished flips the episode published and stamps the time.
	MarkPublished(ctx context.Context, identifier string, publishedAt time.Time) error

	// ListPublished returns a page of published episodes, newest first,
	// along with the total published count.
	ListPublished(ctx context.Context, page pagination.Params) ([]Podcast, int, error)
}
