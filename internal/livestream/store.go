// Copyright (c) 2026 Xit. All rights reserved.

package livestream

import (
	"context"
	"time"

	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// Repository is the persistence contract for livestream records.
type Repository interface {
	// Create persists a new stream. ID is populated from the sequence.
	Create(ctx context.Context, stream *Livestream) error

	// FindByIdentifier retrieves a stream by its public identifier.
	//
	// Returns [apperr.NotFound] if no stream exists.
	FindByIdentifier(ctx context.Context, identifier string) (*Livestream, error)

	// FindActiveByOwner retrieves the owner's currently active stream.
	//
	// Returns [apperr.NotFound] if the owner is not live.
	FindActiveByOwner(ctx context.Context, owner string) (*Livestream, error)

	// MarkEnded flips the stream inactive and stamps the end time.
	MarkEnded(ctx context.Context, identifier string, endedAt time.Time) error

	// ListActive returns a page of currently live streams, newest first,
	// along with the total live count.
	ListActive(ctx context.Context, page pagination.Params) ([]Livestream, int, error)
}
