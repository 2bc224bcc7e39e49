// Copyright (c) 2026 Xit. All rights reserved.

package notification

import (
	"context"

	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// ListFilter narrows a recipient's notification feed.
type ListFilter struct {
	// Kind filters by notification kind when non-empty.
	Kind Kind

	// Unread restricts to unread rows when true.
	Unread bool
}

// Store is the persistence contract for notification rows.
type Store interface {
	// CreateBatch persists one row per recipient in a single round-trip.
	CreateBatch(ctx context.Context, notifications []Notification) error

	// ListForRecipient returns a page of the recipient's feed, newest first,
	// along with the total row count for pagination metadata.
	ListForRecipient(ctx context.Context, recipient string, filter ListFilter, page pagination.Params) ([]Notification, int, error)

	// UnreadCount returns the recipient's number of unread rows.
	UnreadCount(ctx context.Context, recipient string) (int, error)

	// MarkRead flags one of the recipient's rows as read. Rows belonging to
	// other recipients are invisible to this call.
	MarkRead(ctx context.Context, recipient string, id int64) error

	// MarkAllRead flags the recipient's entire feed as read.
	MarkAllRead(ctx context.Context, recipient string) error
}

// SourceResolver answers whether the announced entity still exists and who
// owns it.
type SourceResolver interface {
	// Resolve returns the owner identifier and display title of the source.
	// KindGeneral has no source; owner and title come back empty.
	//
	// Returns [ErrSourceEntityGone] if the entity no longer exists.
	Resolve(ctx context.Context, kind Kind, sourceID string) (owner, title string, err error)
}

// RecipientLister enumerates who should receive a fan-out.
type RecipientLister interface {
	// ListIdentifiers returns every user identifier except the excluded one
	// (the owner never gets notified about their own content).
	ListIdentifiers(ctx context.Context, exclude string) ([]string, error)
}

// PushSink is the best-effort real-time delivery leg.
//
// Persistence is the source of truth; a sink failure for one recipient is
// logged and skipped, never retried and never fatal to the batch.
type PushSink interface {
	Publish(ctx context.Context, recipient string, notification *Notification) error
}
