// Copyright (c) 2026 Xit. All rights reserved.

package livestream

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/moa-mel/xit-backend/internal/notification"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/pkg/pagination"
	"github.com/moa-mel/xit-backend/pkg/slug"
	"github.com/moa-mel/xit-backend/pkg/uuid"
)

// Announcer enqueues the fan-out job announcing a stream going live.
type Announcer interface {
	Enqueue(ctx context.Context, task notification.DispatchTask) error
}

// Service owns the livestream lifecycle.
type Service struct {
	streams   Repository
	announcer Announcer
	logger    *slog.Logger
}

// NewService creates a livestream service.
func NewService(streams Repository, announcer Announcer, logger *slog.Logger) *Service {
	return &Service{streams: streams, announcer: announcer, logger: logger}
}

// Start begins a new broadcast for the owner.
//
// One active stream per owner: a second Start while live returns
// [ErrStreamAlreadyLive]. Going live also enqueues a platform-wide
// announcement; the stream is live regardless of whether the enqueue
// succeeds.
func (service *Service) Start(ctx context.Context, owner, title, description string) (*Livestream, error) {
	// ── 1. Enforce the single-active-stream invariant ──
	if _, err := service.streams.FindActiveByOwner(ctx, owner); err == nil {
		return nil, ErrStreamAlreadyLive
	} else if !apperr.HasCode(err, "NOT_FOUND") {
		return nil, err
	}

	// ── 2. Persist the stream ──
	now := time.Now().UTC()
	identifier := uuid.New()

	stream := &Livestream{
		Identifier:  identifier,
		Slug:        slug.From(title) + "-" + identifier[:8],
		Title:       title,
		Description: description,
		OwnerID:     owner,
		IsActive:    true,
		StartedAt:   now,
		CreatedAt:   now,
	}

	if err := service.streams.Create(ctx, stream); err != nil {
		return nil, err
	}

	// ── 3. Announce, best effort ──
	err := service.announcer.Enqueue(ctx, notification.DispatchTask{
		Kind:     notification.KindLivestream,
		SourceID: stream.Identifier,
		Body:     "is live now",
	})
	if err != nil {
		service.logger.WarnContext(ctx, "livestream_announce_failed",
			slog.String("stream", stream.Identifier),
			slog.Any("error", err),
		)
	}

	service.logger.InfoContext(ctx, "livestream_started",
		slog.String("stream", stream.Identifier),
		slog.String("owner", owner),
	)

	return stream, nil
}

// End finishes the caller's broadcast.
//
// Only the owner can end a stream. Ending an already-finished stream
// returns [ErrStreamNotLive].
func (service *Service) End(ctx context.Context, caller, identifier string) (*Livestream, error) {
	stream, err := service.streams.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if stream.OwnerID != caller {
		return nil, apperr.Forbidden("Only the stream owner can end it")
	}
	if !stream.IsActive {
		return nil, ErrStreamNotLive
	}

	endedAt := time.Now().UTC()
	if err := service.streams.MarkEnded(ctx, identifier, endedAt); err != nil {
		return nil, err
	}

	stream.IsActive = false
	stream.EndedAt = &endedAt

	service.logger.InfoContext(ctx, "livestream_ended",
		slog.String("stream", stream.Identifier),
		slog.String("owner", caller),
	)

	return stream, nil
}

// Get retrieves one stream by its public identifier.
func (service *Service) Get(ctx context.Context, identifier string) (*Livestream, error) {
	return service.streams.FindByIdentifier(ctx, identifier)
}

// ListActive returns a page of currently live streams.
func (service *Service) ListActive(ctx context.Context, page pagination.Params) ([]Livestream, int, error) {
	return service.streams.ListActive(ctx, page)
}

// # Chat Gate

// ChatGuard gates entry to livestream chat rooms. Rooms outside the
// livestream namespace pass through untouched.
type ChatGuard struct {
	streams Repository
}

// NewChatGuard creates a guard backed by the stream repository.
func NewChatGuard(streams Repository) *ChatGuard {
	return &ChatGuard{streams: streams}
}

// Approve admits the user unless the room belongs to a stream that does not
// exist or is no longer live.
func (guard *ChatGuard) Approve(ctx context.Context, user, roomName string) error {
	identifier, ok := strings.CutPrefix(roomName, RoomPrefix)
	if !ok {
		return nil
	}

	stream, err := guard.streams.FindByIdentifier(ctx, identifier)
	if err != nil {
		if apperr.HasCode(err, "NOT_FOUND") {
			return ErrStreamNotLive
		}
		return err
	}
	if !stream.IsActive {
		return ErrStreamNotLive
	}

	return nil
}
