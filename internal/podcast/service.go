// Copyright (c) 2026 Xit. All rights reserved.

package podcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/moa-mel/xit-backend/internal/notification"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/pkg/pagination"
	"github.com/moa-mel/xit-backend/pkg/slug"
	"github.com/moa-mel/xit-backend/pkg/uuid"
)

// Announcer enqueues the fan-out job announcing a published episode.
type Announcer interface {
	Enqueue(ctx context.Context, task notification.DispatchTask) error
}

// Service owns the podcast episode lifecycle.
type Service struct {
	episodes  Repository
	announcer Announcer
	logger    *slog.Logger
}

// NewService creates a podcast service.
func NewService(episodes Repository, announcer Announcer, logger *slog.Logger) *Service {
	return &Service{episodes: episodes, announcer: announcer, logger: logger}
}

// CreateInput carries the fields of a new draft episode.
type CreateInput struct {
	Title       string
	Description string
	AudioURL    string
}

// Create persists a new unpublished draft for the owner.
func (service *Service) Create(ctx context.Context, owner string, input CreateInput) (*Podcast, error) {
	identifier := uuid.New()

	episode := &Podcast{
		Identifier:  identifier,
		Slug:        slug.From(input.Title) + "-" + identifier[:8],
		Title:       input.Title,
		Description: input.Description,
		AudioURL:    input.AudioURL,
		OwnerID:     owner,
		IsPublished: false,
		CreatedAt:   time.Now().UTC(),
	}

	if err := service.episodes.Create(ctx, episode); err != nil {
		return nil, err
	}

	return episode, nil
}

// Publish makes the caller's draft public and announces it.
//
// Only the owner can publish; publishing twice returns
// [ErrAlreadyPublished]. The episode is published regardless of whether
// the announcement enqueue succeeds.
func (service *Service) Publish(ctx context.Context, caller, identifier string) (*Podcast, error) {
	episode, err := service.episodes.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if episode.OwnerID != caller {
		return nil, apperr.Forbidden("Only the episode owner can publish it")
	}
	if episode.IsPublished {
		return nil, ErrAlreadyPublished
	}

	publishedAt := time.Now().UTC()
	if err := service.episodes.MarkPublished(ctx, identifier, publishedAt); err != nil {
		return nil, err
	}

	episode.IsPublished = true
	episode.PublishedAt = &publishedAt

	err = service.announcer.Enqueue(ctx, notification.DispatchTask{
		Kind:     notification.KindPodcast,
		SourceID: episode.Identifier,
		Body:     "published a new episode",
	})
	if err != nil {
		service.logger.WarnContext(ctx, "podcast_announce_failed",
			slog.String("episode", episode.Identifier),
			slog.Any("error", err),
		)
	}

	service.logger.InfoContext(ctx, "podcast_published",
		slog.String("episode", episode.Identifier),
		slog.String("owner", caller),
	)

	return episode, nil
}

// Get retrieves one published episode by its public identifier.
//
// Drafts are visible to their owner only.
func (service *Service) Get(ctx context.Context, caller, identifier string) (*Podcast, error) {
	episode, err := service.episodes.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if !episode.IsPublished && episode.OwnerID != caller {
		return nil, apperr.NotFound("Podcast")
	}

	return episode, nil
}

// ListPublished returns a page of the public catalog.
func (service *Service) ListPublished(ctx context.Context, page pagination.Params) ([]Podcast, int, error) {
	return service.episodes.ListPublished(ctx, page)
}
