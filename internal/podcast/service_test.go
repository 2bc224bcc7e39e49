// Copyright (c) 2026 Xit. All rights reserved.

package podcast

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moa-mel/xit-backend/internal/notification"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// memoryRepository is an in-memory [Repository] keyed by identifier.
type memoryRepository struct {
	mu       sync.Mutex
	episodes map[string]*Podcast
	nextID   int64
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{episodes: make(map[string]*Podcast)}
}

func (repo *memoryRepository) Create(_ context.Context, episode *Podcast) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.nextID++
	episode.ID = repo.nextID
	clone := *episode
	repo.episodes[episode.Identifier] = &clone
	return nil
}

func (repo *memoryRepository) FindByIdentifier(_ context.Context, identifier string) (*Podcast, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	episode, ok := repo.episodes[identifier]
	if !ok {
		return nil, apperr.NotFound("Podcast")
	}
	clone := *episode
	return &clone, nil
}

func (repo *memoryRepository) MarkPublished(_ context.Context, identifier string, publishedAt time.Time) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	episode, ok := repo.episodes[identifier]
	if !ok || episode.IsPublished {
		return apperr.NotFound("Podcast")
	}
	episode.IsPublished = true
	episode.PublishedAt = &publishedAt
	return nil
}

func (repo *memoryRepository) ListPublished(_ context.Context, page pagination.Params) ([]Podcast, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var published []Podcast
	for _, episode := range repo.episodes {
		if episode.IsPublished {
			published = append(published, *episode)
		}
	}
	return published, len(published), nil
}

// recorderAnnouncer records enqueued tasks.
type recorderAnnouncer struct {
	mu    sync.Mutex
	tasks []notification.DispatchTask
}

func (announcer *recorderAnnouncer) Enqueue(_ context.Context, task notification.DispatchTask) error {
	announcer.mu.Lock()
	defer announcer.mu.Unlock()
	announcer.tasks = append(announcer.tasks, task)
	return nil
}

func newService(t *testing.T) (*Service, *memoryRepository, *recorderAnnouncer) {
	t.Helper()
	repo := newMemoryRepository()
	announcer := &recorderAnnouncer{}
	return NewService(repo, announcer, slog.Default()), repo, announcer
}

/*
TestCreateDraft verifies a new episode starts as an unpublished draft with a
slug derived from its title, and no announcement is sent.
*/
func TestCreateDraft(t *testing.T) {
	service, _, announcer := newService(t)

	episode, err := service.Create(context.Background(), "user-owner", CreateInput{
		Title:    "Episode 12: Déjà Vu",
		AudioURL: "https://cdn.xit.app/audio/ep12.mp3",
	})
	require.NoError(t, err)

	assert.False(t, episode.IsPublished)
	assert.Nil(t, episode.PublishedAt)
	assert.Contains(t, episode.Slug, "episode-12-deja-vu")
	assert.Empty(t, announcer.tasks, "drafts are not announced")
}

/*
TestPublish verifies publishing flips the draft public, stamps the time, and
enqueues a podcast announcement pointing at the episode.
*/
func TestPublish(t *testing.T) {
	service, _, announcer := newService(t)
	ctx := context.Background()

	draft, err := service.Create(ctx, "user-owner", CreateInput{
		Title:    "Episode 1",
		AudioURL: "https://cdn.xit.app/audio/ep1.mp3",
	})
	require.NoError(t, err)

	episode, err := service.Publish(ctx, "user-owner", draft.Identifier)
	require.NoError(t, err)

	assert.True(t, episode.IsPublished)
	require.NotNil(t, episode.PublishedAt)

	require.Len(t, announcer.tasks, 1)
	assert.Equal(t, notification.KindPodcast, announcer.tasks[0].Kind)
	assert.Equal(t, episode.Identifier, announcer.tasks[0].SourceID)
}

/*
TestPublishGuards verifies only the owner can publish and re-publishing is
rejected.
*/
func TestPublishGuards(t *testing.T) {
	service, _, _ := newService(t)
	ctx := context.Background()

	draft, err := service.Create(ctx, "user-owner", CreateInput{
		Title:    "Episode 1",
		AudioURL: "https://cdn.xit.app/audio/ep1.mp3",
	})
	require.NoError(t, err)

	_, err = service.Publish(ctx, "user-intruder", draft.Identifier)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "FORBIDDEN"))

	_, err = service.Publish(ctx, "user-owner", draft.Identifier)
	require.NoError(t, err)

	_, err = service.Publish(ctx, "user-owner", draft.Identifier)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "ALREADY_PUBLISHED"))
}

/*
TestDraftVisibility verifies drafts are visible to their owner only, while
published episodes are visible to everyone.
*/
func TestDraftVisibility(t *testing.T) {
	service, _, _ := newService(t)
	ctx := context.Background()

	draft, err := service.Create(ctx, "user-owner", CreateInput{
		Title:    "Episode 1",
		AudioURL: "https://cdn.xit.app/audio/ep1.mp3",
	})
	require.NoError(t, err)

	// 1. The owner sees their draft; others get a not-found.
	_, err = service.Get(ctx, "user-owner", draft.Identifier)
	require.NoError(t, err)

	_, err = service.Get(ctx, "user-other", draft.Identifier)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))

	// 2. Publishing opens it up, and it appears in the catalog.
	_, err = service.Publish(ctx, "user-owner", draft.Identifier)
	require.NoError(t, err)

	_, err = service.Get(ctx, "user-other", draft.Identifier)
	require.NoError(t, err)

	episodes, total, err := service.ListPublished(ctx, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, episodes, 1)
}
