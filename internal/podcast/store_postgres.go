// Copyright (c) 2026 Xit. All rights reserved.

package podcast

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/dberr"
	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL-backed podcast repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// podcastColumns is the canonical SELECT list for media.podcast.
const podcastColumns = `
	id, identifier, slug, title, description, audiourl,
	ownerid, ispublished, publishedat, createdat`

// Create persists a new draft episode into the media.podcast table.
func (repository *PostgresRepository) Create(ctx context.Context, episode *Podcast) error {
	const query = `
		INSERT INTO media.podcast (
			identifier, slug, title, description, audiourl, ownerid, ispublished, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := repository.pool.QueryRow(ctx, query,
		episode.Identifier,
		episode.Slug,
		episode.Title,
		episode.Description,
		episode.AudioURL,
		episode.OwnerID,
		episode.IsPublished,
		episode.CreatedAt,
	).Scan(&episode.ID)

	if err != nil {
		return dberr.Wrap(err, "create_podcast")
	}

	return nil
}

// FindByIdentifier retrieves an episode by its public identifier.
func (repository *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*Podcast, error) {
	const query = `
		SELECT` + podcastColumns + `
		FROM media.podcast
		WHERE identifier = $1`

	episode := &Podcast{}
	err := repository.pool.QueryRow(ctx, query, identifier).Scan(
		&episode.ID,
		&episode.Identifier,
		&episode.Slug,
		&episode.Title,
		&episode.Description,
		&episode.AudioURL,
		&episode.OwnerID,
		&episode.IsPublished,
		&episode.PublishedAt,
		&episode.CreatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "find_podcast")
	}

	return episode, nil
}

// MarkPublished flips the episode published and stamps the time.
func (repository *PostgresRepository) MarkPublished(ctx context.Context, identifier string, publishedAt time.Time) error {
	const query = `
		UPDATE media.podcast
		SET ispublished = TRUE, publishedat = $2
		WHERE identifier = $1 AND ispublished = FALSE`

	tag, err := repository.pool.Exec(ctx, query, identifier, publishedAt)
	if err != nil {
		return dberr.Wrap(err, "mark_podcast_published")
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Podcast")
	}

	return nil
}

// ListPublished returns a page of published episodes, newest first.
func (repository *PostgresRepository) ListPublished(ctx context.Context, page pagination.Params) ([]Podcast, int, error) {
	const countQuery = `SELECT COUNT(*) FROM media.podcast WHERE ispublished = TRUE`

	var total int
	if err := repository.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_published_podcasts")
	}

	const listQuery = `
		SELECT` + podcastColumns + `
		FROM media.podcast
		WHERE ispublished = TRUE
		ORDER BY publishedat DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(ctx, listQuery, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_published_podcasts")
	}
	defer rows.Close()

	episodes := make([]Podcast, 0, page.Limit)
	for rows.Next() {
		var episode Podcast
		if err := rows.Scan(
			&episode.ID,
			&episode.Identifier,
			&episode.Slug,
			&episode.Title,
			&episode.Description,
			&episode.AudioURL,
			&episode.OwnerID,
			&episode.IsPublished,
			&episode.PublishedAt,
			&episode.CreatedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_podcast")
		}
		episodes = append(episodes, episode)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "iterate_published_podcasts")
	}

	return episodes, total, nil
}
