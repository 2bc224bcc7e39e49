// Copyright (c) 2026 Xit. All rights reserved.

package livestream

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

// NewRepository creates a new PostgreSQL-backed livestream repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// streamColumns is the canonical SELECT list for media.livestream.
const streamColumns = `
	id, identifier, slug, title, description, ownerid,
	isactive, startedat, endedat, createdat`

// Create persists a new stream record into the media.livestream table.
func (repository *PostgresRepository) Create(ctx context.Context, stream *Livestream) error {
	const query = `
		INSERT INTO media.livestream (
			identifier, slug, title, description, ownerid, isactive, startedat, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := repository.pool.QueryRow(ctx, query,
		stream.Identifier,
		stream.Slug,
		stream.Title,
		stream.Description,
		stream.OwnerID,
		stream.IsActive,
		stream.StartedAt,
		stream.CreatedAt,
	).Scan(&stream.ID)

	if err != nil {
		return dberr.Wrap(err, "create_livestream")
	}

	return nil
}

// FindByIdentifier retrieves a stream by its public identifier.
func (repository *PostgresRepository) FindByIdentifier(ctx context.Context, identifier string) (*Livestream, error) {
	const query = `
		SELECT` + streamColumns + `
		FROM media.livestream
		WHERE identifier = $1`

	return repository.scanOne(ctx, query, identifier)
}

// FindActiveByOwner retrieves the owner's currently active stream.
func (repository *PostgresRepository) FindActiveByOwner(ctx context.Context, owner string) (*Livestream, error) {
	const query = `
		SELECT` + streamColumns + `
		FROM media.livestream
		WHERE ownerid = $1 AND isactive = TRUE
		ORDER BY startedat DESC
		LIMIT 1`

	return repository.scanOne(ctx, query, owner)
}

// MarkEnded flips the stream inactive and stamps the end time.
func (repository *PostgresRepository) MarkEnded(ctx context.Context, identifier string, endedAt time.Time) error {
	const query = `
		UPDATE media.livestream
		SET isactive = FALSE, endedat = $2
		WHERE identifier = $1 AND isactive = TRUE`

	tag, err := repository.pool.Exec(ctx, query, identifier, endedAt)
	if err != nil {
		return dberr.Wrap(err, "mark_livestream_ended")
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Livestream")
	}

	return nil
}

// ListActive returns a page of currently live streams, newest first.
func (repository *PostgresRepository) ListActive(ctx context.Context, page pagination.Params) ([]Livestream, int, error) {
	const countQuery = `SELECT COUNT(*) FROM media.livestream WHERE isactive = TRUE`

	var total int
	if err := repository.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_live_streams")
	}

	const listQuery = `
		SELECT` + streamColumns + `
		FROM media.livestream
		WHERE isactive = TRUE
		ORDER BY startedat DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(ctx, listQuery, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_live_streams")
	}
	defer rows.Close()

	streams := make([]Livestream, 0, page.Limit)
	for rows.Next() {
		var stream Livestream
		if err := rows.Scan(
			&stream.ID,
			&stream.Identifier,
			&stream.Slug,
			&stream.Title,
			&stream.Description,
			&stream.OwnerID,
			&stream.IsActive,
			&stream.StartedAt,
			&stream.EndedAt,
			&stream.CreatedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_livestream")
		}
		streams = append(streams, stream)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "iterate_live_streams")
	}

	return streams, total, nil
}

// scanOne runs a single-row query, mapping storage errors via dberr.
func (repository *PostgresRepository) scanOne(ctx context.Context, query string, arg any) (*Livestream, error) {
	stream := &Livestream{}
	err := repository.pool.QueryRow(ctx, query, arg).Scan(
		&stream.ID,
		&stream.Identifier,
		&stream.Slug,
		&stream.Title,
		&stream.Description,
		&stream.OwnerID,
		&stream.IsActive,
		&stream.StartedAt,
		&stream.EndedAt,
		&stream.CreatedAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "find_livestream")
	}

	return stream, nil
}
