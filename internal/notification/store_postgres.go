// Copyright (c) 2026 Xit. All rights reserved.

package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/database/schema"
	"github.com/moa-mel/xit-backend/pkg/pagination"
)

// PostgresStore implements [Store], [SourceResolver], and [RecipientLister]
// against the primary database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL-backed notification store.
func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// CreateBatch persists one row per recipient using a single batched insert.
func (store *PostgresStore) CreateBatch(ctx context.Context, notifications []Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.SystemNotification.Table,
		schema.SystemNotification.RecipientID, schema.SystemNotification.Kind,
		schema.SystemNotification.Title, schema.SystemNotification.Body,
		schema.SystemNotification.SourceID, schema.SystemNotification.IsRead,
		schema.SystemNotification.CreatedAt,
	)

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(query, n.RecipientID, n.Kind, n.Title, n.Body, n.SourceID, n.IsRead, n.CreatedAt)
	}

	results := store.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range notifications {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres_notification_store_batch_failed: %w", err)
		}
	}

	return nil
}

// notificationColumns is the canonical SELECT list for system.notification.
func notificationColumns() string {
	t := schema.SystemNotification
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s",
		t.ID, t.RecipientID, t.Kind, t.Title, t.Body, t.SourceID, t.IsRead, t.CreatedAt)
}

// ListForRecipient returns a page of the recipient's feed, newest first.
func (store *PostgresStore) ListForRecipient(ctx context.Context, recipient string, filter ListFilter, page pagination.Params) ([]Notification, int, error) {
	t := schema.SystemNotification

	// Dynamic WHERE clause: positional args grow with each active filter.
	where := fmt.Sprintf("WHERE %s = $1", t.RecipientID)
	args := []any{recipient}

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where += fmt.Sprintf(" AND %s = $%d", t.Kind, len(args))
	}
	if filter.Unread {
		where += fmt.Sprintf(" AND %s = FALSE", t.IsRead)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", t.Table, where)

	var total int
	if err := store.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_notification_store_count_failed: %w", err)
	}

	args = append(args, page.Limit, page.Offset())
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s %s
		ORDER BY %s DESC, %s DESC
		LIMIT $%d OFFSET $%d`,
		notificationColumns(), t.Table, where, t.CreatedAt, t.ID, len(args)-1, len(args))

	rows, err := store.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_notification_store_list_failed: %w", err)
	}
	defer rows.Close()

	notifications := make([]Notification, 0, page.Limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Body, &n.SourceID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("postgres_notification_store_scan_failed: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_notification_store_rows_failed: %w", err)
	}

	return notifications, total, nil
}

// UnreadCount returns the recipient's number of unread rows.
func (store *PostgresStore) UnreadCount(ctx context.Context, recipient string) (int, error) {
	t := schema.SystemNotification
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1 AND %s = FALSE",
		t.Table, t.RecipientID, t.IsRead)

	var count int
	if err := store.pool.QueryRow(ctx, query, recipient).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_notification_store_unread_failed: %w", err)
	}
	return count, nil
}

// MarkRead flags one of the recipient's rows as read.
func (store *PostgresStore) MarkRead(ctx context.Context, recipient string, id int64) error {
	t := schema.SystemNotification
	query := fmt.Sprintf("UPDATE %s SET %s = TRUE WHERE %s = $1 AND %s = $2",
		t.Table, t.IsRead, t.ID, t.RecipientID)

	tag, err := store.pool.Exec(ctx, query, id, recipient)
	if err != nil {
		return fmt.Errorf("postgres_notification_store_mark_read_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Notification")
	}
	return nil
}

// MarkAllRead flags the recipient's entire feed as read.
func (store *PostgresStore) MarkAllRead(ctx context.Context, recipient string) error {
	t := schema.SystemNotification
	query := fmt.Sprintf("UPDATE %s SET %s = TRUE WHERE %s = $1 AND %s = FALSE",
		t.Table, t.IsRead, t.RecipientID, t.IsRead)

	if _, err := store.pool.Exec(ctx, query, recipient); err != nil {
		return fmt.Errorf("postgres_notification_store_mark_all_read_failed: %w", err)
	}
	return nil
}

// # Source Resolution

// Resolve looks the source entity up in the table its kind dictates.
func (store *PostgresStore) Resolve(ctx context.Context, kind Kind, sourceID string) (string, string, error) {
	var query string

	switch kind {
	case KindLivestream:
		query = fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = $1",
			schema.MediaLivestream.OwnerID, schema.MediaLivestream.Title,
			schema.MediaLivestream.Table, schema.MediaLivestream.Identifier)
	case KindPodcast:
		query = fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = $1",
			schema.MediaPodcast.OwnerID, schema.MediaPodcast.Title,
			schema.MediaPodcast.Table, schema.MediaPodcast.Identifier)
	case KindGeneral:
		// General announcements have no source entity.
		return "", "", nil
	default:
		return "", "", apperr.ValidationError("Unknown notification kind")
	}

	var owner, title string
	err := store.pool.QueryRow(ctx, query, sourceID).Scan(&owner, &title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrSourceEntityGone
		}
		return "", "", fmt.Errorf("postgres_notification_store_resolve_failed: %w", err)
	}

	return owner, title, nil
}

// # Recipient Enumeration

// ListIdentifiers returns every verified user identifier except the excluded one.
func (store *PostgresStore) ListIdentifiers(ctx context.Context, exclude string) ([]string, error) {
	t := schema.UserAccount
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = TRUE AND %s <> $1
		ORDER BY %s`,
		t.Identifier, t.Table, t.IsVerified, t.Identifier, t.ID)

	rows, err := store.pool.Query(ctx, query, exclude)
	if err != nil {
		return nil, fmt.Errorf("postgres_notification_store_recipients_failed: %w", err)
	}
	defer rows.Close()

	var identifiers []string
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			return nil, fmt.Errorf("postgres_notification_store_recipient_scan_failed: %w", err)
		}
		identifiers = append(identifiers, identifier)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_notification_store_recipient_rows_failed: %w", err)
	}

	return identifiers, nil
}
