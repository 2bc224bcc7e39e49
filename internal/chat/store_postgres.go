// Copyright (c) 2026 Xit. All rights reserved.

package chat

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMessageStore implements the MessageStore interface using pgx.
type PostgresMessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a new PostgreSQL implementation of the MessageStore.
func NewMessageStore(pool *pgxpool.Pool) *PostgresMessageStore {
	return &PostgresMessageStore{pool: pool}
}

// Save appends a message to the social.message table.
func (store *PostgresMessageStore) Save(ctx context.Context, message *Message) error {
	const query = `
		INSERT INTO social.message (roomid, senderid, body, sentat)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := store.pool.QueryRow(ctx, query,
		message.RoomName,
		message.SenderID,
		message.Body,
		message.SentAt,
	).Scan(&message.ID)

	if err != nil {
		return fmt.Errorf("postgres_message_store_save_failed: %w", err)
	}

	return nil
}

// ListRecent returns up to limit messages for the room, newest first.
func (store *PostgresMessageStore) ListRecent(ctx context.Context, roomName string, limit int) ([]Message, error) {
	const query = `
		SELECT id, roomid, senderid, body, sentat
		FROM social.message
		WHERE roomid = $1
		ORDER BY sentat DESC, id DESC
		LIMIT $2`

	rows, err := store.pool.Query(ctx, query, roomName, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_message_store_list_failed: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		var message Message
		if err := rows.Scan(&message.ID, &message.RoomName, &message.SenderID, &message.Body, &message.SentAt); err != nil {
			return nil, fmt.Errorf("postgres_message_store_scan_failed: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_message_store_rows_failed: %w", err)
	}

	// Empty history is a valid answer; no NotFound mapping here.
	return messages, nil
}
