// Copyright (c) 2026 Xit. All rights reserved.

// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// userColumns is the canonical SELECT list for users.account.
const userColumns = `
	id, identifier, firstname, lastname, email, passwordhash,
	isverified, emailverifiedat, createdat, updatedat`

// Create persists a new user record into the users.account table.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - user: The user entity to persist. ID is populated from the sequence.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			identifier, firstname, lastname, email, passwordhash, isverified, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	err := repository.pool.QueryRow(ctx, query,
		user.Identifier,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user record by their unique email address.
//
// # Returns
//
// Returns [*User] if found, or [apperr.NotFound] if no account exists.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT` + userColumns + `
		FROM users.account
		WHERE email = $1`

	return repository.scanOne(ctx, query, email)
}

// FindByIdentifier retrieves a user record by their public identifier.
//
// # Returns
//
// Returns [*User] if found, or [apperr.NotFound] if no account exists.
func (repository *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	const query = `
		SELECT` + userColumns + `
		FROM users.account
		WHERE identifier = $1`

	return repository.scanOne(ctx, query, identifier)
}

// Exists reports whether an account with the identifier is still on record.
func (repository *PostgresUserRepository) Exists(ctx context.Context, identifier string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users.account WHERE identifier = $1)`

	var exists bool
	if err := repository.pool.QueryRow(ctx, query, identifier).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_user_repo_exists_failed: %w", err)
	}

	return exists, nil
}

// MarkVerified flips the account to verified and stamps the time.
func (repository *PostgresUserRepository) MarkVerified(ctx context.Context, identifier string) error {
	const query = `
		UPDATE users.account
		SET isverified = TRUE, emailverifiedat = COALESCE(emailverifiedat, $2), updatedat = $2
		WHERE identifier = $1`

	tag, err := repository.pool.Exec(ctx, query, identifier, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// UpdateCredential updates only the password hash for a specific user.
func (repository *PostgresUserRepository) UpdateCredential(ctx context.Context, identifier, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE identifier = $1`

	tag, err := repository.pool.Exec(ctx, query, identifier, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_credential_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// scanOne runs a single-row query and maps pgx.ErrNoRows to apperr.NotFound.
func (repository *PostgresUserRepository) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Identifier,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.IsVerified,
		&user.EmailVerifiedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}
