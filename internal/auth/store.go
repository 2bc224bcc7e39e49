// Copyright (c) 2026 Xit. All rights reserved.

package auth

import (
	"context"
	"time"
)

// UserRepository defines the data access contract for user accounts.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation for Xit is PostgreSQL (store_postgres.go).
type UserRepository interface {
	// FindByIdentifier returns the account with the given public identifier.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)

	// FindByEmail returns the account with the given email.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Exists reports whether an account with the given public identifier is
	// still on record. Cheaper than FindByIdentifier when only liveness
	// matters (e.g. the chat handshake).
	Exists(ctx context.Context, identifier string) (bool, error)

	// Create persists a brand-new user account to the storage.
	//
	// Returns a wrapped error if the email unique constraint fails.
	Create(ctx context.Context, user *User) error

	// MarkVerified flips the account to verified and stamps the time.
	// Idempotent: verifying an already-verified account is a no-op.
	MarkVerified(ctx context.Context, identifier string) error

	// UpdateCredential replaces only the user's password hash.
	// This is separate from any profile update path to prevent accidental
	// overwrites during unrelated writes.
	UpdateCredential(ctx context.Context, identifier, newHash string) error
}

// The four contracts below cover every volatile session artifact. All of them
// are Redis-backed with a TTL; all of them treat a missing key as a normal
// answer, not an error. Infrastructure failures surface as
// [ErrSessionStoreUnavailable] so callers fail closed.

// OTPStore holds the live 6-digit code for an identifier.
//
// Signup verification and password reset use two separate instances with
// disjoint key prefixes, so a code issued for one flow can never be redeemed
// against the other.
type OTPStore interface {
	// Set stores the code under the identifier, replacing any previous code.
	Set(ctx context.Context, identifier, code string, ttl time.Duration) error

	// Get returns the live code for the identifier, or "" if none exists.
	Get(ctx context.Context, identifier string) (string, error)

	// Delete removes the code after successful redemption.
	Delete(ctx context.Context, identifier string) error
}

// ResetGrantStore marks an identifier as cleared to submit a new password.
type ResetGrantStore interface {
	// Grant opens the reset window for the identifier. The account's internal
	// row id is recorded as the grant value for operator inspection.
	Grant(ctx context.Context, identifier string, userID int64, ttl time.Duration) error

	// Check reports whether the window is still open.
	Check(ctx context.Context, identifier string) (bool, error)

	// Revoke closes the window after the password has been changed.
	Revoke(ctx context.Context, identifier string) error
}

// RefreshTokenStore holds the single active refresh token per identifier.
//
// Saving always overwrites: issuing a new refresh token invalidates the
// previous one even though its signature would still verify.
type RefreshTokenStore interface {
	// Save stores the token as the identifier's only active refresh token.
	Save(ctx context.Context, identifier, token string, ttl time.Duration) error

	// Get returns the active refresh token, or "" if none exists.
	Get(ctx context.Context, identifier string) (string, error)

	// Delete drops the active refresh token (sign-out, password reset).
	Delete(ctx context.Context, identifier string) error
}

// BlacklistStore records revoked access tokens until they would have expired
// naturally, at which point the entry self-deletes.
type BlacklistStore interface {
	// Revoke marks the raw token string as revoked for the given duration.
	Revoke(ctx context.Context, token string, ttl time.Duration) error

	// IsRevoked reports whether the token has been blacklisted.
	IsRevoked(ctx context.Context, token string) (bool, error)
}
