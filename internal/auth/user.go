// Copyright (c) 2026 Xit. All rights reserved.

// Package auth implements the identity and session lifecycle for the Xit platform.
//
// # Architecture
//
// The package is split along the service/storage boundary used everywhere in
// this codebase: entities and contracts carry no dependencies on outer layers,
// the service orchestrates them, and the Postgres/Redis stores implement the
// contracts.
//
// # Session Model
//
// A user account is durable (PostgreSQL). Everything that makes a *session* is
// volatile and lives in Redis under a TTL: one-time codes, reset grants, the
// single active refresh token, and the access-token blacklist. Expiry is the
// only cleanup mechanism; a missing key is always a valid state.
package auth

import (
	"time"
)

// User represents a registered member of the Xit platform.
//
// # Rules
//   - Identifier is the opaque public handle minted at signup. It is the only
//     user reference that ever appears inside a token or a Redis key.
//   - Email is unique and validated.
//   - PasswordHash is generated via Bcrypt exclusively via the auth Service.
//   - IsVerified ensures the user has confirmed their email address; unverified
//     accounts cannot sign in.
type User struct {
	ID              int64      `json:"-"` // Internal row id. Never leaves the server.
	Identifier      string     `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"` // Explicitly omitted from JSON for security.
	IsVerified      bool       `json:"is_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TokenPair is the access/refresh pair returned to a client on sign-in and
// on every refresh rotation.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
