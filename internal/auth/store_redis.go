// Copyright (c) 2026 Xit. All rights reserved.

package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moa-mel/xit-backend/internal/platform/constants"
)

// # One-Time Code Store

// RedisOTPStore implements OTPStore on Redis, parameterized by key prefix.
//
// The prefix is what keeps the signup and reset flows in disjoint namespaces;
// everything else about the two stores is identical.
type RedisOTPStore struct {
	client *redis.Client
	prefix string
}

// NewSignupOTPStore creates the OTP store for email verification codes.
func NewSignupOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client, prefix: constants.RedisPrefixOTP}
}

// NewResetOTPStore creates the OTP store for password-reset codes.
func NewResetOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client, prefix: constants.RedisPrefixResetOTP}
}

/*
Set stores the code under the identifier, replacing any previous code.

Parameters:
  - context: context.Context
  - identifier: string (Opaque public user identifier)
  - code: string (The 6-digit code)
  - ttl: time.Duration

Returns:
  - error: ErrSessionStoreUnavailable on storage failures
*/
func (store *RedisOTPStore) Set(context context.Context, identifier, code string, ttl time.Duration) error {

	// Key the code by WHO it was issued to, not by its value
	key := store.prefix + identifier

	// Set the code with TTL. SET semantics overwrite: re-requesting a code
	// invalidates the previous one.
	if err := store.client.Set(context, key, code, ttl).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

/*
Get retrieves the live code for the identifier.

Description: A missing or expired code returns ("", nil). Absence is a normal
answer here; the service layer turns it into OTP_INVALID_OR_EXPIRED.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - string: The live code, or "" when none exists
  - error: ErrSessionStoreUnavailable on connectivity errors
*/
func (store *RedisOTPStore) Get(context context.Context, identifier string) (string, error) {

	// Use the prefix for key construction
	key := store.prefix + identifier

	// Get the code from Redis
	code, err := store.client.Get(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return the code
	return code, nil
}

/*
Delete removes the code after successful redemption.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - error: ErrSessionStoreUnavailable on deletion failures
*/
func (store *RedisOTPStore) Delete(context context.Context, identifier string) error {

	// Use the prefix for key construction
	key := store.prefix + identifier

	// Delete the code from Redis
	if err := store.client.Del(context, key).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

// # Reset Grant Store

// RedisResetGrantStore implements ResetGrantStore using Redis.
type RedisResetGrantStore struct {
	client *redis.Client
}

// NewResetGrantStore creates a new Redis-backed ResetGrantStore.
func NewResetGrantStore(client *redis.Client) *RedisResetGrantStore {
	return &RedisResetGrantStore{client: client}
}

/*
Grant opens the reset window for the identifier.

Parameters:
  - context: context.Context
  - identifier: string
  - userID: int64 (Internal row id, stored as the grant value)
  - ttl: time.Duration

Returns:
  - error: ErrSessionStoreUnavailable on storage failures
*/
func (store *RedisResetGrantStore) Grant(context context.Context, identifier string, userID int64, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixResetGrant + identifier

	// The value records the numeric account id; Check only tests existence
	if err := store.client.Set(context, key, strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

/*
Check reports whether the reset window is still open.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - bool: true when the grant exists
  - error: ErrSessionStoreUnavailable on connectivity errors
*/
func (store *RedisResetGrantStore) Check(context context.Context, identifier string) (bool, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixResetGrant + identifier

	// Check key existence
	count, err := store.client.Exists(context, key).Result()
	if err != nil {
		return false, ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return whether the grant exists
	return count > 0, nil
}

/*
Revoke closes the window after the password has been changed.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - error: ErrSessionStoreUnavailable on deletion failures
*/
func (store *RedisResetGrantStore) Revoke(context context.Context, identifier string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixResetGrant + identifier

	// Delete the grant from Redis
	if err := store.client.Del(context, key).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

// # Refresh Token Store

// RedisRefreshTokenStore implements RefreshTokenStore using Redis.
type RedisRefreshTokenStore struct {
	client *redis.Client
}

// NewRefreshTokenStore creates a new Redis-backed RefreshTokenStore.
func NewRefreshTokenStore(client *redis.Client) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{client: client}
}

/*
Save stores the token as the identifier's only active refresh token.

Description: SET overwrites unconditionally, which is the rotation invariant:
at most one refresh token per identifier is ever redeemable.

Parameters:
  - context: context.Context
  - identifier: string
  - token: string (Signed refresh JWT)
  - ttl: time.Duration

Returns:
  - error: ErrSessionStoreUnavailable on storage failures
*/
func (store *RedisRefreshTokenStore) Save(context context.Context, identifier, token string, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixRefreshToken + identifier

	// Set the token with TTL
	if err := store.client.Set(context, key, token, ttl).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

/*
Get returns the active refresh token for the identifier.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - string: The active token, or "" when none exists
  - error: ErrSessionStoreUnavailable on connectivity errors
*/
func (store *RedisRefreshTokenStore) Get(context context.Context, identifier string) (string, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixRefreshToken + identifier

	// Get the token from Redis
	token, err := store.client.Get(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return the token
	return token, nil
}

/*
Delete drops the active refresh token.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - error: ErrSessionStoreUnavailable on deletion failures
*/
func (store *RedisRefreshTokenStore) Delete(context context.Context, identifier string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixRefreshToken + identifier

	// Delete the token from Redis
	if err := store.client.Del(context, key).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

// # Blacklist Store

// revokedMarker is the value stored against a blacklisted token. Only the
// key's existence matters.
const revokedMarker = "revoked"

// RedisBlacklistStore implements BlacklistStore using Redis.
type RedisBlacklistStore struct {
	client *redis.Client
}

// NewBlacklistStore creates a new Redis-backed BlacklistStore.
func NewBlacklistStore(client *redis.Client) *RedisBlacklistStore {
	return &RedisBlacklistStore{client: client}
}

/*
Revoke marks the raw token string as revoked for the given duration.

Description: The TTL is sized to the token's remaining natural lifetime, so
the blacklist never grows beyond the set of tokens that could still verify.

Parameters:
  - context: context.Context
  - token: string (The raw access token string)
  - ttl: time.Duration

Returns:
  - error: ErrSessionStoreUnavailable on storage failures
*/
func (store *RedisBlacklistStore) Revoke(context context.Context, token string, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixBlacklist + token

	// A non-positive TTL means the token already expired; nothing to record.
	if ttl <= 0 {
		return nil
	}

	// Set the marker with TTL
	if err := store.client.Set(context, key, revokedMarker, ttl).Err(); err != nil {
		return ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return nil on success
	return nil
}

/*
IsRevoked reports whether the token has been blacklisted.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - bool: true when the token is revoked
  - error: ErrSessionStoreUnavailable on connectivity errors
*/
func (store *RedisBlacklistStore) IsRevoked(context context.Context, token string) (bool, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixBlacklist + token

	// Check key existence
	count, err := store.client.Exists(context, key).Result()
	if err != nil {
		return false, ErrSessionStoreUnavailable.WithCause(err)
	}

	// Return whether the token is revoked
	return count > 0, nil
}
