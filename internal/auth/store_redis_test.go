// Copyright (c) 2026 Xit. All rights reserved.

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moa-mel/xit-backend/internal/auth"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/constants"
)

// newTestRedis spins up an in-process Redis and a client pointed at it.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return server, client
}

/*
TestOTPStore_SetGetDelete verifies the basic redeem cycle of a one-time code.
*/
func TestOTPStore_SetGetDelete(t *testing.T) {
	_, client := newTestRedis(t)
	store := auth.NewSignupOTPStore(client)
	ctx := context.Background()

	// 1. Missing code is a normal answer, not an error
	code, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, code)

	// 2. Set and read back
	require.NoError(t, store.Set(ctx, "user-1", "123456", 5*time.Minute))
	code, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	// 3. Delete consumes the code
	require.NoError(t, store.Delete(ctx, "user-1"))
	code, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, code)
}

/*
TestOTPStore_Expiry verifies that codes vanish after their TTL.
*/
func TestOTPStore_Expiry(t *testing.T) {
	server, client := newTestRedis(t)
	store := auth.NewSignupOTPStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user-1", "123456", 5*time.Minute))

	// Advance past the TTL
	server.FastForward(5*time.Minute + time.Second)

	code, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, code)
}

/*
TestOTPStore_PrefixIsolation verifies that signup and reset codes live in
disjoint namespaces: a code issued for one flow cannot be redeemed in the other.
*/
func TestOTPStore_PrefixIsolation(t *testing.T) {
	_, client := newTestRedis(t)
	signupStore := auth.NewSignupOTPStore(client)
	resetStore := auth.NewResetOTPStore(client)
	ctx := context.Background()

	require.NoError(t, signupStore.Set(ctx, "user-1", "111111", 5*time.Minute))

	code, err := resetStore.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, code, "signup code must not be visible to the reset flow")
}

/*
TestOTPStore_Overwrite verifies that re-issuing a code displaces the old one.
*/
func TestOTPStore_Overwrite(t *testing.T) {
	_, client := newTestRedis(t)
	store := auth.NewSignupOTPStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "user-1", "111111", 5*time.Minute))
	require.NoError(t, store.Set(ctx, "user-1", "222222", 5*time.Minute))

	code, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "222222", code)
}

/*
TestRefreshTokenStore_SingleActiveToken verifies the single-active-token
invariant: saving always overwrites.
*/
func TestRefreshTokenStore_SingleActiveToken(t *testing.T) {
	_, client := newTestRedis(t)
	store := auth.NewRefreshTokenStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "user-1", "token-a", time.Hour))
	require.NoError(t, store.Save(ctx, "user-1", "token-b", time.Hour))

	token, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "token-b", token)

	require.NoError(t, store.Delete(ctx, "user-1"))
	token, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, token)
}

/*
TestResetGrantStore_Window verifies the open/check/close cycle and TTL expiry
of the reset grant.
*/
func TestResetGrantStore_Window(t *testing.T) {
	server, client := newTestRedis(t)
	store := auth.NewResetGrantStore(client)
	ctx := context.Background()

	// 1. Closed by default
	open, err := store.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, open)

	// 2. Grant opens the window, recording the account's row id
	require.NoError(t, store.Grant(ctx, "user-1", 42, 10*time.Minute))
	open, err = store.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, open)

	value, err := server.Get(constants.RedisPrefixResetGrant + "user-1")
	require.NoError(t, err)
	assert.Equal(t, "42", value)

	// 3. The window closes by itself
	server.FastForward(10*time.Minute + time.Second)
	open, err = store.Check(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, open)
}

/*
TestBlacklistStore_Revocation verifies blacklist entries and their sizing.
*/
func TestBlacklistStore_Revocation(t *testing.T) {
	server, client := newTestRedis(t)
	store := auth.NewBlacklistStore(client)
	ctx := context.Background()

	// 1. Unknown tokens are not revoked
	revoked, err := store.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.False(t, revoked)

	// 2. Revoke for the remaining lifetime
	require.NoError(t, store.Revoke(ctx, "some-token", time.Hour))
	revoked, err = store.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.True(t, revoked)

	// 3. The entry self-deletes once the token would have expired anyway
	server.FastForward(time.Hour + time.Second)
	revoked, err = store.IsRevoked(ctx, "some-token")
	require.NoError(t, err)
	assert.False(t, revoked)
}

/*
TestBlacklistStore_ExpiredTokenNoop verifies that revoking an already-expired
token writes nothing.
*/
func TestBlacklistStore_ExpiredTokenNoop(t *testing.T) {
	server, client := newTestRedis(t)
	store := auth.NewBlacklistStore(client)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "dead-token", -time.Minute))
	assert.Empty(t, server.Keys())
}

/*
TestStores_FailClosed verifies that an unreachable Redis surfaces as
SESSION_STORE_UNAVAILABLE rather than as a silent miss.
*/
func TestStores_FailClosed(t *testing.T) {
	server, client := newTestRedis(t)
	otpStore := auth.NewSignupOTPStore(client)
	blacklist := auth.NewBlacklistStore(client)
	ctx := context.Background()

	server.Close()

	_, err := otpStore.Get(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "SESSION_STORE_UNAVAILABLE"))

	_, err = blacklist.IsRevoked(ctx, "some-token")
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "SESSION_STORE_UNAVAILABLE"))
}
