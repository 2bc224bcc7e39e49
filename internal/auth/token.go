// Copyright (c) 2026 Xit. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moa-mel/xit-backend/internal/platform/sec"
)

// TokenService owns the full access/refresh token lifecycle: minting,
// verification, revocation, and rotation.
//
// # Verification Order
//
// Signature and expiry are always checked BEFORE the blacklist. A forged or
// expired token never costs a Redis round-trip, and the store cannot be
// probed with garbage input.
//
// # Fail Closed
//
// If the session store cannot answer a revocation question, verification
// fails with [ErrSessionStoreUnavailable] rather than assuming the token is
// still good.
type TokenService struct {
	signer        *sec.TokenSigner
	refreshTokens RefreshTokenStore
	blacklist     BlacklistStore
}

// NewTokenService constructs a [TokenService] with its store dependencies.
func NewTokenService(signer *sec.TokenSigner, refreshTokens RefreshTokenStore, blacklist BlacklistStore) *TokenService {
	return &TokenService{
		signer:        signer,
		refreshTokens: refreshTokens,
		blacklist:     blacklist,
	}
}

// IssueAccessToken mints a short-lived access token for the identifier.
func (service *TokenService) IssueAccessToken(identifier string) (string, error) {
	token, err := service.signer.SignAccess(identifier, AccessTokenTTL)
	if err != nil {
		return "", fmt.Errorf("token_service_issue_access_failed: %w", err)
	}
	return token, nil
}

// IssueRefreshToken mints a refresh token and records it as the identifier's
// single active refresh token.
//
// # Invariant
//
// The store write overwrites whatever token was there before, so issuing
// implicitly invalidates the previous refresh token even though its signature
// would still verify.
func (service *TokenService) IssueRefreshToken(ctx context.Context, identifier string) (string, error) {
	token, err := service.signer.SignRefresh(identifier, RefreshTokenTTL)
	if err != nil {
		return "", fmt.Errorf("token_service_issue_refresh_failed: %w", err)
	}

	if err := service.refreshTokens.Save(ctx, identifier, token, RefreshTokenTTL); err != nil {
		return "", err
	}

	return token, nil
}

// IssuePair mints a fresh access/refresh pair for the identifier.
func (service *TokenService) IssuePair(ctx context.Context, identifier string) (*TokenPair, error) {
	accessToken, err := service.IssueAccessToken(identifier)
	if err != nil {
		return nil, err
	}

	refreshToken, err := service.IssueRefreshToken(ctx, identifier)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccessToken checks signature and expiry only. Revocation is a
// separate question answered by [TokenService.IsRevoked].
func (service *TokenService) VerifyAccessToken(tokenStr string) (*sec.AuthClaims, error) {
	claims, err := service.signer.VerifyAccess(tokenStr)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IsRevoked reports whether the access token has been blacklisted.
func (service *TokenService) IsRevoked(ctx context.Context, tokenStr string) (bool, error) {
	return service.blacklist.IsRevoked(ctx, tokenStr)
}

// Authenticate is the full gate: signature, expiry, then revocation.
//
// It implements the middleware's TokenAuthenticator contract and is also the
// check run once at WebSocket handshake time.
func (service *TokenService) Authenticate(ctx context.Context, tokenStr string) (*sec.AuthClaims, error) {
	claims, err := service.VerifyAccessToken(tokenStr)
	if err != nil {
		return nil, err
	}

	revoked, err := service.IsRevoked(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// Revoke blacklists an access token for its remaining natural lifetime and
// drops the holder's active refresh token.
//
// # Idempotency
//
// The token is decoded WITHOUT signature verification: it already served its
// last request, and an expired token simply produces a no-op blacklist write.
// Revoking twice is harmless.
func (service *TokenService) Revoke(ctx context.Context, tokenStr string) error {
	claims, err := service.signer.Decode(tokenStr)
	if err != nil {
		return ErrInvalidToken
	}

	remaining := time.Duration(0)
	if claims.ExpiresAt != nil {
		remaining = time.Until(claims.ExpiresAt.Time)
	}

	if err := service.blacklist.Revoke(ctx, tokenStr, remaining); err != nil {
		return err
	}

	return service.refreshTokens.Delete(ctx, claims.Identifier())
}

// Rotate redeems a refresh token for a brand-new pair.
//
// # Flow
//  1. Verify the refresh token's signature and expiry.
//  2. Compare it against the stored active token; a stale or unknown token
//     (rotated out, signed out, or never issued) is rejected.
//  3. Issue a new pair, which overwrites the stored refresh token.
func (service *TokenService) Rotate(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := service.signer.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	identifier := claims.Identifier()

	stored, err := service.refreshTokens.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if stored == "" || stored != refreshToken {
		return nil, ErrTokenRevoked
	}

	return service.IssuePair(ctx, identifier)
}
