// Copyright (c) 2026 Xit. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signature and expiry failures are reported distinctly so the session layer
// can map them onto its own taxonomy.
var (
	// ErrTokenExpired indicates a well-formed, correctly signed token past its 'exp'.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside a Xit JWT.
//
// # Why only the identifier?
//
// The subject is always the user's opaque public identifier — never the
// numeric database id. Anything downstream that needs profile fields
// resolves them through the user-record store, so a leaked token exposes
// nothing enumerable.
type AuthClaims struct {
	jwt.RegisteredClaims
}

// Identifier returns the opaque public identifier the token was minted for.
func (c *AuthClaims) Identifier() string {
	return c.Subject
}

// TokenSigner mints and verifies the HS256-signed access/refresh token pair.
//
// Access and refresh tokens use separate secrets so one class of token can
// never be presented as the other.
type TokenSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
}

// NewTokenSigner creates a new TokenSigner.
func NewTokenSigner(accessSecret, refreshSecret, issuer string) (*TokenSigner, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("sec: token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("sec: access and refresh secrets must differ")
	}

	return &TokenSigner{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
	}, nil
}

// SignAccess creates a short-lived access token for the given identifier.
func (signer *TokenSigner) SignAccess(identifier string, timeToLive time.Duration) (string, error) {
	return signer.sign(identifier, timeToLive, signer.accessSecret)
}

// SignRefresh creates a long-lived refresh token for the given identifier.
func (signer *TokenSigner) SignRefresh(identifier string, timeToLive time.Duration) (string, error) {
	return signer.sign(identifier, timeToLive, signer.refreshSecret)
}

// VerifyAccess checks the signature and validity window of an access token.
//
// Expired tokens are reported as [ErrTokenExpired]; every other failure
// (malformed input, wrong algorithm, bad signature) as [ErrTokenInvalid].
func (signer *TokenSigner) VerifyAccess(tokenString string) (*AuthClaims, error) {
	return signer.verify(tokenString, signer.accessSecret)
}

// VerifyRefresh checks the signature and validity window of a refresh token.
func (signer *TokenSigner) VerifyRefresh(tokenString string) (*AuthClaims, error) {
	return signer.verify(tokenString, signer.refreshSecret)
}

// Decode parses a token WITHOUT verifying its signature or expiry.
//
// Used only where the token has already been trusted for the request it
// terminates (sign-out) and we merely need its subject and expiry to size
// the blacklist entry.
func (signer *TokenSigner) Decode(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	parser := jwt.NewParser()

	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (signer *TokenSigner) sign(identifier string, timeToLive time.Duration, secret []byte) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identifier,
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

func (signer *TokenSigner) verify(tokenString string, secret []byte) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
