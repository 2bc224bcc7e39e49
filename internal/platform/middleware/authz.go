// Copyright (c) 2026 Xit. All rights reserved.

// Package middleware provides the HTTP middleware chain for the Xit API server.
//
// # Architecture
//
// Middleware intercepts incoming HTTP requests to apply global policies
// before they reach the domain handlers. This includes cross-cutting concerns
// like Logging, AuthZ/AuthN, Rate Limiting, and CORS.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/ctxkey"
	"github.com/moa-mel/xit-backend/internal/platform/respond"
	"github.com/moa-mel/xit-backend/internal/platform/sec"
)

// TokenAuthenticator defines the interface needed to authenticate tokens in middleware.
//
// # Why an interface?
//
// Defining TokenAuthenticator here decouples the middleware from the `auth`
// service implementation, allowing us to easily inject mocks during unit
// testing. Authenticate must check BOTH the token's signature/expiry and its
// revocation status, so a signed-out token is rejected everywhere.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, tokenStr string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, verify signature, expiry, and revocation via [TokenAuthenticator].
//  4. Inject [*sec.AuthClaims] into the request context for downstream use.
//
// # Parameters
//   - authenticator: The TokenAuthenticator instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(authenticator TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := authenticator.Authenticate(request.Context(), tokenStr)
			if err != nil {
				// The authenticator already speaks in AppError codes
				// (INVALID_TOKEN, TOKEN_EXPIRED, TOKEN_REVOKED, ...); pass them
				// through so clients can distinguish "refresh me" from "sign in again".
				if apperr.IsAppError(err) {
					respond.Error(writer, request, err)
					return
				}
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
//
// # Flow
//  1. Check if [*sec.AuthClaims] exists in context.
//  2. If missing, abort with HTTP 401 Unauthorized.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := GetUser(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// GetUser retrieves the [*sec.AuthClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.AuthClaims] if the user is authenticated.
//   - nil if the user is anonymous.
func GetUser(ctx context.Context) *sec.AuthClaims {
	claims, ok := ctx.Value(ctxkey.KeyUser).(*sec.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}
