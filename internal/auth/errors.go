// Copyright (c) 2026 Xit. All rights reserved.

package auth

import (
	"net/http"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
)

// Stable failure kinds for the session lifecycle. Clients branch on the Code
// field, never on message text, so these strings are part of the API contract.
var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = apperr.New("INVALID_TOKEN", "Token is invalid", http.StatusUnauthorized)

	// ErrTokenExpired is distinct from ErrInvalidToken so clients know a
	// refresh attempt is worthwhile.
	ErrTokenExpired = apperr.New("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)

	// ErrTokenRevoked marks a correctly signed, unexpired token that was
	// blacklisted by sign-out.
	ErrTokenRevoked = apperr.New("TOKEN_REVOKED", "Token has been revoked", http.StatusUnauthorized)

	// ErrSessionStoreUnavailable is returned when Redis cannot answer a
	// revocation or session question. Fail closed: without the store we
	// cannot prove a token is still good.
	ErrSessionStoreUnavailable = apperr.New("SESSION_STORE_UNAVAILABLE", "Session store is unavailable", http.StatusServiceUnavailable)

	// ErrOTPInvalidOrExpired deliberately does not distinguish a wrong code
	// from an expired one.
	ErrOTPInvalidOrExpired = apperr.New("OTP_INVALID_OR_EXPIRED", "Verification code is invalid or has expired", http.StatusBadRequest)

	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ during a reset.
	ErrPasswordMismatch = apperr.New("PASSWORD_MISMATCH", "Passwords do not match", http.StatusBadRequest)

	// ErrResetGrantExpired is returned when a password reset is submitted
	// after the confirmation window lapsed.
	ErrResetGrantExpired = apperr.New("RESET_GRANT_EXPIRED", "Password reset window has expired, request a new code", http.StatusForbidden)

	// ErrEmailNotVerified blocks sign-in for accounts that never redeemed
	// their signup code.
	ErrEmailNotVerified = apperr.New("EMAIL_NOT_VERIFIED", "Email address has not been verified", http.StatusForbidden)
)
