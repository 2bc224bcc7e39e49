// Copyright (c) 2026 Xit. All rights reserved.

package auth

import "time"

// Session lifetimes. Every volatile artifact self-expires; these TTLs are the
// single source of truth for how long each one lives.
const (
	// AccessTokenTTL is the validity window of a signed access token.
	AccessTokenTTL = 1 * time.Hour

	// RefreshTokenTTL bounds both the refresh JWT's exp claim and the Redis
	// record that must co-exist with it.
	RefreshTokenTTL = 15 * 24 * time.Hour

	// OTPTTL is how long a 6-digit verification code stays redeemable.
	// Shared by signup verification and password-reset confirmation.
	OTPTTL = 5 * time.Minute

	// ResetGrantTTL is the window between confirming a reset code and
	// actually submitting the new password.
	ResetGrantTTL = 10 * time.Minute
)

// otpDigits is the length of every one-time code.
const otpDigits = 6
