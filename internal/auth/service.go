// Copyright (c) 2026 Xit. All rights reserved.

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/sec"
	"github.com/moa-mel/xit-backend/pkg/uuid"
)

// Mailer delivers one-time codes to users out of band.
//
// # Why an interface?
//
// Email is the only part of the session lifecycle that leaves our
// infrastructure. Keeping it behind an interface lets tests capture codes
// and lets deployment choose the provider.
type Mailer interface {
	// SendOTP delivers a one-time code. purpose is a short human label
	// ("verify your email", "reset your password") used in the message.
	SendOTP(ctx context.Context, email, code, purpose string) error
}

// LogMailer is the development Mailer: it logs the code instead of sending it.
type LogMailer struct {
	Logger *slog.Logger
}

// SendOTP implements [Mailer] by writing the code to the structured log.
func (mailer *LogMailer) SendOTP(ctx context.Context, email, code, purpose string) error {
	mailer.Logger.InfoContext(ctx, "otp_issued",
		slog.String("email", email),
		slog.String("code", code),
		slog.String("purpose", purpose),
	)
	return nil
}

// Service implements the account session state machine: signup, email
// verification, sign-in/out, token refresh, and the three-step password reset.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, OTP, or
// reset logic must be reviewed by the security team.
type Service struct {
	users       UserRepository
	signupOTPs  OTPStore
	resetOTPs   OTPStore
	resetGrants ResetGrantStore
	tokens      *TokenService
	mailer      Mailer
}

// NewService constructs the auth [Service] with its dependencies.
func NewService(
	users UserRepository,
	signupOTPs OTPStore,
	resetOTPs OTPStore,
	resetGrants ResetGrantStore,
	tokens *TokenService,
	mailer Mailer,
) *Service {
	return &Service{
		users:       users,
		signupOTPs:  signupOTPs,
		resetOTPs:   resetOTPs,
		resetGrants: resetGrants,
		tokens:      tokens,
		mailer:      mailer,
	}
}

// SignUpInput holds the data required to enroll a new member.
type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SignUp validates, hashes, and persists a brand new unverified account,
// then issues a verification code.
//
// # Returns
//   - The newly created [*User] (unverified).
//   - [apperr.Conflict] if the email already exists.
//
// # Business Rules
//   - Emails must be unique.
//   - Accounts start unverified and cannot sign in until the code is redeemed.
func (service *Service) SignUp(ctx context.Context, input SignUpInput) (*User, error) {
	// ── 1. Uniqueness Check ───────────────────────────────────────────────

	email := normalizeEmail(input.Email)
	if _, err := service.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Entity Construction ────────────────────────────────────────────

	user := &User{
		Identifier:   uuid.New(), // Time-sortable opaque handle.
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hashedPassword,
		IsVerified:   false,
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	if err := service.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("auth_service_signup_failed: %w", err)
	}

	// ── 5. Verification Code ──────────────────────────────────────────────

	if err := service.issueOTP(ctx, service.signupOTPs, user, "verify your email"); err != nil {
		return nil, err
	}

	return user, nil
}

// VerifyEmail redeems a signup code and marks the account verified.
//
// # Returns
//   - [ErrOTPInvalidOrExpired] on a wrong, missing, or expired code. The
//     three cases are deliberately indistinguishable to the caller.
func (service *Service) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Do not reveal whether the email is registered.
		return ErrOTPInvalidOrExpired
	}

	if err := service.redeemOTP(ctx, service.signupOTPs, user.Identifier, code); err != nil {
		return err
	}

	if err := service.users.MarkVerified(ctx, user.Identifier); err != nil {
		return fmt.Errorf("auth_service_mark_verified_failed: %w", err)
	}

	return nil
}

// ResendVerification issues a fresh signup code, replacing any live one.
func (service *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		// Silent success: do not reveal whether the email is registered.
		return nil
	}

	if user.IsVerified {
		return nil
	}

	return service.issueOTP(ctx, service.signupOTPs, user, "verify your email")
}

// Session represents a successfully established user session.
type Session struct {
	Tokens *TokenPair `json:"tokens"`
	User   *User      `json:"user"`
}

// SignIn validates credentials and issues a token pair.
//
// # Returns
//   - [apperr.Unauthorized] if credentials do not match. Unknown email and
//     wrong password are indistinguishable to prevent account enumeration.
//   - [ErrEmailNotVerified] for correct credentials on an unverified account.
//
// # Flow
//  1. Lookup user by email.
//  2. Verify password hash using Bcrypt.
//  3. Require a verified email.
//  4. Issue access + refresh pair; the refresh write displaces any previous
//     session's refresh token.
func (service *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Bcrypt comparison is constant-time.
	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Credentials are correct, so naming the real blocker leaks nothing.
	if !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	pair, err := service.tokens.IssuePair(ctx, user.Identifier)
	if err != nil {
		return nil, err
	}

	return &Session{Tokens: pair, User: user}, nil
}

// SignOut revokes the presented access token and drops the active refresh
// token. Idempotent: signing out twice, or with an expired token, succeeds.
func (service *Service) SignOut(ctx context.Context, accessToken string) error {
	return service.tokens.Revoke(ctx, accessToken)
}

// Refresh rotates a refresh token into a brand-new pair.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return service.tokens.Rotate(ctx, refreshToken)
}

// ForgotPassword starts the reset flow by issuing a reset code.
//
// Always succeeds from the caller's perspective: an unknown email produces
// no observable difference, preventing account enumeration.
func (service *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil
	}

	return service.issueOTP(ctx, service.resetOTPs, user, "reset your password")
}

// ConfirmReset redeems a reset code and opens the reset window.
//
// The grant, not the code, is what authorizes the password change; the code
// is consumed here and cannot be replayed.
func (service *Service) ConfirmReset(ctx context.Context, email, code string) error {
	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return ErrOTPInvalidOrExpired
	}

	if err := service.redeemOTP(ctx, service.resetOTPs, user.Identifier, code); err != nil {
		return err
	}

	return service.resetGrants.Grant(ctx, user.Identifier, user.ID, ResetGrantTTL)
}

// ResetPassword completes the reset flow inside an open grant window.
//
// # Returns
//   - [ErrPasswordMismatch] if the two password fields differ.
//   - [ErrResetGrantExpired] if the window lapsed or was never opened.
//
// # Security
//
// On success the active refresh token is dropped, forcing every existing
// session of this account to re-authenticate with the new password.
func (service *Service) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	user, err := service.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return ErrResetGrantExpired
	}

	allowed, err := service.resetGrants.Check(ctx, user.Identifier)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrResetGrantExpired
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.users.UpdateCredential(ctx, user.Identifier, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	// Close the window and kill existing sessions.
	if err := service.resetGrants.Revoke(ctx, user.Identifier); err != nil {
		return err
	}

	return service.tokens.refreshTokens.Delete(ctx, user.Identifier)
}

// # Internal Helpers

// issueOTP generates a fresh code, stores it keyed by the user's identifier,
// and mails it.
func (service *Service) issueOTP(ctx context.Context, store OTPStore, user *User, purpose string) error {
	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("auth_service_otp_generation_failed: %w", err)
	}

	if err := store.Set(ctx, user.Identifier, code, OTPTTL); err != nil {
		return err
	}

	if err := service.mailer.SendOTP(ctx, user.Email, code, purpose); err != nil {
		return fmt.Errorf("auth_service_otp_delivery_failed: %w", err)
	}

	return nil
}

// redeemOTP compares the submitted code against the live one and consumes it
// on success. The submitted code is trimmed: codes arrive copy-pasted from
// email clients that love trailing whitespace.
func (service *Service) redeemOTP(ctx context.Context, store OTPStore, identifier, code string) error {
	stored, err := store.Get(ctx, identifier)
	if err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	if stored == "" || stored != code {
		return ErrOTPInvalidOrExpired
	}

	return store.Delete(ctx, identifier)
}

// generateOTP produces a uniformly random 6-digit code using crypto/rand.
// Leading zeros are preserved ("004271" is a valid code).
func generateOTP() (string, error) {
	upperBound := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		upperBound.Mul(upperBound, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// normalizeEmail lowercases and trims the address so lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
