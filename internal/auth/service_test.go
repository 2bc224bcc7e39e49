// Copyright (c) 2026 Xit. All rights reserved.

package auth_test

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moa-mel/xit-backend/internal/auth"
	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	"github.com/moa-mel/xit-backend/internal/platform/sec"
)

// memoryUserRepository is an in-memory UserRepository for service tests.
type memoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*auth.User // keyed by identifier
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{users: make(map[string]*auth.User)}
}

func (repo *memoryUserRepository) FindByIdentifier(_ context.Context, identifier string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if user, ok := repo.users[identifier]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *memoryUserRepository) Exists(_ context.Context, identifier string) (bool, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	_, ok := repo.users[identifier]
	return ok, nil
}

func (repo *memoryUserRepository) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.nextID++
	user.ID = repo.nextID
	clone := *user
	repo.users[user.Identifier] = &clone
	return nil
}

func (repo *memoryUserRepository) MarkVerified(_ context.Context, identifier string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.users[identifier]
	if !ok {
		return apperr.NotFound("User")
	}
	now := time.Now()
	user.IsVerified = true
	user.EmailVerifiedAt = &now
	return nil
}

func (repo *memoryUserRepository) UpdateCredential(_ context.Context, identifier, newHash string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.users[identifier]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	return nil
}

// captureMailer records every code it is asked to deliver.
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string // email -> last code
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: make(map[string]string)}
}

func (mailer *captureMailer) SendOTP(_ context.Context, email, code, _ string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	mailer.codes[email] = code
	return nil
}

func (mailer *captureMailer) lastCode(email string) string {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return mailer.codes[email]
}

// authFixture bundles everything a session-lifecycle test needs.
type authFixture struct {
	service *auth.Service
	tokens  *auth.TokenService
	users   *memoryUserRepository
	mailer  *captureMailer
	redis   *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	server, client := newTestRedis(t)
	signer, err := sec.NewTokenSigner("access-secret-for-tests", "refresh-secret-for-tests", "xit.app")
	require.NoError(t, err)

	users := newMemoryUserRepository()
	mailer := newCaptureMailer()
	tokens := auth.NewTokenService(signer, auth.NewRefreshTokenStore(client), auth.NewBlacklistStore(client))

	service := auth.NewService(
		users,
		auth.NewSignupOTPStore(client),
		auth.NewResetOTPStore(client),
		auth.NewResetGrantStore(client),
		tokens,
		mailer,
	)

	return &authFixture{service: service, tokens: tokens, users: users, mailer: mailer, redis: server}
}

// signUpVerified walks a fresh account through signup + verification.
func (fixture *authFixture) signUpVerified(t *testing.T, email, password string) *auth.User {
	t.Helper()
	ctx := context.Background()

	user, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	require.NoError(t, fixture.service.VerifyEmail(ctx, email, fixture.mailer.lastCode(email)))

	return user
}

/*
TestService_SignUpAndVerify walks the full enrollment path: signup creates an
unverified account and mails a 6-digit code; redeeming the code verifies it.
*/
func TestService_SignUpAndVerify(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	user, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "Ada@Example.COM",
		Password:  "correct-horse",
	})
	require.NoError(t, err)
	assert.False(t, user.IsVerified)
	assert.NotEmpty(t, user.Identifier)
	assert.Equal(t, "ada@example.com", user.Email, "emails are normalized")

	code := fixture.mailer.lastCode("ada@example.com")
	require.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)

	require.NoError(t, fixture.service.VerifyEmail(ctx, "ada@example.com", code))

	stored, err := fixture.users.FindByIdentifier(ctx, user.Identifier)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)

	// A redeemed code cannot be replayed
	err = fixture.service.VerifyEmail(ctx, "ada@example.com", code)
	assert.True(t, apperr.HasCode(err, "OTP_INVALID_OR_EXPIRED"))
}

/*
TestService_SignUpDuplicateEmail verifies the uniqueness rule.
*/
func TestService_SignUpDuplicateEmail(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	fixture.signUpVerified(t, "ada@example.com", "correct-horse")

	_, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "ada@example.com",
		Password:  "another-pass",
	})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

/*
TestService_VerifyEmail_WrongOrExpiredCode verifies that wrong, expired, and
never-issued codes are indistinguishable.
*/
func TestService_VerifyEmail_WrongOrExpiredCode(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	_, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "ada@example.com",
		Password:  "correct-horse",
	})
	require.NoError(t, err)

	// 1. Wrong code
	err = fixture.service.VerifyEmail(ctx, "ada@example.com", "000000")
	assert.True(t, apperr.HasCode(err, "OTP_INVALID_OR_EXPIRED"))

	// 2. Expired code
	fixture.redis.FastForward(auth.OTPTTL + time.Second)
	err = fixture.service.VerifyEmail(ctx, "ada@example.com", fixture.mailer.lastCode("ada@example.com"))
	assert.True(t, apperr.HasCode(err, "OTP_INVALID_OR_EXPIRED"))

	// 3. Unknown email
	err = fixture.service.VerifyEmail(ctx, "ghost@example.com", "123456")
	assert.True(t, apperr.HasCode(err, "OTP_INVALID_OR_EXPIRED"))
}

/*
TestService_VerifyEmail_TrimsSubmittedCode verifies that surrounding
whitespace on a pasted code does not fail the redemption.
*/
func TestService_VerifyEmail_TrimsSubmittedCode(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	_, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "ada@example.com",
		Password:  "correct-horse",
	})
	require.NoError(t, err)

	code := fixture.mailer.lastCode("ada@example.com")
	require.NoError(t, fixture.service.VerifyEmail(ctx, "ada@example.com", "  "+code+"\n"))
}

/*
TestService_SignIn covers the sign-in state machine: unverified accounts are
blocked, bad credentials are generic, and success yields a working pair.
*/
func TestService_SignIn(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	_, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "ada@example.com",
		Password:  "correct-horse",
	})
	require.NoError(t, err)

	// 1. Correct credentials but unverified
	_, err = fixture.service.SignIn(ctx, "ada@example.com", "correct-horse")
	assert.True(t, apperr.HasCode(err, "EMAIL_NOT_VERIFIED"))

	require.NoError(t, fixture.service.VerifyEmail(ctx, "ada@example.com", fixture.mailer.lastCode("ada@example.com")))

	// 2. Wrong password and unknown email look the same
	_, wrongPassErr := fixture.service.SignIn(ctx, "ada@example.com", "wrong")
	_, unknownErr := fixture.service.SignIn(ctx, "ghost@example.com", "whatever")
	assert.True(t, apperr.HasCode(wrongPassErr, "UNAUTHORIZED"))
	assert.True(t, apperr.HasCode(unknownErr, "UNAUTHORIZED"))
	assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())

	// 3. Success
	session, err := fixture.service.SignIn(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	claims, err := fixture.tokens.Authenticate(ctx, session.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.Identifier, claims.Identifier())
}

/*
TestService_SignInDisplacesRefreshToken verifies that a second sign-in makes
the first session's refresh token unusable.
*/
func TestService_SignInDisplacesRefreshToken(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	fixture.signUpVerified(t, "ada@example.com", "correct-horse")

	first, err := fixture.service.SignIn(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	second, err := fixture.service.SignIn(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = fixture.service.Refresh(ctx, first.Tokens.RefreshToken)
	assert.True(t, apperr.HasCode(err, "TOKEN_REVOKED"))

	_, err = fixture.service.Refresh(ctx, second.Tokens.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_SignOut verifies that sign-out kills both halves of the session.
*/
func TestService_SignOut(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	fixture.signUpVerified(t, "ada@example.com", "correct-horse")
	session, err := fixture.service.SignIn(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, fixture.service.SignOut(ctx, session.Tokens.AccessToken))

	_, err = fixture.tokens.Authenticate(ctx, session.Tokens.AccessToken)
	assert.True(t, apperr.HasCode(err, "TOKEN_REVOKED"))

	_, err = fixture.service.Refresh(ctx, session.Tokens.RefreshToken)
	assert.True(t, apperr.HasCode(err, "TOKEN_REVOKED"))

	// Idempotent
	assert.NoError(t, fixture.service.SignOut(ctx, session.Tokens.AccessToken))
}

/*
TestService_PasswordReset walks the full three-step reset flow.
*/
func TestService_PasswordReset(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	fixture.signUpVerified(t, "ada@example.com", "old-password-1")
	session, err := fixture.service.SignIn(ctx, "ada@example.com", "old-password-1")
	require.NoError(t, err)

	// Step 1: request a code
	require.NoError(t, fixture.service.ForgotPassword(ctx, "ada@example.com"))
	code := fixture.mailer.lastCode("ada@example.com")
	require.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)

	// Step 2: confirm it
	require.NoError(t, fixture.service.ConfirmReset(ctx, "ada@example.com", code))

	// Step 3: set the new password
	require.NoError(t, fixture.service.ResetPassword(ctx, "ada@example.com", "new-password-2", "new-password-2"))

	// The grant is single-use: a second reset needs a fresh code
	err = fixture.service.ResetPassword(ctx, "ada@example.com", "new-password-3", "new-password-3")
	assert.True(t, apperr.HasCode(err, "RESET_GRANT_EXPIRED"))

	// Old password is dead, new one works
	_, err = fixture.service.SignIn(ctx, "ada@example.com", "old-password-1")
	assert.True(t, apperr.HasCode(err, "UNAUTHORIZED"))
	_, err = fixture.service.SignIn(ctx, "ada@example.com", "new-password-2")
	assert.NoError(t, err)

	// The pre-reset refresh token was dropped
	_, err = fixture.service.Refresh(ctx, session.Tokens.RefreshToken)
	assert.True(t, apperr.HasCode(err, "TOKEN_REVOKED"))
}

/*
TestService_PasswordReset_Guards covers every way the reset flow refuses.
*/
func TestService_PasswordReset_Guards(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	fixture.signUpVerified(t, "ada@example.com", "old-password-1")

	// 1. Unknown email never reveals itself
	assert.NoError(t, fixture.service.ForgotPassword(ctx, "ghost@example.com"))

	// 2. Reset without an open grant window
	err := fixture.service.ResetPassword(ctx, "ada@example.com", "new-password-2", "new-password-2")
	assert.True(t, apperr.HasCode(err, "RESET_GRANT_EXPIRED"))

	// 3. Mismatched confirmation
	require.NoError(t, fixture.service.ForgotPassword(ctx, "ada@example.com"))
	code := fixture.mailer.lastCode("ada@example.com")
	require.NoError(t, fixture.service.ConfirmReset(ctx, "ada@example.com", code))
	err = fixture.service.ResetPassword(ctx, "ada@example.com", "new-password-2", "different")
	assert.True(t, apperr.HasCode(err, "PASSWORD_MISMATCH"))

	// 4. Grant window lapses
	fixture.redis.FastForward(auth.ResetGrantTTL + time.Second)
	err = fixture.service.ResetPassword(ctx, "ada@example.com", "new-password-2", "new-password-2")
	assert.True(t, apperr.HasCode(err, "RESET_GRANT_EXPIRED"))

	// Password never changed
	_, err = fixture.service.SignIn(ctx, "ada@example.com", "old-password-1")
	assert.NoError(t, err)
}

/*
TestService_ResetCodeNotValidForSignup verifies flow isolation: a reset code
cannot verify an email.
*/
func TestService_ResetCodeNotValidForSignup(t *testing.T) {
	fixture := newAuthFixture(t)
	ctx := context.Background()

	_, err := fixture.service.SignUp(ctx, auth.SignUpInput{
		FirstName: "Ada",
		LastName:  "Okafor",
		Email:     "ada@example.com",
		Password:  "correct-horse",
	})
	require.NoError(t, err)
	signupCode := fixture.mailer.lastCode("ada@example.com")

	require.NoError(t, fixture.service.ForgotPassword(ctx, "ada@example.com"))
	resetCode := fixture.mailer.lastCode("ada@example.com")

	if signupCode != resetCode {
		err = fixture.service.VerifyEmail(ctx, "ada@example.com", resetCode)
		assert.True(t, apperr.HasCode(err, "OTP_INVALID_OR_EXPIRED"))
	}

	// The signup code still verifies regardless
	assert.NoError(t, fixture.service.VerifyEmail(ctx, "ada@example.com", signupCode))
}

/*
TestLogMailer_SendOTP is a smoke test for the development mailer.
*/
func TestLogMailer_SendOTP(t *testing.T) {
	mailer := &auth.LogMailer{Logger: slog.Default()}
	assert.NoError(t, mailer.SendOTP(context.Background(), "ada@example.com", "123456", "verify your email"))
}
