// Copyright (c) 2026 Xit. All rights reserved.

// HTTP delivery layer for the session lifecycle.
//
// Handlers act as the "gatekeepers" to the system. They are responsible for:
//   - JSON Request parsing and strict input validation.
//   - Mapping HTTP contexts to service layer method calls.
//   - Standardizing JSON response formats via the [respond] package.
//
// They contain NO business logic or database queries.
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moa-mel/xit-backend/internal/platform/apperr"
	requestutil "github.com/moa-mel/xit-backend/internal/platform/request"
	"github.com/moa-mel/xit-backend/internal/platform/respond"
	"github.com/moa-mel/xit-backend/internal/platform/validate"
)

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the user lifecycle entry points
// (Signup, Verification, Sign-in/out, Refresh, Password Reset).
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup              : Creates an unverified account and mails a code.
//   - POST /verify-email        : Redeems the signup code.
//   - POST /resend-verification : Re-issues the signup code.
//   - POST /signin              : Authenticates and returns a token pair.
//   - POST /signout             : Revokes the presented access token.
//   - POST /refresh             : Rotates a refresh token into a new pair.
//   - POST /forgot-password     : Starts the reset flow.
//   - POST /confirm-reset       : Redeems the reset code.
//   - POST /reset-password      : Sets the new password inside the grant window.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/signup", handler.signUp)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/resend-verification", handler.resendVerification)
	router.Post("/signin", handler.signIn)
	router.Post("/signout", handler.signOut)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/confirm-reset", handler.confirmReset)
	router.Post("/reset-password", handler.resetPassword)

	return router
}

// signUpRequest represents the JSON payload expected for account creation.
type signUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// signUp handles POST /api/v1/auth/signup requests.
//
// # Returns
//   - Writes HTTP 201 Created on success with the unverified User profile.
//   - Writes HTTP 400 Bad Request if validation rules fail.
//   - Writes HTTP 409 Conflict if the email is taken.
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input signUpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	v := &validate.Validator{}
	err := v.
		Required("first_name", input.FirstName).
		Required("last_name", input.LastName).
		Required("email", input.Email).
		Email("email", input.Email).
		MinLen("password", input.Password, 8).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	user, err := handler.authService.SignUp(request.Context(), SignUpInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Password:  input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.Created(writer, user)
}

// verifyEmailRequest carries the email/code pair for signup verification.
type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// verifyEmail handles POST /api/v1/auth/verify-email requests.
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	err := v.
		Required("email", input.Email).
		OTP("code", input.Code).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), input.Email, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Email verified"})
}

// resendVerification handles POST /api/v1/auth/resend-verification requests.
//
// Always answers 200 so the endpoint cannot be used to probe which emails
// are registered.
func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError("email", "is required"))
		return
	}

	if err := handler.authService.ResendVerification(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "If the account exists, a code has been sent"})
}

// signInRequest represents the JSON payload expected for authentication.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signIn handles POST /api/v1/auth/signin requests.
//
// # Returns
//   - Writes HTTP 200 OK on success with the token pair and User profile.
//   - Writes HTTP 401 Unauthorized for bad credentials.
//   - Writes HTTP 403 EMAIL_NOT_VERIFIED for unverified accounts.
func (handler *Handler) signIn(writer http.ResponseWriter, request *http.Request) {
	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input signInRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 2. Boundary Validation ────────────────────────────────────────────

	if input.Email == "" || input.Password == "" {
		respond.Error(writer, request, validate.RequiredError("email/password", "are required"))
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	session, err := handler.authService.SignIn(request.Context(), input.Email, input.Password)
	if err != nil {
		// 401 without leaking whether the email or the password was wrong.
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.OK(writer, session)
}

// signOut handles POST /api/v1/auth/signout requests.
//
// The token to revoke is the one presented in the Authorization header.
func (handler *Handler) signOut(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.BearerToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	if err := handler.authService.SignOut(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// refreshRequest carries the refresh token to rotate.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh handles POST /api/v1/auth/refresh requests.
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, validate.RequiredError("refresh_token", "is required"))
		return
	}

	pair, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, pair)
}

// forgotPassword handles POST /api/v1/auth/forgot-password requests.
//
// Always answers 200; unknown emails are indistinguishable from known ones.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError("email", "is required"))
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "If the account exists, a code has been sent"})
}

// confirmReset handles POST /api/v1/auth/confirm-reset requests.
func (handler *Handler) confirmReset(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	err := v.
		Required("email", input.Email).
		OTP("code", input.Code).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ConfirmReset(request.Context(), input.Email, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Code confirmed, you may now set a new password"})
}

// resetPasswordRequest carries the new password pair.
type resetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// resetPassword handles POST /api/v1/auth/reset-password requests.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	v := &validate.Validator{}
	err := v.
		Required("email", input.Email).
		MinLen("new_password", input.NewPassword, 8).
		Err()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Email, input.NewPassword, input.ConfirmPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Password updated"})
}
