package auth

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/httputil"
	"github.com/redmonkez12/viziopath-api/internal/logging"
	"github.com/redmonkez12/viziopath-api/internal/ratelimit"
)

const (
	purposeRegister           = "register"
	purposeLogin              = "login"
	purposeForgotPassword     = "forgot-password"
	purposeResendVerification = "resend-verification"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service      *Service
	rateLimiter  *ratelimit.Limiter
	cookies      CookieConfig
	maxBodyBytes int64
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, cookies CookieConfig, maxBodyBytes int64) *Handler {
	return &Handler{
		service:      service,
		rateLimiter:  rateLimiter,
		cookies:      cookies,
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries the editable account fields. Omitted fields are left as they are.
type UpdateProfileRequest struct {
	Name        *string              `json:"name,omitempty"`
	Phone       *string              `json:"phone,omitempty"`
	Bio         *string              `json:"bio,omitempty"`
	Location    *string              `json:"location,omitempty"`
	Website     *string              `json:"website,omitempty"`
	Social      *account.Social      `json:"social,omitempty"`
	Preferences *account.Preferences `json:"preferences,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// EmailRequest is the body of forgot-password and resend-verification
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// UserResponse is the short account view returned by auth endpoints
type UserResponse struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Role       account.Role `json:"role"`
	IsVerified bool         `json:"isVerified"`
}

// SessionResponse is returned whenever a new session token is issued
type SessionResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// AccountResponse wraps the full sanitized account
type AccountResponse struct {
	User *account.Account `json:"user"`
}

var serviceErrors = []httputil.ErrorMapping{
	{Err: account.ErrDuplicateEmail, Status: http.StatusConflict, Message: "Email already registered"},
	{Err: account.ErrNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Err: ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid credentials"},
	{Err: ErrAccountLocked, Status: http.StatusLocked, Message: "Account is temporarily locked. Please try again later."},
	{Err: ErrCurrentPasswordIncorrect, Status: http.StatusBadRequest, Message: "Current password is incorrect"},
	{Err: ErrPasswordIncorrect, Status: http.StatusBadRequest, Message: "Password is incorrect"},
	{Err: ErrInvalidResetToken, Status: http.StatusBadRequest, Message: "Invalid or expired reset token"},
	{Err: ErrInvalidVerificationToken, Status: http.StatusBadRequest, Message: "Invalid or expired verification token"},
	{Err: ErrEmailAlreadyVerified, Status: http.StatusBadRequest, Message: "Email is already verified"},
	{Err: ErrUnauthorized, Status: http.StatusUnauthorized, Message: "Not authenticated"},
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an account, send a verification email and open a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} httputil.Response{data=SessionResponse}
// @Failure      400 {object} httputil.Response
// @Failure      409 {object} httputil.Response "Email already registered"
// @Failure      429 {object} httputil.Response
// @Router       /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, purposeRegister) {
		return
	}

	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, emailSent, err := h.service.Register(r.Context(), RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		h.respondError(w, r, err, "registration")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("user registered", "user_id", session.Account.ID, "email_sent", emailSent)

	message := "Registration successful. Please check your email to verify your account."
	if !emailSent {
		message = "Registration successful, but we could not send a verification email. Please try again later."
	}

	h.cookies.SetAuthCookie(w, session.Token)
	httputil.Respond(w, http.StatusCreated, newSessionResponse(session), message)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password. Five failures lock the account for two hours.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} httputil.Response{data=SessionResponse}
// @Failure      401 {object} httputil.Response "Invalid credentials"
// @Failure      423 {object} httputil.Response "Account locked"
// @Failure      429 {object} httputil.Response
// @Router       /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, purposeLogin) {
		return
	}

	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, r, err, "login")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("user logged in", "user_id", session.Account.ID)

	h.cookies.SetAuthCookie(w, session.Token)
	httputil.Respond(w, http.StatusOK, newSessionResponse(session), "Login successful")
}

// Me returns the signed-in account
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Response{data=AccountResponse}
// @Failure      401 {object} httputil.Response
// @Failure      404 {object} httputil.Response
// @Router       /api/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "me")
		return
	}

	acc, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err, "me")
		return
	}

	httputil.Respond(w, http.StatusOK, AccountResponse{User: acc}, "User profile retrieved")
}

// UpdateProfile updates the basic account fields
// @Summary      Update account basics
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} httputil.Response{data=AccountResponse}
// @Failure      400 {object} httputil.Response
// @Router       /api/auth/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "update profile")
		return
	}

	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	acc, err := h.service.UpdateProfile(r.Context(), userID, account.DetailsUpdate{
		Name:        req.Name,
		Phone:       req.Phone,
		Bio:         req.Bio,
		Location:    req.Location,
		Website:     req.Website,
		Social:      req.Social,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.respondError(w, r, err, "update profile")
		return
	}

	httputil.Respond(w, http.StatusOK, AccountResponse{User: acc}, "Profile updated successfully")
}

// ChangePassword rotates the password of the signed-in account
// @Summary      Change password
// @Description  Revokes every other session and returns a fresh one.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.Response{data=SessionResponse}
// @Failure      400 {object} httputil.Response
// @Router       /api/auth/change-password [put]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "change password")
		return
	}

	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.respondError(w, r, err, "change password")
		return
	}

	h.cookies.SetAuthCookie(w, session.Token)
	httputil.Respond(w, http.StatusOK, newSessionResponse(session), "Password changed successfully")
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Always answers with the same message so registered emails cannot be discovered.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} httputil.Response
// @Failure      429 {object} httputil.Response
// @Router       /api/auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, purposeForgotPassword) {
		return
	}

	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !h.allowEmail(w, r, req.Email, purposeForgotPassword) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondError(w, r, err, "forgot password")
		return
	}

	httputil.Respond(w, http.StatusOK, nil, "If an account with that email exists, a password reset link has been sent.")
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response "Invalid or expired token"
// @Router       /api/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.respondError(w, r, err, "reset password")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("password reset")
	httputil.Respond(w, http.StatusOK, nil, "Password reset successful")
}

// VerifyEmail handles email verification
// @Summary      Verify email
// @Tags         auth
// @Produce      json
// @Param        token path string true "Verification token"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response "Invalid or expired token"
// @Router       /api/auth/verify-email/{token} [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.VerifyEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.respondError(w, r, err, "verify email")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("email verified", "user_id", acc.ID)
	httputil.Respond(w, http.StatusOK, nil, "Email verified successfully")
}

// ResendVerification handles resending the verification email
// @Summary      Resend verification email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response "Already verified"
// @Failure      404 {object} httputil.Response
// @Failure      429 {object} httputil.Response
// @Router       /api/auth/resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, purposeResendVerification) {
		return
	}

	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !h.allowEmail(w, r, req.Email, purposeResendVerification) {
		return
	}

	emailSent, err := h.service.ResendVerification(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, r, err, "resend verification")
		return
	}

	message := "Verification email sent"
	if !emailSent {
		message = "We could not send a verification email. Please try again later."
	}
	httputil.Respond(w, http.StatusOK, nil, message)
}

// Logout handles user logout
// @Summary      Logout
// @Description  Clears the session cookie and revokes the presented token.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Response
// @Router       /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := GetClaimsFromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), claims); err != nil {
			logging.GetLoggerFromContext(r.Context()).Error("failed to revoke session on logout", "error", err)
		}
	}

	h.cookies.ClearAuthCookie(w)
	httputil.Respond(w, http.StatusOK, nil, "Logged out successfully")
}

// DeleteAccount deletes the signed-in account
// @Summary      Delete account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DeleteAccountRequest true "Password confirmation"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response
// @Router       /api/auth/account [delete]
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := MustUserID(r.Context())
	if err != nil {
		h.respondError(w, r, err, "delete account")
		return
	}

	var req DeleteAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID, req.Password); err != nil {
		h.respondError(w, r, err, "delete account")
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("account deleted", "user_id", userID)

	h.cookies.ClearAuthCookie(w)
	httputil.Respond(w, http.StatusOK, nil, "Account deleted successfully")
}

func newSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		User: UserResponse{
			ID:         s.Account.ID,
			Name:       s.Account.Name,
			Email:      s.Account.Email,
			Role:       s.Account.Role,
			IsVerified: s.Account.IsVerified,
		},
		Token:     s.Token,
		ExpiresAt: s.Claims.ExpiresAt,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(w, r, h.maxBodyBytes, dst); err != nil {
		m, _ := httputil.MatchError(err, httputil.RequestErrors)
		logging.GetLoggerFromContext(r.Context()).Warn("invalid request body", "error", err)
		httputil.RespondError(w, m.Message, m.Status)
		return false
	}
	return true
}

// respondError maps service errors to the envelope. Anything unmapped is a
// 500 whose details only go to the log.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, op string) {
	logger := logging.GetLoggerFromContext(r.Context())

	var validation *ValidationError
	if errors.As(err, &validation) {
		logger.Warn(op+" rejected", "error", validation.Message)
		httputil.RespondError(w, validation.Message, http.StatusBadRequest)
		return
	}

	if m, ok := httputil.MatchError(err, serviceErrors); ok {
		logger.Warn(op+" failed", "error", err.Error(), "status", m.Status)
		httputil.RespondError(w, m.Message, m.Status)
		return
	}

	logger.Error(op+" failed: internal error", "error", err.Error())
	httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
}

// allow applies the per-IP window for purpose. Limiter failures let the
// request through.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := clientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondError(w, "Too many requests, please try again later", http.StatusTooManyRequests)
		return false
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	return true
}

// allowEmail enforces the per-address cooldown between mails of one kind.
func (h *Handler) allowEmail(w http.ResponseWriter, r *http.Request, addr, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	addr = NormalizeEmail(addr)
	if addr == "" {
		return true
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), addr, purpose)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "purpose", purpose)
		httputil.RespondError(w, "Please wait before requesting another email", http.StatusTooManyRequests)
		return false
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), addr, purpose); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	return true
}

// clientIP is the caller address. middleware.RealIP has already folded
// X-Forwarded-For and X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
