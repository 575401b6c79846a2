package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/viziopath-api/internal/config"
	"github.com/redmonkez12/viziopath-api/internal/email"
	"github.com/redmonkez12/viziopath-api/internal/ratelimit"
)

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type handlerFixture struct {
	*serviceFixture
	router http.Handler
	cookie CookieConfig
}

func newHandlerFixture(t *testing.T, limits config.RateLimitConfig) *handlerFixture {
	t.Helper()

	f := newServiceFixture(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cookies := CookieConfig{Name: "token", MaxAge: 7 * 24 * time.Hour}
	h := NewHandler(f.svc, ratelimit.NewLimiter(client, limits), cookies, 1<<20)
	mw := NewMiddleware(f.tokens, f.sessions, cookies)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Get("/verify-email/{token}", h.VerifyEmail)
		r.Post("/resend-verification", h.ResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Get("/me", h.Me)
			r.Put("/profile", h.UpdateProfile)
			r.Put("/change-password", h.ChangePassword)
			r.Post("/logout", h.Logout)
			r.Delete("/account", h.DeleteAccount)
		})
	})

	return &handlerFixture{serviceFixture: f, router: r, cookie: cookies}
}

func noLimits() config.RateLimitConfig {
	return config.RateLimitConfig{Enabled: false}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any, setup func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(req)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, rec.Code, env.StatusCode)
	assert.Equal(t, rec.Code < 300, env.Success)
	return rec, env
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (f *handlerFixture) registerHTTP(t *testing.T) SessionResponse {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Name: "Ada Lovelace", Email: "ada@example.com", Password: "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)

	var data SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestHandler_RegisterAndMe(t *testing.T) {
	f := newHandlerFixture(t, noLimits())

	rec, env := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Name: "Ada Lovelace", Email: "ada@example.com", Password: "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Registration successful. Please check your email to verify your account.", env.Message)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = f.do(t, http.MethodGet, "/api/auth/me", nil, func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User profile retrieved", env.Message)
	assert.Contains(t, string(env.Data), `"email":"ada@example.com"`)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "loginAttempts")
}

func TestHandler_RegisterErrors(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	f.registerHTTP(t)

	rec, env := f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret1",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", env.Message)

	rec, env = f.do(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Name: "Ada", Email: "other@example.com", Password: "123",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrPasswordTooShort.Message, env.Message)

	rec, env = f.do(t, http.MethodPost, "/api/auth/register", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON payload", env.Message)
}

func TestHandler_RequireAuth(t *testing.T) {
	f := newHandlerFixture(t, noLimits())

	rec, env := f.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", env.Message)

	rec, env = f.do(t, http.MethodGet, "/api/auth/me", nil, bearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)

	session := f.registerHTTP(t)
	rec, _ = f.do(t, http.MethodGet, "/api/auth/me", nil, bearer(session.Token))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_CookieWinsOverBearer(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	session := f.registerHTTP(t)

	rec, _ := f.do(t, http.MethodGet, "/api/auth/me", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "token", Value: "garbage"})
		r.Header.Set("Authorization", "Bearer "+session.Token)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_Logout(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	session := f.registerHTTP(t)

	rec, env := f.do(t, http.MethodPost, "/api/auth/logout", nil, bearer(session.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", env.Message)
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	rec, _ = f.do(t, http.MethodGet, "/api/auth/me", nil, bearer(session.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_LoginLockout(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	f.registerHTTP(t)

	for i := 0; i < 5; i++ {
		rec, env := f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "nope-nope"}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", env.Message)
	}

	rec, _ := f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "secret1"}, nil)
	assert.Equal(t, http.StatusLocked, rec.Code)

	f.clock.advance(2*time.Hour + time.Second)
	rec, env := f.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "secret1"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", env.Message)
}

func TestHandler_PasswordResetFlow(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	old := f.registerHTTP(t)

	generic := "If an account with that email exists, a password reset link has been sent."

	_, env := f.do(t, http.MethodPost, "/api/auth/forgot-password", EmailRequest{Email: "nobody@example.com"}, nil)
	assert.Equal(t, generic, env.Message)

	rec, env := f.do(t, http.MethodPost, "/api/auth/forgot-password", EmailRequest{Email: "ada@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, generic, env.Message)

	token := f.emails.last(t, email.TemplatePasswordReset).token

	rec, env = f.do(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: token, NewPassword: "brandnew"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successful", env.Message)

	rec, _ = f.do(t, http.MethodGet, "/api/auth/me", nil, bearer(old.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/auth/reset-password", ResetPasswordRequest{Token: token, NewPassword: "again123"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired reset token", env.Message)
}

func TestHandler_VerifyEmail(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	f.registerHTTP(t)
	token := f.emails.last(t, email.TemplateVerification).token

	rec, env := f.do(t, http.MethodGet, "/api/auth/verify-email/"+token, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully", env.Message)

	rec, _ = f.do(t, http.MethodGet, "/api/auth/verify-email/"+token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/auth/resend-verification", EmailRequest{Email: "ada@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is already verified", env.Message)
}

func TestHandler_ChangePasswordAndDelete(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	session := f.registerHTTP(t)

	rec, env := f.do(t, http.MethodPut, "/api/auth/change-password",
		ChangePasswordRequest{CurrentPassword: "wrong-one", NewPassword: "newsecret"}, bearer(session.Token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is incorrect", env.Message)

	rec, env = f.do(t, http.MethodPut, "/api/auth/change-password",
		ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "newsecret"}, bearer(session.Token))
	require.Equal(t, http.StatusOK, rec.Code)

	var fresh SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &fresh))

	rec, _ = f.do(t, http.MethodGet, "/api/auth/me", nil, bearer(session.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = f.do(t, http.MethodDelete, "/api/auth/account", DeleteAccountRequest{Password: "newsecret"}, bearer(fresh.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Account deleted successfully", env.Message)

	rec, _ = f.do(t, http.MethodGet, "/api/auth/me", nil, bearer(fresh.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateProfile(t *testing.T) {
	f := newHandlerFixture(t, noLimits())
	session := f.registerHTTP(t)

	rec, env := f.do(t, http.MethodPut, "/api/auth/profile",
		map[string]any{"name": "Ada King", "bio": "Analyst"}, bearer(session.Token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Profile updated successfully", env.Message)
	assert.Contains(t, string(env.Data), `"name":"Ada King"`)
	assert.Contains(t, string(env.Data), `"bio":"Analyst"`)
}

func TestHandler_IPRateLimit(t *testing.T) {
	f := newHandlerFixture(t, config.RateLimitConfig{
		Enabled: true, IPLimit: 2, IPWindow: time.Minute, EmailCooldown: time.Minute,
	})

	login := LoginRequest{Email: "nobody@example.com", Password: "secret1"}
	for i := 0; i < 2; i++ {
		rec, _ := f.do(t, http.MethodPost, "/api/auth/login", login, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, env := f.do(t, http.MethodPost, "/api/auth/login", login, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests, please try again later", env.Message)

	// a different caller has its own window
	rec, _ = f.do(t, http.MethodPost, "/api/auth/login", login, func(r *http.Request) { r.RemoteAddr = "198.51.100.7:4000" })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_EmailCooldown(t *testing.T) {
	f := newHandlerFixture(t, config.RateLimitConfig{
		Enabled: true, IPLimit: 100, IPWindow: time.Minute, EmailCooldown: time.Minute,
	})
	f.registerHTTP(t)

	rec, _ := f.do(t, http.MethodPost, "/api/auth/forgot-password", EmailRequest{Email: "ada@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/auth/forgot-password", EmailRequest{Email: " ADA@example.com"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, f.emails.count(email.TemplatePasswordReset))
}
