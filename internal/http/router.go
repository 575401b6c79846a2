package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/viziopath-api/internal/auth"
	"github.com/redmonkez12/viziopath-api/internal/config"
	"github.com/redmonkez12/viziopath-api/internal/httputil"
	"github.com/redmonkez12/viziopath-api/internal/logging"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth           *auth.Handler
	Profile        *profile.Handler
	AuthMiddleware *auth.Middleware
	// UploadsDir is served under /uploads when avatars are stored locally.
	UploadsDir string
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.NotFound(httputil.NotFound)
	r.MethodNotAllowed(httputil.MethodNotAllowed)

	r.Get("/health", handleHealth)

	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled", "path", "/swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	if h.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadsHandler(h.UploadsDir)))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
		r.Get("/verify-email/{token}", h.Auth.VerifyEmail)
		r.Post("/resend-verification", h.Auth.ResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware.RequireAuth)
			r.Get("/me", h.Auth.Me)
			r.Put("/profile", h.Auth.UpdateProfile)
			r.Put("/change-password", h.Auth.ChangePassword)
			r.Post("/logout", h.Auth.Logout)
			r.Delete("/account", h.Auth.DeleteAccount)
		})
	})

	r.Route("/api/profile", func(r chi.Router) {
		r.Use(h.AuthMiddleware.RequireAuth)
		r.Get("/me", h.Profile.Mine)
		r.Put("/", h.Profile.Update)
		r.Delete("/", h.Profile.Delete)
		r.Put("/avatar", h.Profile.SetAvatar)
		r.Post("/avatar/upload", h.Profile.UploadAvatar)
		r.Get("/search", h.Profile.Search)
		r.Get("/suggestions", h.Profile.Suggestions)
		r.Get("/{userId}", h.Profile.Get)
	})

	return r
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} httputil.Response{data=HealthResponse}
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.Respond(w, http.StatusOK, HealthResponse{Status: "ok"}, "API is running")
}
