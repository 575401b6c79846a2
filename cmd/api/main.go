package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/viziopath-api/docs" // Swagger docs
	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/auth"
	"github.com/redmonkez12/viziopath-api/internal/config"
	"github.com/redmonkez12/viziopath-api/internal/database"
	"github.com/redmonkez12/viziopath-api/internal/email"
	httpServer "github.com/redmonkez12/viziopath-api/internal/http"
	"github.com/redmonkez12/viziopath-api/internal/logging"
	"github.com/redmonkez12/viziopath-api/internal/password"
	"github.com/redmonkez12/viziopath-api/internal/profile"
	"github.com/redmonkez12/viziopath-api/internal/ratelimit"
	"github.com/redmonkez12/viziopath-api/internal/storage"
)

// @title           Viziopath API
// @version         1.0
// @description     Accounts, sessions and professional profiles for the Viziopath networking app.

// @contact.name   API Support
// @contact.email  support@viziopath.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:5000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token. The session cookie is accepted as well.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token_format", cfg.Auth.TokenFormat,
		"storage", cfg.Storage.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer stores.Close()

	if err := stores.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("database ready", "driver", cfg.Database.Driver)

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	tokens, err := newTokenService(cfg.Auth)
	if err != nil {
		return err
	}

	hasher, err := password.NewHasher(cfg.Security.PasswordAlgorithm, cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	mailer, closeMailer := newMailer(cfg)
	defer closeMailer()

	emailService, err := email.NewService(mailer, email.Options{
		FrontendURL:     cfg.Email.FrontendURL,
		SendTimeout:     cfg.Email.SendTimeout,
		VerificationTTL: cfg.Security.VerificationTTL,
		ResetTTL:        cfg.Security.ResetTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	uploader, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	var uploadsDir string
	if local, ok := uploader.(*storage.LocalStorage); ok {
		uploadsDir = local.Dir()
	}

	sessions := auth.NewRedisSessionStore(redisClient, cfg.Auth.TokenDuration)
	cookies := auth.CookieConfig{
		Name:         cfg.Auth.CookieName,
		Domain:       cfg.Auth.CookieDomain,
		MaxAge:       cfg.Auth.TokenDuration,
		IsProduction: cfg.Server.IsProduction(),
	}

	profileService := profile.NewService(stores.Profiles, stores.Accounts, uploader, profile.Config{
		MaxUploadSize: cfg.Storage.MaxUploadSize,
		Folder:        cfg.Storage.Folder,
		UploadTimeout: cfg.Storage.UploadTimeout,
	})

	authService := auth.NewService(
		stores.Accounts,
		profileService,
		hasher,
		tokens,
		sessions,
		emailService,
		auth.Config{
			TokenDuration:   cfg.Auth.TokenDuration,
			VerificationTTL: cfg.Security.VerificationTTL,
			ResetTTL:        cfg.Security.ResetTTL,
			Lockout: account.LockoutPolicy{
				MaxAttempts:  cfg.Security.MaxLoginAttempts,
				LockDuration: cfg.Security.LockDuration,
			},
		},
	)

	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:           auth.NewHandler(authService, ratelimit.NewLimiter(redisClient, cfg.RateLimit), cookies, cfg.Server.MaxBodyBytes),
		Profile:        profile.NewHandler(profileService, cfg.Server.MaxBodyBytes, cfg.Storage.MaxUploadSize),
		AuthMiddleware: auth.NewMiddleware(tokens, sessions, cookies),
		UploadsDir:     uploadsDir,
	}, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	if cfg.TokenFormat == config.TokenFormatPaseto {
		tokens, err := auth.NewPasetoService(cfg.PasetoKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PASETO service: %w", err)
		}
		return tokens, nil
	}

	tokens, err := auth.NewJWTService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	return tokens, nil
}

// newMailer picks the delivery transport. The returned func releases it.
func newMailer(cfg *config.Config) (email.Mailer, func()) {
	if cfg.Email.Transport == "kafka" {
		mailer := email.NewKafkaMailer(email.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.EmailTopic,
			Username: cfg.Kafka.Username,
			Password: cfg.Kafka.Password,
		})
		return mailer, func() { _ = mailer.Close() }
	}

	return email.NewSMTPMailer(email.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		User:     cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPassword,
		FromName: cfg.Email.FromName,
	}), func() {}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
