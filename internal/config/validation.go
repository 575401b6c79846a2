package config

import (
	"errors"
	"fmt"
	"slices"
)

const (
	DriverPostgres = "postgres"
	DriverMongoDB  = "mongodb"

	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

// supportedOptions lists the accepted values for every pluggable backend.
var supportedOptions = map[string][]string{
	"DB_DRIVER":          {DriverPostgres, DriverMongoDB},
	"AUTH_TOKEN_FORMAT":  {TokenFormatJWT, TokenFormatPaseto},
	"PASSWORD_ALGORITHM": {"bcrypt", "argon2id"},
	"EMAIL_TRANSPORT":    {"smtp", "kafka"},
	"STORAGE_PROVIDER":   {"cloudinary", "s3", "local"},
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks backend selections and the secrets each selection needs.
func (c *Config) Validate() error {
	selected := map[string]string{
		"DB_DRIVER":          c.Database.Driver,
		"AUTH_TOKEN_FORMAT":  c.Auth.TokenFormat,
		"PASSWORD_ALGORITHM": c.Security.PasswordAlgorithm,
		"EMAIL_TRANSPORT":    c.Email.Transport,
		"STORAGE_PROVIDER":   c.Storage.Provider,
	}
	for key, value := range selected {
		if !slices.Contains(supportedOptions[key], value) {
			return fmt.Errorf("%w: unsupported %s %q (allowed: %v)", ErrInvalidConfig, key, value, supportedOptions[key])
		}
	}

	switch c.Auth.TokenFormat {
	case TokenFormatJWT:
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("%w: JWT_SECRET must be at least 32 bytes, got %d", ErrInvalidConfig, len(c.Auth.JWTSecret))
		}
	case TokenFormatPaseto:
		// Validate PASETO key length (must be 32 bytes for v4.local)
		if len(c.Auth.PasetoKey) != 32 {
			return fmt.Errorf("%w: PASETO_KEY must be exactly 32 bytes, got %d", ErrInvalidConfig, len(c.Auth.PasetoKey))
		}
	}

	if c.Security.PasswordAlgorithm == "bcrypt" && (c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31) {
		return fmt.Errorf("%w: BCRYPT_ROUNDS must be between 4 and 31, got %d", ErrInvalidConfig, c.Security.BcryptCost)
	}
	if c.Security.MaxLoginAttempts < 1 {
		return fmt.Errorf("%w: MAX_LOGIN_ATTEMPTS must be positive", ErrInvalidConfig)
	}
	if c.Auth.TokenDuration <= 0 || c.Security.VerificationTTL <= 0 || c.Security.ResetTTL <= 0 || c.Security.LockDuration <= 0 {
		return fmt.Errorf("%w: token lifetimes and lock duration must be positive", ErrInvalidConfig)
	}

	switch c.Storage.Provider {
	case "cloudinary":
		if c.Storage.CloudinaryURL == "" {
			return fmt.Errorf("%w: CLOUDINARY_URL is required for the cloudinary provider", ErrInvalidConfig)
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("%w: S3_BUCKET is required for the s3 provider", ErrInvalidConfig)
		}
	}

	if c.Email.Transport == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: KAFKA_BROKERS is required for the kafka transport", ErrInvalidConfig)
	}

	return nil
}
