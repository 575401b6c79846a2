package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Security  SecurityConfig
	Email     EmailConfig
	Kafka     KafkaConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
	MaxBodyBytes    int64
}

type DatabaseConfig struct {
	Driver         string // postgres or mongodb
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	MaxOpenConns   int
	MaxIdleConns   int
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	ServerSelectionTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenFormat   string // jwt or paseto
	JWTSecret     []byte
	PasetoKey     []byte // must be 32 bytes for v4.local
	TokenDuration time.Duration
	CookieName    string
	CookieDomain  string
}

// SecurityConfig holds the account-security policy knobs.
type SecurityConfig struct {
	PasswordAlgorithm string // bcrypt or argon2id
	BcryptCost        int
	MaxLoginAttempts  int
	LockDuration      time.Duration
	VerificationTTL   time.Duration
	ResetTTL          time.Duration
}

type EmailConfig struct {
	Transport    string // smtp or kafka
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromName     string
	FrontendURL  string // Frontend URL for verification links
	SendTimeout  time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	EmailTopic string
	Username   string
	Password   string
}

type StorageConfig struct {
	Provider      string // cloudinary, s3 or local
	MaxUploadSize int64
	Folder        string
	UploadTimeout time.Duration

	CloudinaryURL string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	LocalDir     string
	LocalBaseURL string
}

type RateLimitConfig struct {
	Enabled       bool
	IPLimit       int
	IPWindow      time.Duration
	EmailCooldown time.Duration
}

// Load reads configuration from environment variables
// Call godotenv.Load() before this if using .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "5000"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
			MaxBodyBytes:    int64(getIntEnv("SERVER_MAX_BODY_BYTES", 1<<20)),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", DriverPostgres),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "viziopath"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
		},
		Mongo: MongoConfig{
			URI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGO_DB", "viziopath"),
			MaxPoolSize:            uint64(getIntEnv("MONGO_MAX_POOL_SIZE", 10)),
			ServerSelectionTimeout: getDurationEnv("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenFormat:   getEnv("AUTH_TOKEN_FORMAT", TokenFormatJWT),
			JWTSecret:     []byte(getEnv("JWT_SECRET", "")),
			PasetoKey:     []byte(getEnv("PASETO_KEY", "")),
			TokenDuration: getDurationEnv("JWT_EXPIRES_IN", 7*24*time.Hour),
			CookieName:    getEnv("COOKIE_NAME", "token"),
			CookieDomain:  getEnv("COOKIE_DOMAIN", ""),
		},
		Security: SecurityConfig{
			PasswordAlgorithm: getEnv("PASSWORD_ALGORITHM", "bcrypt"),
			BcryptCost:        getIntEnv("BCRYPT_ROUNDS", 12),
			MaxLoginAttempts:  getIntEnv("MAX_LOGIN_ATTEMPTS", 5),
			LockDuration:      getDurationEnv("LOCK_DURATION", 2*time.Hour),
			VerificationTTL:   getDurationEnv("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			ResetTTL:          getDurationEnv("RESET_TOKEN_TTL", time.Hour),
		},
		Email: EmailConfig{
			Transport:    getEnv("EMAIL_TRANSPORT", "smtp"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromName:     getEnv("EMAIL_FROM_NAME", "Viziopath"),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
			SendTimeout:  getDurationEnv("EMAIL_SEND_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			EmailTopic: getEnv("KAFKA_EMAIL_TOPIC", "viziopath.emails"),
			Username:   getEnv("KAFKA_USERNAME", ""),
			Password:   getEnv("KAFKA_PASSWORD", ""),
		},
		Storage: StorageConfig{
			Provider:       getEnv("STORAGE_PROVIDER", "local"),
			MaxUploadSize:  int64(getIntEnv("STORAGE_MAX_UPLOAD_BYTES", 5<<20)),
			Folder:         getEnv("STORAGE_FOLDER", "viziopath"),
			UploadTimeout:  getDurationEnv("STORAGE_UPLOAD_TIMEOUT", 20*time.Second),
			CloudinaryURL:  getEnv("CLOUDINARY_URL", ""),
			S3Bucket:       getEnv("S3_BUCKET", ""),
			S3Region:       getEnv("S3_REGION", "us-east-1"),
			S3BaseEndpoint: getEnv("S3_BASE_ENDPOINT", ""),
			S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
			S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),
			LocalDir:       getEnv("UPLOAD_DIR", "uploads"),
			LocalBaseURL:   getEnv("UPLOAD_BASE_URL", "http://localhost:5000/uploads"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getBoolEnv("RATE_LIMIT_ENABLED", true),
			IPLimit:       getIntEnv("RATE_LIMIT_IP_LIMIT", 10),
			IPWindow:      getDurationEnv("RATE_LIMIT_IP_WINDOW", 15*time.Minute),
			EmailCooldown: getDurationEnv("RATE_LIMIT_EMAIL_COOLDOWN", 2*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// IsProduction returns true if the environment is set to prod
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv accepts either a Go duration ("7d" is not valid, "168h" is)
// or a plain number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
