package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Razorpay  RazorpayConfig
	Billing   BillingConfig
	S3        S3Config
	SMTP      SMTPConfig
	RabbitMQ  RabbitMQConfig
	Scheduler SchedulerConfig
	OTEL      OTELConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	MaxUploadSizeMB int64
	FrontendURL     string
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret     string
	Expiry     time.Duration
	CookieName string
}

// RazorpayConfig holds payment gateway credentials and the subscription plan
type RazorpayConfig struct {
	KeyID      string
	KeySecret  string
	BaseURL    string
	PlanID     string
	TotalCount int
}

// BillingConfig holds subscription billing rules
type BillingConfig struct {
	RefundWindowDays int
}

// RefundWindow returns the refund window as a duration
func (b BillingConfig) RefundWindow() time.Duration {
	return time.Duration(b.RefundWindowDays) * 24 * time.Hour
}

// S3Config holds object storage configuration for avatars, posters and lecture videos
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// SMTPConfig holds outgoing mail configuration
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	// Mailbox receives contact and course request messages
	Mailbox string
}

// RabbitMQConfig holds the optional change event broker configuration
type RabbitMQConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// SchedulerConfig holds the stats snapshot schedule
type SchedulerConfig struct {
	StatsCron     string
	StatsTimezone string
}

// OTELConfig holds OpenTelemetry exporter configuration
type OTELConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	InstanceID     string
	Token          string
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "4000"),
			MaxUploadSizeMB: getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 50),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "learnify"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiry:     time.Duration(getEnvAsInt64("JWT_EXPIRE_DAYS", 15)) * 24 * time.Hour,
			CookieName: getEnv("JWT_COOKIE_NAME", "token"),
		},
		Razorpay: RazorpayConfig{
			KeyID:      getEnv("RAZORPAY_API_KEY", ""),
			KeySecret:  getEnv("RAZORPAY_API_SECRET", ""),
			BaseURL:    getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			PlanID:     getEnv("PLAN_ID", "plan_NNbeBdR35bvAsR"),
			TotalCount: int(getEnvAsInt64("PLAN_TOTAL_COUNT", 12)),
		},
		Billing: BillingConfig{
			RefundWindowDays: int(getEnvAsInt64("REFUND_DAYS", 7)),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:8333"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", "learnify"),
			AccessKey: getEnv("S3_ACCESS_KEY", "any"),
			SecretKey: getEnv("S3_SECRET_KEY", "any"),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "noreply@learnify.app"),
			Mailbox:  getEnv("MY_MAIL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "learnify.changes"),
			Queue:    getEnv("RABBITMQ_QUEUE", "learnify.stats"),
		},
		Scheduler: SchedulerConfig{
			StatsCron:     getEnv("STATS_CRON", "0 0 1 * *"),
			StatsTimezone: getEnv("STATS_TIMEZONE", "UTC"),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "learnify-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("OTEL_ENVIRONMENT", "development"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			InstanceID:     getEnv("OTEL_INSTANCE_ID", ""),
			Token:          getEnv("OTEL_TOKEN", ""),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Razorpay.KeySecret == "" {
		return fmt.Errorf("RAZORPAY_API_SECRET is required")
	}
	if c.Billing.RefundWindowDays < 0 {
		return fmt.Errorf("REFUND_DAYS must not be negative")
	}
	if c.Razorpay.TotalCount <= 0 {
		return fmt.Errorf("PLAN_TOTAL_COUNT must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
