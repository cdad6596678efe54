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
	// Server configuration
	Port string
	Mode string

	// Logging configuration
	LogLevel  string
	LogFormat string

	// Database configuration
	DatabaseURL string
	SQLitePath  string
	AutoMigrate bool

	// Redis configuration (optional, in-memory caches are used when empty)
	RedisURL string

	// Paddle configuration
	PaddleAPIKey           string
	PaddleAPIBaseURL       string
	PaddleWebhookSecret    string
	PaddleWebhookTolerance time.Duration
	PaddleTimeout          time.Duration
	PaddleSuccessURL       string

	// Auth provider configuration
	AuthURL        string
	AuthServiceKey string
	AuthJWTSecret  string
	AdminAPIKey    string

	// Plan cache and webhook dedupe
	PlanCacheTTL        time.Duration
	PlanCacheMaxEntries int
	WebhookDedupeEvents bool
	WebhookDedupeTTL    time.Duration

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	ServiceName string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = &Config{
		Port:                   getEnv("PORT", "8080"),
		Mode:                   getEnv("GIN_MODE", "debug"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		SQLitePath:             getEnv("SQLITE_PATH", "scanela-billing.db"),
		AutoMigrate:            getEnvBool("DB_AUTO_MIGRATE", true),
		RedisURL:               getEnv("REDIS_URL", ""),
		PaddleAPIKey:           getEnv("PADDLE_API_KEY", ""),
		PaddleAPIBaseURL:       strings.TrimRight(getEnv("PADDLE_API_BASE_URL", "https://api.paddle.com"), "/"),
		PaddleWebhookSecret:    getEnv("PADDLE_WEBHOOK_SECRET", ""),
		PaddleWebhookTolerance: getEnvDuration("PADDLE_WEBHOOK_TOLERANCE", 0),
		PaddleTimeout:          getEnvDuration("PADDLE_TIMEOUT", 30*time.Second),
		PaddleSuccessURL:       getEnv("PADDLE_CHECKOUT_SUCCESS_URL", ""),
		AuthURL:                strings.TrimRight(getEnv("AUTH_URL", ""), "/"),
		AuthServiceKey:         getEnv("AUTH_SERVICE_KEY", ""),
		AuthJWTSecret:          getEnv("AUTH_JWT_SECRET", ""),
		AdminAPIKey:            getEnv("ADMIN_API_KEY", ""),
		PlanCacheTTL:           getEnvDuration("PLAN_CACHE_TTL", 5*time.Minute),
		PlanCacheMaxEntries:    getEnvInt("PLAN_CACHE_MAX_ENTRIES", 10000),
		WebhookDedupeEvents:    getEnvBool("WEBHOOK_DEDUPE_EVENTS", false),
		WebhookDedupeTTL:       getEnvDuration("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		BrevoAPIKey:            getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:         getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:          getEnv("BREVO_FROM_NAME", "Scanela"),
		ServiceName:            getEnv("SERVICE_NAME", "scanela-billing"),
	}

	return nil
}

// PriceEnvKey returns the environment key holding the Paddle price id for a
// plan/interval pair, e.g. PADDLE_PRICE_MENU_MONTHLY.
func PriceEnvKey(plan, interval string) string {
	return fmt.Sprintf("PADDLE_PRICE_%s_%s", strings.ToUpper(plan), strings.ToUpper(interval))
}

// PriceID looks up the configured Paddle price id. The second return value is
// the environment key so callers can log which one is missing.
func PriceID(plan, interval string) (string, string) {
	key := PriceEnvKey(plan, interval)
	return strings.TrimSpace(os.Getenv(key)), key
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
