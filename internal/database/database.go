package database

import (
	"context"
	"fmt"
	"time"

	"scanela-billing/internal/config"
	"scanela-billing/internal/models"
	"scanela-billing/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
	Caps        Capabilities
)

// InitDatabase initializes database connection
func InitDatabase() error {
	// Initialize PostgreSQL
	if err := initPostgres(); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	// Initialize Redis
	if err := initRedis(); err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Auto migrate tables
	if config.AppConfig.AutoMigrate {
		if err := AutoMigrate(DB); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	Caps = DetectCapabilities(DB)
	return nil
}

func gormConfig() *gorm.Config {
	level := logger.Warn
	if config.AppConfig != nil && config.AppConfig.Mode == "debug" {
		level = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}
}

// initPostgres initializes PostgreSQL connection
func initPostgres() error {
	var err error

	// Get database URL from environment
	if dsn := config.AppConfig.DatabaseURL; dsn == "" {
		// Fallback to SQLite for development
		logging.Infof("Database URL not set, using SQLite at %s", config.AppConfig.SQLitePath)
		DB, err = gorm.Open(sqlite.Open(config.AppConfig.SQLitePath), gormConfig())
	} else {
		// Use PostgreSQL for production
		DB, err = gorm.Open(postgres.Open(dsn), gormConfig())
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logging.Infof("Database connected successfully")
	return nil
}

// initRedis initializes Redis connection. Redis is optional: without it the
// plan cache and event ledger stay in process memory.
func initRedis() error {
	redisURL := config.AppConfig.RedisURL
	if redisURL == "" {
		logging.Infof("REDIS_URL not set, using in-memory caches")
		return nil
	}

	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logging.Errorf("Failed to parse Redis URL: %v", err)
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err = RedisClient.Ping(ctx).Result(); err != nil {
		logging.Errorf("Failed to connect to Redis: %v", err)
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// AutoMigrate performs database migration
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Subscription{},
		&models.PaymentEvent{},
	)
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
