// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"io"
	"log"
	"testing"

	"scanela-billing/internal/database"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database, migrates it and
// installs it as database.DB for the duration of the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	silent := logger.New(log.New(io.Discard, "", log.LstdFlags), logger.Config{LogLevel: logger.Silent})
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: silent})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	original, originalCaps := database.DB, database.Caps
	database.DB = db
	database.Caps = database.AllCapabilities()

	t.Cleanup(func() {
		database.DB = original
		database.Caps = originalCaps
		_ = sqlDB.Close()
	})
	return db
}

// SilenceLogs discards log output for the test.
func SilenceLogs(t *testing.T) {
	t.Helper()
	logging.SetOutput(io.Discard, "error", "json")
}

// InitTestMain puts gin in test mode.
func InitTestMain() {
	gin.SetMode(gin.TestMode)
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}
