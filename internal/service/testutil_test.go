package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text"})
}

// stubTextEmbedder returns canned vectors and counts calls. embedFunc, when
// set, overrides the default behavior per input.
type stubTextEmbedder struct {
	calls     int64
	vec       []float32
	embedFunc func(text string) ([]float32, error)
}

func (s *stubTextEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.embedFunc != nil {
		return s.embedFunc(text)
	}
	if s.vec != nil {
		return s.vec, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubTextEmbedder) Model() string { return "stub-text" }

func (s *stubTextEmbedder) callCount() int64 { return atomic.LoadInt64(&s.calls) }

type stubImageEmbedder struct {
	calls     int64
	embedFunc func(url string) ([]float32, error)
}

func (s *stubImageEmbedder) EmbedImage(_ context.Context, url string) ([]float32, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.embedFunc != nil {
		return s.embedFunc(url)
	}
	return []float32{0.5, 0.5}, nil
}

func (s *stubImageEmbedder) Model() string { return "stub-image" }

func (s *stubImageEmbedder) callCount() int64 { return atomic.LoadInt64(&s.calls) }
