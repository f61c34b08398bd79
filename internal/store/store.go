package store

import (
	"context"
	_ "embed"

	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// Store defines the interface for feed and transcription storage
type Store interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	GetFeed(ctx context.Context, id int64) (*models.Feed, error)
	CreateFeed(ctx context.Context, feed *models.Feed) (*models.Feed, error)
	SetFeedStatus(ctx context.Context, id int64, status models.FeedStatus) error
	DeleteFeed(ctx context.Context, id int64) error
	CreateResult(ctx context.Context, result *models.TranscriptionResult) (*models.TranscriptionResult, error)
	QueryResults(ctx context.Context, q models.ResultQuery) ([]models.TranscriptionResult, error)
	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (interface{}, error)
	QueryRow(ctx context.Context, sql string, args ...any) interface{}
	Health(ctx context.Context) error
	IsConfigured() bool
}

//go:embed schema.sql
var schema string

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}

// Migrate applies the schema. It is a no-op without a database.
func Migrate(ctx context.Context, db Database) error {
	if !db.IsConfigured() {
		return nil
	}
	return db.Exec(ctx, schema)
}
