package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

const feedColumns = `id, name, url, description, category, status, thumbnail_url,
		latitude, longitude, city, created_at`

const resultColumns = `id, feed_id, content, confidence, latitude, longitude,
		address, call_type, created_at`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(row scanner) (models.Feed, error) {
	var f models.Feed
	var status string
	err := row.Scan(
		&f.ID, &f.Name, &f.URL, &f.Description, &f.Category, &status, &f.ThumbnailURL,
		&f.Latitude, &f.Longitude, &f.City, &f.CreatedAt,
	)
	f.Status = models.FeedStatus(status)
	return f, err
}

func scanResult(row scanner) (models.TranscriptionResult, error) {
	var r models.TranscriptionResult
	err := row.Scan(
		&r.ID, &r.FeedID, &r.Content, &r.Confidence, &r.Latitude, &r.Longitude,
		&r.Address, &r.CallType, &r.Timestamp,
	)
	return r, err
}

// ListFeeds returns all feeds ordered by id
func (s *PostgresStore) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	rowsInterface, err := s.db.Query(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query feeds: %w", err)
	}

	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	feeds := []models.Feed{}
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}
	return feeds, nil
}

// GetFeed returns nil, nil when the feed does not exist
func (s *PostgresStore) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	rowInterface := s.db.QueryRow(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	f, err := scanFeed(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan feed: %w", err)
	}
	return &f, nil
}

// CreateFeed inserts feed; the database assigns id and created_at
func (s *PostgresStore) CreateFeed(ctx context.Context, feed *models.Feed) (*models.Feed, error) {
	status := feed.Status
	if status == "" {
		status = models.StatusInactive
	}

	query := `
		INSERT INTO feeds (name, url, description, category, status, thumbnail_url, latitude, longitude, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + feedColumns

	rowInterface := s.db.QueryRow(ctx, query,
		feed.Name, feed.URL, feed.Description, feed.Category, string(status),
		feed.ThumbnailURL, feed.Latitude, feed.Longitude, feed.City,
	)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	f, err := scanFeed(row)
	if err != nil {
		return nil, fmt.Errorf("insert feed: %w", err)
	}
	return &f, nil
}

// SetFeedStatus returns ErrNotFound when no feed has id
func (s *PostgresStore) SetFeedStatus(ctx context.Context, id int64, status models.FeedStatus) error {
	return s.returningID(ctx, "update feed status",
		`UPDATE feeds SET status = $2 WHERE id = $1 RETURNING id`, id, string(status))
}

// DeleteFeed removes the feed; its results go with it through the foreign key
func (s *PostgresStore) DeleteFeed(ctx context.Context, id int64) error {
	return s.returningID(ctx, "delete feed", `DELETE FROM feeds WHERE id = $1 RETURNING id`, id)
}

func (s *PostgresStore) returningID(ctx context.Context, op, query string, args ...any) error {
	rowInterface := s.db.QueryRow(ctx, query, args...)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return fmt.Errorf("invalid row type")
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.DatabaseError{Operation: op, Err: err}
	}
	return nil
}

// CreateResult inserts result; the database assigns id and timestamp
func (s *PostgresStore) CreateResult(ctx context.Context, result *models.TranscriptionResult) (*models.TranscriptionResult, error) {
	query := `
		INSERT INTO transcriptions (feed_id, content, confidence, latitude, longitude, address, call_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + resultColumns

	rowInterface := s.db.QueryRow(ctx, query,
		result.FeedID, result.Content, result.Confidence,
		result.Latitude, result.Longitude, result.Address, result.CallType,
	)
	row, ok := rowInterface.(pgx.Row)
	if !ok {
		return nil, fmt.Errorf("invalid row type")
	}

	r, err := scanResult(row)
	if err != nil {
		return nil, apperrors.DatabaseError{Operation: "insert transcription", Err: err}
	}
	return &r, nil
}

// QueryResults returns matching results, newest first
func (s *PostgresStore) QueryResults(ctx context.Context, q models.ResultQuery) ([]models.TranscriptionResult, error) {
	query := `SELECT ` + resultColumns + ` FROM transcriptions WHERE 1=1`

	var args []interface{}
	argIndex := 1

	if q.FeedID != 0 {
		query += fmt.Sprintf(" AND feed_id = $%d", argIndex)
		args = append(args, q.FeedID)
		argIndex++
	}
	if q.WithLocation {
		query += " AND latitude IS NOT NULL AND longitude IS NOT NULL"
	}

	query += " ORDER BY created_at DESC, id DESC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
	}

	rowsInterface, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}

	rows, ok := rowsInterface.(pgx.Rows)
	if !ok {
		return nil, fmt.Errorf("invalid rows type")
	}
	defer rows.Close()

	results := []models.TranscriptionResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcriptions: %w", err)
	}
	return results, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}
