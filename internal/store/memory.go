package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu           sync.RWMutex
	feeds        map[int64]models.Feed
	results      []models.TranscriptionResult
	nextFeedID   int64
	nextResultID int64
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		feeds: make(map[int64]models.Feed),
	}
}

// ListFeeds returns all feeds ordered by id
func (s *InMemoryStore) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feeds := make([]models.Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		feeds = append(feeds, f)
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].ID < feeds[j].ID })
	return feeds, nil
}

// GetFeed returns nil, nil when the feed does not exist
func (s *InMemoryStore) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, exists := s.feeds[id]; exists {
		return &f, nil
	}
	return nil, nil
}

func (s *InMemoryStore) CreateFeed(ctx context.Context, feed *models.Feed) (*models.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextFeedID++
	f := *feed
	f.ID = s.nextFeedID
	if f.Status == "" {
		f.Status = models.StatusInactive
	}
	f.CreatedAt = time.Now().UTC()
	s.feeds[f.ID] = f
	return &f, nil
}

func (s *InMemoryStore) SetFeedStatus(ctx context.Context, id int64, status models.FeedStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, exists := s.feeds[id]
	if !exists {
		return apperrors.ErrNotFound
	}
	f.Status = status
	s.feeds[id] = f
	return nil
}

// DeleteFeed removes the feed and its results
func (s *InMemoryStore) DeleteFeed(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.feeds[id]; !exists {
		return apperrors.ErrNotFound
	}
	delete(s.feeds, id)

	kept := s.results[:0]
	for _, r := range s.results {
		if r.FeedID != id {
			kept = append(kept, r)
		}
	}
	s.results = kept
	return nil
}

// CreateResult assigns the id and timestamp
func (s *InMemoryStore) CreateResult(ctx context.Context, result *models.TranscriptionResult) (*models.TranscriptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.feeds[result.FeedID]; !exists {
		return nil, apperrors.ErrNotFound
	}
	s.nextResultID++
	r := *result
	r.ID = s.nextResultID
	r.Timestamp = time.Now().UTC()
	s.results = append(s.results, r)
	return &r, nil
}

// QueryResults returns matching results, newest first
func (s *InMemoryStore) QueryResults(ctx context.Context, q models.ResultQuery) ([]models.TranscriptionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.TranscriptionResult{}
	for i := len(s.results) - 1; i >= 0; i-- {
		r := s.results[i]
		if !q.Matches(r) {
			continue
		}
		result = append(result, r)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}
