package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// MockStore keeps feeds and results in memory and records status writes
type MockStore struct {
	mu       sync.Mutex
	feeds    map[int64]*models.Feed
	statuses map[int64][]models.FeedStatus
	results  []models.TranscriptionResult
	nextID   int64
	createFn func(r *models.TranscriptionResult) error
}

func NewMockStore(feeds ...models.Feed) *MockStore {
	s := &MockStore{feeds: make(map[int64]*models.Feed), statuses: make(map[int64][]models.FeedStatus)}
	for i := range feeds {
		f := feeds[i]
		if f.Status == "" {
			f.Status = models.StatusInactive
		}
		s.feeds[f.ID] = &f
	}
	return s
}

func (s *MockStore) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		out = append(out, *f)
	}
	return out, nil
}

func (s *MockStore) GetFeed(ctx context.Context, id int64) (*models.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (s *MockStore) SetFeedStatus(ctx context.Context, id int64, status models.FeedStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	f.Status = status
	s.statuses[id] = append(s.statuses[id], status)
	return nil
}

func (s *MockStore) CreateResult(ctx context.Context, r *models.TranscriptionResult) (*models.TranscriptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createFn != nil {
		if err := s.createFn(r); err != nil {
			return nil, err
		}
	}
	s.nextID++
	saved := *r
	saved.ID = s.nextID
	saved.Timestamp = time.Now().UTC()
	s.results = append(s.results, saved)
	return &saved, nil
}

func (s *MockStore) Status(id int64) models.FeedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.feeds[id]; ok {
		return f.Status
	}
	return ""
}

func (s *MockStore) StatusHistory(id int64) []models.FeedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FeedStatus(nil), s.statuses[id]...)
}

func (s *MockStore) Results() []models.TranscriptionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TranscriptionResult(nil), s.results...)
}

func (s *MockStore) RemoveFeed(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.feeds, id)
}

func (s *MockStore) PutFeed(f models.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[f.ID] = &f
}

// MockSource writes a small file per capture. failFirst makes the first n
// captures fail.
type MockSource struct {
	mu          sync.Mutex
	validateErr error
	failFirst   int
	calls       int
	delay       time.Duration
	dirs        []string
	dirtyDir    bool
}

func (m *MockSource) Validate() error { return m.validateErr }

func (m *MockSource) Capture(ctx context.Context, sourceURL, dir string) (*models.Segment, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.dirs = append(m.dirs, dir)
	if entries, _ := os.ReadDir(dir); len(entries) > 0 {
		m.dirtyDir = true
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
	if n <= m.failFirst {
		return nil, apperrors.ErrCaptureFailed
	}
	path := filepath.Join(dir, "segment.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		return nil, err
	}
	return &models.Segment{Path: path}, nil
}

func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) SawDirtyDir() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirtyDir
}

// MockTranscriber returns text for every segment
type MockTranscriber struct {
	mu          sync.Mutex
	validateErr error
	text        string
	err         error
	calls       int
}

func (m *MockTranscriber) Validate() error { return m.validateErr }

func (m *MockTranscriber) Transcribe(ctx context.Context, seg *models.Segment) (models.Transcript, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return models.Transcript{}, m.err
	}
	conf := 95
	return models.Transcript{Text: m.text, Confidence: &conf}, nil
}

func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// BlockingTranscriber holds every call until its context ends and tracks
// how many calls are inside Transcribe at once
type BlockingTranscriber struct {
	mu     sync.Mutex
	active int
	peak   int
}

func (b *BlockingTranscriber) Validate() error { return nil }

func (b *BlockingTranscriber) Transcribe(ctx context.Context, seg *models.Segment) (models.Transcript, error) {
	b.mu.Lock()
	b.active++
	if b.active > b.peak {
		b.peak = b.active
	}
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	return models.Transcript{}, ctx.Err()
}

func (b *BlockingTranscriber) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *BlockingTranscriber) Peak() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}

// MockGeocoder records queries and returns loc
type MockGeocoder struct {
	mu      sync.Mutex
	queries []string
	loc     *models.Location
}

func (m *MockGeocoder) Geocode(ctx context.Context, query string) *models.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.loc == nil {
		return nil
	}
	cp := *m.loc
	return &cp
}

func (m *MockGeocoder) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockPublisher records published results
type MockPublisher struct {
	mu        sync.Mutex
	published []models.TranscriptionResult
}

func (m *MockPublisher) Publish(ctx context.Context, r models.TranscriptionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, r)
}

func (m *MockPublisher) Published() []models.TranscriptionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TranscriptionResult(nil), m.published...)
}

// MockExtractor returns phrase for any text
type MockExtractor struct{ phrase string }

func (m MockExtractor) Extract(text string) (string, bool) {
	return m.phrase, m.phrase != ""
}

var errBoom = errors.New("boom")

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func testOptions(t *testing.T) Options {
	return Options{
		MinTranscriptChars:          6,
		MissingFeedDelay:            10 * time.Millisecond,
		CaptureBackoff:              10 * time.Millisecond,
		GeocodeEnabled:              true,
		MaxConcurrentTranscriptions: 2,
		PersistTimeout:              time.Second,
		WorkDir:                     t.TempDir(),
	}
}
