package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"

	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/metrics"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// ErrShutdown is returned by Start after Shutdown has begun
var ErrShutdown = errors.New("supervisor shut down")

// Looper runs one feed's pipeline until ctx is cancelled
type Looper interface {
	Run(ctx context.Context, feedID int64) error
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// feedLock serializes Start and Stop for one feed. refs counts the callers
// holding or waiting on it; the entry is dropped when it reaches zero.
type feedLock struct {
	mu   sync.Mutex
	refs int
}

// Supervisor owns the running loops, at most one per feed
type Supervisor struct {
	runner          Looper
	store           Store
	resetOnShutdown bool

	base       context.Context
	cancelBase context.CancelFunc

	mu     sync.Mutex
	tasks  map[int64]*task
	locks  map[int64]*feedLock
	closed bool
}

// NewSupervisor creates a supervisor. With resetOnShutdown set, Shutdown
// marks every stopped feed inactive; otherwise statuses are left for
// ResumeActive on the next start.
func NewSupervisor(runner Looper, store Store, resetOnShutdown bool) *Supervisor {
	base, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		runner:          runner,
		store:           store,
		resetOnShutdown: resetOnShutdown,
		base:            base,
		cancelBase:      cancel,
		tasks:           make(map[int64]*task),
		locks:           make(map[int64]*feedLock),
	}
}

func (s *Supervisor) lockFeed(feedID int64) *feedLock {
	s.mu.Lock()
	l, ok := s.locks[feedID]
	if !ok {
		l = &feedLock{}
		s.locks[feedID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

func (s *Supervisor) unlockFeed(feedID int64, l *feedLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, feedID)
	}
	s.mu.Unlock()
}

// Start launches the feed's loop. It is a no-op when one is already running.
func (s *Supervisor) Start(ctx context.Context, feedID int64) error {
	l := s.lockFeed(feedID)
	defer s.unlockFeed(feedID, l)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrShutdown
	}
	_, running := s.tasks[feedID]
	s.mu.Unlock()
	if running {
		return nil
	}

	if err := s.store.SetFeedStatus(ctx, feedID, models.StatusActive); err != nil {
		return err
	}

	tctx, cancel := context.WithCancel(s.base)
	t := &task{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return ErrShutdown
	}
	s.tasks[feedID] = t
	n := len(s.tasks)
	s.mu.Unlock()
	metrics.SetActiveMonitors(float64(n))

	go s.run(tctx, feedID, t)
	logger.Info("Monitor registered", "feed_id", feedID)
	return nil
}

func (s *Supervisor) run(ctx context.Context, feedID int64, t *task) {
	err := s.runner.Run(ctx, feedID)

	s.mu.Lock()
	if cur, ok := s.tasks[feedID]; ok && cur == t {
		delete(s.tasks, feedID)
	}
	n := len(s.tasks)
	s.mu.Unlock()
	metrics.SetActiveMonitors(float64(n))

	t.cancel()
	close(t.done)

	if err != nil {
		logger.Error("Monitor terminated", "feed_id", feedID, "error", err)
	}
}

// Stop cancels the feed's loop, waits for it to exit, then marks the feed
// inactive whether or not a loop was running.
func (s *Supervisor) Stop(ctx context.Context, feedID int64) error {
	l := s.lockFeed(feedID)
	defer s.unlockFeed(feedID, l)

	s.mu.Lock()
	t, ok := s.tasks[feedID]
	s.mu.Unlock()

	if ok {
		t.cancel()
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Info("Monitor stopped", "feed_id", feedID)
	}

	return s.store.SetFeedStatus(ctx, feedID, models.StatusInactive)
}

// IsActive reports whether a loop is registered for feedID
func (s *Supervisor) IsActive(feedID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[feedID]
	return ok
}

// Active returns the ids of running feeds in ascending order
func (s *Supervisor) Active() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ResumeActive starts every feed whose persisted status is active and
// returns how many were started
func (s *Supervisor) ResumeActive(ctx context.Context) (int, error) {
	feeds, err := s.store.ListFeeds(ctx)
	if err != nil {
		return 0, err
	}

	var errs apperrors.MultiError
	started := 0
	for _, f := range feeds {
		if f.Status != models.StatusActive {
			continue
		}
		if err := s.Start(ctx, f.ID); err != nil {
			errs.Add(err)
			continue
		}
		started++
	}
	if started > 0 {
		logger.Info("Resumed monitors", "count", started)
	}
	return started, errs.ErrorOrNil()
}

// Shutdown cancels every loop and waits for them to exit or ctx to end.
// Later calls to Start fail with ErrShutdown.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	tasks := make(map[int64]*task, len(s.tasks))
	for id, t := range s.tasks {
		tasks[id] = t
	}
	s.mu.Unlock()

	s.cancelBase()

	var errs apperrors.MultiError
	for id, t := range tasks {
		select {
		case <-t.done:
		case <-ctx.Done():
			errs.Add(ctx.Err())
			return errs.ErrorOrNil()
		}
		if s.resetOnShutdown {
			errs.Add(s.store.SetFeedStatus(ctx, id, models.StatusInactive))
		}
	}

	logger.Info("Supervisor stopped", "monitors", len(tasks), "reset_status", s.resetOnShutdown)
	return errs.ErrorOrNil()
}
