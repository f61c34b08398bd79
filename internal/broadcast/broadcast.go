// Package broadcast fans persisted results out to live subscribers.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/metrics"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// Subscriber receives events. A Send error marks the subscriber as dead.
type Subscriber interface {
	ID() string
	Send(ctx context.Context, event models.Event) error
}

// Broadcaster holds the set of subscribers, keyed by ID
type Broadcaster struct {
	mu          sync.RWMutex
	subs        map[string]Subscriber
	sendTimeout time.Duration
}

// New creates a broadcaster. sendTimeout bounds each delivery.
func New(sendTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		subs:        make(map[string]Subscriber),
		sendTimeout: sendTimeout,
	}
}

func (b *Broadcaster) Subscribe(s Subscriber) {
	b.mu.Lock()
	b.subs[s.ID()] = s
	n := len(b.subs)
	b.mu.Unlock()
	metrics.SetSubscribers(float64(n))
	logger.Debug("Subscriber added", "subscriber_id", s.ID(), "subscribers", n)
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subs, id)
	n := len(b.subs)
	b.mu.Unlock()
	metrics.SetSubscribers(float64(n))
}

// Count returns the number of live subscribers
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers result to every subscriber concurrently. Subscribers whose
// delivery fails or times out are removed before Publish returns.
func (b *Broadcaster) Publish(ctx context.Context, result models.TranscriptionResult) {
	event := models.NewTranscriptionEvent(result)

	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed []Subscriber
	)
	for _, s := range targets {
		wg.Add(1)
		go func(s Subscriber) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, b.sendTimeout)
			defer cancel()
			if err := s.Send(sctx, event); err != nil {
				logger.Warn("Dropping subscriber", "subscriber_id", s.ID(), "feed_id", result.FeedID, "error", err)
				metrics.RecordBroadcast("failed")
				failMu.Lock()
				failed = append(failed, s)
				failMu.Unlock()
				return
			}
			metrics.RecordBroadcast("delivered")
		}(s)
	}
	wg.Wait()

	if len(failed) == 0 {
		return
	}

	b.mu.Lock()
	for _, s := range failed {
		// the id may have been re-registered by a different subscriber meanwhile
		if cur, ok := b.subs[s.ID()]; ok && cur == s {
			delete(b.subs, s.ID())
		}
	}
	n := len(b.subs)
	b.mu.Unlock()
	metrics.SetSubscribers(float64(n))

	for _, s := range failed {
		if c, ok := s.(interface{ Close() error }); ok {
			c.Close()
		}
	}
}
