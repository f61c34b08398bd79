package geocoder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rajasatyajit/FeedMonitor/internal/logger"
	"github.com/rajasatyajit/FeedMonitor/internal/models"
)

// MockLookup records every call it receives
type MockLookup struct {
	mu      sync.Mutex
	calls   []string
	times   []time.Time
	result  *models.Location
	err     error
	delay   time.Duration
	started chan struct{}
}

func (m *MockLookup) Lookup(ctx context.Context, query string) (*models.Location, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.times = append(m.times, time.Now())
	m.mu.Unlock()
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return nil, nil
	}
	loc := *m.result
	return &loc, nil
}

func (m *MockLookup) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *MockLookup) CallTimes() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Time, len(m.times))
	copy(out, m.times)
	return out
}

var chicago = &models.Location{Latitude: 41.8169, Longitude: -87.6128, Address: "East 41st Street, Chicago, Illinois"}

func TestGeocode_CachesByNormalizedQuery(t *testing.T) {
	logger.Init("error", "text")
	lookup := &MockLookup{result: chicago}
	client := New(lookup, nil, 10*time.Millisecond)
	ctx := context.Background()

	first := client.Geocode(ctx, "41st and Pine, Chicago, IL")
	second := client.Geocode(ctx, "  41ST AND PINE, chicago, il  ")

	if first == nil || second == nil {
		t.Fatalf("Expected results, got %v and %v", first, second)
	}
	if *first != *second {
		t.Errorf("Expected identical cached result, got %+v and %+v", first, second)
	}
	if lookup.CallCount() != 1 {
		t.Errorf("Expected 1 outbound lookup, got %d", lookup.CallCount())
	}
	if lookup.calls[0] != "41st and Pine, Chicago, IL" {
		t.Errorf("Expected trimmed original query sent, got %q", lookup.calls[0])
	}
}

func TestGeocode_CachesNoResult(t *testing.T) {
	logger.Init("error", "text")
	lookup := &MockLookup{}
	client := New(lookup, nil, 10*time.Millisecond)
	ctx := context.Background()

	if loc := client.Geocode(ctx, "Nowhere Road"); loc != nil {
		t.Fatalf("Expected no result, got %+v", loc)
	}
	if loc := client.Geocode(ctx, "nowhere road"); loc != nil {
		t.Fatalf("Expected cached no result, got %+v", loc)
	}
	if lookup.CallCount() != 1 {
		t.Errorf("Expected 1 outbound lookup, got %d", lookup.CallCount())
	}
}

func TestGeocode_EmptyQueryNotLookedUp(t *testing.T) {
	lookup := &MockLookup{result: chicago}
	cache := NewMemoryCache()
	client := New(lookup, cache, 10*time.Millisecond)

	if loc := client.Geocode(context.Background(), "   "); loc != nil {
		t.Errorf("Expected nil for empty query, got %+v", loc)
	}
	if lookup.CallCount() != 0 {
		t.Errorf("Expected no lookup, got %d", lookup.CallCount())
	}
	if cache.Len() != 0 {
		t.Errorf("Expected empty query to stay uncached, got %d entries", cache.Len())
	}
}

func TestGeocode_FailureSwallowedAndNotCached(t *testing.T) {
	logger.Init("error", "text")
	lookup := &MockLookup{err: errors.New("connection reset")}
	cache := NewMemoryCache()
	client := New(lookup, cache, 10*time.Millisecond)
	ctx := context.Background()

	if loc := client.Geocode(ctx, "500 Main Street"); loc != nil {
		t.Fatalf("Expected nil on failure, got %+v", loc)
	}
	if cache.Len() != 0 {
		t.Errorf("Expected failure not cached, got %d entries", cache.Len())
	}
	client.Geocode(ctx, "500 Main Street")
	if lookup.CallCount() != 2 {
		t.Errorf("Expected retry on next call, got %d lookups", lookup.CallCount())
	}
}

func TestGeocode_ReturnsCopies(t *testing.T) {
	lookup := &MockLookup{result: chicago}
	client := New(lookup, nil, 10*time.Millisecond)
	ctx := context.Background()

	first := client.Geocode(ctx, "41st and Pine")
	first.Address = "mutated"
	second := client.Geocode(ctx, "41st and Pine")
	if second.Address != chicago.Address {
		t.Errorf("Expected cache unaffected by caller mutation, got %q", second.Address)
	}
}

func TestGeocode_MinimumIntervalBetweenLookups(t *testing.T) {
	lookup := &MockLookup{result: chicago}
	client := New(lookup, nil, time.Second)
	ctx := context.Background()

	client.Geocode(ctx, "first query")
	client.Geocode(ctx, "second query")

	times := lookup.CallTimes()
	if len(times) != 2 {
		t.Fatalf("Expected 2 lookups, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < 990*time.Millisecond {
		t.Errorf("Expected at least 1s between lookups, got %v", gap)
	}
}

func TestGeocode_ConcurrentCallersShareGate(t *testing.T) {
	lookup := &MockLookup{result: chicago}
	interval := 200 * time.Millisecond
	client := New(lookup, nil, interval)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, q := range []string{"a street", "b street", "c street", "d street"} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			client.Geocode(ctx, q)
		}(q)
	}
	wg.Wait()

	times := lookup.CallTimes()
	if len(times) != 4 {
		t.Fatalf("Expected 4 lookups, got %d", len(times))
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval-10*time.Millisecond {
			t.Errorf("Expected lookups %d and %d at least %v apart, got %v", i-1, i, interval, gap)
		}
	}
}

func TestGeocode_DuplicateInFlightCollapsed(t *testing.T) {
	lookup := &MockLookup{result: chicago, delay: 100 * time.Millisecond, started: make(chan struct{}, 8)}
	client := New(lookup, nil, 10*time.Millisecond)
	ctx := context.Background()

	var found atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if client.Geocode(ctx, "41st and Pine") != nil {
				found.Add(1)
			}
		}()
	}
	wg.Wait()

	if lookup.CallCount() != 1 {
		t.Errorf("Expected 1 lookup for identical queries, got %d", lookup.CallCount())
	}
	if found.Load() != 5 {
		t.Errorf("Expected all 5 callers to get a result, got %d", found.Load())
	}
}

func TestGeocode_CancelledWhileWaitingForGate(t *testing.T) {
	lookup := &MockLookup{result: chicago}
	client := New(lookup, nil, time.Hour)

	client.Geocode(context.Background(), "first")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if loc := client.Geocode(ctx, "second"); loc != nil {
		t.Errorf("Expected nil when the gate cannot be passed, got %+v", loc)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Expected prompt return on cancellation")
	}
	if lookup.CallCount() != 1 {
		t.Errorf("Expected no second lookup, got %d", lookup.CallCount())
	}
}

func TestGeocode_CancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	lookup := &MockLookup{result: chicago}
	client := New(lookup, nil, 300*time.Millisecond)

	// Occupy the gate so the next lookup has to wait for it.
	client.Geocode(context.Background(), "first")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	early := make(chan *models.Location, 1)
	go func() { early <- client.Geocode(ctx, "41st and Pine") }()
	time.Sleep(20 * time.Millisecond)

	if loc := client.Geocode(context.Background(), "41st and Pine"); loc == nil || loc.Address != chicago.Address {
		t.Errorf("Expected the patient caller to get %+v, got %+v", chicago, loc)
	}
	if loc := <-early; loc != nil {
		t.Errorf("Expected nil for the cancelled caller, got %+v", loc)
	}
	if lookup.CallCount() != 2 {
		t.Errorf("Expected one lookup for the shared query after the first, got %d total", lookup.CallCount())
	}
}
