package media

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// memStore implements Store for testing.
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

// countingLookup returns a fixed link or error and counts calls.
type countingLookup struct {
	calls atomic.Int32
	err   error
}

func (c *countingLookup) Find(_ context.Context, song string) (Link, error) {
	c.calls.Add(1)
	if c.err != nil {
		return Link{}, c.err
	}
	return Link{Song: song, Provider: ProviderYouTube, ID: "id-" + song}, nil
}

func TestCached_HitAfterMiss(t *testing.T) {
	store := newMemStore()
	next := &countingLookup{}
	c := NewCached(next, store, "youtube", zap.NewNop())

	for i := 0; i < 3; i++ {
		link, err := c.Find(context.Background(), "song")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if link.ID != "id-song" {
			t.Errorf("ID = %q", link.ID)
		}
	}

	if got := next.calls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
	if ttl := store.ttls["moodify:media:youtube:song"]; ttl != CacheTTL {
		t.Errorf("ttl = %v, want %v", ttl, CacheTTL)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	store := newMemStore()
	next := &countingLookup{err: ErrNoResults}
	c := NewCached(next, store, "youtube", nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Find(context.Background(), "song"); !errors.Is(err, ErrNoResults) {
			t.Fatalf("err = %v, want ErrNoResults", err)
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("underlying calls = %d, want 2", got)
	}
	if len(store.data) != 0 {
		t.Errorf("store has %d entries, want 0", len(store.data))
	}
}

func TestCached_StoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	next := &countingLookup{}
	c := NewCached(next, store, "youtube", nil)

	if _, err := c.Find(context.Background(), "song"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
}

func TestCached_CorruptEntryRefetched(t *testing.T) {
	store := newMemStore()
	store.data["moodify:media:youtube:song"] = "{not json"
	next := &countingLookup{}
	c := NewCached(next, store, "youtube", nil)

	link, err := c.Find(context.Background(), "song")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.ID != "id-song" || next.calls.Load() != 1 {
		t.Errorf("link = %+v calls = %d", link, next.calls.Load())
	}
}
