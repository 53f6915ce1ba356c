package lockout

import (
	"context"
	"sync"
	"time"
)

// memoryRecord augments Record with the access time used by stale cleanup.
type memoryRecord struct {
	Record
	lastAccess time.Time
}

// MemoryStore implements Store with an in-process map. All operations run
// under one mutex, which makes Increment trivially atomic within a single
// process.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale warning-state records are removed
// in the background. Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// NewMemoryStore creates an in-memory store with optional background cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		records:         make(map[string]*memoryRecord),
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) Get(ctx context.Context, key string) (Record, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, ok := ms.records[key]
	if !ok {
		return Record{}, nil
	}
	rec.lastAccess = time.Now()
	return rec.Record, nil
}

func (ms *MemoryStore) Increment(ctx context.Context, key string, blockAfter int, blockFor time.Duration) (Record, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	rec, ok := ms.records[key]
	if !ok || rec.expired(now) {
		rec = &memoryRecord{}
		ms.records[key] = rec
	}

	rec.Attempts++
	rec.lastAccess = now
	if rec.Attempts >= blockAfter {
		rec.BlockedUntil = now.Add(blockFor)
	}

	return rec.Record, nil
}

func (ms *MemoryStore) Reset(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.records, key)
	return nil
}

func (ms *MemoryStore) SweepExpired(ctx context.Context) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var count int64
	for key, rec := range ms.records {
		if rec.expired(now) {
			delete(ms.records, key)
			count++
		}
	}
	return count, nil
}

// cleanup periodically drops records that have not been touched for a while,
// covering warning-state records that SweepExpired never matches.
func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	staleThreshold := 1 * time.Hour

	for key, rec := range ms.records {
		if now.Sub(rec.lastAccess) > staleThreshold && !rec.BlockedUntil.After(now) {
			delete(ms.records, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	select {
	case <-ms.stopCleanup:
	default:
		close(ms.stopCleanup)
	}
}
