package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersCreated         uint64
	UsersUpdated         uint64
	UsersDeleted         uint64
	UserCacheHits        uint64
	UserCacheMisses      uint64
	StoreErrors          map[string]uint64
	StoreDurationCount   uint64
	StoreDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	usersCreated         uint64
	usersUpdated         uint64
	usersDeleted         uint64
	userCacheHits        uint64
	userCacheMisses      uint64
	storeDurationCount   uint64
	storeDurationTotalNs int64

	mu          sync.Mutex
	storeErrors map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{storeErrors: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	storeErrors := make(map[string]uint64, len(m.storeErrors))
	for op, n := range m.storeErrors {
		storeErrors[op] = n
	}
	m.mu.Unlock()

	return Snapshot{
		UsersCreated:         atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:         atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:         atomic.LoadUint64(&m.usersDeleted),
		UserCacheHits:        atomic.LoadUint64(&m.userCacheHits),
		UserCacheMisses:      atomic.LoadUint64(&m.userCacheMisses),
		StoreErrors:          storeErrors,
		StoreDurationCount:   atomic.LoadUint64(&m.storeDurationCount),
		StoreDurationTotalNs: atomic.LoadInt64(&m.storeDurationTotalNs),
	}
}

// IncUserCreated increments user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// IncUserDeleted increments user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// IncUserCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncUserCacheHit() {
	atomic.AddUint64(&m.userCacheHits, 1)
}

// IncUserCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncUserCacheMiss() {
	atomic.AddUint64(&m.userCacheMisses, 1)
}

// IncStoreError counts a store failure for the given operation.
func (m *InMemoryRecorder) IncStoreError(op string) {
	m.mu.Lock()
	m.storeErrors[op]++
	m.mu.Unlock()
}

// ObserveStoreDuration records the duration of a store call.
func (m *InMemoryRecorder) ObserveStoreDuration(duration time.Duration) {
	atomic.AddUint64(&m.storeDurationCount, 1)
	atomic.AddInt64(&m.storeDurationTotalNs, duration.Nanoseconds())
}
