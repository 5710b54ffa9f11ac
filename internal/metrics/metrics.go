// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// User management metrics
	IncUserCreated()
	IncUserUpdated()
	IncUserDeleted()

	// Cache metrics
	IncUserCacheHit()
	IncUserCacheMiss()

	// Store metrics
	IncStoreError(op string)
	ObserveStoreDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
