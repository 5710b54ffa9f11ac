package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/usersvc/usersvc/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "usersvc_users_created_total %d\n", snap.UsersCreated)
	writeMetric(w, "usersvc_users_updated_total %d\n", snap.UsersUpdated)
	writeMetric(w, "usersvc_users_deleted_total %d\n", snap.UsersDeleted)

	writeMetric(w, "usersvc_user_cache_hits_total %d\n", snap.UserCacheHits)
	writeMetric(w, "usersvc_user_cache_misses_total %d\n", snap.UserCacheMisses)

	ops := make([]string, 0, len(snap.StoreErrors))
	for op := range snap.StoreErrors {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		writeMetric(w, "usersvc_store_errors_total{op=%q} %d\n", op, snap.StoreErrors[op])
	}

	writeMetric(w, "usersvc_store_duration_seconds_count %d\n", snap.StoreDurationCount)
	writeMetric(w, "usersvc_store_duration_seconds_sum %.6f\n", float64(snap.StoreDurationTotalNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
