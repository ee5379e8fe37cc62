package retriever

import (
	"encoding/base64"
	"sync"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

const metricsRingCapacity = 100

// metricsRing keeps search metrics for the most recent queries, FIFO by
// insertion order, for later introspection.
type metricsRing struct {
	mu      sync.Mutex
	entries map[string]domain.SearchMetrics
	order   []string
	cap     int
}

func newMetricsRing(capacity int) *metricsRing {
	if capacity <= 0 {
		capacity = metricsRingCapacity
	}
	return &metricsRing{
		entries: make(map[string]domain.SearchMetrics),
		cap:     capacity,
	}
}

func (r *metricsRing) put(query string, m domain.SearchMetrics) {
	key := metricsKey(query)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = m

	for len(r.entries) > r.cap && len(r.order) > 0 {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.entries, oldest)
	}
}

func (r *metricsRing) get(query string) (domain.SearchMetrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.entries[metricsKey(query)]
	return m, ok
}

func (r *metricsRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// metricsKey is the base64 of the raw query truncated to 16 characters.
func metricsKey(query string) string {
	key := base64.StdEncoding.EncodeToString([]byte(query))
	if len(key) > 16 {
		key = key[:16]
	}
	return key
}
