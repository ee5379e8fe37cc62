// Package cachemgr owns the response and embedding caches: quality- and
// latency-adaptive TTL, tag-based invalidation, and LRU-under-pressure
// eviction. State is instance-owned with an explicit lifecycle; nothing
// here is a package-level singleton.
package cachemgr

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/metrics"
)

// Priority governs eviction order under memory pressure, not TTL.
type Priority string

// Entry priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	maxTTL           = 7 * 24 * time.Hour
	embeddingTTL     = 7 * 24 * time.Hour
	pressureRatio    = 0.9
	pressureEvictPct = 0.2
	// Rough per-entry bookkeeping overhead for memory accounting.
	entryOverhead = 512
)

type responseEntry struct {
	key          string
	response     domain.QueryResponse
	created      time.Time
	ttl          time.Duration
	accessCount  int
	lastAccessed time.Time
	tags         map[string]struct{}
	priority     Priority
	size         int64
}

type embeddingEntry struct {
	key          string
	vector       []float32
	created      time.Time
	ttl          time.Duration
	accessCount  int
	lastAccessed time.Time
	tags         map[string]struct{}
	size         int64
}

// Config holds cache manager settings.
type Config struct {
	BaseTTL        time.Duration
	MaxMemoryBytes int64
	SweepInterval  time.Duration
	Logger         *zap.Logger
}

// Manager is the intelligent cache for query responses and embeddings.
type Manager struct {
	mu         sync.RWMutex
	responses  map[string]*responseEntry
	embeddings map[string]*embeddingEntry
	memoryUsed int64

	baseTTL   time.Duration
	maxMemory int64
	logger    *zap.Logger

	// now is injectable so expiry can be tested with a simulated clock.
	now func() time.Time

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New creates a cache manager and starts its periodic sweep when
// sweepInterval is positive. Call Shutdown to release the sweep goroutine.
func New(cfg Config) *Manager {
	baseTTL := cfg.BaseTTL
	if baseTTL <= 0 {
		baseTTL = 12 * time.Hour
	}
	m := &Manager{
		responses:  make(map[string]*responseEntry),
		embeddings: make(map[string]*embeddingEntry),
		baseTTL:    baseTTL,
		maxMemory:  cfg.MaxMemoryBytes,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if cfg.SweepInterval > 0 {
		m.sweepStop = make(chan struct{})
		m.sweepDone = make(chan struct{})
		go m.sweepLoop(cfg.SweepInterval)
	}
	return m
}

// Shutdown stops the sweep goroutine. Safe to call once.
func (m *Manager) Shutdown() {
	if m.sweepStop != nil {
		close(m.sweepStop)
		<-m.sweepDone
	}
}

// GetResponse looks up a cached answer for a query. Expiry is re-checked on
// every read: a logically expired entry is deleted and reported as a miss
// even if the sweep has not reached it yet.
func (m *Manager) GetResponse(query string) (domain.QueryResponse, bool) {
	key := ResponseKey(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.responses[key]
	if !ok {
		metrics.CacheTotal.WithLabelValues("response", "miss").Inc()
		return domain.QueryResponse{}, false
	}

	now := m.now()
	if now.Sub(e.created) > e.ttl {
		m.deleteResponseLocked(key, "expired")
		metrics.CacheTotal.WithLabelValues("response", "miss").Inc()
		return domain.QueryResponse{}, false
	}

	e.accessCount++
	e.lastAccessed = now
	metrics.CacheTotal.WithLabelValues("response", "hit").Inc()
	return e.response, true
}

// StoreResponse caches an answered query. TTL and priority are derived from
// the answer quality and how long it took to produce.
func (m *Manager) StoreResponse(
	query string, resp domain.QueryResponse,
	quality float64, responseTime time.Duration, tags []string,
) {
	key := ResponseKey(query)
	now := m.now()

	e := &responseEntry{
		key:          key,
		response:     resp,
		created:      now,
		ttl:          ComputeTTL(m.baseTTL, quality, responseTime),
		lastAccessed: now,
		tags:         tagSet(tags),
		priority:     AssignPriority(quality, responseTime),
		size:         responseSize(resp),
	}

	m.mu.Lock()
	if old, ok := m.responses[key]; ok {
		m.memoryUsed -= old.size
	}
	m.responses[key] = e
	m.memoryUsed += e.size
	m.evictUnderPressureLocked()
	m.mu.Unlock()
}

// GetEmbedding looks up a cached embedding for a text.
func (m *Manager) GetEmbedding(text string) ([]float32, bool) {
	key := embeddingKey(text)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.embeddings[key]
	if !ok {
		metrics.CacheTotal.WithLabelValues("embedding", "miss").Inc()
		return nil, false
	}

	now := m.now()
	if now.Sub(e.created) > e.ttl {
		m.deleteEmbeddingLocked(key, "expired")
		metrics.CacheTotal.WithLabelValues("embedding", "miss").Inc()
		return nil, false
	}

	e.accessCount++
	e.lastAccessed = now
	metrics.CacheTotal.WithLabelValues("embedding", "hit").Inc()
	return e.vector, true
}

// StoreEmbedding caches an embedding. Embeddings are expensive to recompute
// and rarely invalidated by quality, so they get a fixed 7-day TTL and are
// exempt from pressure eviction (high priority).
func (m *Manager) StoreEmbedding(text string, vector []float32, tags []string) {
	key := embeddingKey(text)
	now := m.now()

	e := &embeddingEntry{
		key:          key,
		vector:       vector,
		created:      now,
		ttl:          embeddingTTL,
		lastAccessed: now,
		tags:         tagSet(tags),
		size:         int64(len(vector)*4) + entryOverhead,
	}

	m.mu.Lock()
	if old, ok := m.embeddings[key]; ok {
		m.memoryUsed -= old.size
	}
	m.embeddings[key] = e
	m.memoryUsed += e.size
	m.mu.Unlock()
}

// InvalidateByTags removes every entry (both caches) whose tag set
// intersects the given tags. Returns the number of entries removed.
func (m *Manager) InvalidateByTags(tags []string) int {
	if len(tags) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.responses {
		if intersects(e.tags, tags) {
			m.deleteResponseLocked(key, "tags")
			removed++
		}
	}
	for key, e := range m.embeddings {
		if intersects(e.tags, tags) {
			m.deleteEmbeddingLocked(key, "tags")
			removed++
		}
	}
	return removed
}

// Sweep deletes all logically expired entries from both caches and runs a
// pressure pass if memory is over the ceiling. Returns the count removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.responses {
		if now.Sub(e.created) > e.ttl {
			m.deleteResponseLocked(key, "expired")
			removed++
		}
	}
	for key, e := range m.embeddings {
		if now.Sub(e.created) > e.ttl {
			m.deleteEmbeddingLocked(key, "expired")
			removed++
		}
	}
	removed += m.evictUnderPressureLocked()
	return removed
}

// Stats reports current cache occupancy.
type Stats struct {
	ResponseEntries  int
	EmbeddingEntries int
	MemoryUsedBytes  int64
	MemoryMaxBytes   int64
}

// GetStats returns current occupancy numbers.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		ResponseEntries:  len(m.responses),
		EmbeddingEntries: len(m.embeddings),
		MemoryUsedBytes:  m.memoryUsed,
		MemoryMaxBytes:   m.maxMemory,
	}
}

// ComputeTTL derives an entry TTL from answer quality and response time.
// Multipliers stack multiplicatively; the result is hard-capped at 7 days.
func ComputeTTL(base time.Duration, quality float64, responseTime time.Duration) time.Duration {
	ttl := float64(base)
	if quality > 0.8 {
		ttl *= 2
	} else if quality < 0.5 {
		ttl *= 0.5
	}
	if responseTime < 3000*time.Millisecond {
		ttl *= 1.5
	}
	if ttl > float64(maxTTL) {
		return maxTTL
	}
	return time.Duration(ttl)
}

// AssignPriority grades an entry for pressure eviction.
func AssignPriority(quality float64, responseTime time.Duration) Priority {
	switch {
	case quality > 0.8 && responseTime < 5000*time.Millisecond:
		return PriorityHigh
	case quality > 0.6 && responseTime < 10000*time.Millisecond:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ResponseKey hashes a query into its cache key (case- and
// whitespace-insensitive).
func ResponseKey(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(h[:])
}

func embeddingKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func (m *Manager) sweepLoop(interval time.Duration) {
	defer close(m.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Cache sweep completed", zap.Int("removed", n))
			}
		}
	}
}

// evictUnderPressureLocked removes the 20% least-recently-accessed
// low-priority response entries when memory exceeds 90% of the ceiling.
// Medium/high entries are never pressure-evicted; they rely on TTL alone.
func (m *Manager) evictUnderPressureLocked() int {
	if m.maxMemory <= 0 || float64(m.memoryUsed) <= pressureRatio*float64(m.maxMemory) {
		return 0
	}

	var low []*responseEntry
	for _, e := range m.responses {
		if e.priority == PriorityLow {
			low = append(low, e)
		}
	}
	if len(low) == 0 {
		return 0
	}

	sort.Slice(low, func(i, j int) bool {
		return low[i].lastAccessed.Before(low[j].lastAccessed)
	})

	n := int(float64(len(low)) * pressureEvictPct)
	if n == 0 {
		n = 1
	}
	for _, e := range low[:n] {
		m.deleteResponseLocked(e.key, "pressure")
	}
	m.logger.Info("Evicted cache entries under memory pressure",
		zap.Int("evicted", n), zap.Int64("memory_used", m.memoryUsed))
	return n
}

func (m *Manager) deleteResponseLocked(key, cause string) {
	if e, ok := m.responses[key]; ok {
		m.memoryUsed -= e.size
		delete(m.responses, key)
		metrics.CacheEvictionsTotal.WithLabelValues("response", cause).Inc()
	}
}

func (m *Manager) deleteEmbeddingLocked(key, cause string) {
	if e, ok := m.embeddings[key]; ok {
		m.memoryUsed -= e.size
		delete(m.embeddings, key)
		metrics.CacheEvictionsTotal.WithLabelValues("embedding", cause).Inc()
	}
}

func responseSize(r domain.QueryResponse) int64 {
	size := int64(len(r.Question) + len(r.Answer))
	for _, s := range r.Sources {
		size += int64(len(s.Content) + len(s.Filename))
	}
	return size + entryOverhead
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

func intersects(set map[string]struct{}, tags []string) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
