package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/metrics"
)

const (
	analysisCacheTTL      = time.Hour
	analysisCacheCapacity = 1000
)

type cachedAnalysis struct {
	analysis domain.QueryAnalysis
	created  time.Time
}

// analysisCache is a bounded TTL cache for query analyses. When over
// capacity it evicts by insertion order, NOT last access — intentionally
// different from the response cache's pressure policy.
type analysisCache struct {
	mu       sync.Mutex
	entries  map[string]*cachedAnalysis
	order    []string // insertion order
	capacity int
	now      func() time.Time
}

func newAnalysisCache(capacity int) *analysisCache {
	if capacity <= 0 {
		capacity = analysisCacheCapacity
	}
	return &analysisCache{
		entries:  make(map[string]*cachedAnalysis),
		capacity: capacity,
		now:      time.Now,
	}
}

func (c *analysisCache) get(key string) (domain.QueryAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		metrics.CacheTotal.WithLabelValues("analysis", "miss").Inc()
		return domain.QueryAnalysis{}, false
	}
	if c.now().Sub(e.created) > analysisCacheTTL {
		delete(c.entries, key)
		metrics.CacheTotal.WithLabelValues("analysis", "miss").Inc()
		return domain.QueryAnalysis{}, false
	}
	metrics.CacheTotal.WithLabelValues("analysis", "hit").Inc()
	return e.analysis, true
}

func (c *analysisCache) put(key string, a domain.QueryAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = &cachedAnalysis{analysis: a, created: c.now()}

	for len(c.entries) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			metrics.CacheEvictionsTotal.WithLabelValues("analysis", "capacity").Inc()
		}
	}
}

// cacheKey hashes the question together with session identity and how deep
// into the session we are, so the same question later in a conversation is
// re-analyzed with its new context.
func cacheKey(question string, qctx domain.QueryContext) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", question, qctx.SessionID, len(qctx.PriorQuestions))))
	return hex.EncodeToString(h[:])
}
