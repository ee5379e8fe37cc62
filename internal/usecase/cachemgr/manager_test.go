package cachemgr

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

func newTestManager(maxMemory int64) *Manager {
	// SweepInterval 0 keeps the sweep goroutine out of tests; expiry is
	// still enforced on read.
	return New(Config{
		BaseTTL:        12 * time.Hour,
		MaxMemoryBytes: maxMemory,
		Logger:         zap.NewNop(),
	})
}

func TestComputeTTL(t *testing.T) {
	base := 12 * time.Hour

	tests := []struct {
		name         string
		quality      float64
		responseTime time.Duration
		want         time.Duration
	}{
		{"high quality fast", 0.9, time.Second, 36 * time.Hour},   // x2 x1.5
		{"high quality slow", 0.9, 5 * time.Second, 24 * time.Hour}, // x2
		{"mid quality fast", 0.7, time.Second, 18 * time.Hour},    // x1.5
		{"mid quality slow", 0.7, 5 * time.Second, 12 * time.Hour},
		{"low quality fast", 0.3, time.Second, 9 * time.Hour},  // x0.5 x1.5
		{"low quality slow", 0.3, 5 * time.Second, 6 * time.Hour}, // x0.5
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTTL(base, tt.quality, tt.responseTime); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestComputeTTL_CappedAtSevenDays(t *testing.T) {
	got := ComputeTTL(6*24*time.Hour, 0.95, time.Second)
	if got != 7*24*time.Hour {
		t.Errorf("expected 7-day cap, got %v", got)
	}
}

func TestAssignPriority(t *testing.T) {
	tests := []struct {
		name         string
		quality      float64
		responseTime time.Duration
		want         Priority
	}{
		{"great and fast", 0.9, time.Second, PriorityHigh},
		{"great but slow", 0.9, 6 * time.Second, PriorityMedium},
		{"decent", 0.7, 8 * time.Second, PriorityMedium},
		{"decent but very slow", 0.7, 11 * time.Second, PriorityLow},
		{"poor", 0.4, time.Second, PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssignPriority(tt.quality, tt.responseTime); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResponseKey_NormalizesQuery(t *testing.T) {
	if ResponseKey("  What IS the Total? ") != ResponseKey("what is the total?") {
		t.Error("expected keys to match after trim and lowercase")
	}
	if ResponseKey("question one") == ResponseKey("question two") {
		t.Error("expected different questions to produce different keys")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	m := newTestManager(0)
	defer m.Shutdown()

	resp := domain.QueryResponse{
		Question: "q",
		Answer:   "the answer",
		Sources:  []domain.SearchResult{{ChunkID: "c1", Content: "src"}},
	}
	m.StoreResponse("q", resp, 0.9, time.Second, []string{"category:factual"})

	got, ok := m.GetResponse("q")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Answer != resp.Answer || len(got.Sources) != 1 {
		t.Errorf("expected stored response back, got %+v", got)
	}

	if _, ok := m.GetResponse("other"); ok {
		t.Error("expected miss for unknown query")
	}
}

func TestGetResponse_LogicalExpiry(t *testing.T) {
	m := newTestManager(0)
	defer m.Shutdown()

	current := time.Now()
	m.now = func() time.Time { return current }

	m.StoreResponse("q", domain.QueryResponse{Answer: "a"}, 0.9, time.Second, nil)

	// TTL is 36h here (x2 quality, x1.5 fast).
	current = current.Add(35 * time.Hour)
	if _, ok := m.GetResponse("q"); !ok {
		t.Error("expected hit before TTL")
	}

	current = current.Add(2 * time.Hour)
	if _, ok := m.GetResponse("q"); ok {
		t.Error("expected logically expired entry to miss on read")
	}
	if stats := m.GetStats(); stats.ResponseEntries != 0 {
		t.Errorf("expected expired entry deleted, got %d entries", stats.ResponseEntries)
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	m := newTestManager(0)
	defer m.Shutdown()

	vector := []float32{0.1, 0.2, 0.3}
	m.StoreEmbedding("some text", vector, []string{"embedding"})

	got, ok := m.GetEmbedding("some text")
	if !ok {
		t.Fatal("expected embedding hit")
	}
	for i := range vector {
		if got[i] != vector[i] {
			t.Fatalf("expected identical vector back, got %v", got)
		}
	}
}

func TestEmbeddingExpiry(t *testing.T) {
	m := newTestManager(0)
	defer m.Shutdown()

	current := time.Now()
	m.now = func() time.Time { return current }

	m.StoreEmbedding("text", []float32{1}, nil)

	current = current.Add(6 * 24 * time.Hour)
	if _, ok := m.GetEmbedding("text"); !ok {
		t.Error("expected hit within 7 days")
	}

	current = current.Add(2 * 24 * time.Hour)
	if _, ok := m.GetEmbedding("text"); ok {
		t.Error("expected miss after 7 days")
	}
}

func TestInvalidateByTags(t *testing.T) {
	m := newTestManager(0)
	defer m.Shutdown()

	m.StoreResponse("q1", domain.QueryResponse{}, 0.9, time.Second, []string{"category:factual"})
	m.StoreResponse("q2", domain.QueryResponse{}, 0.9, time.Second, []string{"category:conceptual"})
	m.StoreEmbedding("t1", []float32{1}, []string{"category:factual"})

	removed := m.InvalidateByTags([]string{"category:factual"})
	if removed != 2 {
		t.Errorf("expected 2 entries removed, got %d", removed)
	}
	if _, ok := m.GetResponse("q1"); ok {
		t.Error("expected tagged response to be invalidated")
	}
	if _, ok := m.GetResponse("q2"); !ok {
		t.Error("expected untagged response to survive")
	}
	if m.InvalidateByTags(nil) != 0 {
		t.Error("expected no-op for empty tags")
	}
}

func TestSweep(t *testing.T) {
	m := newTestManager(0)
	defer m.Shutdown()

	current := time.Now()
	m.now = func() time.Time { return current }

	m.StoreResponse("short", domain.QueryResponse{}, 0.3, 5*time.Second, nil) // 6h TTL
	m.StoreResponse("long", domain.QueryResponse{}, 0.9, time.Second, nil)   // 36h TTL

	current = current.Add(7 * time.Hour)
	if removed := m.Sweep(); removed != 1 {
		t.Errorf("expected 1 entry swept, got %d", removed)
	}
	if _, ok := m.GetResponse("long"); !ok {
		t.Error("expected unexpired entry to survive the sweep")
	}
}

func TestPressureEviction_LowPriorityLRUOnly(t *testing.T) {
	m := newTestManager(20 * 1024)
	defer m.Shutdown()

	current := time.Now()
	m.now = func() time.Time { return current }

	bigAnswer := strings.Repeat("x", 1024)

	// High-priority entries must never be pressure-evicted.
	for i := 0; i < 5; i++ {
		current = current.Add(time.Minute)
		m.StoreResponse(fmt.Sprintf("high-%d", i),
			domain.QueryResponse{Answer: bigAnswer}, 0.9, time.Second, nil)
	}
	// Low-priority entries, oldest accessed first.
	for i := 0; i < 10; i++ {
		current = current.Add(time.Minute)
		m.StoreResponse(fmt.Sprintf("low-%d", i),
			domain.QueryResponse{Answer: bigAnswer}, 0.3, time.Second, nil)
	}

	for i := 0; i < 5; i++ {
		if _, ok := m.GetResponse(fmt.Sprintf("high-%d", i)); !ok {
			t.Errorf("expected high-priority entry high-%d to survive pressure", i)
		}
	}

	stats := m.GetStats()
	if stats.ResponseEntries >= 15 {
		t.Errorf("expected pressure eviction to remove entries, still have %d", stats.ResponseEntries)
	}
	if _, ok := m.GetResponse("low-0"); ok {
		t.Error("expected least-recently-accessed low-priority entry to be evicted first")
	}
}

func TestGetStats(t *testing.T) {
	m := newTestManager(1024)
	defer m.Shutdown()

	m.StoreResponse("q", domain.QueryResponse{Answer: "a"}, 0.9, time.Second, nil)
	m.StoreEmbedding("t", []float32{1, 2}, nil)

	stats := m.GetStats()
	if stats.ResponseEntries != 1 || stats.EmbeddingEntries != 1 {
		t.Errorf("unexpected entry counts: %+v", stats)
	}
	if stats.MemoryUsedBytes <= 0 {
		t.Error("expected positive memory accounting")
	}
	if stats.MemoryMaxBytes != 1024 {
		t.Errorf("expected max 1024, got %d", stats.MemoryMaxBytes)
	}
}
