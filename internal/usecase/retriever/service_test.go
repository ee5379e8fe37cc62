package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/store"
)

// --- Mocks ---

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

type mockSearcher struct {
	requests []store.SearchRequest
	results  []domain.SearchResult
	// errs is consumed per call; nil entries mean success.
	errs []error
}

func (m *mockSearcher) Search(_ context.Context, req store.SearchRequest) ([]domain.SearchResult, error) {
	m.requests = append(m.requests, req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.results, nil
}

func testEmbedder() *mockEmbedder {
	return &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
}

// --- Tests ---

func TestHybridSearch_UsesAnalysisStrategy(t *testing.T) {
	searcher := &mockSearcher{results: []domain.SearchResult{{ChunkID: "c1"}}}
	svc := New(testEmbedder(), searcher, zap.NewNop())

	analysis := &domain.QueryAnalysis{
		Category:   domain.CategoryFactual,
		Complexity: domain.ComplexitySimple,
	}
	results, m := svc.HybridSearch(context.Background(), "total revenue", analysis, 5)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if m.Strategy != domain.StrategyKeyword {
		t.Errorf("expected keyword strategy, got %q", m.Strategy)
	}
	want := domain.SearchWeights{Semantic: 0.4, Keyword: 0.6}
	if m.Weights != want {
		t.Errorf("expected weights %+v, got %+v", want, m.Weights)
	}
	if searcher.requests[0].TopK != 5 {
		t.Errorf("expected top_k 5, got %d", searcher.requests[0].TopK)
	}
}

func TestHybridSearch_NilAnalysisDefaultsToHybrid(t *testing.T) {
	searcher := &mockSearcher{}
	svc := New(testEmbedder(), searcher, zap.NewNop())

	_, m := svc.HybridSearch(context.Background(), "anything", nil, 3)

	if m.Strategy != domain.StrategyHybrid {
		t.Errorf("expected hybrid strategy, got %q", m.Strategy)
	}
	want := domain.SearchWeights{Semantic: 0.7, Keyword: 0.3}
	if m.Weights != want {
		t.Errorf("expected default weights %+v, got %+v", want, m.Weights)
	}
}

func TestMultiStepSearch_FixedWeights(t *testing.T) {
	searcher := &mockSearcher{}
	svc := New(testEmbedder(), searcher, zap.NewNop())

	analysis := &domain.QueryAnalysis{Category: domain.CategoryConceptual}
	_, m := svc.MultiStepSearch(context.Background(), "compare things", analysis, 5)

	if m.Strategy != domain.StrategyMultiStep {
		t.Errorf("expected multi_step strategy, got %q", m.Strategy)
	}
	want := domain.SearchWeights{Semantic: 0.6, Keyword: 0.4}
	if m.Weights != want {
		t.Errorf("expected fixed multi-step weights %+v, got %+v", want, m.Weights)
	}
}

func TestHybridSearch_SemanticFallback(t *testing.T) {
	searcher := &mockSearcher{
		results: []domain.SearchResult{{ChunkID: "c1"}},
		errs:    []error{errors.New("index error"), nil},
	}
	svc := New(testEmbedder(), searcher, zap.NewNop())

	results, m := svc.HybridSearch(context.Background(), "query", nil, 5)

	if len(results) != 1 {
		t.Fatalf("expected fallback results, got %d", len(results))
	}
	if m.Strategy != domain.StrategySemantic {
		t.Errorf("expected semantic fallback strategy, got %q", m.Strategy)
	}
	if m.Weights != (domain.SearchWeights{Semantic: 1}) {
		t.Errorf("expected pure semantic weights, got %+v", m.Weights)
	}
	if len(searcher.requests) != 2 {
		t.Fatalf("expected 2 search calls, got %d", len(searcher.requests))
	}
	if searcher.requests[1].Strategy != domain.StrategySemantic {
		t.Errorf("expected fallback request strategy semantic, got %q", searcher.requests[1].Strategy)
	}
}

func TestHybridSearch_TotalFailureYieldsEmptyFailed(t *testing.T) {
	searcher := &mockSearcher{errs: []error{errors.New("down"), errors.New("still down")}}
	svc := New(testEmbedder(), searcher, zap.NewNop())

	results, m := svc.HybridSearch(context.Background(), "query", nil, 5)

	if results == nil {
		t.Fatal("expected non-nil empty result slice")
	}
	if len(results) != 0 {
		t.Errorf("expected empty results, got %d", len(results))
	}
	if m.Strategy != domain.StrategyFailed {
		t.Errorf("expected failed strategy, got %q", m.Strategy)
	}
}

func TestHybridSearch_EmbeddingFailureSkipsSearch(t *testing.T) {
	searcher := &mockSearcher{}
	embed := &mockEmbedder{err: errors.New("embedding down")}
	svc := New(embed, searcher, zap.NewNop())

	results, m := svc.HybridSearch(context.Background(), "query", nil, 5)

	if len(results) != 0 || m.Strategy != domain.StrategyFailed {
		t.Errorf("expected empty failed result, got %d results with strategy %q",
			len(results), m.Strategy)
	}
	// Without an embedding neither the primary nor the semantic fallback can run.
	if len(searcher.requests) != 0 {
		t.Errorf("expected no search calls, got %d", len(searcher.requests))
	}
}

func TestGetSearchMetrics(t *testing.T) {
	searcher := &mockSearcher{results: []domain.SearchResult{{ChunkID: "c1"}}}
	svc := New(testEmbedder(), searcher, zap.NewNop())

	svc.HybridSearch(context.Background(), "remembered query", nil, 5)

	m, ok := svc.GetSearchMetrics("remembered query")
	if !ok {
		t.Fatal("expected metrics for recent query")
	}
	if m.TotalResults != 1 {
		t.Errorf("expected 1 total result, got %d", m.TotalResults)
	}

	if _, ok := svc.GetSearchMetrics("never searched"); ok {
		t.Error("expected no metrics for unknown query")
	}
}

func TestMetricsRing_FIFOEviction(t *testing.T) {
	r := newMetricsRing(3)
	for i := 0; i < 4; i++ {
		r.put(fmt.Sprintf("query-%d", i), domain.SearchMetrics{TotalResults: i})
	}

	if r.len() != 3 {
		t.Fatalf("expected ring size 3, got %d", r.len())
	}
	if _, ok := r.get("query-0"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if m, ok := r.get("query-3"); !ok || m.TotalResults != 3 {
		t.Errorf("expected newest entry to survive, got %+v ok=%v", m, ok)
	}
}

func TestBuildKeywordString(t *testing.T) {
	analysis := &domain.QueryAnalysis{
		Keywords: []string{"revenue", "growth", "quarterly", "profit", "margin"},
	}
	got, optimized := buildKeywordString("what is the revenue?", analysis)

	want := "what is the revenue growth quarterly profit"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if !optimized {
		t.Error("expected optimized flag")
	}
}

func TestBuildKeywordString_NoNewKeywords(t *testing.T) {
	analysis := &domain.QueryAnalysis{Keywords: []string{"revenue"}}
	got, optimized := buildKeywordString("show revenue", analysis)

	if got != "show revenue" {
		t.Errorf("expected unchanged query, got %q", got)
	}
	if optimized {
		t.Error("expected optimized flag false when nothing was added")
	}
}
