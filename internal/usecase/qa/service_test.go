package qa

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// --- Mocks ---

type mockAnalyzer struct {
	analysis domain.QueryAnalysis
	enhanced string
	err      error
	calls    int
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ string, _ domain.QueryContext) (domain.QueryAnalysis, error) {
	m.calls++
	return m.analysis, m.err
}

func (m *mockAnalyzer) Enhance(_ context.Context, original string, _ domain.QueryAnalysis) (string, domain.Strategy) {
	if m.enhanced != "" {
		return m.enhanced, domain.StrategyMultiStep
	}
	return original, domain.StrategyMultiStep
}

type mockRetriever struct {
	results        []domain.SearchResult
	lastQuery      string
	hybridCalls    int
	multiStepCalls int
}

func (m *mockRetriever) HybridSearch(_ context.Context, query string, _ *domain.QueryAnalysis, _ int) ([]domain.SearchResult, domain.SearchMetrics) {
	m.hybridCalls++
	m.lastQuery = query
	return m.results, domain.SearchMetrics{}
}

func (m *mockRetriever) MultiStepSearch(_ context.Context, query string, _ *domain.QueryAnalysis, _ int) ([]domain.SearchResult, domain.SearchMetrics) {
	m.multiStepCalls++
	m.lastQuery = query
	return m.results, domain.SearchMetrics{}
}

type mockGenerator struct {
	answer    string
	err       error
	fragments []string
	streamErr error
	calls     int
}

func (m *mockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.answer, m.err
}

func (m *mockGenerator) GenerateStream(_ context.Context, _ string, onFragment func(string) error) error {
	m.calls++
	for _, frag := range m.fragments {
		if err := onFragment(frag); err != nil {
			return err
		}
	}
	return m.streamErr
}

type mockEvaluator struct {
	score       domain.QualityScore
	shouldCache bool
	calls       int
}

func (m *mockEvaluator) Evaluate(
	_ context.Context, question, answer string, _ []domain.SearchResult,
	_ domain.QueryAnalysis, _ time.Duration, _ bool,
) (domain.ResponseEvaluation, bool) {
	m.calls++
	return domain.ResponseEvaluation{
		ID:       "eval-1",
		Question: question,
		Answer:   answer,
		Score:    m.score,
	}, m.shouldCache
}

type mockCache struct {
	responses  map[string]domain.QueryResponse
	storeCalls int
	lastTags   []string
}

func newMockCache() *mockCache {
	return &mockCache{responses: make(map[string]domain.QueryResponse)}
}

func (m *mockCache) GetResponse(query string) (domain.QueryResponse, bool) {
	resp, ok := m.responses[query]
	return resp, ok
}

func (m *mockCache) StoreResponse(query string, resp domain.QueryResponse, _ float64, _ time.Duration, tags []string) {
	m.storeCalls++
	m.lastTags = tags
	m.responses[query] = resp
}

type fixture struct {
	analyzer  *mockAnalyzer
	retriever *mockRetriever
	gen       *mockGenerator
	evaluator *mockEvaluator
	cache     *mockCache
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		analyzer: &mockAnalyzer{analysis: domain.QueryAnalysis{
			Category:   domain.CategoryFactual,
			Complexity: domain.ComplexitySimple,
		}},
		retriever: &mockRetriever{results: []domain.SearchResult{
			{ChunkID: "c1", Filename: "doc.pdf", Content: "relevant text", SearchMethod: domain.StrategyHybrid},
		}},
		gen:       &mockGenerator{answer: "the answer [1]"},
		evaluator: &mockEvaluator{score: domain.QualityScore{Overall: 0.85}, shouldCache: true},
		cache:     newMockCache(),
	}
	f.svc = New(f.analyzer, f.retriever, f.gen, f.evaluator, f.cache, 5, zap.NewNop())
	return f
}

// --- Tests ---

func TestAsk_FullPipeline(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Ask(context.Background(), "what is the total?", domain.QueryContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != "the answer [1]" {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.CacheHit {
		t.Error("expected cache miss on first ask")
	}
	if resp.Strategy != domain.StrategyHybrid {
		t.Errorf("expected hybrid strategy from sources, got %q", resp.Strategy)
	}
	if resp.Quality.Overall != 0.85 {
		t.Errorf("expected quality from evaluator, got %v", resp.Quality.Overall)
	}
	if resp.EvaluationID != "eval-1" {
		t.Errorf("expected evaluation id for feedback, got %q", resp.EvaluationID)
	}
	if f.retriever.hybridCalls != 1 || f.retriever.multiStepCalls != 0 {
		t.Errorf("expected one hybrid search, got hybrid=%d multi=%d",
			f.retriever.hybridCalls, f.retriever.multiStepCalls)
	}
	if f.cache.storeCalls != 1 {
		t.Errorf("expected cacheable answer to be stored once, got %d", f.cache.storeCalls)
	}
}

func TestAsk_SecondAskHitsCache(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Ask(context.Background(), "q", domain.QueryContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := f.svc.Ask(context.Background(), "q", domain.QueryContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.CacheHit {
		t.Error("expected cache hit on second ask")
	}
	if f.analyzer.calls != 1 {
		t.Errorf("expected cached answer to skip analysis, got %d calls", f.analyzer.calls)
	}
	if f.gen.calls != 1 {
		t.Errorf("expected cached answer to skip generation, got %d calls", f.gen.calls)
	}
}

func TestAsk_MultiDocQuestionUsesMultiStep(t *testing.T) {
	f := newFixture()
	f.analyzer.analysis.RequiresMultipleDocs = true
	f.analyzer.enhanced = "compare revenue of a and b"

	if _, err := f.svc.Ask(context.Background(), "compare a and b", domain.QueryContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.retriever.multiStepCalls != 1 || f.retriever.hybridCalls != 0 {
		t.Errorf("expected one multi-step search, got hybrid=%d multi=%d",
			f.retriever.hybridCalls, f.retriever.multiStepCalls)
	}
	if f.retriever.lastQuery != "compare revenue of a and b" {
		t.Errorf("expected enhanced query in multi-step search, got %q", f.retriever.lastQuery)
	}
}

func TestAsk_NoSources(t *testing.T) {
	f := newFixture()
	f.retriever.results = nil

	resp, err := f.svc.Ask(context.Background(), "q", domain.QueryContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != noSourcesAnswer {
		t.Errorf("expected the no-sources answer, got %q", resp.Answer)
	}
	if resp.Strategy != domain.StrategyFailed {
		t.Errorf("expected failed strategy, got %q", resp.Strategy)
	}
	if f.gen.calls != 0 {
		t.Error("expected no generation without sources")
	}
	if f.cache.storeCalls != 0 {
		t.Error("expected empty response to never be cached")
	}
}

func TestAsk_AnalyzerErrorPropagates(t *testing.T) {
	f := newFixture()
	f.analyzer.err = domain.ErrEmptyQuestion

	if _, err := f.svc.Ask(context.Background(), "", domain.QueryContext{}); !errors.Is(err, domain.ErrEmptyQuestion) {
		t.Errorf("expected ErrEmptyQuestion, got %v", err)
	}
}

func TestAsk_GenerationErrorPropagates(t *testing.T) {
	f := newFixture()
	f.gen.err = errors.New("gateway down")

	if _, err := f.svc.Ask(context.Background(), "q", domain.QueryContext{}); err == nil {
		t.Error("expected generation error to propagate")
	}
	if f.cache.storeCalls != 0 {
		t.Error("expected nothing cached on generation failure")
	}
}

func TestAsk_LowQualityNotCached(t *testing.T) {
	f := newFixture()
	f.evaluator.shouldCache = false

	resp, err := f.svc.Ask(context.Background(), "q", domain.QueryContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer == "" {
		t.Error("expected an answer even when not cacheable")
	}
	if f.cache.storeCalls != 0 {
		t.Errorf("expected no cache write, got %d", f.cache.storeCalls)
	}
}

func TestAsk_ResponseTags(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.Ask(context.Background(), "q", domain.QueryContext{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"category:factual", "complexity:simple", "quality:high"}
	if len(f.cache.lastTags) != len(want) {
		t.Fatalf("expected %d tags, got %v", len(want), f.cache.lastTags)
	}
	for i := range want {
		if f.cache.lastTags[i] != want[i] {
			t.Errorf("tag %d: expected %q, got %q", i, want[i], f.cache.lastTags[i])
		}
	}
}

func TestQualityBucket(t *testing.T) {
	tests := []struct {
		overall float64
		want    string
	}{
		{0.9, "high"},
		{0.8, "high"},
		{0.6, "medium"},
		{0.5, "medium"},
		{0.3, "low"},
	}
	for _, tt := range tests {
		if got := qualityBucket(tt.overall); got != tt.want {
			t.Errorf("qualityBucket(%v): expected %q, got %q", tt.overall, tt.want, got)
		}
	}
}

func TestAskStream_AccumulatesFragments(t *testing.T) {
	f := newFixture()
	f.gen.fragments = []string{"the ", "answer ", "[1]"}

	var streamed strings.Builder
	resp, err := f.svc.AskStream(context.Background(), "q", domain.QueryContext{},
		func(frag string) error {
			streamed.WriteString(frag)
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if streamed.String() != "the answer [1]" {
		t.Errorf("expected all fragments delivered, got %q", streamed.String())
	}
	if resp.Answer != "the answer [1]" {
		t.Errorf("expected assembled answer in response, got %q", resp.Answer)
	}
	if f.cache.storeCalls != 1 {
		t.Errorf("expected completed stream to be cached, got %d stores", f.cache.storeCalls)
	}
}

func TestAskStream_PartialAnswerNeverCached(t *testing.T) {
	f := newFixture()
	f.gen.fragments = []string{"partial "}
	f.gen.streamErr = errors.New("connection reset")

	_, err := f.svc.AskStream(context.Background(), "q", domain.QueryContext{},
		func(string) error { return nil })
	if err == nil {
		t.Fatal("expected stream error to propagate")
	}
	if f.cache.storeCalls != 0 {
		t.Error("expected partial answer to stay out of the cache")
	}
	if f.evaluator.calls != 0 {
		t.Error("expected partial answer to skip evaluation")
	}
}

func TestAskStream_CacheHitIsSingleFragment(t *testing.T) {
	f := newFixture()
	f.cache.responses["q"] = domain.QueryResponse{Question: "q", Answer: "cached answer"}

	var fragments []string
	resp, err := f.svc.AskStream(context.Background(), "q", domain.QueryContext{},
		func(frag string) error {
			fragments = append(fragments, frag)
			return nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.CacheHit {
		t.Error("expected cache hit")
	}
	if len(fragments) != 1 || fragments[0] != "cached answer" {
		t.Errorf("expected one fragment with the whole answer, got %v", fragments)
	}
	if f.gen.calls != 0 {
		t.Error("expected no gateway call on cache hit")
	}
}

func TestAskStream_ConsumerAbortStopsStream(t *testing.T) {
	f := newFixture()
	f.gen.fragments = []string{"a", "b", "c"}

	delivered := 0
	_, err := f.svc.AskStream(context.Background(), "q", domain.QueryContext{},
		func(string) error {
			delivered++
			if delivered == 2 {
				return errors.New("client gone")
			}
			return nil
		})
	if err == nil {
		t.Fatal("expected consumer error to abort the stream")
	}
	if delivered != 2 {
		t.Errorf("expected delivery to stop at 2 fragments, got %d", delivered)
	}
	if f.cache.storeCalls != 0 {
		t.Error("expected aborted stream not to be cached")
	}
}
