// Package retriever executes hybrid retrieval. It sits on the hot path of
// every question, so it never returns an error: failures degrade to a
// pure-semantic fallback and finally to an empty result set.
package retriever

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/metrics"
	"github.com/hasti304/ai-pdf-rag/internal/store"
	"github.com/hasti304/ai-pdf-rag/internal/usecase/analyzer"
)

const maxExtraKeywords = 3

// multiStepWeights is what multi-step retrieval always reports, regardless
// of the query category.
var multiStepWeights = domain.SearchWeights{Semantic: 0.6, Keyword: 0.4}

var defaultWeights = domain.SearchWeights{Semantic: 0.7, Keyword: 0.3}

// Service is the hybrid retriever.
type Service struct {
	embed  Embedder
	search Searcher
	ring   *metricsRing
	logger *zap.Logger
}

// New creates a hybrid retriever.
func New(embed Embedder, search Searcher, logger *zap.Logger) *Service {
	return &Service{
		embed:  embed,
		search: search,
		ring:   newMetricsRing(metricsRingCapacity),
		logger: logger,
	}
}

// HybridSearch retrieves chunks for a query using the strategy the analysis
// selects. analysis may be nil; the strategy then defaults to hybrid.
func (s *Service) HybridSearch(
	ctx context.Context, query string, analysis *domain.QueryAnalysis, k int,
) ([]domain.SearchResult, domain.SearchMetrics) {
	strategy := domain.StrategyHybrid
	weights := defaultWeights
	if analysis != nil {
		strategy = analyzer.DetermineStrategy(*analysis)
		weights = analyzer.Weights(analysis.Category)
	}
	return s.run(ctx, query, analysis, k, strategy, weights)
}

// MultiStepSearch forces the multi-step strategy, used when the analyzer
// flags that a question likely needs synthesis across documents.
func (s *Service) MultiStepSearch(
	ctx context.Context, query string, analysis *domain.QueryAnalysis, k int,
) ([]domain.SearchResult, domain.SearchMetrics) {
	return s.run(ctx, query, analysis, k, domain.StrategyMultiStep, multiStepWeights)
}

// GetSearchMetrics returns cached metrics for a recent query.
func (s *Service) GetSearchMetrics(query string) (domain.SearchMetrics, bool) {
	return s.ring.get(query)
}

func (s *Service) run(
	ctx context.Context, query string, analysis *domain.QueryAnalysis, k int,
	strategy domain.Strategy, weights domain.SearchWeights,
) ([]domain.SearchResult, domain.SearchMetrics) {
	start := time.Now()

	keywords, optimized := buildKeywordString(query, analysis)

	req := store.SearchRequest{
		Keywords: keywords,
		Strategy: strategy,
		TopK:     k,
		Weights:  weights,
	}

	embResult, embErr := s.embed.Embed(ctx, query)
	if embErr != nil {
		s.logger.Warn("Query embedding failed", zap.Error(embErr))
	} else {
		req.Embedding = embResult.Embedding
	}

	var results []domain.SearchResult
	var err error
	if embErr == nil {
		results, err = s.search.Search(ctx, req)
	} else {
		err = embErr
	}

	if err != nil {
		s.logger.Warn("Search failed, falling back to pure-semantic",
			zap.String("strategy", string(strategy)), zap.Error(err))
		results, strategy, weights = s.semanticFallback(ctx, req)
	}

	m := domain.SearchMetrics{
		TotalResults:   len(results),
		SearchTime:     time.Since(start),
		Strategy:       strategy,
		Weights:        weights,
		QueryOptimized: optimized,
	}
	s.ring.put(query, m)

	status := "success"
	if strategy == domain.StrategyFailed {
		status = "failed"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(m.Strategy), status).Inc()
	metrics.SearchDuration.WithLabelValues(string(m.Strategy)).Observe(m.SearchTime.Seconds())

	return results, m
}

// semanticFallback retries with a pure-semantic search; if that also fails
// the result set is empty and tagged failed rather than raising.
func (s *Service) semanticFallback(
	ctx context.Context, req store.SearchRequest,
) ([]domain.SearchResult, domain.Strategy, domain.SearchWeights) {
	if len(req.Embedding) > 0 {
		fallbackReq := req
		fallbackReq.Strategy = domain.StrategySemantic
		fallbackReq.Weights = domain.SearchWeights{Semantic: 1}
		results, err := s.search.Search(ctx, fallbackReq)
		if err == nil {
			return results, domain.StrategySemantic, fallbackReq.Weights
		}
		s.logger.Error("Semantic fallback search failed", zap.Error(err))
	}
	return []domain.SearchResult{}, domain.StrategyFailed, domain.SearchWeights{}
}

// buildKeywordString combines the original query with up to three analysis
// keywords it does not already contain, punctuation stripped. The second
// return reports whether optimization changed the string.
func buildKeywordString(query string, analysis *domain.QueryAnalysis) (string, bool) {
	base := stripPunctuation(query)
	if analysis == nil || len(analysis.Keywords) == 0 {
		return base, false
	}

	lower := strings.ToLower(base)
	added := 0
	parts := []string{base}
	for _, kw := range analysis.Keywords {
		if added == maxExtraKeywords {
			break
		}
		clean := stripPunctuation(kw)
		if clean == "" || strings.Contains(lower, strings.ToLower(clean)) {
			continue
		}
		parts = append(parts, clean)
		lower += " " + strings.ToLower(clean)
		added++
	}
	return strings.Join(parts, " "), added > 0
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '\t':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
