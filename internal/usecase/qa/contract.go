package qa

import (
	"context"
	"time"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// Analyzer classifies questions before retrieval and rewrites them for
// better recall.
type Analyzer interface {
	Analyze(ctx context.Context, question string, qctx domain.QueryContext) (domain.QueryAnalysis, error)
	Enhance(ctx context.Context, original string, analysis domain.QueryAnalysis) (string, domain.Strategy)
}

// Retriever fetches scored chunks for a question.
type Retriever interface {
	HybridSearch(ctx context.Context, query string, analysis *domain.QueryAnalysis, k int) ([]domain.SearchResult, domain.SearchMetrics)
	MultiStepSearch(ctx context.Context, query string, analysis *domain.QueryAnalysis, k int) ([]domain.SearchResult, domain.SearchMetrics)
}

// Generator produces the answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onFragment func(fragment string) error) error
}

// Evaluator judges finished answers and decides cache-worthiness.
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer string, sources []domain.SearchResult,
		analysis domain.QueryAnalysis, processingTime time.Duration, cacheHit bool,
	) (domain.ResponseEvaluation, bool)
}

// ResponseCache stores evaluated answers.
type ResponseCache interface {
	GetResponse(query string) (domain.QueryResponse, bool)
	StoreResponse(query string, resp domain.QueryResponse, quality float64, responseTime time.Duration, tags []string)
}
