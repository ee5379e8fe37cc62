// Package qa orchestrates the full question-answering pipeline:
// cache lookup, analysis, retrieval, generation, evaluation, and the
// conditional write back into the response cache.
package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

const noSourcesAnswer = "I could not find any relevant documents for this question. " +
	"Try rephrasing it or uploading documents that cover the topic."

// Service answers questions over the ingested documents.
type Service struct {
	analyzer  Analyzer
	retriever Retriever
	gen       Generator
	evaluator Evaluator
	cache     ResponseCache
	logger    *zap.Logger

	topK int
}

// New creates a question-answering service.
func New(
	analyzer Analyzer, retriever Retriever, gen Generator,
	evaluator Evaluator, cache ResponseCache, topK int, logger *zap.Logger,
) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		analyzer:  analyzer,
		retriever: retriever,
		gen:       gen,
		evaluator: evaluator,
		cache:     cache,
		logger:    logger,
		topK:      topK,
	}
}

// Ask answers one question. Identical questions (modulo case and
// surrounding whitespace) are served from the response cache.
func (s *Service) Ask(
	ctx context.Context, question string, qctx domain.QueryContext,
) (domain.QueryResponse, error) {
	if cached, ok := s.cache.GetResponse(question); ok {
		cached.CacheHit = true
		return cached, nil
	}

	start := time.Now()

	analysis, sources, err := s.prepare(ctx, question, qctx)
	if err != nil {
		return domain.QueryResponse{}, err
	}

	if len(sources) == 0 {
		return s.emptyResponse(question, analysis, start), nil
	}

	answer, err := s.gen.Generate(ctx, answerPrompt(question, sources))
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("generate answer: %w", err)
	}

	return s.finish(ctx, question, answer, sources, analysis, start), nil
}

// AskStream answers one question while streaming answer fragments to
// onFragment. A cancelled stream yields a partial answer that is never
// evaluated or cached. Cache hits deliver the full cached answer as a
// single fragment.
func (s *Service) AskStream(
	ctx context.Context, question string, qctx domain.QueryContext,
	onFragment func(fragment string) error,
) (domain.QueryResponse, error) {
	if cached, ok := s.cache.GetResponse(question); ok {
		cached.CacheHit = true
		if err := onFragment(cached.Answer); err != nil {
			return domain.QueryResponse{}, err
		}
		return cached, nil
	}

	start := time.Now()

	analysis, sources, err := s.prepare(ctx, question, qctx)
	if err != nil {
		return domain.QueryResponse{}, err
	}

	if len(sources) == 0 {
		resp := s.emptyResponse(question, analysis, start)
		if err := onFragment(resp.Answer); err != nil {
			return domain.QueryResponse{}, err
		}
		return resp, nil
	}

	var answer strings.Builder
	streamErr := s.gen.GenerateStream(ctx, answerPrompt(question, sources), func(frag string) error {
		answer.WriteString(frag)
		return onFragment(frag)
	})
	if streamErr != nil {
		// Whatever was streamed so far is partial; it must not enter
		// the cache or the evaluation history.
		return domain.QueryResponse{}, fmt.Errorf("stream answer: %w", streamErr)
	}

	return s.finish(ctx, question, answer.String(), sources, analysis, start), nil
}

// prepare runs analysis and retrieval. Analysis degrades internally; the
// only hard error is an empty question.
func (s *Service) prepare(
	ctx context.Context, question string, qctx domain.QueryContext,
) (domain.QueryAnalysis, []domain.SearchResult, error) {
	analysis, err := s.analyzer.Analyze(ctx, question, qctx)
	if err != nil {
		return domain.QueryAnalysis{}, nil, err
	}

	var sources []domain.SearchResult
	if analysis.RequiresMultipleDocs {
		// Multi-document questions get a recall-oriented rewrite before
		// the widened search; enhancement degrades to the original query.
		query, _ := s.analyzer.Enhance(ctx, question, analysis)
		sources, _ = s.retriever.MultiStepSearch(ctx, query, &analysis, s.topK)
	} else {
		sources, _ = s.retriever.HybridSearch(ctx, question, &analysis, s.topK)
	}
	return analysis, sources, nil
}

// finish evaluates the completed answer and caches it when warranted.
func (s *Service) finish(
	ctx context.Context, question, answer string,
	sources []domain.SearchResult, analysis domain.QueryAnalysis, start time.Time,
) domain.QueryResponse {
	elapsed := time.Since(start)

	eval, shouldCache := s.evaluator.Evaluate(
		ctx, question, answer, sources, analysis, elapsed, false)

	resp := domain.QueryResponse{
		Question:       question,
		Answer:         answer,
		Sources:        sources,
		Analysis:       analysis,
		Quality:        eval.Score,
		Strategy:       strategyOf(sources, analysis),
		EvaluationID:   eval.ID,
		ProcessingTime: elapsed,
		CacheHit:       false,
	}

	if shouldCache {
		s.cache.StoreResponse(question, resp, eval.Score.Overall, elapsed, responseTags(analysis, eval.Score))
	} else {
		s.logger.Debug("Answer not cached",
			zap.Float64("quality", eval.Score.Overall),
			zap.Duration("processing_time", elapsed))
	}
	return resp
}

// emptyResponse is the terminal path when retrieval found nothing, even
// after its internal fallbacks. It is never cached.
func (s *Service) emptyResponse(
	question string, analysis domain.QueryAnalysis, start time.Time,
) domain.QueryResponse {
	s.logger.Info("No sources found for question",
		zap.String("category", string(analysis.Category)))
	return domain.QueryResponse{
		Question:       question,
		Answer:         noSourcesAnswer,
		Sources:        []domain.SearchResult{},
		Analysis:       analysis,
		Strategy:       domain.StrategyFailed,
		ProcessingTime: time.Since(start),
	}
}

func strategyOf(sources []domain.SearchResult, analysis domain.QueryAnalysis) domain.Strategy {
	if len(sources) > 0 {
		return sources[0].SearchMethod
	}
	if analysis.RequiresMultipleDocs {
		return domain.StrategyMultiStep
	}
	return domain.StrategyHybrid
}

// responseTags lets later invalidation target entries by what kind of
// question they answered and how good the answer was.
func responseTags(analysis domain.QueryAnalysis, score domain.QualityScore) []string {
	return []string{
		"category:" + string(analysis.Category),
		"complexity:" + string(analysis.Complexity),
		"quality:" + qualityBucket(score.Overall),
	}
}

func qualityBucket(overall float64) string {
	switch {
	case overall >= 0.8:
		return "high"
	case overall >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

func answerPrompt(question string, sources []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("Answer the question using ONLY the provided document excerpts. ")
	b.WriteString("Cite excerpts by number like [1]. If the excerpts do not contain ")
	b.WriteString("the answer, say so.\n\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "[%d] (from %s)\n%s\n\n", i+1, src.Filename, src.Content)
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
