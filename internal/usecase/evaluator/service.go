// Package evaluator scores generated answers along multiple quality
// dimensions and decides whether they are worth caching.
package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/llmjson"
)

const (
	// Cache an answer when it is good, or when it was expensive to
	// produce regardless of quality.
	cacheQualityThreshold = 0.75
	cacheLatencyThreshold = 5000 * time.Millisecond

	// Trend windows compare the mean quality of the most recent
	// evaluations against the window before it.
	trendWindow    = 10
	trendMinWindow = 5
	trendBand      = 0.05

	answerKeyPrefixLen = 200
	evalKeyPrefix      = "eval:"
)

// Service is the response quality evaluator.
type Service struct {
	gen    Generator
	kv     KV
	logger *zap.Logger

	mu      sync.Mutex
	scored  map[string]domain.QualityScore // keyed by hash(question, answer prefix)
	history []float64                      // overall scores, oldest first
	byID    map[string]*domain.ResponseEvaluation
}

// New creates a response quality evaluator.
func New(gen Generator, kv KV, logger *zap.Logger) *Service {
	return &Service{
		gen:    gen,
		kv:     kv,
		logger: logger,
		scored: make(map[string]domain.QualityScore),
		byID:   make(map[string]*domain.ResponseEvaluation),
	}
}

// Evaluate scores one Q&A exchange. Gateway or parse failures yield a fixed
// fallback score rather than failing the request; the shouldCache decision
// is always produced.
func (s *Service) Evaluate(
	ctx context.Context,
	question, answer string,
	sources []domain.SearchResult,
	analysis domain.QueryAnalysis,
	processingTime time.Duration,
	cacheHit bool,
) (domain.ResponseEvaluation, bool) {
	score := s.scoreExchange(ctx, question, answer, sources)

	eval := domain.ResponseEvaluation{
		ID:             uuid.NewString(),
		Question:       question,
		Answer:         answer,
		Sources:        sources,
		Analysis:       analysis,
		Score:          score,
		ProcessingTime: processingTime,
		CacheHit:       cacheHit,
		CreatedAt:      time.Now(),
	}

	s.mu.Lock()
	s.history = append(s.history, score.Overall)
	if len(s.history) > 2*trendWindow {
		s.history = s.history[len(s.history)-2*trendWindow:]
	}
	s.byID[eval.ID] = &eval
	s.mu.Unlock()

	s.persist(ctx, eval)

	return eval, ShouldCacheResponse(score, processingTime)
}

// AttachFeedback records user feedback on a prior evaluation.
func (s *Service) AttachFeedback(id string, feedback domain.UserFeedback) error {
	if feedback.Rating < 1 || feedback.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", feedback.Rating)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eval, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	eval.Feedback = &feedback
	return nil
}

// ShouldCacheResponse is true iff the answer is high quality OR was slow to
// produce (slow answers are cached because recomputing them is expensive
// regardless of quality).
func ShouldCacheResponse(score domain.QualityScore, processingTime time.Duration) bool {
	return score.Overall >= cacheQualityThreshold || processingTime >= cacheLatencyThreshold
}

// Trend reports whether quality is improving, declining or stable by
// comparing the mean of the most recent window against the prior one.
func (s *Service) Trend() domain.QualityTrend {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.history)
	if n < 2*trendMinWindow {
		return domain.TrendStable
	}

	recentStart := n - trendWindow
	if recentStart < 0 {
		recentStart = 0
	}
	recent := s.history[recentStart:]
	prevStart := recentStart - trendWindow
	if prevStart < 0 {
		prevStart = 0
	}
	previous := s.history[prevStart:recentStart]
	if len(previous) < trendMinWindow || len(recent) < trendMinWindow {
		return domain.TrendStable
	}

	diff := mean(recent) - mean(previous)
	switch {
	case diff > trendBand:
		return domain.TrendImproving
	case diff < -trendBand:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

func (s *Service) scoreExchange(
	ctx context.Context, question, answer string, sources []domain.SearchResult,
) domain.QualityScore {
	key := scoreKey(question, answer)

	s.mu.Lock()
	if cached, ok := s.scored[key]; ok {
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	score := s.judge(ctx, question, answer, sources)

	s.mu.Lock()
	s.scored[key] = score
	s.mu.Unlock()
	return score
}

func (s *Service) judge(
	ctx context.Context, question, answer string, sources []domain.SearchResult,
) domain.QualityScore {
	raw, err := s.gen.Generate(ctx, rubricPrompt(question, answer, sources))
	if err != nil {
		s.logger.Warn("Quality evaluation failed, using fallback score", zap.Error(err))
		return FallbackScore()
	}

	var parsed struct {
		Overall           *float64 `json:"overall"`
		Relevance         *float64 `json:"relevance"`
		Accuracy          *float64 `json:"accuracy"`
		Completeness      *float64 `json:"completeness"`
		Clarity           *float64 `json:"clarity"`
		Coherence         *float64 `json:"coherence"`
		SourceUtilization *float64 `json:"source_utilization"`
		Confidence        *float64 `json:"confidence"`
	}
	if err := llmjson.Decode(raw, &parsed); err != nil {
		s.logger.Warn("Quality evaluation output unparseable, using fallback score",
			zap.Error(err))
		return FallbackScore()
	}

	return domain.QualityScore{
		Overall:           clampDim(parsed.Overall),
		Relevance:         clampDim(parsed.Relevance),
		Accuracy:          clampDim(parsed.Accuracy),
		Completeness:      clampDim(parsed.Completeness),
		Clarity:           clampDim(parsed.Clarity),
		Coherence:         clampDim(parsed.Coherence),
		SourceUtilization: clampDim(parsed.SourceUtilization),
		Confidence:        clampDim(parsed.Confidence),
	}
}

// FallbackScore is the fixed score used when the judge fails. Middling
// values with low confidence: good enough to keep the request flowing,
// honest about how little we know.
func FallbackScore() domain.QualityScore {
	return domain.QualityScore{
		Overall:           0.65,
		Relevance:         0.7,
		Accuracy:          0.6,
		Completeness:      0.6,
		Clarity:           0.7,
		Coherence:         0.7,
		SourceUtilization: 0.6,
		Confidence:        0.3,
	}
}

// clampDim bounds a model-reported dimension to [0,1]; a missing value
// defaults to 0.5.
func clampDim(v *float64) float64 {
	if v == nil {
		return 0.5
	}
	return llmjson.Clamp01(*v, 0.5)
}

func scoreKey(question, answer string) string {
	prefix := answer
	if len(prefix) > answerKeyPrefixLen {
		prefix = prefix[:answerKeyPrefixLen]
	}
	h := sha256.Sum256([]byte(question + "|" + prefix))
	return hex.EncodeToString(h[:])
}

func (s *Service) persist(ctx context.Context, eval domain.ResponseEvaluation) {
	data, err := json.Marshal(eval)
	if err != nil {
		s.logger.Warn("Failed to marshal evaluation", zap.Error(err))
		return
	}
	if err := s.kv.KVSet(ctx, evalKeyPrefix+eval.ID, data); err != nil {
		s.logger.Warn("Failed to persist evaluation",
			zap.String("evaluation_id", eval.ID), zap.Error(err))
	}
}

func rubricPrompt(question, answer string, sources []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString("Score this answer against the question and sources. ")
	b.WriteString("Respond with ONLY a JSON object, each value between 0 and 1:\n")
	b.WriteString(`{"overall": 0.0, "relevance": 0.0, "accuracy": 0.0, ` +
		`"completeness": 0.0, "clarity": 0.0, "coherence": 0.0, ` +
		`"source_utilization": 0.0, "confidence": 0.0}` + "\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nAnswer: %s\n", question, answer)
	if len(sources) > 0 {
		b.WriteString("\nSources:\n")
		for i, src := range sources {
			content := src.Content
			if len(content) > 300 {
				content = content[:300]
			}
			fmt.Fprintf(&b, "[%d] %s\n", i+1, content)
		}
	}
	return b.String()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
