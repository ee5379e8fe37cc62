// Package analyzer classifies natural-language questions and decides how
// to search for them.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/llmjson"
)

// Service is the query analyzer.
type Service struct {
	gen    Generator
	cache  *analysisCache
	logger *zap.Logger
}

// New creates a query analyzer.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{
		gen:    gen,
		cache:  newAnalysisCache(analysisCacheCapacity),
		logger: logger,
	}
}

// Analyze classifies a question into category/complexity/intent metadata.
// Gateway or parse failures degrade to a deterministic fallback analysis;
// only an empty question is rejected.
func (s *Service) Analyze(
	ctx context.Context, question string, qctx domain.QueryContext,
) (domain.QueryAnalysis, error) {
	if strings.TrimSpace(question) == "" {
		return domain.QueryAnalysis{}, domain.ErrEmptyQuestion
	}

	key := cacheKey(question, qctx)
	if a, ok := s.cache.get(key); ok {
		return a, nil
	}

	a := s.classify(ctx, question, qctx)
	s.cache.put(key, a)
	return a, nil
}

// Enhance asks the gateway to rewrite the query for better recall. On any
// failure the original query comes back unchanged with a strategy derived
// purely from the decision table.
func (s *Service) Enhance(
	ctx context.Context, original string, a domain.QueryAnalysis,
) (string, domain.Strategy) {
	strategy := DetermineStrategy(a)

	raw, err := s.gen.Generate(ctx, enhancePrompt(original, a))
	if err != nil {
		s.logger.Warn("Query enhancement failed, using original query", zap.Error(err))
		return original, strategy
	}

	var parsed struct {
		OptimizedQuery string `json:"optimized_query"`
	}
	if err := llmjson.Decode(raw, &parsed); err != nil || strings.TrimSpace(parsed.OptimizedQuery) == "" {
		s.logger.Warn("Query enhancement returned unusable output", zap.Error(err))
		return original, strategy
	}

	return parsed.OptimizedQuery, strategy
}

func (s *Service) classify(
	ctx context.Context, question string, qctx domain.QueryContext,
) domain.QueryAnalysis {
	raw, err := s.gen.Generate(ctx, classifyPrompt(question, qctx))
	if err != nil {
		s.logger.Warn("Query classification failed, using fallback analysis", zap.Error(err))
		return FallbackAnalysis(question)
	}

	var parsed struct {
		Category             string   `json:"category"`
		Complexity           string   `json:"complexity"`
		Confidence           *float64 `json:"confidence"`
		Keywords             []string `json:"keywords"`
		RequiresMultipleDocs bool     `json:"requires_multiple_docs"`
		SuggestedFollowUps   []string `json:"suggested_followups"`
		Domain               string   `json:"domain"`
		EstimatedLatencyMs   int      `json:"estimated_latency_ms"`
	}
	if err := llmjson.Decode(raw, &parsed); err != nil {
		s.logger.Warn("Query classification output unparseable, using fallback analysis",
			zap.Error(err))
		return FallbackAnalysis(question)
	}

	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = llmjson.Clamp01(*parsed.Confidence, 0.5)
	}

	keywords := parsed.Keywords
	if len(keywords) == 0 {
		keywords = ExtractKeywords(question)
	}

	latency := parsed.EstimatedLatencyMs
	if latency < 0 {
		latency = 0
	}

	return domain.QueryAnalysis{
		Category:             parseCategory(parsed.Category),
		Complexity:           parseComplexity(parsed.Complexity),
		Confidence:           confidence,
		Keywords:             keywords,
		RequiresMultipleDocs: parsed.RequiresMultipleDocs,
		SuggestedFollowUps:   parsed.SuggestedFollowUps,
		Domain:               parsed.Domain,
		EstimatedLatencyMs:   latency,
	}
}

// FallbackAnalysis is the deterministic analysis used when the gateway
// fails or returns unusable output.
func FallbackAnalysis(question string) domain.QueryAnalysis {
	return domain.QueryAnalysis{
		Category:   domain.CategoryFactual,
		Complexity: domain.ComplexityModerate,
		Confidence: 0.7,
		Keywords:   ExtractKeywords(question),
	}
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "who": {}, "did": {}, "get": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "does": {}, "have": {}, "will": {}, "about": {},
	"there": {}, "their": {}, "would": {}, "could": {}, "should": {},
}

// ExtractKeywords tokenizes a question keeping words longer than three
// characters that are not stop words.
func ExtractKeywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})

	seen := make(map[string]struct{})
	var keywords []string
	for _, w := range fields {
		if len(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}
	return keywords
}

func parseCategory(s string) domain.Category {
	switch domain.Category(strings.ToLower(strings.TrimSpace(s))) {
	case domain.CategoryFactual, domain.CategoryAnalytical, domain.CategoryComparative,
		domain.CategoryProcedural, domain.CategoryConceptual:
		return domain.Category(strings.ToLower(strings.TrimSpace(s)))
	default:
		return domain.CategoryFactual
	}
}

func parseComplexity(s string) domain.Complexity {
	switch domain.Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case domain.ComplexitySimple, domain.ComplexityModerate, domain.ComplexityComplex:
		return domain.Complexity(strings.ToLower(strings.TrimSpace(s)))
	default:
		return domain.ComplexityModerate
	}
}

func classifyPrompt(question string, qctx domain.QueryContext) string {
	var b strings.Builder
	b.WriteString("Classify the following question for a document Q&A system.\n")
	b.WriteString("Respond with ONLY a JSON object with these fields:\n")
	b.WriteString(`{"category": "factual|analytical|comparative|procedural|conceptual", ` +
		`"complexity": "simple|moderate|complex", "confidence": 0.0-1.0, ` +
		`"keywords": [...], "requires_multiple_docs": true|false, ` +
		`"suggested_followups": [...], "domain": "...", "estimated_latency_ms": 0}` + "\n\n")
	if len(qctx.PriorQuestions) > 0 {
		b.WriteString("Earlier questions in this session:\n")
		for _, q := range qctx.PriorQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	if qctx.UserExpertise != "" {
		fmt.Fprintf(&b, "User expertise: %s\n", qctx.UserExpertise)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

func enhancePrompt(original string, a domain.QueryAnalysis) string {
	return fmt.Sprintf(
		"Rewrite this search query to improve recall against a document index. "+
			"Keep the meaning, expand abbreviations, add synonyms for key terms. "+
			"The question is %s/%s. Respond with ONLY a JSON object: "+
			`{"optimized_query": "..."}`+"\n\nQuery: %s",
		a.Category, a.Complexity, original,
	)
}
