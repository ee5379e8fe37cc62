package analyzer

import (
	"testing"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// TestDetermineStrategy walks every category x complexity combination,
// with and without the multiple-documents flag.
func TestDetermineStrategy(t *testing.T) {
	categories := []domain.Category{
		domain.CategoryFactual,
		domain.CategoryConceptual,
		domain.CategoryAnalytical,
		domain.CategoryComparative,
		domain.CategoryProcedural,
	}
	complexities := []domain.Complexity{
		domain.ComplexitySimple,
		domain.ComplexityModerate,
		domain.ComplexityComplex,
	}

	// Single-document expectations. Only factual+simple and
	// non-complex conceptual escape the hybrid default.
	singleDoc := map[domain.Category]map[domain.Complexity]domain.Strategy{
		domain.CategoryFactual: {
			domain.ComplexitySimple:   domain.StrategyKeyword,
			domain.ComplexityModerate: domain.StrategyHybrid,
			domain.ComplexityComplex:  domain.StrategyHybrid,
		},
		domain.CategoryConceptual: {
			domain.ComplexitySimple:   domain.StrategySemantic,
			domain.ComplexityModerate: domain.StrategySemantic,
			domain.ComplexityComplex:  domain.StrategyHybrid,
		},
		domain.CategoryAnalytical: {
			domain.ComplexitySimple:   domain.StrategyHybrid,
			domain.ComplexityModerate: domain.StrategyHybrid,
			domain.ComplexityComplex:  domain.StrategyHybrid,
		},
		domain.CategoryComparative: {
			domain.ComplexitySimple:   domain.StrategyHybrid,
			domain.ComplexityModerate: domain.StrategyHybrid,
			domain.ComplexityComplex:  domain.StrategyHybrid,
		},
		domain.CategoryProcedural: {
			domain.ComplexitySimple:   domain.StrategyHybrid,
			domain.ComplexityModerate: domain.StrategyHybrid,
			domain.ComplexityComplex:  domain.StrategyHybrid,
		},
	}

	for _, cat := range categories {
		for _, cpx := range complexities {
			t.Run(string(cat)+"/"+string(cpx), func(t *testing.T) {
				got := DetermineStrategy(domain.QueryAnalysis{
					Category:   cat,
					Complexity: cpx,
				})
				if want := singleDoc[cat][cpx]; got != want {
					t.Errorf("expected %q, got %q", want, got)
				}
			})

			// The multiple-documents flag overrides every other signal.
			t.Run(string(cat)+"/"+string(cpx)+"/multi", func(t *testing.T) {
				got := DetermineStrategy(domain.QueryAnalysis{
					Category:             cat,
					Complexity:           cpx,
					RequiresMultipleDocs: true,
				})
				if got != domain.StrategyMultiStep {
					t.Errorf("expected %q, got %q", domain.StrategyMultiStep, got)
				}
			})
		}
	}
}

func TestWeights(t *testing.T) {
	tests := []struct {
		category domain.Category
		want     domain.SearchWeights
	}{
		{domain.CategoryFactual, domain.SearchWeights{Semantic: 0.4, Keyword: 0.6}},
		{domain.CategoryConceptual, domain.SearchWeights{Semantic: 0.8, Keyword: 0.2}},
		{domain.CategoryAnalytical, domain.SearchWeights{Semantic: 0.6, Keyword: 0.4}},
		{domain.CategoryComparative, domain.SearchWeights{Semantic: 0.7, Keyword: 0.3}},
		{domain.CategoryProcedural, domain.SearchWeights{Semantic: 0.5, Keyword: 0.5}},
		{domain.Category("unknown"), domain.SearchWeights{Semantic: 0.7, Keyword: 0.3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := Weights(tt.category); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
