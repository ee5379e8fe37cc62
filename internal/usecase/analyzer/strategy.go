package analyzer

import "github.com/hasti304/ai-pdf-rag/internal/domain"

// DetermineStrategy maps an analysis to a search strategy. Pure function;
// the decision order matters and is fixed.
func DetermineStrategy(a domain.QueryAnalysis) domain.Strategy {
	switch {
	case a.RequiresMultipleDocs:
		return domain.StrategyMultiStep
	case a.Complexity == domain.ComplexityComplex:
		return domain.StrategyHybrid
	case a.Category == domain.CategoryFactual && a.Complexity == domain.ComplexitySimple:
		return domain.StrategyKeyword
	case a.Category == domain.CategoryConceptual:
		return domain.StrategySemantic
	default:
		return domain.StrategyHybrid
	}
}

// Weights returns the semantic/keyword blend for a question category.
func Weights(category domain.Category) domain.SearchWeights {
	switch category {
	case domain.CategoryFactual:
		return domain.SearchWeights{Semantic: 0.4, Keyword: 0.6}
	case domain.CategoryConceptual:
		return domain.SearchWeights{Semantic: 0.8, Keyword: 0.2}
	case domain.CategoryAnalytical:
		return domain.SearchWeights{Semantic: 0.6, Keyword: 0.4}
	case domain.CategoryComparative:
		return domain.SearchWeights{Semantic: 0.7, Keyword: 0.3}
	case domain.CategoryProcedural:
		return domain.SearchWeights{Semantic: 0.5, Keyword: 0.5}
	default:
		return domain.SearchWeights{Semantic: 0.7, Keyword: 0.3}
	}
}
