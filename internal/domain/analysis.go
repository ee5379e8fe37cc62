package domain

// Category classifies what kind of answer a question asks for.
type Category string

// Question categories.
const (
	CategoryFactual     Category = "factual"
	CategoryAnalytical  Category = "analytical"
	CategoryComparative Category = "comparative"
	CategoryProcedural  Category = "procedural"
	CategoryConceptual  Category = "conceptual"
)

// Complexity grades how much work a question needs.
type Complexity string

// Question complexities.
const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Strategy selects how a query is matched against the document store.
type Strategy string

// Search strategies.
const (
	StrategySemantic  Strategy = "semantic"
	StrategyKeyword   Strategy = "keyword"
	StrategyHybrid    Strategy = "hybrid"
	StrategyMultiStep Strategy = "multi_step"
	// StrategyFailed tags an empty result set produced after all
	// fallbacks were exhausted.
	StrategyFailed Strategy = "failed"
)

// QueryAnalysis is the ephemeral classification of one question.
type QueryAnalysis struct {
	Category             Category
	Complexity           Complexity
	Confidence           float64
	Keywords             []string
	RequiresMultipleDocs bool
	SuggestedFollowUps   []string
	Domain               string
	EstimatedLatencyMs   int
}

// QueryContext carries per-session hints into query analysis.
type QueryContext struct {
	SessionID      string
	PriorQuestions []string
	UserExpertise  string
}

// SearchWeights is the semantic/keyword blend for one query.
type SearchWeights struct {
	Semantic float64
	Keyword  float64
}
