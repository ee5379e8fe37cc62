package domain

import "time"

// QualityScore holds the seven independently-scored quality dimensions
// plus the evaluator's confidence. All values are clamped to [0,1].
type QualityScore struct {
	Overall           float64
	Relevance         float64
	Accuracy          float64
	Completeness      float64
	Clarity           float64
	Coherence         float64
	SourceUtilization float64
	Confidence        float64
}

// UserFeedback is attached to an evaluation asynchronously, after the fact.
type UserFeedback struct {
	Rating  int // 1-5 stars
	Comment string
}

// ResponseEvaluation records one Q&A exchange's quality judgment.
type ResponseEvaluation struct {
	ID             string
	Question       string
	Answer         string
	Sources        []SearchResult
	Analysis       QueryAnalysis
	Score          QualityScore
	ProcessingTime time.Duration
	CacheHit       bool
	Feedback       *UserFeedback
	CreatedAt      time.Time
}

// QualityTrend compares recent evaluation quality against the prior window.
type QualityTrend string

// Trend directions.
const (
	TrendImproving QualityTrend = "improving"
	TrendDeclining QualityTrend = "declining"
	TrendStable    QualityTrend = "stable"
)
