package domain

import "time"

// QueryResponse is one answered question, the unit stored in the
// response cache and returned to the HTTP layer. EvaluationID refers to
// the quality evaluation of this answer and is the handle for attaching
// user feedback.
type QueryResponse struct {
	Question       string
	Answer         string
	Sources        []SearchResult
	Analysis       QueryAnalysis
	Quality        QualityScore
	Strategy       Strategy
	EvaluationID   string
	ProcessingTime time.Duration
	CacheHit       bool
}
