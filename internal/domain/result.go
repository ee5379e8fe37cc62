package domain

import "time"

// SearchResult is one scored chunk returned from retrieval.
// RelevanceScore is always the score that produced the ranking order,
// never recomputed after the fact.
type SearchResult struct {
	ChunkID        string
	DocumentID     string
	Content        string
	Filename       string
	ChunkIndex     int
	UploadedAt     time.Time
	RelevanceScore float64
	SearchMethod   Strategy
	SemanticScore  float64
	KeywordScore   float64
}

// SearchMetrics describes one retrieval call for later introspection.
type SearchMetrics struct {
	TotalResults     int
	SearchTime       time.Duration
	Strategy         Strategy
	Weights          SearchWeights
	QueryOptimized   bool
}
