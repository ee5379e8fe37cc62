package domain

import "time"

// DocumentCluster is a named group of chunks around a centroid. The whole
// cluster set is recomputed and replaced atomically on each run, never
// patched incrementally.
type DocumentCluster struct {
	ID           string
	Name         string
	Description  string
	Centroid     []float32
	MemberIDs    []string
	Size         int
	Coherence    float64
	SharedTopics []string
}

// ClusteringMetrics summarizes one clustering run.
type ClusteringMetrics struct {
	DocumentCount int
	ClusterCount  int
	Iterations    int
	Converged     bool
	AvgCoherence  float64
	Duration      time.Duration
	RanAt         time.Time
}

// SimilarDocument is one similarity-query result.
type SimilarDocument struct {
	ChunkID    string
	Content    string
	Filename   string
	Similarity float64
	Reason     string
}

// Recommendations bundles the three independent recommendation paths
// plus a natural-language explanation of which ones contributed.
type Recommendations struct {
	ByContent   []SimilarDocument
	ByTopics    []SimilarDocument
	ByCluster   []SimilarDocument
	Explanation string
}

// ChunkTopics is the cached per-chunk topic metadata extracted by the
// generation gateway.
type ChunkTopics struct {
	ChunkID  string   `json:"chunk_id"`
	Topics   []string `json:"topics"`
	Keywords []string `json:"keywords"`
	Summary  string   `json:"summary"`
}
