package domain

// SummaryRequest asks for a hierarchical summary of one document.
type SummaryRequest struct {
	DocumentID string
	Filename   string
	Content    string
	// ChunkSize and ChunkOverlap control the map phase split.
	// Zero values fall back to configured defaults.
	ChunkSize    int
	ChunkOverlap int
}

// ChunkSummary is the map-phase output for one chunk.
type ChunkSummary struct {
	Index      int
	Summary    string
	Importance float64
	Topics     []string
}

// DocumentSummary is the reduce-phase output for a whole document.
type DocumentSummary struct {
	DocumentID       string
	Summary          string
	KeyPoints        []string
	Topics           []string
	Confidence       float64
	ChunkSummaries   []ChunkSummary
	CompressionRatio float64
	ReadingTimeMin   int
}
