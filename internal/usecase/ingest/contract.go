package ingest

import (
	"context"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// Embedder vectorizes chunk content during backfill.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Clusterer is notified after the corpus changes.
type Clusterer interface {
	NotifyIngest()
}

// Invalidator drops cache entries whose tags match.
type Invalidator interface {
	InvalidateByTags(tags []string) int
}
