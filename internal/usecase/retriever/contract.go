package retriever

import (
	"context"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/store"
)

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher executes one scored search against the document store.
type Searcher interface {
	Search(ctx context.Context, req store.SearchRequest) ([]domain.SearchResult, error)
}
