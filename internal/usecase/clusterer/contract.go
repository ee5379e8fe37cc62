package clusterer

import (
	"context"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// ChunkLister loads indexed chunks with their embeddings.
type ChunkLister interface {
	List(ctx context.Context) ([]domain.DocumentChunk, error)
}

// Generator produces completions for topic extraction.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// KV persists topic metadata and cluster snapshots best-effort.
type KV interface {
	KVGet(ctx context.Context, key string) ([]byte, error)
	KVSet(ctx context.Context, key string, value []byte) error
}
