// Package embcache decorates an embedder with the embedding cache, so
// repeated texts (hot queries, re-ingested chunks) skip the gateway.
package embcache

import (
	"context"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/usecase/cachemgr"
)

// Embedder is the upstream vectorizer being decorated.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Cached wraps an Embedder with read-through caching. Cached hits report
// zero token usage since no gateway call happened.
type Cached struct {
	upstream Embedder
	cache    *cachemgr.Manager
	logger   *zap.Logger
}

// New creates a caching embedder.
func New(upstream Embedder, cache *cachemgr.Manager, logger *zap.Logger) *Cached {
	return &Cached{upstream: upstream, cache: cache, logger: logger}
}

// Embed returns a cached vector when available, otherwise calls the
// upstream embedder and caches the result under the embedding tag.
func (c *Cached) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if vector, ok := c.cache.GetEmbedding(text); ok {
		return domain.EmbeddingResult{Embedding: vector}, nil
	}

	result, err := c.upstream.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	c.cache.StoreEmbedding(text, result.Embedding, []string{"embedding"})
	return result, nil
}
