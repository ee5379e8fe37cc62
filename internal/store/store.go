// Package store defines the persistence contracts for the document store.
// Consumers depend on the narrow sub-interfaces (ISP).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// ErrKeyNotFound signals a missing key in the KV store.
var ErrKeyNotFound = errors.New("key not found")

// SearchRequest is the single backend call retrieval issues: embedding +
// keyword string + chosen strategy + k, with the weights the blend must use.
type SearchRequest struct {
	Embedding []float32
	Keywords  string
	Strategy  domain.Strategy
	TopK      int
	Weights   domain.SearchWeights
}

// ChunkStore persists document chunks and executes scored searches.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []domain.DocumentChunk) error
	Get(ctx context.Context, id string) (domain.DocumentChunk, error)
	List(ctx context.Context) ([]domain.DocumentChunk, error)
	Count(ctx context.Context) (int, error)
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	Search(ctx context.Context, req SearchRequest) ([]domain.SearchResult, error)
}

// KVStore provides simple key-value operations for best-effort persistence
// of clusters, evaluations, summaries and per-chunk topic metadata.
type KVStore interface {
	KVGet(ctx context.Context, key string) ([]byte, error)
	KVSet(ctx context.Context, key string, value []byte) error
	KVSetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	KVDel(ctx context.Context, key string) error
	KVScan(ctx context.Context, pattern string) ([]string, error)
}

// Store is the full facade combining all sub-interfaces.
type Store interface {
	ChunkStore
	KVStore
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
