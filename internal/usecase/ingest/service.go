// Package ingest brings document chunks into the store: validation,
// embedding backfill, upsert, and the downstream recluster notification.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/store"
)

// Service ingests document chunks.
type Service struct {
	chunks      store.ChunkStore
	embed       Embedder
	clusterer   Clusterer
	invalidator Invalidator
	dimensions  int
	logger      *zap.Logger
}

// New creates an ingest service. dimensions is the expected embedding
// width; pre-embedded chunks with a different width are rejected.
func New(
	chunks store.ChunkStore, embed Embedder, clusterer Clusterer,
	invalidator Invalidator, dimensions int, logger *zap.Logger,
) *Service {
	return &Service{
		chunks:      chunks,
		embed:       embed,
		clusterer:   clusterer,
		invalidator: invalidator,
		dimensions:  dimensions,
		logger:      logger,
	}
}

// Ingest validates, embeds and upserts a batch of chunks, then schedules a
// recluster. Chunks may arrive pre-embedded; the rest are embedded here.
// Returns the number of chunks stored.
func (s *Service) Ingest(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyBatch
	}

	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = uuid.NewString()
		}
		if chunks[i].UploadedAt.IsZero() {
			chunks[i].UploadedAt = time.Now()
		}
		if chunks[i].Content == "" {
			return 0, fmt.Errorf("chunk %s has empty content", chunks[i].ID)
		}
		if n := len(chunks[i].Embedding); n > 0 && n != s.dimensions {
			return 0, fmt.Errorf("chunk %s: embedding has %d dimensions, want %d: %w",
				chunks[i].ID, n, s.dimensions, domain.ErrVectorDimMismatch)
		}
	}

	embedded := 0
	for i := range chunks {
		if len(chunks[i].Embedding) > 0 {
			continue
		}
		result, err := s.embed.Embed(ctx, chunks[i].Content)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %s: %w", chunks[i].ID, err)
		}
		chunks[i].Embedding = result.Embedding
		embedded++
	}

	if err := s.chunks.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}

	s.logger.Info("Ingested document chunks",
		zap.Int("chunks", len(chunks)),
		zap.Int("embedded", embedded))

	s.clusterer.NotifyIngest()
	return len(chunks), nil
}

// DeleteDocument removes all chunks of one document and invalidates any
// cache entries tagged with it. A recluster is scheduled when something
// was actually removed.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	removed, err := s.chunks.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if removed == 0 {
		return 0, domain.ErrNotFound
	}

	invalidated := s.invalidator.InvalidateByTags([]string{"document:" + documentID})
	s.logger.Info("Deleted document",
		zap.String("document_id", documentID),
		zap.Int("chunks_removed", removed),
		zap.Int("cache_invalidated", invalidated))

	s.clusterer.NotifyIngest()
	return removed, nil
}
