package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrChunkNotFound signals a missing document chunk.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrGatewayUnavailable signals an embedding/generation provider failure.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrVectorDimMismatch signals an embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrContentTooShort signals document content below the minimum length.
	ErrContentTooShort = errors.New("content too short")
	// ErrEmptyBatch signals an ingestion batch with no chunks.
	ErrEmptyBatch = errors.New("empty batch")
	// ErrNotEnoughDocuments signals too few documents for clustering.
	ErrNotEnoughDocuments = errors.New("not enough documents")
	// ErrEmptyQuestion signals a blank question string.
	ErrEmptyQuestion = errors.New("empty question")
)
