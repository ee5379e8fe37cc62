package domain

import "time"

// DocumentChunk is an immutable unit of indexed text with its embedding.
// Created during ingestion, never mutated, deleted only by cascading
// document deletion.
type DocumentChunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
	Filename   string
	UploadedAt time.Time
}

// EmbeddingResult holds a vector and the token usage of the call that
// produced it. Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
