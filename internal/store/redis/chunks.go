package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

// Upsert stores chunks as hashes with vector bytes, pipelined.
func (s *Store) Upsert(ctx context.Context, chunks []domain.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	multi := make([]rueidis.Completed, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != s.vectorDim {
			return fmt.Errorf("chunk %s: %w (got %d, want %d)",
				c.ID, domain.ErrVectorDimMismatch, len(c.Embedding), s.vectorDim)
		}
		b := s.b().Hset().Key(s.chunkKey(c.ID)).FieldValue().
			FieldValue("doc_id", c.DocumentID).
			FieldValue("idx", strconv.Itoa(c.Index)).
			FieldValue("content", c.Content).
			FieldValue("filename", c.Filename).
			FieldValue("uploaded_at", strconv.FormatInt(c.UploadedAt.Unix(), 10)).
			FieldValue("vector", vectorToBytes(c.Embedding))
		multi = append(multi, b.Build())
	}

	for _, resp := range s.client.DoMulti(ctx, multi...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
	}
	return nil
}

// Get loads one chunk by id.
func (s *Store) Get(ctx context.Context, id string) (domain.DocumentChunk, error) {
	cmd := s.b().Hgetall().Key(s.chunkKey(id)).Build()
	fields, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return domain.DocumentChunk{}, fmt.Errorf("get chunk %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.DocumentChunk{}, domain.ErrChunkNotFound
	}
	return s.chunkFromFields(id, fields), nil
}

// List loads every indexed chunk with its embedding. Corpora are small to
// moderate per tenant, so a full scan is acceptable here.
func (s *Store) List(ctx context.Context) ([]domain.DocumentChunk, error) {
	keys, err := s.scanKeys(ctx, s.chunkKeyPrefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}

	chunks := make([]domain.DocumentChunk, 0, len(keys))
	for _, key := range keys {
		cmd := s.b().Hgetall().Key(key).Build()
		fields, err := s.do(ctx, cmd).AsStrMap()
		if err != nil || len(fields) == 0 {
			continue
		}
		id := strings.TrimPrefix(key, s.chunkKeyPrefix())
		chunks = append(chunks, s.chunkFromFields(id, fields))
	}
	return chunks, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.indexName(), "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// DeleteDocument removes every chunk belonging to a document (cascading
// delete). Returns the number of chunks removed.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	keys, err := s.scanKeys(ctx, s.chunkKeyPrefix()+"*")
	if err != nil {
		return 0, fmt.Errorf("scan chunks: %w", err)
	}

	removed := 0
	for _, key := range keys {
		cmd := s.b().Hget().Key(key).Field("doc_id").Build()
		docID, err := s.do(ctx, cmd).ToString()
		if err != nil || docID != documentID {
			continue
		}
		if err := s.do(ctx, s.b().Del().Key(key).Build()).Error(); err != nil {
			return removed, fmt.Errorf("delete chunk %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(200).Build()
		entry, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, err
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *Store) chunkFromFields(id string, fields map[string]string) domain.DocumentChunk {
	idx, _ := strconv.Atoi(fields["idx"])
	uploadedAt, _ := strconv.ParseInt(fields["uploaded_at"], 10, 64)
	return domain.DocumentChunk{
		ID:         id,
		DocumentID: fields["doc_id"],
		Index:      idx,
		Content:    fields["content"],
		Embedding:  bytesToVector(fields["vector"]),
		Filename:   fields["filename"],
		UploadedAt: time.Unix(uploadedAt, 0).UTC(),
	}
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(data string) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	raw := []byte(data)
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
