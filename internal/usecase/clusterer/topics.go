package clusterer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/llmjson"
)

const topicContentLimit = 1500

// ensureTopics returns topic metadata for every chunk, asking the gateway
// only for chunks without a cached entry. Gateway calls run in small
// concurrent batches with a fixed pause between batches; the pacing is a
// rate-limit requirement of the provider, not a tunable nicety.
func (s *Service) ensureTopics(
	ctx context.Context, chunks []domain.DocumentChunk,
) map[string]domain.ChunkTopics {
	out := make(map[string]domain.ChunkTopics, len(chunks))
	var missing []domain.DocumentChunk

	for _, c := range chunks {
		if t, ok := s.cachedTopics(ctx, c.ID); ok {
			out[c.ID] = t
			continue
		}
		missing = append(missing, c)
	}

	for start := 0; start < len(missing); start += s.cfg.TopicBatchSize {
		end := start + s.cfg.TopicBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, c := range batch {
			wg.Add(1)
			go func(c domain.DocumentChunk) {
				defer wg.Done()
				t := s.extractTopics(ctx, c)
				mu.Lock()
				out[c.ID] = t
				mu.Unlock()
			}(c)
		}
		wg.Wait()

		if end < len(missing) {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(s.cfg.TopicBatchPause):
			}
		}
	}
	return out
}

func (s *Service) cachedTopics(ctx context.Context, chunkID string) (domain.ChunkTopics, bool) {
	data, err := s.kv.KVGet(ctx, topicKeyPrefix+chunkID)
	if err != nil {
		return domain.ChunkTopics{}, false
	}
	var t domain.ChunkTopics
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.ChunkTopics{}, false
	}
	return t, true
}

func (s *Service) extractTopics(ctx context.Context, c domain.DocumentChunk) domain.ChunkTopics {
	fallback := domain.ChunkTopics{ChunkID: c.ID}

	raw, err := s.gen.Generate(ctx, topicPrompt(c))
	if err != nil {
		s.logger.Warn("Topic extraction failed",
			zap.String("chunk_id", c.ID), zap.Error(err))
		return fallback
	}

	var parsed struct {
		Topics   []string `json:"topics"`
		Keywords []string `json:"keywords"`
		Summary  string   `json:"summary"`
	}
	if err := llmjson.Decode(raw, &parsed); err != nil {
		s.logger.Warn("Topic extraction output unparseable",
			zap.String("chunk_id", c.ID), zap.Error(err))
		return fallback
	}

	t := domain.ChunkTopics{
		ChunkID:  c.ID,
		Topics:   parsed.Topics,
		Keywords: parsed.Keywords,
		Summary:  parsed.Summary,
	}

	if data, err := json.Marshal(t); err == nil {
		if err := s.kv.KVSet(ctx, topicKeyPrefix+c.ID, data); err != nil {
			s.logger.Warn("Failed to cache chunk topics",
				zap.String("chunk_id", c.ID), zap.Error(err))
		}
	}
	return t
}

func topicPrompt(c domain.DocumentChunk) string {
	content := c.Content
	if len(content) > topicContentLimit {
		content = content[:topicContentLimit]
	}
	return fmt.Sprintf(
		"Extract topics from this document section. Respond with ONLY a JSON "+
			`object: {"topics": ["..."], "keywords": ["..."], "summary": "..."}`+
			" with at most 5 topics and a one-sentence summary.\n\nText:\n%s",
		content,
	)
}
