// Package summarizer builds hierarchical document summaries with a
// map-reduce pipeline: summarize chunks independently, then synthesize
// the important ones into a document-level summary.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/llmjson"
)

const (
	// Chunks below this importance are left out of the reduce phase.
	importanceThreshold = 0.7

	fallbackSummaryLen = 200
	readingWPM         = 200

	summaryKeyPrefix = "summary:"
)

// Config tunes the map-reduce split and batch pacing.
type Config struct {
	ChunkSize        int
	ChunkOverlap     int
	MinContentLength int
	BatchSize        int
	BatchPause       time.Duration
}

// Service is the document summarizer.
type Service struct {
	gen    Generator
	kv     KV
	cfg    Config
	logger *zap.Logger
}

// New creates a document summarizer.
func New(gen Generator, kv KV, cfg Config, logger *zap.Logger) *Service {
	return &Service{gen: gen, kv: kv, cfg: cfg, logger: logger}
}

// Summarize produces a hierarchical summary of one document. Documents
// shorter than the configured minimum are rejected with
// domain.ErrContentTooShort.
func (s *Service) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.DocumentSummary, error) {
	if len(req.Content) < s.cfg.MinContentLength {
		return domain.DocumentSummary{}, fmt.Errorf(
			"document %s has %d characters, need at least %d: %w",
			req.DocumentID, len(req.Content), s.cfg.MinContentLength,
			domain.ErrContentTooShort,
		)
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.cfg.ChunkSize
	}
	overlap := req.ChunkOverlap
	if overlap <= 0 {
		overlap = s.cfg.ChunkOverlap
	}
	if overlap >= chunkSize {
		// The requested window is smaller than the overlap; shrink the
		// overlap so windows keep advancing through the text.
		overlap = chunkSize / 4
	}

	pieces := splitOverlapping(req.Content, chunkSize, overlap)

	chunkSummaries := make([]domain.ChunkSummary, len(pieces))
	for i, piece := range pieces {
		chunkSummaries[i] = s.summarizeChunk(ctx, i, piece)
	}

	doc, err := s.synthesize(ctx, req, chunkSummaries)
	if err != nil {
		return domain.DocumentSummary{}, err
	}

	s.persist(ctx, doc)
	return doc, nil
}

// persist writes the summary to the KV store. The in-memory result is
// authoritative; a failed write only logs.
func (s *Service) persist(ctx context.Context, doc domain.DocumentSummary) {
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.kv.KVSet(ctx, summaryKeyPrefix+doc.DocumentID, data); err != nil {
		s.logger.Warn("Failed to persist document summary",
			zap.String("document_id", doc.DocumentID), zap.Error(err))
	}
}

// SummarizeBatch summarizes several documents in small groups with a
// fixed pause between groups. A failed document does not abort the
// batch; its slot in the result is left zero-valued with the error
// recorded in errs.
func (s *Service) SummarizeBatch(
	ctx context.Context, reqs []domain.SummaryRequest,
) ([]domain.DocumentSummary, []error) {
	summaries := make([]domain.DocumentSummary, len(reqs))
	errs := make([]error, len(reqs))

	for start := 0; start < len(reqs); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		for i := start; i < end; i++ {
			summary, err := s.Summarize(ctx, reqs[i])
			if err != nil {
				s.logger.Warn("Document summarization failed",
					zap.String("document_id", reqs[i].DocumentID),
					zap.Error(err))
				errs[i] = err
				continue
			}
			summaries[i] = summary
		}

		if end < len(reqs) {
			select {
			case <-ctx.Done():
				for i := end; i < len(reqs); i++ {
					errs[i] = ctx.Err()
				}
				return summaries, errs
			case <-time.After(s.cfg.BatchPause):
			}
		}
	}
	return summaries, errs
}

// summarizeChunk is the map phase for one chunk. Gateway failure degrades
// to a truncated-text summary with neutral importance, keeping the
// pipeline going.
func (s *Service) summarizeChunk(ctx context.Context, index int, text string) domain.ChunkSummary {
	fallback := domain.ChunkSummary{
		Index:      index,
		Summary:    truncate(text, fallbackSummaryLen),
		Importance: 0.5,
	}

	raw, err := s.gen.Generate(ctx, chunkPrompt(text))
	if err != nil {
		s.logger.Warn("Chunk summarization failed, using text excerpt",
			zap.Int("chunk_index", index), zap.Error(err))
		return fallback
	}

	var parsed struct {
		Summary    string   `json:"summary"`
		Importance *float64 `json:"importance"`
		Topics     []string `json:"topics"`
	}
	if err := llmjson.Decode(raw, &parsed); err != nil {
		s.logger.Warn("Chunk summary output unparseable, using text excerpt",
			zap.Int("chunk_index", index), zap.Error(err))
		return fallback
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return fallback
	}

	importance := 0.5
	if parsed.Importance != nil {
		importance = llmjson.Clamp01(*parsed.Importance, 0.5)
	}
	return domain.ChunkSummary{
		Index:      index,
		Summary:    parsed.Summary,
		Importance: importance,
		Topics:     parsed.Topics,
	}
}

// synthesize is the reduce phase: every section summary goes into the
// prompt, with the high-importance ones flagged as key sections. If no
// chunk passes the importance bar, all of them are flagged.
func (s *Service) synthesize(
	ctx context.Context, req domain.SummaryRequest, chunks []domain.ChunkSummary,
) (domain.DocumentSummary, error) {
	important := make([]domain.ChunkSummary, 0, len(chunks))
	for _, c := range chunks {
		if c.Importance >= importanceThreshold {
			important = append(important, c)
		}
	}
	if len(important) == 0 {
		important = chunks
	}

	doc := domain.DocumentSummary{
		DocumentID:     req.DocumentID,
		ChunkSummaries: chunks,
		ReadingTimeMin: readingTimeMinutes(req.Content),
	}

	raw, err := s.gen.Generate(ctx, synthesisPrompt(req.Filename, chunks, important))
	if err != nil {
		return domain.DocumentSummary{}, fmt.Errorf("synthesize summary for %s: %w", req.DocumentID, err)
	}

	var parsed struct {
		Summary    string   `json:"summary"`
		KeyPoints  []string `json:"key_points"`
		Topics     []string `json:"topics"`
		Confidence *float64 `json:"confidence"`
	}
	if err := llmjson.Decode(raw, &parsed); err != nil {
		return domain.DocumentSummary{}, fmt.Errorf("parse summary for %s: %w", req.DocumentID, err)
	}

	doc.Summary = parsed.Summary
	doc.KeyPoints = parsed.KeyPoints
	doc.Topics = parsed.Topics
	doc.Confidence = 0.5
	if parsed.Confidence != nil {
		doc.Confidence = llmjson.Clamp01(*parsed.Confidence, 0.5)
	}
	if len(req.Content) > 0 {
		// Fraction of the original text the summary occupies.
		doc.CompressionRatio = float64(len(doc.Summary)) / float64(len(req.Content))
	}
	return doc, nil
}

// splitOverlapping cuts text into fixed-size windows where each window
// starts overlap characters before the previous one ended.
func splitOverlapping(text string, size, overlap int) []string {
	if len(text) <= size {
		return []string{text}
	}
	step := size - overlap
	var out []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])
	}
	return out
}

func readingTimeMinutes(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + readingWPM - 1) / readingWPM
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

func chunkPrompt(text string) string {
	return fmt.Sprintf(
		"Summarize this document section. Respond with ONLY a JSON object: "+
			`{"summary": "...", "importance": 0.0, "topics": ["..."]}`+
			" where importance is between 0 and 1.\n\nText:\n%s",
		text,
	)
}

func synthesisPrompt(filename string, all, important []domain.ChunkSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Combine these section summaries of %q into one document summary. ", filename)
	b.WriteString("Respond with ONLY a JSON object: ")
	b.WriteString(`{"summary": "...", "key_points": ["..."], "topics": ["..."], "confidence": 0.0}`)
	b.WriteString("\n\nSection summaries:\n")
	for _, c := range all {
		fmt.Fprintf(&b, "[%d] %s\n", c.Index+1, c.Summary)
	}
	b.WriteString("\nKey sections:")
	for _, c := range important {
		fmt.Fprintf(&b, " [%d]", c.Index+1)
	}
	b.WriteString("\n")
	return b.String()
}
