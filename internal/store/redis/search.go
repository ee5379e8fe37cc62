package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/store"
)

var chunkReturnFields = []string{"doc_id", "idx", "content", "filename", "uploaded_at"}

// Search executes one retrieval call. The relevance score each result
// carries is exactly the score the ranking was produced with.
func (s *Store) Search(ctx context.Context, req store.SearchRequest) ([]domain.SearchResult, error) {
	if req.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	switch req.Strategy {
	case domain.StrategySemantic:
		return s.searchKNN(ctx, req.Embedding, req.TopK)
	case domain.StrategyKeyword:
		return s.searchBM25(ctx, req.Keywords, req.TopK)
	case domain.StrategyHybrid:
		return s.searchBlended(ctx, req, req.TopK)
	case domain.StrategyMultiStep:
		// Widened candidate pool re-ranked with a per-document cap so
		// the result set spans documents.
		blended, err := s.searchBlended(ctx, req, req.TopK*2)
		if err != nil {
			return nil, err
		}
		return diversify(blended, req.TopK), nil
	default:
		return nil, fmt.Errorf("unsupported search strategy: %s", req.Strategy)
	}
}

// searchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) searchKNN(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}

	args := []string{
		s.indexName(),
		fmt.Sprintf("*=>[KNN %d @vector $BLOB]", k),
		"RETURN", strconv.Itoa(len(chunkReturnFields) + 1),
	}
	args = append(args, chunkReturnFields...)
	args = append(args, "__vector_score",
		"SORTBY", "__vector_score",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	results := parseEntries(raw, 2, func(fields map[string]string) (float64, bool) {
		scoreStr, ok := fields["__vector_score"]
		if !ok {
			return 0, false
		}
		dist, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return 0, false
		}
		// cosine distance -> similarity, clamped to [0,1]
		return max(0, 1.0-dist), true
	})

	out := make([]domain.SearchResult, len(results))
	for i, r := range results {
		out[i] = s.resultFromEntry(r, domain.StrategySemantic)
		out[i].SemanticScore = r.score
	}
	return out, nil
}

// searchBM25 runs a BM25 text search via FT.SEARCH. Scores are normalized
// to [0,1] by the best score in the list.
func (s *Store) searchBM25(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	args := []string{
		s.indexName(),
		fmt.Sprintf("@content:(%s)", escapeQuery(query)),
		"RETURN", strconv.Itoa(len(chunkReturnFields)),
	}
	args = append(args, chunkReturnFields...)
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("search bm25: %w", err)
	}

	entries := parseScoredEntries(raw)

	var maxScore float64
	for _, e := range entries {
		if e.score > maxScore {
			maxScore = e.score
		}
	}

	out := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		norm := 0.0
		if maxScore > 0 {
			norm = e.score / maxScore
		}
		e.score = norm
		out[i] = s.resultFromEntry(e, domain.StrategyKeyword)
		out[i].KeywordScore = norm
	}
	return out, nil
}

// searchBlended runs KNN and BM25 and merges the two lists with the
// requested semantic/keyword weights. A chunk missing from one list
// contributes zero for that component.
func (s *Store) searchBlended(
	ctx context.Context, req store.SearchRequest, k int,
) ([]domain.SearchResult, error) {
	knn, err := s.searchKNN(ctx, req.Embedding, k)
	if err != nil {
		return nil, err
	}

	keywords := req.Keywords
	var bm25 []domain.SearchResult
	if strings.TrimSpace(keywords) != "" {
		bm25, err = s.searchBM25(ctx, keywords, k)
		if err != nil {
			return nil, err
		}
	}

	merged := make(map[string]*domain.SearchResult, len(knn)+len(bm25))
	for i := range knn {
		r := knn[i]
		merged[r.ChunkID] = &r
	}
	for i := range bm25 {
		b := bm25[i]
		if existing, ok := merged[b.ChunkID]; ok {
			existing.KeywordScore = b.KeywordScore
		} else {
			merged[b.ChunkID] = &b
		}
	}

	out := make([]domain.SearchResult, 0, len(merged))
	for _, r := range merged {
		r.RelevanceScore = req.Weights.Semantic*r.SemanticScore + req.Weights.Keyword*r.KeywordScore
		r.SearchMethod = req.Strategy
		out = append(out, *r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// diversify caps results per document so multi-step answers draw on
// several documents, preserving blended-score order otherwise.
func diversify(results []domain.SearchResult, k int) []domain.SearchResult {
	if k <= 0 {
		return nil
	}
	perDoc := (k + 1) / 2
	counts := make(map[string]int)
	out := make([]domain.SearchResult, 0, k)

	for _, r := range results {
		if counts[r.DocumentID] >= perDoc {
			continue
		}
		counts[r.DocumentID]++
		out = append(out, r)
		if len(out) == k {
			return out
		}
	}

	// Backfill from skipped results if the cap left slots open.
	for _, r := range results {
		if len(out) == k {
			break
		}
		if !containsChunk(out, r.ChunkID) {
			out = append(out, r)
		}
	}
	return out
}

func containsChunk(results []domain.SearchResult, id string) bool {
	for _, r := range results {
		if r.ChunkID == id {
			return true
		}
	}
	return false
}

// --- Result parsing ---

type searchEntry struct {
	key    string
	score  float64
	fields map[string]string
}

// parseEntries walks a 2-stride FT.SEARCH reply: [total, key1, fields1, ...].
func parseEntries(
	raw []rueidis.RedisMessage, stride int, scoreOf func(map[string]string) (float64, bool),
) []searchEntry {
	if len(raw) == 0 {
		return nil
	}
	total, err := raw[0].AsInt64()
	if err != nil || total == 0 {
		return nil
	}

	entries := make([]searchEntry, 0, total)
	for i := 1; i+stride-1 < len(raw); i += stride {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fieldArr, err := raw[i+stride-1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldArr)
		entry := searchEntry{key: key, fields: fields}
		if score, ok := scoreOf(fields); ok {
			entry.score = score
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseScoredEntries walks a 3-stride WITHSCORES reply:
// [total, key1, score1, fields1, ...].
func parseScoredEntries(raw []rueidis.RedisMessage) []searchEntry {
	if len(raw) == 0 {
		return nil
	}
	total, err := raw[0].AsInt64()
	if err != nil || total == 0 {
		return nil
	}

	entries := make([]searchEntry, 0, total)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fieldArr, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, searchEntry{
			key:    key,
			score:  score,
			fields: parseFieldPairs(fieldArr),
		})
	}
	return entries
}

func parseFieldPairs(arr []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		name, err := arr[i].ToString()
		if err != nil {
			continue
		}
		val, err := arr[i+1].ToString()
		if err != nil {
			continue
		}
		fields[name] = val
	}
	return fields
}

func (s *Store) resultFromEntry(e searchEntry, strategy domain.Strategy) domain.SearchResult {
	id := strings.TrimPrefix(e.key, s.chunkKeyPrefix())
	chunk := s.chunkFromFields(id, e.fields)
	return domain.SearchResult{
		ChunkID:        chunk.ID,
		DocumentID:     chunk.DocumentID,
		Content:        chunk.Content,
		Filename:       chunk.Filename,
		ChunkIndex:     chunk.Index,
		UploadedAt:     chunk.UploadedAt,
		RelevanceScore: e.score,
		SearchMethod:   strategy,
	}
}

// escapeQuery escapes FT.SEARCH special characters in user text.
func escapeQuery(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		switch r {
		case ',', '.', '<', '>', '{', '}', '[', ']', '"', '\'', ':', ';',
			'!', '@', '#', '$', '%', '^', '&', '*', '(', ')', '-', '+',
			'=', '~', '?', '/', '\\', '|':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
