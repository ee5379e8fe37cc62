package chi

import (
	"time"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type queryRequest struct {
	Question       string   `json:"question"`
	SessionID      string   `json:"session_id,omitempty"`
	PriorQuestions []string `json:"prior_questions,omitempty"`
	UserExpertise  string   `json:"user_expertise,omitempty"`
}

func (r queryRequest) queryContext() domain.QueryContext {
	return domain.QueryContext{
		SessionID:      r.SessionID,
		PriorQuestions: r.PriorQuestions,
		UserExpertise:  r.UserExpertise,
	}
}

type analysisDTO struct {
	Category             string   `json:"category"`
	Complexity           string   `json:"complexity"`
	Confidence           float64  `json:"confidence"`
	Keywords             []string `json:"keywords,omitempty"`
	RequiresMultipleDocs bool     `json:"requires_multiple_docs"`
	SuggestedFollowUps   []string `json:"suggested_followups,omitempty"`
	Domain               string   `json:"domain,omitempty"`
	EstimatedLatencyMs   int      `json:"estimated_latency_ms,omitempty"`
}

func analysisToDTO(a domain.QueryAnalysis) analysisDTO {
	return analysisDTO{
		Category:             string(a.Category),
		Complexity:           string(a.Complexity),
		Confidence:           a.Confidence,
		Keywords:             a.Keywords,
		RequiresMultipleDocs: a.RequiresMultipleDocs,
		SuggestedFollowUps:   a.SuggestedFollowUps,
		Domain:               a.Domain,
		EstimatedLatencyMs:   a.EstimatedLatencyMs,
	}
}

type searchResultDTO struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentID     string  `json:"document_id"`
	Content        string  `json:"content"`
	Filename       string  `json:"filename"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
	SearchMethod   string  `json:"search_method"`
	SemanticScore  float64 `json:"semantic_score"`
	KeywordScore   float64 `json:"keyword_score"`
}

func searchResultsToDTO(results []domain.SearchResult) []searchResultDTO {
	out := make([]searchResultDTO, len(results))
	for i, r := range results {
		out[i] = searchResultDTO{
			ChunkID:        r.ChunkID,
			DocumentID:     r.DocumentID,
			Content:        r.Content,
			Filename:       r.Filename,
			ChunkIndex:     r.ChunkIndex,
			RelevanceScore: r.RelevanceScore,
			SearchMethod:   string(r.SearchMethod),
			SemanticScore:  r.SemanticScore,
			KeywordScore:   r.KeywordScore,
		}
	}
	return out
}

type searchMetricsDTO struct {
	TotalResults   int     `json:"total_results"`
	SearchTimeMs   int64   `json:"search_time_ms"`
	Strategy       string  `json:"strategy"`
	SemanticWeight float64 `json:"semantic_weight"`
	KeywordWeight  float64 `json:"keyword_weight"`
	QueryOptimized bool    `json:"query_optimized"`
}

func searchMetricsToDTO(m domain.SearchMetrics) searchMetricsDTO {
	return searchMetricsDTO{
		TotalResults:   m.TotalResults,
		SearchTimeMs:   m.SearchTime.Milliseconds(),
		Strategy:       string(m.Strategy),
		SemanticWeight: m.Weights.Semantic,
		KeywordWeight:  m.Weights.Keyword,
		QueryOptimized: m.QueryOptimized,
	}
}

type qualityDTO struct {
	Overall           float64 `json:"overall"`
	Relevance         float64 `json:"relevance"`
	Accuracy          float64 `json:"accuracy"`
	Completeness      float64 `json:"completeness"`
	Clarity           float64 `json:"clarity"`
	Coherence         float64 `json:"coherence"`
	SourceUtilization float64 `json:"source_utilization"`
	Confidence        float64 `json:"confidence"`
}

func qualityToDTO(q domain.QualityScore) qualityDTO {
	return qualityDTO{
		Overall:           q.Overall,
		Relevance:         q.Relevance,
		Accuracy:          q.Accuracy,
		Completeness:      q.Completeness,
		Clarity:           q.Clarity,
		Coherence:         q.Coherence,
		SourceUtilization: q.SourceUtilization,
		Confidence:        q.Confidence,
	}
}

type queryResponseDTO struct {
	Question         string            `json:"question"`
	Answer           string            `json:"answer"`
	Sources          []searchResultDTO `json:"sources"`
	Analysis         analysisDTO       `json:"analysis"`
	Quality          qualityDTO        `json:"quality"`
	Strategy         string            `json:"strategy"`
	EvaluationID     string            `json:"evaluation_id,omitempty"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	CacheHit         bool              `json:"cache_hit"`
}

func queryResponseToDTO(r domain.QueryResponse) queryResponseDTO {
	return queryResponseDTO{
		Question:         r.Question,
		Answer:           r.Answer,
		Sources:          searchResultsToDTO(r.Sources),
		Analysis:         analysisToDTO(r.Analysis),
		Quality:          qualityToDTO(r.Quality),
		Strategy:         string(r.Strategy),
		EvaluationID:     r.EvaluationID,
		ProcessingTimeMs: r.ProcessingTime.Milliseconds(),
		CacheHit:         r.CacheHit,
	}
}

type searchRequest struct {
	Query          string   `json:"query"`
	SessionID      string   `json:"session_id,omitempty"`
	PriorQuestions []string `json:"prior_questions,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
}

type searchResponse struct {
	Results []searchResultDTO `json:"results"`
	Metrics searchMetricsDTO  `json:"metrics"`
}

type ingestChunkDTO struct {
	ID         string    `json:"id,omitempty"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Filename   string    `json:"filename"`
}

type ingestRequest struct {
	Chunks []ingestChunkDTO `json:"chunks"`
}

func (r ingestRequest) domainChunks() []domain.DocumentChunk {
	out := make([]domain.DocumentChunk, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = domain.DocumentChunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Index:      c.Index,
			Content:    c.Content,
			Embedding:  c.Embedding,
			Filename:   c.Filename,
		}
	}
	return out
}

type clusterDTO struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Size         int      `json:"size"`
	Coherence    float64  `json:"coherence"`
	SharedTopics []string `json:"shared_topics,omitempty"`
}

func clusterToDTO(c domain.DocumentCluster) clusterDTO {
	return clusterDTO{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		Size:         c.Size,
		Coherence:    c.Coherence,
		SharedTopics: c.SharedTopics,
	}
}

type clusteringMetricsDTO struct {
	DocumentCount int       `json:"document_count"`
	ClusterCount  int       `json:"cluster_count"`
	Iterations    int       `json:"iterations"`
	Converged     bool      `json:"converged"`
	AvgCoherence  float64   `json:"avg_coherence"`
	DurationMs    int64     `json:"duration_ms"`
	RanAt         time.Time `json:"ran_at"`
}

func clusteringMetricsToDTO(m domain.ClusteringMetrics) clusteringMetricsDTO {
	return clusteringMetricsDTO{
		DocumentCount: m.DocumentCount,
		ClusterCount:  m.ClusterCount,
		Iterations:    m.Iterations,
		Converged:     m.Converged,
		AvgCoherence:  m.AvgCoherence,
		DurationMs:    m.Duration.Milliseconds(),
		RanAt:         m.RanAt,
	}
}

type similarDocumentDTO struct {
	ChunkID    string  `json:"chunk_id"`
	Content    string  `json:"content"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
}

func similarDocumentsToDTO(docs []domain.SimilarDocument) []similarDocumentDTO {
	out := make([]similarDocumentDTO, len(docs))
	for i, d := range docs {
		out[i] = similarDocumentDTO{
			ChunkID:    d.ChunkID,
			Content:    d.Content,
			Filename:   d.Filename,
			Similarity: d.Similarity,
			Reason:     d.Reason,
		}
	}
	return out
}

type recommendationsDTO struct {
	ByContent   []similarDocumentDTO `json:"by_content"`
	ByTopics    []similarDocumentDTO `json:"by_topics"`
	ByCluster   []similarDocumentDTO `json:"by_cluster"`
	Explanation string               `json:"explanation"`
}

type summarizeRequest struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

type chunkSummaryDTO struct {
	Index      int      `json:"index"`
	Summary    string   `json:"summary"`
	Importance float64  `json:"importance"`
	Topics     []string `json:"topics,omitempty"`
}

type documentSummaryDTO struct {
	DocumentID       string            `json:"document_id"`
	Summary          string            `json:"summary"`
	KeyPoints        []string          `json:"key_points,omitempty"`
	Topics           []string          `json:"topics,omitempty"`
	Confidence       float64           `json:"confidence"`
	ChunkSummaries   []chunkSummaryDTO `json:"chunk_summaries"`
	CompressionRatio float64           `json:"compression_ratio"`
	ReadingTimeMin   int               `json:"reading_time_min"`
}

func documentSummaryToDTO(s domain.DocumentSummary) documentSummaryDTO {
	chunks := make([]chunkSummaryDTO, len(s.ChunkSummaries))
	for i, c := range s.ChunkSummaries {
		chunks[i] = chunkSummaryDTO{
			Index:      c.Index,
			Summary:    c.Summary,
			Importance: c.Importance,
			Topics:     c.Topics,
		}
	}
	return documentSummaryDTO{
		DocumentID:       s.DocumentID,
		Summary:          s.Summary,
		KeyPoints:        s.KeyPoints,
		Topics:           s.Topics,
		Confidence:       s.Confidence,
		ChunkSummaries:   chunks,
		CompressionRatio: s.CompressionRatio,
		ReadingTimeMin:   s.ReadingTimeMin,
	}
}

type summarizeBatchRequest struct {
	Documents []summarizeRequest `json:"documents"`
}

type summarizeBatchItem struct {
	DocumentID string              `json:"document_id"`
	Summary    *documentSummaryDTO `json:"summary,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type summarizeBatchResponse struct {
	Documents []summarizeBatchItem `json:"documents"`
}

type feedbackRequest struct {
	EvaluationID string `json:"evaluation_id"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment,omitempty"`
}

type cacheStatsDTO struct {
	ResponseEntries  int    `json:"response_entries"`
	EmbeddingEntries int    `json:"embedding_entries"`
	MemoryUsedBytes  int64  `json:"memory_used_bytes"`
	MemoryMaxBytes   int64  `json:"memory_max_bytes"`
	QualityTrend     string `json:"quality_trend"`
}

type invalidateRequest struct {
	Tags []string `json:"tags"`
}
