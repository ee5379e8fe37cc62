// Package chi is the HTTP transport: JSON request/response handling over
// a chi router, mapping domain sentinel errors to status codes.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	analyzeruc "github.com/hasti304/ai-pdf-rag/internal/usecase/analyzer"
	cachemgruc "github.com/hasti304/ai-pdf-rag/internal/usecase/cachemgr"
	clustereruc "github.com/hasti304/ai-pdf-rag/internal/usecase/clusterer"
	evaluatoruc "github.com/hasti304/ai-pdf-rag/internal/usecase/evaluator"
	"github.com/hasti304/ai-pdf-rag/internal/usecase/health"
	ingestuc "github.com/hasti304/ai-pdf-rag/internal/usecase/ingest"
	qauc "github.com/hasti304/ai-pdf-rag/internal/usecase/qa"
	retrieveruc "github.com/hasti304/ai-pdf-rag/internal/usecase/retriever"
	summarizeruc "github.com/hasti304/ai-pdf-rag/internal/usecase/summarizer"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// HealthChecker produces the health report for /healthz.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Server is the HTTP API server.
type Server struct {
	qa         *qauc.Service
	analyzer   *analyzeruc.Service
	retriever  *retrieveruc.Service
	ingest     *ingestuc.Service
	clusterer  *clustereruc.Service
	summarizer *summarizeruc.Service
	evaluator  *evaluatoruc.Service
	cache      *cachemgruc.Manager
	health     HealthChecker
	logger     *zap.Logger

	maxTopK       int
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	qa *qauc.Service,
	analyzer *analyzeruc.Service,
	retriever *retrieveruc.Service,
	ingest *ingestuc.Service,
	clusterer *clustereruc.Service,
	summarizer *summarizeruc.Service,
	evaluator *evaluatoruc.Service,
	cache *cachemgruc.Manager,
	health HealthChecker,
	maxTopK int,
	logger *zap.Logger,
) *Server {
	if maxTopK <= 0 {
		maxTopK = 20
	}
	s := &Server{
		qa:         qa,
		analyzer:   analyzer,
		retriever:  retriever,
		ingest:     ingest,
		clusterer:  clusterer,
		summarizer: summarizer,
		evaluator:  evaluator,
		cache:      cache,
		health:     health,
		logger:     logger,
		maxTopK:    maxTopK,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"),
		sentinelHandler(domain.ErrEmptyBatch, http.StatusBadRequest, "empty_batch"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"),
		sentinelHandler(domain.ErrContentTooShort, http.StatusBadRequest, "content_too_short"),
		sentinelHandler(domain.ErrChunkNotFound, http.StatusNotFound, "chunk_not_found"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrNotEnoughDocuments, http.StatusUnprocessableEntity, "not_enough_documents"),
		sentinelHandler(domain.ErrGatewayUnavailable, http.StatusBadGateway, "gateway_unavailable"),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/query", s.handleQuery)
	r.Post("/api/query/stream", s.handleQueryStream)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Post("/api/search", s.handleSearch)
	r.Post("/api/search/multistep", s.handleMultiStepSearch)
	r.Get("/api/search/metrics", s.handleSearchMetrics)
	r.Post("/api/ingest", s.handleIngest)
	r.Delete("/api/documents/{id}", s.handleDeleteDocument)
	r.Post("/api/clusters/run", s.handleRunClustering)
	r.Get("/api/clusters", s.handleListClusters)
	r.Get("/api/documents/{id}/similar", s.handleSimilar)
	r.Get("/api/documents/{id}/recommendations", s.handleRecommendations)
	r.Post("/api/summarize", s.handleSummarize)
	r.Post("/api/summarize/batch", s.handleSummarizeBatch)
	r.Post("/api/feedback", s.handleFeedback)
	r.Get("/api/cache/stats", s.handleCacheStats)
	r.Post("/api/cache/invalidate", s.handleInvalidate)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.qa.Ask(r.Context(), req.Question, req.queryContext())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponseToDTO(resp))
}

// handleQueryStream streams answer fragments as server-sent events. Each
// fragment is a "data:" event; the final event is named "done" and carries
// the full response metadata. Client disconnection cancels generation and
// the partial answer is discarded.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	resp, err := s.qa.AskStream(r.Context(), req.Question, req.queryContext(), func(frag string) error {
		data, mErr := json.Marshal(map[string]string{"delta": frag})
		if mErr != nil {
			return mErr
		}
		if _, wErr := fmt.Fprintf(w, "data: %s\n\n", data); wErr != nil {
			return wErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already sent; the best we can do is an error event.
		s.logger.Warn("Streamed answer aborted", zap.Error(err))
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", sseError(err))
		flusher.Flush()
		return
	}

	data, err := json.Marshal(queryResponseToDTO(resp))
	if err != nil {
		s.logger.Error("Failed to marshal stream summary", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), req.Question, req.queryContext())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisToDTO(analysis))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, false)
}

func (s *Server) handleMultiStepSearch(w http.ResponseWriter, r *http.Request) {
	s.search(w, r, true)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, multiStep bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	qctx := domain.QueryContext{SessionID: req.SessionID, PriorQuestions: req.PriorQuestions}
	analysis, err := s.analyzer.Analyze(r.Context(), req.Query, qctx)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	k := req.TopK
	if k <= 0 {
		k = 5
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}

	var (
		results []domain.SearchResult
		m       domain.SearchMetrics
	)
	if multiStep {
		results, m = s.retriever.MultiStepSearch(r.Context(), req.Query, &analysis, k)
	} else {
		results, m = s.retriever.HybridSearch(r.Context(), req.Query, &analysis, k)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: searchResultsToDTO(results),
		Metrics: searchMetricsToDTO(m),
	})
}

func (s *Server) handleSearchMetrics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query parameter is required")
		return
	}
	m, ok := s.retriever.GetSearchMetrics(query)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no recent metrics for this query")
		return
	}
	writeJSON(w, http.StatusOK, searchMetricsToDTO(m))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	stored, err := s.ingest.Ingest(r.Context(), req.domainChunks())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"ingested": stored})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.ingest.DeleteDocument(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleRunClustering(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	m, err := s.clusterer.PerformClustering(r.Context(), force)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clusteringMetricsToDTO(m))
}

func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	clusters := s.clusterer.Clusters()
	items := make([]clusterDTO, len(clusters))
	for i, c := range clusters {
		items[i] = clusterToDTO(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": items})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 0)
	threshold := queryFloat(r, "threshold", 0)

	docs, err := s.clusterer.FindSimilar(id, limit, threshold)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"similar": similarDocumentsToDTO(docs)})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 0)

	rec, err := s.clusterer.Recommendations(id, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recommendationsDTO{
		ByContent:   similarDocumentsToDTO(rec.ByContent),
		ByTopics:    similarDocumentsToDTO(rec.ByTopics),
		ByCluster:   similarDocumentsToDTO(rec.ByCluster),
		Explanation: rec.Explanation,
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "document_id is required")
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), domain.SummaryRequest{
		DocumentID:   req.DocumentID,
		Filename:     req.Filename,
		Content:      req.Content,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentSummaryToDTO(summary))
}

// handleSummarizeBatch summarizes several documents in one call. Failures
// are reported per document; the batch itself always returns 200.
func (s *Server) handleSummarizeBatch(w http.ResponseWriter, r *http.Request) {
	var req summarizeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "documents is required")
		return
	}

	reqs := make([]domain.SummaryRequest, len(req.Documents))
	for i, d := range req.Documents {
		reqs[i] = domain.SummaryRequest{
			DocumentID:   d.DocumentID,
			Filename:     d.Filename,
			Content:      d.Content,
			ChunkSize:    d.ChunkSize,
			ChunkOverlap: d.ChunkOverlap,
		}
	}

	summaries, errs := s.summarizer.SummarizeBatch(r.Context(), reqs)

	items := make([]summarizeBatchItem, len(summaries))
	for i := range summaries {
		items[i] = summarizeBatchItem{DocumentID: reqs[i].DocumentID}
		if errs[i] != nil {
			items[i].Error = safeDomainMessage(errs[i])
			continue
		}
		summary := documentSummaryToDTO(summaries[i])
		items[i].Summary = &summary
	}
	writeJSON(w, http.StatusOK, summarizeBatchResponse{Documents: items})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.EvaluationID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "evaluation_id is required")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "validation_failed", "rating must be between 1 and 5")
		return
	}

	err := s.evaluator.AttachFeedback(req.EvaluationID, domain.UserFeedback{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := s.cache.GetStats()
	writeJSON(w, http.StatusOK, cacheStatsDTO{
		ResponseEntries:  stats.ResponseEntries,
		EmbeddingEntries: stats.EmbeddingEntries,
		MemoryUsedBytes:  stats.MemoryUsedBytes,
		MemoryMaxBytes:   stats.MemoryMaxBytes,
		QualityTrend:     string(s.evaluator.Trend()),
	})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Tags) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "tags is required")
		return
	}
	removed := s.cache.InvalidateByTags(req.Tags)
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": removed})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if !report.Healthy() {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func sseError(err error) []byte {
	data, mErr := json.Marshal(errorResponse{Code: "stream_aborted", Message: safeDomainMessage(err)})
	if mErr != nil {
		return []byte(`{"code":"stream_aborted"}`)
	}
	return data
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuestion,
		domain.ErrEmptyBatch,
		domain.ErrVectorDimMismatch,
		domain.ErrContentTooShort,
		domain.ErrChunkNotFound,
		domain.ErrNotFound,
		domain.ErrNotEnoughDocuments,
		domain.ErrGatewayUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
