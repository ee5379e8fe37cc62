// Package clusterer groups indexed chunks into topic clusters by iterative
// centroid refinement over their embeddings. The entire cluster set is
// recomputed and swapped atomically on each run; it is never patched.
package clusterer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/metrics"
)

const (
	defaultMinInterval = 6 * time.Hour
	// Terms must appear in at least this share of members to count as a
	// shared topic.
	sharedTopicRatio = 0.3
	maxSharedTopics  = 5

	clusterSnapshotKey = "clusters:snapshot"
	topicKeyPrefix     = "topics:"

	// Debounce for ingestion-triggered rebuilds.
	recomputeDebounce = 30 * time.Second
)

// Config holds clustering settings.
type Config struct {
	MinInterval     time.Duration
	TopicBatchSize  int
	TopicBatchPause time.Duration
}

// Option customizes a Service.
type Option func(*Service)

// WithSeed fixes the RNG seed so k-means runs are reproducible.
func WithSeed(seed int64) Option {
	return func(s *Service) { s.rng = rand.New(rand.NewSource(seed)) }
}

// Service is the document clustering engine.
type Service struct {
	chunks ChunkLister
	gen    Generator
	kv     KV
	cfg    Config
	logger *zap.Logger

	rng   *rand.Rand
	rngMu sync.Mutex

	mu           sync.RWMutex
	clusters     map[string]domain.DocumentCluster
	chunkCluster map[string]string // chunk id -> cluster id
	chunkByID    map[string]domain.DocumentChunk
	topicsByID   map[string]domain.ChunkTopics
	lastRun      time.Time
	lastMetrics  domain.ClusteringMetrics

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// New creates a clustering engine.
func New(chunks ChunkLister, gen Generator, kv KV, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.TopicBatchSize <= 0 {
		cfg.TopicBatchSize = 5
	}
	if cfg.TopicBatchPause <= 0 {
		cfg.TopicBatchPause = time.Second
	}
	s := &Service{
		chunks:       chunks,
		gen:          gen,
		kv:           kv,
		cfg:          cfg,
		logger:       logger,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		clusters:     make(map[string]domain.DocumentCluster),
		chunkCluster: make(map[string]string),
		chunkByID:    make(map[string]domain.DocumentChunk),
		topicsByID:   make(map[string]domain.ChunkTopics),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PerformClustering recomputes the full cluster set. Work is skipped if a
// run completed within the configured window unless force is set. Fewer
// than 2 documents yields a zeroed metrics object. Clustering is offline
// maintenance, so unlike the request path its errors propagate.
func (s *Service) PerformClustering(ctx context.Context, force bool) (domain.ClusteringMetrics, error) {
	s.mu.RLock()
	recent := !s.lastRun.IsZero() && time.Since(s.lastRun) < s.cfg.MinInterval
	last := s.lastMetrics
	s.mu.RUnlock()

	if recent && !force {
		metrics.ClusteringRunsTotal.WithLabelValues("skipped").Inc()
		return last, nil
	}

	start := time.Now()

	chunks, err := s.chunks.List(ctx)
	if err != nil {
		metrics.ClusteringRunsTotal.WithLabelValues("failed").Inc()
		return domain.ClusteringMetrics{}, fmt.Errorf("load chunks: %w", err)
	}

	docs := countDocuments(chunks)
	if docs < 2 {
		metrics.ClusteringRunsTotal.WithLabelValues("skipped").Inc()
		return domain.ClusteringMetrics{}, nil
	}

	vectors := make([][]float32, 0, len(chunks))
	usable := make([]domain.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) > 0 {
			vectors = append(vectors, c.Embedding)
			usable = append(usable, c)
		}
	}
	if len(usable) < 2 {
		metrics.ClusteringRunsTotal.WithLabelValues("skipped").Inc()
		return domain.ClusteringMetrics{}, nil
	}

	topics := s.ensureTopics(ctx, usable)

	k := chooseClusterCount(docs)
	if k > len(usable) {
		k = len(usable)
	}

	s.rngMu.Lock()
	assignments, centroids, iterations, converged := runKMeans(vectors, k, s.rng)
	s.rngMu.Unlock()

	clusters := s.buildClusters(usable, topics, assignments, centroids, k)

	var coherenceSum float64
	chunkCluster := make(map[string]string, len(usable))
	byID := make(map[string]domain.DocumentChunk, len(usable))
	clusterMap := make(map[string]domain.DocumentCluster, len(clusters))
	for _, cl := range clusters {
		clusterMap[cl.ID] = cl
		coherenceSum += cl.Coherence
		for _, id := range cl.MemberIDs {
			chunkCluster[id] = cl.ID
		}
	}
	for _, c := range usable {
		byID[c.ID] = c
	}

	m := domain.ClusteringMetrics{
		DocumentCount: docs,
		ClusterCount:  len(clusters),
		Iterations:    iterations,
		Converged:     converged,
		AvgCoherence:  coherenceSum / float64(len(clusters)),
		Duration:      time.Since(start),
		RanAt:         time.Now(),
	}

	// Atomic swap: readers see either the old complete set or the new one.
	s.mu.Lock()
	s.clusters = clusterMap
	s.chunkCluster = chunkCluster
	s.chunkByID = byID
	s.topicsByID = topics
	s.lastRun = m.RanAt
	s.lastMetrics = m
	s.mu.Unlock()

	s.persistSnapshot(ctx, clusters)

	metrics.ClusteringRunsTotal.WithLabelValues("completed").Inc()
	metrics.ClusteringDuration.Observe(m.Duration.Seconds())
	s.logger.Info("Clustering run completed",
		zap.Int("documents", docs),
		zap.Int("clusters", len(clusters)),
		zap.Int("iterations", iterations),
		zap.Bool("converged", converged),
		zap.Duration("duration", m.Duration),
	)
	return m, nil
}

// NotifyIngest schedules a debounced, forced clustering rebuild without
// blocking the caller. Repeated notifications within the window coalesce.
func (s *Service) NotifyIngest() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()

	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(recomputeDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.PerformClustering(ctx, true); err != nil {
			s.logger.Error("Ingestion-triggered clustering failed", zap.Error(err))
		}
	})
}

// Shutdown cancels any pending debounced rebuild.
func (s *Service) Shutdown() {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

// Clusters returns the current cluster set.
func (s *Service) Clusters() []domain.DocumentCluster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DocumentCluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	return out
}

func (s *Service) buildClusters(
	chunks []domain.DocumentChunk, topics map[string]domain.ChunkTopics,
	assignments []int, centroids [][]float32, k int,
) []domain.DocumentCluster {
	clusters := make([]domain.DocumentCluster, 0, k)
	for j := 0; j < k; j++ {
		var memberIDs []string
		var members []domain.DocumentChunk
		for i, a := range assignments {
			if a == j {
				memberIDs = append(memberIDs, chunks[i].ID)
				members = append(members, chunks[i])
			}
		}
		if len(members) == 0 {
			continue
		}

		var simSum float64
		for _, m := range members {
			simSum += domain.CosineSimilarity(m.Embedding, centroids[j])
		}
		coherence := simSum / float64(len(members))

		shared := sharedTopics(memberIDs, topics)
		name := clusterName(shared, j)

		clusters = append(clusters, domain.DocumentCluster{
			ID:           uuid.NewString(),
			Name:         name,
			Description:  clusterDescription(len(members), shared),
			Centroid:     centroids[j],
			MemberIDs:    memberIDs,
			Size:         len(members),
			Coherence:    coherence,
			SharedTopics: shared,
		})
	}
	return clusters
}

// sharedTopics returns terms appearing in at least 30% of members, most
// frequent first, capped at 5.
func sharedTopics(memberIDs []string, topics map[string]domain.ChunkTopics) []string {
	counts := make(map[string]int)
	for _, id := range memberIDs {
		seen := make(map[string]struct{})
		for _, t := range topics[id].Topics {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			counts[t]++
		}
	}

	threshold := int(float64(len(memberIDs))*sharedTopicRatio + 0.9999)
	if threshold < 1 {
		threshold = 1
	}

	type tc struct {
		topic string
		count int
	}
	var qualified []tc
	for t, c := range counts {
		if c >= threshold {
			qualified = append(qualified, tc{t, c})
		}
	}
	sort.Slice(qualified, func(i, j int) bool {
		if qualified[i].count != qualified[j].count {
			return qualified[i].count > qualified[j].count
		}
		return qualified[i].topic < qualified[j].topic
	})

	out := make([]string, 0, maxSharedTopics)
	for _, q := range qualified {
		if len(out) == maxSharedTopics {
			break
		}
		out = append(out, q.topic)
	}
	return out
}

func clusterName(shared []string, idx int) string {
	switch {
	case len(shared) >= 2:
		return fmt.Sprintf("%s & %s", title(shared[0]), title(shared[1]))
	case len(shared) == 1:
		return title(shared[0])
	default:
		return fmt.Sprintf("Cluster %d", idx+1)
	}
}

func clusterDescription(size int, shared []string) string {
	if len(shared) == 0 {
		return fmt.Sprintf("A group of %d related document sections.", size)
	}
	return fmt.Sprintf("A group of %d document sections covering %s.",
		size, strings.Join(shared, ", "))
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func countDocuments(chunks []domain.DocumentChunk) int {
	docs := make(map[string]struct{})
	for _, c := range chunks {
		docs[c.DocumentID] = struct{}{}
	}
	return len(docs)
}

func (s *Service) persistSnapshot(ctx context.Context, clusters []domain.DocumentCluster) {
	data, err := json.Marshal(clusters)
	if err != nil {
		s.logger.Warn("Failed to marshal cluster snapshot", zap.Error(err))
		return
	}
	if err := s.kv.KVSet(ctx, clusterSnapshotKey, data); err != nil {
		// Persistence is best-effort; memory stays authoritative.
		s.logger.Warn("Failed to persist cluster snapshot", zap.Error(err))
	}
}
