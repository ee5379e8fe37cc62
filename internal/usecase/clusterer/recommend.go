package clusterer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

const recommendTopClusters = 3

// Recommendations blends three independent retrieval paths: embedding
// nearest-neighbor, shared-topic overlap, and cluster-centroid proximity
// with one representative per top cluster.
func (s *Service) Recommendations(id string, limit int) (domain.Recommendations, error) {
	if limit <= 0 {
		limit = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.chunkByID[id]
	if !ok {
		return domain.Recommendations{}, domain.ErrChunkNotFound
	}

	rec := domain.Recommendations{
		ByContent: s.byContent(target, limit),
		ByTopics:  s.byTopics(target, limit),
		ByCluster: s.byCluster(target, limit),
	}
	rec.Explanation = explain(rec)
	return rec, nil
}

// byContent is a plain nearest-neighbor scan over embeddings.
func (s *Service) byContent(target domain.DocumentChunk, limit int) []domain.SimilarDocument {
	var out []domain.SimilarDocument
	for otherID, other := range s.chunkByID {
		if otherID == target.ID {
			continue
		}
		sim := domain.CosineSimilarity(target.Embedding, other.Embedding)
		out = append(out, similarDoc(other, sim, "Related content"))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// byTopics scores candidates by shared-topic overlap with the target.
func (s *Service) byTopics(target domain.DocumentChunk, limit int) []domain.SimilarDocument {
	targetTopics := topicSet(s.topicsByID[target.ID])
	if len(targetTopics) == 0 {
		return nil
	}

	var out []domain.SimilarDocument
	for otherID, other := range s.chunkByID {
		if otherID == target.ID {
			continue
		}
		overlap := 0
		for t := range topicSet(s.topicsByID[otherID]) {
			if _, ok := targetTopics[t]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		score := float64(overlap) / float64(len(targetTopics))
		out = append(out, similarDoc(other, score,
			fmt.Sprintf("Shares %d topic(s)", overlap)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// byCluster ranks clusters by centroid proximity to the target and picks
// the member closest to each centroid as that cluster's representative.
func (s *Service) byCluster(target domain.DocumentChunk, limit int) []domain.SimilarDocument {
	type scored struct {
		cluster domain.DocumentCluster
		sim     float64
	}
	var ranked []scored
	ownCluster := s.chunkCluster[target.ID]
	for _, cl := range s.clusters {
		if cl.ID == ownCluster {
			continue
		}
		ranked = append(ranked, scored{cl, domain.CosineSimilarity(target.Embedding, cl.Centroid)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	if len(ranked) > recommendTopClusters {
		ranked = ranked[:recommendTopClusters]
	}

	var out []domain.SimilarDocument
	for _, r := range ranked {
		var best domain.DocumentChunk
		bestSim := -2.0
		for _, memberID := range r.cluster.MemberIDs {
			member := s.chunkByID[memberID]
			if sim := domain.CosineSimilarity(member.Embedding, r.cluster.Centroid); sim > bestSim {
				bestSim = sim
				best = member
			}
		}
		if bestSim < -1 {
			continue
		}
		out = append(out, similarDoc(best, r.sim,
			fmt.Sprintf("Representative of %q", r.cluster.Name)))
		if len(out) == limit {
			break
		}
	}
	return out
}

// explain templates which recommendation strategies produced results.
func explain(rec domain.Recommendations) string {
	var parts []string
	if len(rec.ByContent) > 0 {
		parts = append(parts, fmt.Sprintf("%d by content similarity", len(rec.ByContent)))
	}
	if len(rec.ByTopics) > 0 {
		parts = append(parts, fmt.Sprintf("%d by shared topics", len(rec.ByTopics)))
	}
	if len(rec.ByCluster) > 0 {
		parts = append(parts, fmt.Sprintf("%d from neighboring clusters", len(rec.ByCluster)))
	}
	if len(parts) == 0 {
		return "No recommendations available yet; run clustering after ingesting more documents."
	}
	return "Recommendations found: " + strings.Join(parts, ", ") + "."
}

func topicSet(t domain.ChunkTopics) map[string]struct{} {
	set := make(map[string]struct{}, len(t.Topics))
	for _, topic := range t.Topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic != "" {
			set[topic] = struct{}{}
		}
	}
	return set
}
