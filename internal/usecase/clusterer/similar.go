package clusterer

import (
	"sort"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

const (
	defaultSimilarityThreshold = 0.7
	minSimilarityThreshold     = 0.5
	// Cross-cluster expansion relaxes the threshold by 10%.
	crossClusterRelaxation = 0.9
)

// FindSimilar returns chunks similar to the target, scanning its own
// cluster first and expanding cross-cluster at a relaxed threshold when
// that yields too few results.
func (s *Service) FindSimilar(id string, limit int, threshold float64) ([]domain.SimilarDocument, error) {
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}
	if threshold < minSimilarityThreshold {
		threshold = minSimilarityThreshold
	}
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.chunkByID[id]
	if !ok {
		return nil, domain.ErrChunkNotFound
	}

	ownCluster := s.chunkCluster[id]
	sameCluster := make(map[string]struct{})

	var results []domain.SimilarDocument
	if cl, ok := s.clusters[ownCluster]; ok {
		for _, memberID := range cl.MemberIDs {
			sameCluster[memberID] = struct{}{}
			if memberID == id {
				continue
			}
			member := s.chunkByID[memberID]
			sim := domain.CosineSimilarity(target.Embedding, member.Embedding)
			if sim >= threshold {
				results = append(results, similarDoc(member, sim, sameClusterReason(sim)))
			}
		}
	}

	if len(results) < limit {
		relaxed := threshold * crossClusterRelaxation
		for otherID, other := range s.chunkByID {
			if otherID == id {
				continue
			}
			// Same-cluster chunks were already considered above.
			if _, considered := sameCluster[otherID]; considered {
				continue
			}
			sim := domain.CosineSimilarity(target.Embedding, other.Embedding)
			if sim >= relaxed {
				results = append(results, similarDoc(other, sim, "Cross-cluster similarity"))
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// sameClusterReason grades a same-cluster match by similarity band.
func sameClusterReason(sim float64) string {
	switch {
	case sim > 0.9:
		return "Very high content similarity"
	case sim > 0.8:
		return "High content similarity"
	default:
		return "Similar topics"
	}
}

func similarDoc(c domain.DocumentChunk, sim float64, reason string) domain.SimilarDocument {
	return domain.SimilarDocument{
		ChunkID:    c.ID,
		Content:    c.Content,
		Filename:   c.Filename,
		Similarity: sim,
		Reason:     reason,
	}
}
