package clusterer

import (
	"math/rand"
	"testing"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

func TestChooseClusterCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{2, 2},
		{4, 2},
		{5, 3},
		{9, 3},
		{10, 3},
		{12, 3},
		{19, 5},
		{20, 4},
		{33, 7},
		{50, 10},
		{200, 10},
	}

	for _, tt := range tests {
		if got := chooseClusterCount(tt.n); got != tt.want {
			t.Errorf("chooseClusterCount(%d): expected %d, got %d", tt.n, tt.want, got)
		}
	}
}

func TestSeedCentroids_SpreadsPicks(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	rng := rand.New(rand.NewSource(1))

	centroids := seedCentroids(vectors, 3, rng)
	if len(centroids) != 3 {
		t.Fatalf("expected 3 centroids, got %d", len(centroids))
	}

	// Farthest-point selection must not pick near-duplicates while
	// genuinely distant vectors remain.
	for i := 0; i < len(centroids); i++ {
		for j := i + 1; j < len(centroids); j++ {
			if cosine(centroids[i], centroids[j]) > 0.99 {
				t.Errorf("centroids %d and %d are near-duplicates", i, j)
			}
		}
	}
}

func TestRunKMeans_SeparatesObviousGroups(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{0, 0.9, 0.1},
	}
	rng := rand.New(rand.NewSource(42))

	assignments, centroids, iterations, converged := runKMeans(vectors, 2, rng)

	if len(centroids) != 2 {
		t.Fatalf("expected 2 centroids, got %d", len(centroids))
	}
	if !converged {
		t.Error("expected convergence on trivially separable data")
	}
	if iterations < 1 || iterations > maxIterations {
		t.Errorf("iterations out of range: %d", iterations)
	}
	if assignments[0] != assignments[1] {
		t.Errorf("expected vectors 0 and 1 in the same cluster, got %d and %d",
			assignments[0], assignments[1])
	}
	if assignments[2] != assignments[3] {
		t.Errorf("expected vectors 2 and 3 in the same cluster, got %d and %d",
			assignments[2], assignments[3])
	}
	if assignments[0] == assignments[2] {
		t.Error("expected the two groups in different clusters")
	}
}

func TestRunKMeans_DeterministicWithSeed(t *testing.T) {
	vectors := [][]float32{
		{1, 0}, {0.8, 0.2}, {0, 1}, {0.1, 0.9}, {0.7, 0.3}, {0.2, 0.8},
	}

	a1, _, _, _ := runKMeans(vectors, 2, rand.New(rand.NewSource(7)))
	a2, _, _, _ := runKMeans(vectors, 2, rand.New(rand.NewSource(7)))

	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("assignments differ at %d: %d vs %d", i, a1[i], a2[i])
		}
	}
}

func TestMeanCentroid_NotRenormalized(t *testing.T) {
	members := [][]float32{{1, 0}, {0, 1}}
	got := meanCentroid(members, 2)

	if got[0] != 0.5 || got[1] != 0.5 {
		t.Errorf("expected [0.5 0.5], got %v", got)
	}
}

func cosine(a, b []float32) float64 {
	return domain.CosineSimilarity(a, b)
}
