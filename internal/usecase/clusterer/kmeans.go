package clusterer

import (
	"math/rand"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

const (
	maxIterations        = 20
	convergenceTolerance = 0.001
)

// chooseClusterCount picks k heuristically from the document count.
func chooseClusterCount(n int) int {
	switch {
	case n < 5:
		return 2
	case n < 10:
		return 3
	case n < 20:
		return (n + 3) / 4 // ceil(n/4)
	default:
		k := (n + 4) / 5 // ceil(n/5)
		if k > 10 {
			k = 10
		}
		return k
	}
}

// seedCentroids initializes centroids k-means++ style: a random first pick,
// then repeated farthest-point selection using 1 - cosine similarity as the
// distance. Not a true metric, but every downstream threshold is calibrated
// against this exact formula.
func seedCentroids(vectors [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, vectors[rng.Intn(len(vectors))])

	for len(centroids) < k {
		bestIdx := -1
		bestDist := -1.0
		for i, v := range vectors {
			minDist := 2.0
			for _, c := range centroids {
				if d := domain.CosineDistance(v, c); d < minDist {
					minDist = d
				}
			}
			if minDist > bestDist {
				bestDist = minDist
				bestIdx = i
			}
		}
		centroids = append(centroids, vectors[bestIdx])
	}
	return centroids
}

// assign maps each vector to the centroid of maximum cosine similarity.
func assign(vectors, centroids [][]float32) []int {
	assignments := make([]int, len(vectors))
	for i, v := range vectors {
		best := 0
		bestSim := -2.0
		for j, c := range centroids {
			if sim := domain.CosineSimilarity(v, c); sim > bestSim {
				bestSim = sim
				best = j
			}
		}
		assignments[i] = best
	}
	return assignments
}

// meanCentroid is the component-wise arithmetic mean of the members'
// embeddings, deliberately not re-normalized.
func meanCentroid(members [][]float32, dim int) []float32 {
	centroid := make([]float32, dim)
	if len(members) == 0 {
		return centroid
	}
	for _, m := range members {
		for i, v := range m {
			centroid[i] += v
		}
	}
	n := float32(len(members))
	for i := range centroid {
		centroid[i] /= n
	}
	return centroid
}

// runKMeans iterates assignment and centroid refinement until every
// old/new centroid pair is within the cosine tolerance or the iteration
// budget runs out.
func runKMeans(vectors [][]float32, k int, rng *rand.Rand) (assignments []int, centroids [][]float32, iterations int, converged bool) {
	dim := len(vectors[0])
	centroids = seedCentroids(vectors, k, rng)

	for iterations = 1; iterations <= maxIterations; iterations++ {
		assignments = assign(vectors, centroids)

		next := make([][]float32, k)
		groups := make([][][]float32, k)
		for i, a := range assignments {
			groups[a] = append(groups[a], vectors[i])
		}
		for j := range next {
			if len(groups[j]) == 0 {
				// Empty cluster keeps its old centroid.
				next[j] = centroids[j]
				continue
			}
			next[j] = meanCentroid(groups[j], dim)
		}

		converged = true
		for j := range centroids {
			if domain.CosineDistance(centroids[j], next[j]) >= convergenceTolerance {
				converged = false
				break
			}
		}
		centroids = next
		if converged {
			break
		}
	}
	if iterations > maxIterations {
		iterations = maxIterations
	}

	assignments = assign(vectors, centroids)
	return assignments, centroids, iterations, converged
}
