package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/covertree/distance"
)

// SearchResult represents a search result.
type SearchResult struct {
	ID       uint32
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// UniformVector returns one vector with values in range [0, 1).
func (r *RNG) UniformVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = r.rand.Float32()
	}
	return vec
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = float32(r.rand.NormFloat64())
		}
		vectors[i] = vec
	}

	return vectors
}

// ClusteredVectors generates vectors clustered around random centroids.
// Cluster structure gives the tree several populated scales at once.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centroids := r.GaussianVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim : (i+1)*dim]
		for j := range dim {
			vec[j] = centroid[j]*10 + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
	}

	return vectors
}

// LatticeVectors draws points from the integer grid [0, side)^dim, which
// produces exact duplicates and many equal distances.
func (r *RNG) LatticeVectors(num, dim, side int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dim : (i+1)*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = float32(r.rand.Intn(side))
		}
		vectors[i] = vec
	}

	return vectors
}

// ExactTopK returns the k points closest to query by exhaustive scan,
// ascending by distance and then by identity. live reports which
// identities take part; nil means all of them.
func ExactTopK(query []float32, points [][]float32, live func(uint32) bool, k int) []SearchResult {
	results := make([]SearchResult, 0, len(points))
	for i, p := range points {
		id := uint32(i)
		if live != nil && !live(id) {
			continue
		}
		results = append(results, SearchResult{ID: id, Distance: distance.Euclidean(query, p)})
	}

	slices.SortFunc(results, CompareResults)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// CompareResults orders by distance, then identity.
func CompareResults(a, b SearchResult) int {
	switch {
	case a.Distance < b.Distance:
		return -1
	case a.Distance > b.Distance:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// GreedySpreadOut is the quadratic reference for farthest-point sampling:
// start at first, then repeatedly take the live, unchosen point with the
// largest distance to its closest chosen point (ties to the lower identity).
func GreedySpreadOut(points [][]float32, live func(uint32) bool, first uint32, k int) []uint32 {
	minDist := make([]float64, len(points))
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	chosen := make([]bool, len(points))

	seeds := []uint32{first}
	chosen[first] = true
	for len(seeds) < k {
		last := points[seeds[len(seeds)-1]]
		best, bestVal := -1, -1.0
		for i, p := range points {
			if chosen[i] || (live != nil && !live(uint32(i))) {
				continue
			}
			minDist[i] = min(minDist[i], distance.Euclidean(p, last))
			if minDist[i] > bestVal {
				best, bestVal = i, minDist[i]
			}
		}
		if best < 0 {
			break
		}
		seeds = append(seeds, uint32(best))
		chosen[best] = true
	}
	return seeds
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 {
		return 1
	}
	want := make(map[uint32]struct{}, len(groundTruth))
	for _, r := range groundTruth {
		want[r.ID] = struct{}{}
	}
	hits := 0
	for _, r := range approximate {
		if _, ok := want[r.ID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}
