package quant

import (
	"math/rand"

	"github.com/kestrelvec/annquant/pkg/observability"
)

// KMeansConfig governs a single k-means training run (spec.md §4.1, §9:
// "collaborator" abstractions for RNG and work partitioning).
type KMeansConfig struct {
	Iters   int
	Seed    int64
	Metric  Metric
	Verbose bool

	// Logger receives phase-transition events (convergence, iteration
	// count). It is optional; a nil Logger disables logging entirely, the
	// way the teacher's training loops guarded their fmt.Printf calls
	// behind a verbose flag.
	Logger *observability.Logger
}

// KMeans runs k-means++ initialization followed by Lloyd iterations and
// returns k centroids over vectors, all of dimension dim. It is the shared
// training primitive behind RQ's per-step codebooks and IVF's coarse
// quantizer.
func KMeans(vectors [][]float32, k int, dim int, cfg KMeansConfig) ([][]float32, *Error) {
	if len(vectors) < k {
		return nil, New(CodeInvalidArgument, "kmeans", "Train", "fewer training vectors than clusters")
	}
	if k <= 0 {
		return nil, New(CodeInvalidArgument, "kmeans", "Train", "k must be positive")
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	centroids := kmeansPlusPlusInit(vectors, k, dim, cfg.Metric, r)

	iters := cfg.Iters
	if iters <= 0 {
		iters = 1
	}

	assign := make([]int, len(vectors))
	ran := 0
	for iter := 0; iter < iters; iter++ {
		ran = iter + 1
		for i, v := range vectors {
			idx, _ := Nearest(cfg.Metric, v, centroids)
			assign[i] = idx
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assign[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += float64(x)
			}
		}

		converged := true
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cluster keeps its previous centroid
			}
			next := make([]float32, dim)
			for d := 0; d < dim; d++ {
				next[d] = float32(sums[c][d] / float64(counts[c]))
			}
			if Distance(L2, centroids[c], next, 2) > 1e-6 {
				converged = false
			}
			centroids[c] = next
		}

		if converged {
			if cfg.Logger != nil {
				cfg.Logger.Debug("k-means converged", map[string]interface{}{"iteration": iter, "k": k})
			}
			break
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug("k-means finished", map[string]interface{}{"iterations_run": ran, "k": k})
	}
	return centroids, nil
}

func kmeansPlusPlusInit(vectors [][]float32, k, dim int, m Metric, r *rand.Rand) [][]float32 {
	centroids := make([][]float32, k)

	first := r.Intn(len(vectors))
	centroids[0] = append([]float32(nil), vectors[first]...)

	for c := 1; c < k; c++ {
		weights := make([]float32, len(vectors))
		var total float32
		for i, v := range vectors {
			_, d := Nearest(m, v, centroids[:c])
			if m.MaximizeSimilarity() {
				// Convert a maximize-oriented score to a non-negative weight:
				// the closer (larger) the best score, the smaller the weight.
				d = -d
			}
			if d < 0 {
				d = 0
			}
			w := d * d
			weights[i] = w
			total += w
		}

		if total <= 0 {
			idx := r.Intn(len(vectors))
			centroids[c] = append([]float32(nil), vectors[idx]...)
			continue
		}

		target := r.Float32() * total
		var cum float32
		chosen := len(vectors) - 1
		for i, w := range weights {
			cum += w
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids[c] = append([]float32(nil), vectors[chosen]...)
	}

	return centroids
}
