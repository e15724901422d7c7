package quant

import (
	"math"
	"math/rand"

	"github.com/kestrelvec/annquant/pkg/observability"
)

// LSQ is a local-search quantizer (spec.md §4.6): codebooks are fit by
// alternating least squares with Tikhonov regularization, and codes are
// optimized per vector by iterated local search (ILS) wrapped around
// iterated conditional modes (ICM) sweeps, optionally accepting
// temporarily worse moves via simulated annealing to escape local minima.
type LSQ struct {
	*AQ
	ICMIters       int
	TrainILSIters  int
	EncodeILSIters int
	NPerts         int
	Lambda         float64

	Anneal      bool
	InitTemp    float64
	CoolingRate float64

	// Logger receives per-round ALS/ILS progress during Train. Optional;
	// nil disables logging.
	Logger *observability.Logger

	rng *rand.Rand
}

// NewLSQ allocates an untrained local-search quantizer.
func NewLSQ(dim, m int, nbits []int, metric Metric, seed int64) *LSQ {
	return &LSQ{
		AQ:             NewAQ(dim, m, nbits, metric),
		ICMIters:       4,
		TrainILSIters:  2,
		EncodeILSIters: 2,
		NPerts:         4,
		Lambda:         1e-2,
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// Train alternates codebook updates (ALS) with code optimization (ILS/ICM)
// for iters outer rounds, warm-starting codes from a per-step greedy
// nearest-codeword pass (greedyInit).
func (l *LSQ) Train(vectors [][]float32, iters int) *Error {
	if len(vectors) == 0 {
		return New(CodeInvalidArgument, "lsq", "Train", "no training vectors")
	}
	for i := range l.Codebooks {
		l.Codebooks[i] = randomCodebook(vectors, l.K(i), l.rng)
	}

	codes := make([][]int, len(vectors))
	for i, v := range vectors {
		codes[i] = l.greedyInit(v)
	}

	for round := 0; round < iters; round++ {
		l.updateCodebooks(vectors, codes)
		for i, v := range vectors {
			codes[i] = l.ilsOptimize(v, codes[i], l.TrainILSIters)
		}
		if l.Logger != nil {
			l.Logger.Debug("lsq round finished", map[string]interface{}{"round": round, "vectors": len(vectors)})
		}
	}
	return nil
}

func randomCodebook(vectors [][]float32, k int, r *rand.Rand) [][]float32 {
	cb := make([][]float32, k)
	n := len(vectors)
	for i := 0; i < k; i++ {
		cb[i] = append([]float32(nil), vectors[r.Intn(n)]...)
	}
	return cb
}

// greedyInit picks, independently per step, the codeword nearest to v —
// ignoring interaction between steps — as an ILS starting point.
func (l *LSQ) greedyInit(v []float32) []int {
	codes := make([]int, l.M)
	for m, cb := range l.Codebooks {
		idx, _ := Nearest(L2, v, cb)
		if idx < 0 {
			idx = 0
		}
		codes[m] = idx
	}
	return codes
}

// updateCodebooks performs one ALS sweep: holding codes fixed, each
// codeword is re-estimated as the Tikhonov-regularized mean residual of
// the vectors assigned to it at that step (spec.md §4.6).
func (l *LSQ) updateCodebooks(vectors [][]float32, codes [][]int) {
	for m := 0; m < l.M; m++ {
		k := l.K(m)
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, l.Dim)
		}
		for i, v := range vectors {
			residual := l.residualExcluding(v, codes[i], m)
			c := codes[i][m]
			counts[c]++
			for d, x := range residual {
				sums[c][d] += float64(x)
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue // keep prior codeword; nothing assigned this round
			}
			word := make([]float32, l.Dim)
			denom := float64(counts[c]) + l.Lambda
			for d := 0; d < l.Dim; d++ {
				word[d] = float32(sums[c][d] / denom)
			}
			l.Codebooks[m][c] = word
		}
	}
}

// residualExcluding returns v minus every step's codeword except step m.
func (l *LSQ) residualExcluding(v []float32, codes []int, m int) []float32 {
	out := append([]float32(nil), v...)
	for j, c := range codes {
		if j == m {
			continue
		}
		SubInto(out, out, l.Codebooks[j][c])
	}
	return out
}

// icm runs round-robin iterated-conditional-modes sweeps: each step in
// turn is set to the codeword minimizing reconstruction error given every
// other step held fixed, ties broken toward the smaller code index.
func (l *LSQ) icm(v []float32, codes []int, iters int) []int {
	cur := append([]int(nil), codes...)
	for iter := 0; iter < iters; iter++ {
		changed := false
		for m := 0; m < l.M; m++ {
			base := l.residualExcluding(v, cur, m)
			best, bestDist := -1, float32(0)
			for k, word := range l.Codebooks[m] {
				d := Distance(L2, base, word, 2)
				if best < 0 || d < bestDist {
					bestDist, best = d, k
				}
			}
			if best != cur[m] {
				cur[m] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return cur
}

// ilsOptimize runs iterated local search: perturb NPerts random codes,
// run ICM to a local optimum, and accept the move if it lowers
// reconstruction energy (or, with Anneal enabled, with simulated-annealing
// probability when it doesn't).
func (l *LSQ) ilsOptimize(v []float32, init []int, rounds int) []int {
	best := l.icm(v, init, l.ICMIters)
	bestEnergy := l.energy(v, best)
	temp := l.InitTemp

	for r := 0; r < rounds; r++ {
		cand := l.perturb(best)
		cand = l.icm(v, cand, l.ICMIters)
		energy := l.energy(v, cand)

		accept := energy < bestEnergy
		if !accept && l.Anneal && temp > 0 {
			delta := energy - bestEnergy
			accept = l.rng.Float64() < math.Exp(-float64(delta)/temp)
		}
		if accept {
			best, bestEnergy = cand, energy
		}
		if l.Anneal && l.CoolingRate > 0 {
			temp *= 1 - l.CoolingRate
		}
	}
	return best
}

func (l *LSQ) perturb(codes []int) []int {
	out := append([]int(nil), codes...)
	n := l.NPerts
	if n > l.M {
		n = l.M
	}
	for i := 0; i < n; i++ {
		m := l.rng.Intn(l.M)
		out[m] = l.rng.Intn(l.K(m))
	}
	return out
}

func (l *LSQ) energy(v []float32, codes []int) float32 {
	return SumSquares(subtract(v, l.Decode(codes)))
}

func subtract(a, b []float32) []float32 {
	out := make([]float32, len(a))
	SubInto(out, a, b)
	return out
}

// Encode finds codes for v via ILS seeded from a per-step greedy init.
func (l *LSQ) Encode(v []float32) []int {
	init := l.greedyInit(v)
	return l.ilsOptimize(v, init, l.EncodeILSIters)
}

// EncodePacked encodes v and packs the result into a code array.
func (l *LSQ) EncodePacked(v []float32) []byte {
	return l.PackCodes(l.Encode(v))
}
