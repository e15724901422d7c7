package quant

import "gonum.org/v1/gonum/floats"

// AddInto computes dst = a + b, overwriting dst. dst may alias a or b.
func AddInto(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

// SubInto computes dst = a - b (the residual of a against centroid b),
// overwriting dst. dst may alias a or b.
func SubInto(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

// ScaleInto computes dst = a * s, overwriting dst.
func ScaleInto(dst, a []float32, s float32) {
	for i := range dst {
		dst[i] = a[i] * s
	}
}

// Mean computes the centroid of a set of same-length vectors. Returns a
// zero vector of the given dimension if vectors is empty.
func Mean(vectors [][]float32, dim int) []float32 {
	out := make([]float32, dim)
	if len(vectors) == 0 {
		return out
	}
	acc := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			acc[i] += float64(x)
		}
	}
	n := float64(len(vectors))
	for i := range acc {
		out[i] = float32(acc[i] / n)
	}
	return out
}

// Normalize rescales v to unit L2 norm in place. A zero vector is left
// unchanged (there is no direction to normalize to).
func Normalize(v []float32) {
	norm := NormL2(v)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

// SumSquares returns the sum of squared entries of v via gonum/floats,
// the quantity k-means minimizes and RQ/LSQ residual energy is reported in.
func SumSquares(v []float32) float32 {
	d := toFloat64(v)
	return float32(floats.Dot(d, d))
}

// Nearest returns the index of the codeword in codebook closest to v under
// m, along with its distance. codebook must be non-empty.
func Nearest(m Metric, v []float32, codebook [][]float32) (idx int, dist float32) {
	best := m.WorstDistance()
	bestIdx := -1
	for i, c := range codebook {
		d := Distance(m, v, c, 2)
		if better(m, d, best) {
			best = d
			bestIdx = i
		}
	}
	return bestIdx, best
}

// better reports whether candidate beats current under m's ordering, with
// ties broken in favor of the existing (smaller-index) candidate.
func better(m Metric, candidate, current float32) bool {
	if m.MaximizeSimilarity() {
		return candidate > current
	}
	return candidate < current
}
