package quant

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metric identifies a distance kind (spec.md §3, §6). Distances are
// positive-oriented (smaller is closer) for L2/Lp-family metrics and
// sign-oriented (larger is closer) for InnerProduct.
type Metric int

const (
	L2 Metric = iota
	InnerProduct
	L1
	Linf
	Lp
	Canberra
	BrayCurtis
	JensenShannon
	Jaccard
)

// String renders the metric name for logs and metric labels.
func (m Metric) String() string {
	switch m {
	case L2:
		return "L2"
	case InnerProduct:
		return "InnerProduct"
	case L1:
		return "L1"
	case Linf:
		return "Linf"
	case Lp:
		return "Lp"
	case Canberra:
		return "Canberra"
	case BrayCurtis:
		return "BrayCurtis"
	case JensenShannon:
		return "JensenShannon"
	case Jaccard:
		return "Jaccard"
	default:
		return "Unknown"
	}
}

// MaximizeSimilarity reports whether larger raw scores are closer for this
// metric (spec.md §4.1: "sign-oriented... for inner-product"). Only
// InnerProduct maximizes in this module; every other metric minimizes.
func (m Metric) MaximizeSimilarity() bool {
	return m == InnerProduct
}

// WorstDistance is the sentinel distance for a missing/padded result
// (spec.md §6): +Inf when minimizing, -Inf when maximizing.
func (m Metric) WorstDistance() float32 {
	if m.MaximizeSimilarity() {
		return float32(math.Inf(-1))
	}
	return float32(math.Inf(1))
}

// Distance computes the distance (or similarity, for InnerProduct) between
// two equal-length float32 vectors under m. p is only consulted for Lp.
func Distance(m Metric, a, b []float32, p float64) float32 {
	switch m {
	case L2:
		return float32(minkowski(a, b, 2))
	case L1:
		return float32(minkowski(a, b, 1))
	case Linf:
		return chebyshev(a, b)
	case Lp:
		return float32(minkowski(a, b, p))
	case InnerProduct:
		return DotProduct(a, b)
	case Canberra:
		return canberra(a, b)
	case BrayCurtis:
		return brayCurtis(a, b)
	case JensenShannon:
		return jensenShannon(a, b)
	case Jaccard:
		return jaccard(a, b)
	default:
		return float32(minkowski(a, b, 2))
	}
}

// DotProduct computes a·b via gonum/floats, promoting to float64 for
// accumulation precision and rounding back to float32.
func DotProduct(a, b []float32) float32 {
	da, db := toFloat64(a), toFloat64(b)
	return float32(floats.Dot(da, db))
}

// NormL2 computes the Euclidean norm of v via gonum/floats.
func NormL2(v []float32) float32 {
	return float32(floats.Norm(toFloat64(v), 2))
}

// minkowski computes the order-p Minkowski distance via gonum/floats,
// covering L2 (p=2) and L1 (p=1) with one routine.
func minkowski(a, b []float32, p float64) float64 {
	da, db := toFloat64(a), toFloat64(b)
	diff := make([]float64, len(da))
	for i := range da {
		diff[i] = da[i] - db[i]
	}
	return floats.Norm(diff, p)
}

func chebyshev(a, b []float32) float32 {
	var max float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}

func canberra(a, b []float32) float32 {
	var sum float32
	for i := range a {
		num := a[i] - b[i]
		if num < 0 {
			num = -num
		}
		den := absf(a[i]) + absf(b[i])
		if den == 0 {
			continue
		}
		sum += num / den
	}
	return sum
}

func brayCurtis(a, b []float32) float32 {
	var num, den float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		num += d
		den += absf(a[i]) + absf(b[i])
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// jensenShannon computes the Jensen-Shannon divergence between a and b
// treated as (unnormalized) discrete distributions, matching the spirit of
// gonum/stat.JensenShannon but accepting raw non-negative float32 vectors.
func jensenShannon(a, b []float32) float32 {
	pa, pb := normalizeToDist(a), normalizeToDist(b)
	var js float64
	for i := range pa {
		m := 0.5 * (pa[i] + pb[i])
		js += 0.5*klTerm(pa[i], m) + 0.5*klTerm(pb[i], m)
	}
	return float32(js)
}

func klTerm(p, m float64) float64 {
	if p <= 0 || m <= 0 {
		return 0
	}
	return p * math.Log(p/m)
}

func normalizeToDist(v []float32) []float64 {
	out := make([]float64, len(v))
	var sum float64
	for i, x := range v {
		if x < 0 {
			x = 0
		}
		out[i] = float64(x)
		sum += out[i]
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// jaccard treats a and b as non-negative weight vectors and computes the
// weighted (Ruzicka) Jaccard distance 1 - sum(min)/sum(max).
func jaccard(a, b []float32) float32 {
	var mins, maxs float32
	for i := range a {
		if a[i] < b[i] {
			mins += a[i]
			maxs += b[i]
		} else {
			mins += b[i]
			maxs += a[i]
		}
	}
	if maxs == 0 {
		return 0
	}
	return 1 - mins/maxs
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
