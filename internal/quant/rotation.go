package quant

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Rotation is a fixed orthonormal linear map applied to vectors before
// quantization (spec.md §4.3: random rotations decorrelate dimensions for
// LSH and balance subspace energy for Product-AQ).
type Rotation struct {
	dim int
	m   *mat.Dense // dim x dim orthonormal matrix
}

// NewIdentityRotation returns a no-op rotation (the identity matrix).
// ProductAQ and LSH disable rotation with a nil *Rotation rather than this.
func NewIdentityRotation(dim int) *Rotation {
	m := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		m.Set(i, i, 1)
	}
	return &Rotation{dim: dim, m: m}
}

// NewRandomRotation draws a dim x dim matrix with i.i.d. Gaussian entries
// and returns the orthonormal Q factor of its QR decomposition, seeded
// deterministically from seed.
func NewRandomRotation(dim int, seed int64) *Rotation {
	r := rand.New(rand.NewSource(seed))
	raw := make([]float64, dim*dim)
	for i := range raw {
		raw[i] = r.NormFloat64()
	}
	g := mat.NewDense(dim, dim, raw)

	var qr mat.QR
	qr.Factorize(g)

	var q mat.Dense
	qr.QTo(&q)

	// QTo can return a matrix whose determinant is -1 (a reflection); that's
	// still orthonormal and perfectly usable as a rotation for our purposes.
	return &Rotation{dim: dim, m: &q}
}

// Apply returns r applied to v: r.m * v.
func (r *Rotation) Apply(v []float32) []float32 {
	if r == nil {
		return v
	}
	src := mat.NewVecDense(r.dim, toFloat64(v))
	var dst mat.VecDense
	dst.MulVec(r.m, src)

	out := make([]float32, r.dim)
	for i := 0; i < r.dim; i++ {
		out[i] = float32(dst.AtVec(i))
	}
	return out
}

// ApplyTranspose applies r's matrix transpose, the inverse rotation since
// r.m is orthonormal.
func (r *Rotation) ApplyTranspose(v []float32) []float32 {
	if r == nil {
		return v
	}
	src := mat.NewVecDense(r.dim, toFloat64(v))
	var dst mat.VecDense
	dst.MulVec(r.m.T(), src)

	out := make([]float32, r.dim)
	for i := 0; i < r.dim; i++ {
		out[i] = float32(dst.AtVec(i))
	}
	return out
}

// ApplyBatch rotates every vector in vs.
func (r *Rotation) ApplyBatch(vs [][]float32) [][]float32 {
	out := make([][]float32, len(vs))
	for i, v := range vs {
		out[i] = r.Apply(v)
	}
	return out
}

// Dim returns the rotation's dimensionality.
func (r *Rotation) Dim() int { return r.dim }
