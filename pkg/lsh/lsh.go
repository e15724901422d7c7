// Package lsh implements sign-bit locality-sensitive hashing (spec.md
// §4.3): vectors are projected through a (random or identity) rotation,
// thresholded to a packed bit per projected dimension, and compared under
// Hamming distance as a fast proxy for angular similarity.
package lsh

import (
	"context"
	"sort"

	"github.com/kestrelvec/annquant/internal/quant"
	"github.com/kestrelvec/annquant/pkg/flat"
	"github.com/kestrelvec/annquant/pkg/index"
)

// Index is a sign-bit LSH index. It satisfies index.Index, reporting
// Hamming distance (as a float32 bit count) through Search so it composes
// with every other index kind's contract.
type Index struct {
	dim             int
	nbits           int
	rotation        *quant.Rotation
	thresh          []float32 // per-bit threshold; defaults to 0 (pure sign)
	trainThresholds bool

	store   *flat.BinaryIndex
	trained bool
}

// Config governs how an Index projects and thresholds vectors before
// hashing (spec.md §4.3).
type Config struct {
	NBits           int   // number of hash bits, one per leading projected dimension (bits past dim stay 0); 0 uses dim
	UseRotation     bool  // project through a random rotation before thresholding
	Seed            int64 // rotation seed, used only when UseRotation is true
	TrainThresholds bool  // fit per-bit thresholds from training data; false keeps pure sign (all-zero thresholds)
	ChunkSize       int
}

// New constructs an untrained LSH index over vectors of dimension dim.
func New(dim int, cfg Config) *Index {
	nbits := cfg.NBits
	if nbits <= 0 {
		nbits = dim
	}

	var rot *quant.Rotation
	if cfg.UseRotation {
		rot = quant.NewRandomRotation(dim, cfg.Seed)
	}

	codeBytes := (nbits + 7) / 8
	return &Index{
		dim:             dim,
		nbits:           nbits,
		rotation:        rot,
		trainThresholds: cfg.TrainThresholds,
		store:           flat.NewBinary(codeBytes, cfg.ChunkSize),
	}
}

// Train fits per-bit thresholds as the median of each projected dimension
// across the training sample, when TrainThresholds is set (spec.md §4.3).
// Otherwise thresholds stay all-zero (pure sign thresholding), matching the
// train_thresholds=false case of the spec's (d, nbits, rotate_data,
// train_thresholds) constructor.
func (l *Index) Train(ctx context.Context, vectors [][]float32) error {
	if !l.trainThresholds || len(vectors) == 0 {
		l.trained = true
		return nil
	}

	projDim := l.dim
	if l.rotation != nil {
		projDim = l.rotation.Dim()
	}
	projected := make([][]float32, len(vectors))
	for i, v := range vectors {
		projected[i] = l.project(v)
	}
	column := make([]float32, len(vectors))
	thresh := make([]float32, projDim)
	for i := 0; i < projDim; i++ {
		for j, p := range projected {
			column[j] = p[i]
		}
		thresh[i] = median(column)
	}
	l.thresh = thresh
	l.trained = true
	return nil
}

// median returns the median of xs, averaging the two middle elements for an
// even-length input. xs is sorted in place.
func median(xs []float32) float32 {
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// IsTrained reports whether per-bit thresholds have been fit.
func (l *Index) IsTrained() bool { return l.trained }

func (l *Index) project(v []float32) []float32 {
	if l.rotation == nil {
		return v
	}
	return l.rotation.Apply(v)
}

// Hash projects v and packs nbits threshold-sign bits into a byte code.
func (l *Index) Hash(v []float32) []byte {
	p := l.project(v)
	code := make([]byte, (l.nbits+7)/8)
	for i := 0; i < l.nbits && i < len(p); i++ {
		t := float32(0)
		if l.thresh != nil && i < len(l.thresh) {
			t = l.thresh[i]
		}
		if p[i] > t {
			code[i/8] |= 1 << uint(7-i%8)
		}
	}
	return code
}

// Add hashes and stores vectors, assigning sequential ids.
func (l *Index) Add(ctx context.Context, vectors [][]float32) error {
	codes := make([][]byte, len(vectors))
	for i, v := range vectors {
		if len(v) != l.dim {
			return quant.New(quant.CodeDimensionMismatch, "lsh", "Add", "vector dimension mismatch")
		}
		codes[i] = l.Hash(v)
	}
	return l.store.Add(ctx, codes)
}

// Search hashes each query and ranks stored codes by Hamming distance,
// reported as a float32 to satisfy index.Index's Result shape.
func (l *Index) Search(ctx context.Context, queries [][]float32, k int) ([][]index.Result, error) {
	codes := make([][]byte, len(queries))
	for i, q := range queries {
		codes[i] = l.Hash(q)
	}

	binResults, err := l.store.Search(ctx, codes, k)
	if err != nil {
		return nil, err
	}

	out := make([][]index.Result, len(binResults))
	for qi, row := range binResults {
		converted := make([]index.Result, len(row))
		for i, r := range row {
			converted[i] = index.Result{ID: r.ID, Distance: float32(r.Distance)}
		}
		out[qi] = converted
	}
	return out, nil
}

// Ntotal returns how many vectors have been hashed and stored.
func (l *Index) Ntotal() int64 { return l.store.Ntotal() }

// Dim returns the configured (pre-rotation) vector dimensionality.
func (l *Index) Dim() int { return l.dim }

// Metric reports Jaccard as the nominal metric: LSH's Hamming-distance
// ranking approximates angular similarity via the fraction of differing
// bits, the same minimize-oriented ordering Jaccard uses.
func (l *Index) Metric() quant.Metric { return quant.Jaccard }

// Reset drops every hashed vector but keeps the rotation, the trained
// thresholds, and the trained state.
func (l *Index) Reset() {
	codeBytes := l.store.CodeBytes()
	l.store = flat.NewBinary(codeBytes, 0)
}

// NBits reports the configured hash width.
func (l *Index) NBits() int { return l.nbits }
