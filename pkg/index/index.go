// Package index defines the polymorphic contract every index in this
// module implements (spec.md §6): a small required surface plus optional
// capabilities an index can choose to support, detected at runtime via
// type assertion rather than encoded in a class hierarchy.
package index

import (
	"context"
	"math"

	"github.com/kestrelvec/annquant/internal/quant"
)

// MissingID is the sentinel returned in place of a result id when a query
// has fewer than k matches or a slot is otherwise unfilled (spec.md §6).
const MissingID int64 = -1

// MissingDistance returns the sentinel distance for an unfilled result
// slot under m: +Inf when minimizing, -Inf when maximizing, so padding
// never accidentally ranks as a real match.
func MissingDistance(m quant.Metric) float32 {
	return m.WorstDistance()
}

// Result is one (id, distance) pair returned by Search or RangeSearch.
type Result struct {
	ID       int64
	Distance float32
}

// Index is the minimal contract every concrete index satisfies: it can be
// trained, grown, and searched. Indexes that don't need training (Flat)
// make Train a no-op that always succeeds.
type Index interface {
	// Train fits any internal quantizer/coarse-quantizer parameters from a
	// representative sample. Indexes with nothing to learn accept it as a
	// no-op.
	Train(ctx context.Context, vectors [][]float32) error

	// Add appends vectors, assigning them sequential ids starting at the
	// index's current Ntotal.
	Add(ctx context.Context, vectors [][]float32) error

	// Search returns, for each query, up to k nearest results ordered best
	// first; unfilled slots carry (MissingID, MissingDistance).
	Search(ctx context.Context, queries [][]float32, k int) ([][]Result, error)

	// Ntotal reports how many vectors have been added.
	Ntotal() int64

	// Dim reports the configured vector dimensionality.
	Dim() int

	// IsTrained reports whether Train has completed successfully, for
	// indexes that require it before Add/Search will succeed.
	IsTrained() bool

	// Metric reports the distance used to rank Search/RangeSearch results.
	Metric() quant.Metric

	// Reset drops every added vector, returning the index to its
	// just-trained (or just-constructed, for untrained index kinds) state.
	Reset()
}

// IDIndex is satisfied by indexes that let the caller supply explicit ids
// instead of taking sequentially assigned ones.
type IDIndex interface {
	AddWithIDs(ctx context.Context, vectors [][]float32, ids []int64) error
}

// Reconstructor is satisfied by indexes that can recover an (approximate,
// for quantized indexes) copy of a previously added vector by id.
type Reconstructor interface {
	// Reconstruct returns the vector at id. Bytes/dims that cannot be
	// recovered (e.g. past the binary index's packed-bit precision) are
	// filled per spec.md §6's sentinel convention for the index kind.
	Reconstruct(ctx context.Context, id int64) ([]float32, error)
}

// RangeSearcher is satisfied by indexes that support radius search: every
// result within (or, for maximizing metrics, above) a threshold, with no
// fixed k.
type RangeSearcher interface {
	RangeSearch(ctx context.Context, queries [][]float32, radius float32) ([][]Result, error)
}

// Assigner is satisfied by indexes with a coarse-quantization step (IVF):
// it exposes which coarse list a vector would be assigned to without
// actually adding it.
type Assigner interface {
	Assign(ctx context.Context, vectors [][]float32) ([]int64, error)
}

// ResidualComputer is satisfied by indexes that quantize residuals against
// a coarse assignment (IVF with ByResidual) rather than raw vectors.
type ResidualComputer interface {
	ComputeResidual(ctx context.Context, vector []float32, listID int64) []float32
}

// Remover is satisfied by indexes that support deleting previously added
// ids (Flat; IVF built over a removable fine store).
type Remover interface {
	Remove(ctx context.Context, ids []int64) (int, error)
}

// fillMissing pads out to exactly k results with (MissingID, worst
// distance) entries, the shared tail-padding behavior every Search
// implementation needs when fewer than k matches exist.
func fillMissing(results []Result, k int, m quant.Metric) []Result {
	if len(results) >= k {
		return results[:k]
	}
	out := make([]Result, k)
	copy(out, results)
	worst := MissingDistance(m)
	for i := len(results); i < k; i++ {
		out[i] = Result{ID: MissingID, Distance: worst}
	}
	return out
}

// FillMissing is the exported form of fillMissing for index implementations
// living outside this package.
func FillMissing(results []Result, k int, m quant.Metric) []Result {
	return fillMissing(results, k, m)
}

// NaNFill fills dst with NaN, the reconstruction sentinel for float vectors
// whose true value is unrecoverable (spec.md §6).
func NaNFill(dst []float32) {
	nan := float32(math.NaN())
	for i := range dst {
		dst[i] = nan
	}
}
