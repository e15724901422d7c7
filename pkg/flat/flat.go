// Package flat implements exact brute-force search over stored vectors
// (spec.md §4.2): every query is compared against every stored vector, so
// results are exact under the configured Metric with no training step.
package flat

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelvec/annquant/internal/parallel"
	"github.com/kestrelvec/annquant/internal/quant"
	"github.com/kestrelvec/annquant/pkg/index"
	"github.com/kestrelvec/annquant/pkg/observability"
)

// Index is a flat (brute-force) store of float32 vectors.
type Index struct {
	mu      sync.RWMutex
	dim     int
	metric  quant.Metric
	chunk   int
	vectors [][]float32
	ids     []int64
	nextID  int64

	metrics *observability.Metrics
	kind    string
}

// New constructs an empty flat index over vectors of dimension dim,
// ranked under metric. chunkSize governs how many vectors each parallel_for
// shard scans per query; 0 selects a reasonable default.
func New(dim int, metric quant.Metric, chunkSize int) *Index {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &Index{dim: dim, metric: metric, chunk: chunkSize, kind: "flat"}
}

// WithMetrics attaches Prometheus instrumentation to this index, labeled as
// kind (e.g. "flat", or "ivf-coarse" when used as IVF's coarse quantizer).
// Optional; an index with no attached Metrics simply skips recording.
func (f *Index) WithMetrics(m *observability.Metrics, kind string) *Index {
	f.metrics = m
	f.kind = kind
	return f
}

// Train is a no-op: flat search has nothing to learn (spec.md §4.2).
func (f *Index) Train(ctx context.Context, vectors [][]float32) error { return nil }

// IsTrained is always true: flat search never requires training.
func (f *Index) IsTrained() bool { return true }

// Add appends vectors, assigning sequential ids.
func (f *Index) Add(ctx context.Context, vectors [][]float32) error {
	ids := make([]int64, len(vectors))
	f.mu.Lock()
	for i := range vectors {
		ids[i] = f.nextID
		f.nextID++
	}
	f.mu.Unlock()
	return f.AddWithIDs(ctx, vectors, ids)
}

// AddWithIDs appends vectors under caller-supplied ids (spec.md §6's
// IDIndex capability).
func (f *Index) AddWithIDs(ctx context.Context, vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return quant.New(quant.CodeInvalidArgument, "flat", "AddWithIDs", "vectors/ids length mismatch")
	}
	for _, v := range vectors {
		if len(v) != f.dim {
			return quant.New(quant.CodeDimensionMismatch, "flat", "AddWithIDs", "vector dimension mismatch")
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range vectors {
		f.vectors = append(f.vectors, append([]float32(nil), v...))
		f.ids = append(f.ids, ids[i])
		if ids[i] >= f.nextID {
			f.nextID = ids[i] + 1
		}
	}
	ntotal := len(f.vectors)
	if f.metrics != nil {
		f.metrics.RecordAdd(f.kind, len(vectors), ntotal)
	}
	return nil
}

// Search scans every stored vector against every query (spec.md §4.2) and
// returns the k best matches per query, tail-padded per index.FillMissing.
func (f *Index) Search(ctx context.Context, queries [][]float32, k int) ([][]index.Result, error) {
	start := time.Now()
	f.mu.RLock()
	vectors := f.vectors
	ids := f.ids
	f.mu.RUnlock()

	out := make([][]index.Result, len(queries))
	found := 0
	for qi, q := range queries {
		if len(q) != f.dim {
			return nil, quant.New(quant.CodeDimensionMismatch, "flat", "Search", "query dimension mismatch")
		}

		sel := quant.NewSelector(k, f.metric).WithMetrics(f.metrics)
		var selMu sync.Mutex
		err := parallel.For(ctx, len(vectors), f.chunk, func(_ context.Context, lo, hi int) error {
			local := quant.NewSelector(k, f.metric).WithMetrics(f.metrics)
			for i := lo; i < hi; i++ {
				local.Push(ids[i], quant.Distance(f.metric, q, vectors[i], 2))
			}
			selMu.Lock()
			for _, e := range local.Results() {
				sel.Push(e.ID, e.Distance)
			}
			selMu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}

		results := make([]index.Result, 0, k)
		for _, e := range sel.Results() {
			results = append(results, index.Result{ID: e.ID, Distance: e.Distance})
		}
		found += len(results)
		out[qi] = index.FillMissing(results, k, f.metric)
	}
	if f.metrics != nil {
		f.metrics.RecordSearch(f.kind, time.Since(start), found)
	}
	return out, nil
}

// RangeSearch returns every stored vector within radius of each query
// (above radius, for metrics that maximize similarity), unordered by rank
// and not tail-padded since the match count is unbounded (spec.md §4.2).
func (f *Index) RangeSearch(ctx context.Context, queries [][]float32, radius float32) ([][]index.Result, error) {
	f.mu.RLock()
	vectors := f.vectors
	ids := f.ids
	f.mu.RUnlock()

	out := make([][]index.Result, len(queries))
	for qi, q := range queries {
		var matches []index.Result
		for i, v := range vectors {
			d := quant.Distance(f.metric, q, v, 2)
			within := d <= radius
			if f.metric.MaximizeSimilarity() {
				within = d >= radius
			}
			if within {
				matches = append(matches, index.Result{ID: ids[i], Distance: d})
			}
		}
		out[qi] = matches
	}
	return out, nil
}

// Reconstruct returns the stored vector for id, or NaN-filled if the id is
// unknown.
func (f *Index) Reconstruct(ctx context.Context, id int64) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i, existing := range f.ids {
		if existing == id {
			return append([]float32(nil), f.vectors[i]...), nil
		}
	}
	out := make([]float32, f.dim)
	index.NaNFill(out)
	return out, quant.New(quant.CodeInvalidArgument, "flat", "Reconstruct", "unknown id")
}

// Remove deletes the given ids, returning how many were actually present.
func (f *Index) Remove(ctx context.Context, ids []int64) (int, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	keptVectors := f.vectors[:0]
	keptIDs := f.ids[:0]
	for i, id := range f.ids {
		if want[id] {
			removed++
			continue
		}
		keptVectors = append(keptVectors, f.vectors[i])
		keptIDs = append(keptIDs, id)
	}
	f.vectors = keptVectors
	f.ids = keptIDs
	return removed, nil
}

// Ntotal returns how many vectors are currently stored.
func (f *Index) Ntotal() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.vectors))
}

// Dim returns the configured vector dimensionality.
func (f *Index) Dim() int { return f.dim }

// Metric returns the configured distance metric.
func (f *Index) Metric() quant.Metric { return f.metric }

// Reset drops every stored vector and resets id assignment.
func (f *Index) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = nil
	f.ids = nil
	f.nextID = 0
}
