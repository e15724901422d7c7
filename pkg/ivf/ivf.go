// Package ivf implements the inverted-file index (spec.md §4.8): vectors
// are assigned to one of nlist coarse centroids, and search visits only
// the nprobe centroids nearest the query instead of scanning every stored
// vector. The fine representation within a list can be raw vectors
// (IVFFlat) or a trained additive quantizer (IVF-RQ, IVF-LSQ,
// IVF-Product-*) composed in behind the quant.Sub contract.
package ivf

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelvec/annquant/internal/parallel"
	"github.com/kestrelvec/annquant/internal/quant"
	"github.com/kestrelvec/annquant/pkg/flat"
	"github.com/kestrelvec/annquant/pkg/index"
	"github.com/kestrelvec/annquant/pkg/observability"
)

// Config governs IVF construction (spec.md §4.8).
type Config struct {
	NList      int
	NProbe     int
	ByResidual bool
	ChunkSize  int
	KMeans     quant.KMeansConfig

	// Logger receives phase-transition events during Train (coarse
	// centroid fit, fine-quantizer fit, resulting list-size skew).
	// Optional; nil disables logging. If set and KMeans.Logger is unset,
	// Train also threads it through to the coarse k-means pass.
	Logger *observability.Logger

	// Metrics, if set, receives annquant_trainings_total,
	// annquant_searches_total, and annquant_ivf_list_size observations.
	Metrics *observability.Metrics
}

// Index is an inverted-file index. Fine may be nil, in which case raw
// vectors are stored per list (IVFFlat); otherwise Fine is trained on
// (optionally residual) vectors and only packed codes are stored.
type Index struct {
	mu sync.RWMutex

	dim    int
	metric quant.Metric
	cfg    Config

	coarse  *flat.Index
	fine    quant.Sub
	lists   [][]int64
	vectors [][][]float32 // per-list raw vectors, used when fine == nil
	codes   [][][]byte    // per-list packed codes, used when fine != nil

	trained bool
}

// New constructs an untrained IVF index. fine may be nil for IVFFlat.
func New(dim int, metric quant.Metric, cfg Config, fine quant.Sub) *Index {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 256
	}
	return &Index{
		dim:     dim,
		metric:  metric,
		cfg:     cfg,
		coarse:  flat.New(dim, metric, cfg.ChunkSize),
		fine:    fine,
		lists:   make([][]int64, cfg.NList),
		vectors: make([][][]float32, cfg.NList),
		codes:   make([][][]byte, cfg.NList),
	}
}

// Train fits nlist coarse centroids via k-means and, if a fine quantizer
// was configured, trains it on (optionally residual) training vectors
// (spec.md §4.8).
func (ivf *Index) Train(ctx context.Context, vectors [][]float32) error {
	start := time.Now()
	if err := ivf.train(ctx, vectors); err != nil {
		if ivf.cfg.Metrics != nil {
			ivf.cfg.Metrics.RecordTraining("ivf", time.Since(start), err)
		}
		return err
	}
	if ivf.cfg.Metrics != nil {
		ivf.cfg.Metrics.RecordTraining("ivf", time.Since(start), nil)
	}
	return nil
}

func (ivf *Index) train(ctx context.Context, vectors [][]float32) error {
	if len(vectors) < ivf.cfg.NList {
		return quant.New(quant.CodeInvalidArgument, "ivf", "Train", "fewer training vectors than NList")
	}

	kcfg := ivf.cfg.KMeans
	kcfg.Metric = ivf.metric
	if kcfg.Logger == nil {
		kcfg.Logger = ivf.cfg.Logger
	}
	centroids, err := quant.KMeans(vectors, ivf.cfg.NList, ivf.dim, kcfg)
	if err != nil {
		return err
	}
	if ivf.cfg.Logger != nil {
		ivf.cfg.Logger.Info("ivf coarse centroids trained", map[string]interface{}{"nlist": ivf.cfg.NList, "training_vectors": len(vectors)})
	}

	ivf.mu.Lock()
	ivf.coarse = flat.New(ivf.dim, ivf.metric, ivf.cfg.ChunkSize)
	ivf.mu.Unlock()
	centroidIDs := make([]int64, len(centroids))
	for i := range centroids {
		centroidIDs[i] = int64(i)
	}
	if idxErr := ivf.coarse.AddWithIDs(ctx, centroids, centroidIDs); idxErr != nil {
		return idxErr
	}

	if ivf.fine != nil {
		trainSet := vectors
		if ivf.cfg.ByResidual {
			trainSet = make([][]float32, len(vectors))
			for i, v := range vectors {
				listID, _ := ivf.nearestList(ctx, v)
				trainSet[i] = ivf.residualFor(v, listID)
			}
		}
		if qerr := ivf.fine.Train(trainSet); qerr != nil {
			return qerr
		}
		if ivf.cfg.Logger != nil {
			ivf.cfg.Logger.Info("ivf fine quantizer trained", map[string]interface{}{"by_residual": ivf.cfg.ByResidual, "training_vectors": len(trainSet)})
		}
	}

	ivf.mu.Lock()
	ivf.trained = true
	ivf.mu.Unlock()
	return nil
}

// logListSkew reports the current per-list occupancy spread to the
// configured Logger, the signal that motivates raising NList or switching
// assignment strategy when a few lists dominate Ntotal.
func (ivf *Index) logListSkew() {
	if ivf.cfg.Logger == nil && ivf.cfg.Metrics == nil {
		return
	}
	sizes := ivf.ListSizes()
	if ivf.cfg.Metrics != nil {
		ivf.cfg.Metrics.RecordIVFListSizes("ivf", sizes)
	}
	if ivf.cfg.Logger == nil {
		return
	}
	min, max, total := 0, 0, 0
	for i, s := range sizes {
		if i == 0 || s < min {
			min = s
		}
		if s > max {
			max = s
		}
		total += s
	}
	ivf.cfg.Logger.Debug("ivf list size skew", map[string]interface{}{
		"nlist": len(sizes), "min": min, "max": max, "total": total,
	})
}

// IsTrained reports whether Train has completed.
func (ivf *Index) IsTrained() bool {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	return ivf.trained
}

func (ivf *Index) nearestList(ctx context.Context, v []float32) (int64, error) {
	res, err := ivf.coarse.Search(ctx, [][]float32{v}, 1)
	if err != nil {
		return 0, err
	}
	if len(res[0]) == 0 || res[0][0].ID == index.MissingID {
		return 0, quant.New(quant.CodeNotTrained, "ivf", "Assign", "no coarse centroids trained")
	}
	return res[0][0].ID, nil
}

func (ivf *Index) residualFor(v []float32, listID int64) []float32 {
	centroid, _ := ivf.coarse.Reconstruct(context.Background(), listID)
	out := make([]float32, ivf.dim)
	quant.SubInto(out, v, centroid)
	return out
}

// Add assigns each vector to its nearest list and stores it (raw, or
// fine-encoded if a fine quantizer is configured), assigning sequential ids.
func (ivf *Index) Add(ctx context.Context, vectors [][]float32) error {
	ids := make([]int64, len(vectors))
	ivf.mu.Lock()
	next := int64(0)
	for _, l := range ivf.lists {
		next += int64(len(l))
	}
	for i := range vectors {
		ids[i] = next
		next++
	}
	ivf.mu.Unlock()
	return ivf.AddWithIDs(ctx, vectors, ids)
}

// AddWithIDs assigns and stores vectors under caller-supplied ids.
func (ivf *Index) AddWithIDs(ctx context.Context, vectors [][]float32, ids []int64) error {
	if !ivf.IsTrained() {
		return quant.New(quant.CodeNotTrained, "ivf", "AddWithIDs", "index not trained")
	}
	if len(vectors) != len(ids) {
		return quant.New(quant.CodeInvalidArgument, "ivf", "AddWithIDs", "vectors/ids length mismatch")
	}

	ivf.mu.Lock()
	for i, v := range vectors {
		if len(v) != ivf.dim {
			ivf.mu.Unlock()
			return quant.New(quant.CodeDimensionMismatch, "ivf", "AddWithIDs", "vector dimension mismatch")
		}
		listID, err := ivf.nearestList(ctx, v)
		if err != nil {
			ivf.mu.Unlock()
			return err
		}

		ivf.lists[listID] = append(ivf.lists[listID], ids[i])
		if ivf.fine == nil {
			ivf.vectors[listID] = append(ivf.vectors[listID], append([]float32(nil), v...))
			continue
		}

		target := v
		if ivf.cfg.ByResidual {
			target = ivf.residualFor(v, listID)
		}
		ivf.codes[listID] = append(ivf.codes[listID], ivf.fine.EncodePacked(target))
	}
	ivf.mu.Unlock()
	ivf.logListSkew()
	return nil
}

// Assign reports which coarse list each vector would be assigned to,
// without adding it (spec.md §6's Assigner capability).
func (ivf *Index) Assign(ctx context.Context, vectors [][]float32) ([]int64, error) {
	out := make([]int64, len(vectors))
	for i, v := range vectors {
		listID, err := ivf.nearestList(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = listID
	}
	return out, nil
}

// ComputeResidual returns v minus the centroid of listID (spec.md §6's
// ResidualComputer capability).
func (ivf *Index) ComputeResidual(ctx context.Context, v []float32, listID int64) []float32 {
	return ivf.residualFor(v, listID)
}

// Search visits the nprobe coarse lists nearest each query and ranks
// their members under the outer metric, decoding fine codes back to
// approximate vectors when a fine quantizer is configured (spec.md §4.8).
func (ivf *Index) Search(ctx context.Context, queries [][]float32, k int) ([][]index.Result, error) {
	start := time.Now()
	if !ivf.IsTrained() {
		return nil, quant.New(quant.CodeNotTrained, "ivf", "Search", "index not trained")
	}

	nprobe := ivf.cfg.NProbe
	if nprobe <= 0 {
		nprobe = 1
	}

	out := make([][]index.Result, len(queries))
	found := 0
	for qi, q := range queries {
		if len(q) != ivf.dim {
			return nil, quant.New(quant.CodeDimensionMismatch, "ivf", "Search", "query dimension mismatch")
		}

		probed, err := ivf.coarse.Search(ctx, [][]float32{q}, nprobe)
		if err != nil {
			return nil, err
		}

		sel := quant.NewSelector(k, ivf.metric).WithMetrics(ivf.cfg.Metrics)
		var selMu sync.Mutex
		err = parallel.For(ctx, len(probed[0]), 1, func(_ context.Context, lo, hi int) error {
			local := quant.NewSelector(k, ivf.metric)
			for pi := lo; pi < hi; pi++ {
				r := probed[0][pi]
				if r.ID == index.MissingID {
					continue
				}
				ivf.scanList(q, r.ID, local)
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
		out[qi] = index.FillMissing(results, k, ivf.metric)
	}
	if ivf.cfg.Metrics != nil {
		ivf.cfg.Metrics.RecordSearch("ivf", time.Since(start), found)
	}
	return out, nil
}

func (ivf *Index) scanList(q []float32, listID int64, sel *quant.Selector) {
	ivf.mu.RLock()
	ids := append([]int64(nil), ivf.lists[listID]...)
	var vecs [][]float32
	var codes [][]byte
	if ivf.fine == nil {
		vecs = ivf.vectors[listID]
	} else {
		codes = ivf.codes[listID]
	}
	ivf.mu.RUnlock()

	if ivf.fine == nil {
		for i, v := range vecs {
			sel.Push(ids[i], quant.Distance(ivf.metric, q, v, 2))
		}
		return
	}

	centroid, _ := ivf.coarse.Reconstruct(context.Background(), listID)
	for i, c := range codes {
		approx := ivf.fine.DecodePacked(c)
		if ivf.cfg.ByResidual {
			quant.AddInto(approx, approx, centroid)
		}
		sel.Push(ids[i], quant.Distance(ivf.metric, q, approx, 2))
	}
}

// Reconstruct recovers an (approximate, if fine-quantized) copy of a
// stored vector by scanning every list for its id.
func (ivf *Index) Reconstruct(ctx context.Context, id int64) ([]float32, error) {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	for listID, ids := range ivf.lists {
		for i, existing := range ids {
			if existing != id {
				continue
			}
			if ivf.fine == nil {
				return append([]float32(nil), ivf.vectors[listID][i]...), nil
			}
			approx := ivf.fine.DecodePacked(ivf.codes[listID][i])
			if ivf.cfg.ByResidual {
				centroid, _ := ivf.coarse.Reconstruct(ctx, int64(listID))
				quant.AddInto(approx, approx, centroid)
			}
			return approx, nil
		}
	}
	out := make([]float32, ivf.dim)
	index.NaNFill(out)
	return out, quant.New(quant.CodeInvalidArgument, "ivf", "Reconstruct", "unknown id")
}

// Ntotal returns how many vectors have been added across every list.
func (ivf *Index) Ntotal() int64 {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	var n int64
	for _, l := range ivf.lists {
		n += int64(len(l))
	}
	return n
}

// Dim returns the configured vector dimensionality.
func (ivf *Index) Dim() int { return ivf.dim }

// Metric returns the configured outer distance metric.
func (ivf *Index) Metric() quant.Metric { return ivf.metric }

// Reset drops every added vector but keeps the trained coarse/fine
// quantizers, matching IVF's batch-train-then-dynamic-add usage.
func (ivf *Index) Reset() {
	ivf.mu.Lock()
	defer ivf.mu.Unlock()
	ivf.lists = make([][]int64, ivf.cfg.NList)
	ivf.vectors = make([][][]float32, ivf.cfg.NList)
	ivf.codes = make([][][]byte, ivf.cfg.NList)
}

// ListSizes reports how many vectors each coarse list currently holds, the
// quantity the annquant_ivf_list_size metric histograms.
func (ivf *Index) ListSizes() []int {
	ivf.mu.RLock()
	defer ivf.mu.RUnlock()
	sizes := make([]int, len(ivf.lists))
	for i, l := range ivf.lists {
		sizes[i] = len(l)
	}
	return sizes
}
