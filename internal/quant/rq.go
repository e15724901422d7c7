package quant

import "sort"

// RQ is a residual quantizer (spec.md §4.5): step i's codebook is trained
// on the residual left after greedily encoding with steps 0..i-1, and
// encoding re-derives codes with a beam search over partial reconstructions
// rather than a single greedy pass, trading encode time for accuracy.
type RQ struct {
	*AQ
	MaxBeamSize int
}

// NewRQ allocates an untrained residual quantizer with M steps of 2^nbits
// codewords each.
func NewRQ(dim, m int, nbits []int, metric Metric, maxBeamSize int) *RQ {
	if maxBeamSize < 1 {
		maxBeamSize = 1
	}
	return &RQ{AQ: NewAQ(dim, m, nbits, metric), MaxBeamSize: maxBeamSize}
}

// Train fits each step's codebook greedily on the residual of the training
// set after the previous steps' codes, then re-encodes every training
// vector with a MaxBeamSize-wide beam search over the codebooks fit so far
// to refresh those residuals before the next step trains on them (spec.md
// §4.5).
func (rq *RQ) Train(vectors [][]float32, cfg KMeansConfig) *Error {
	if len(vectors) == 0 {
		return New(CodeInvalidArgument, "rq", "Train", "no training vectors")
	}
	residuals := make([][]float32, len(vectors))
	for i, v := range vectors {
		residuals[i] = append([]float32(nil), v...)
	}

	for step := 0; step < rq.M; step++ {
		k := rq.K(step)
		stepCfg := cfg
		stepCfg.Metric = L2 // residual training always minimizes reconstruction error
		centroids, err := KMeans(residuals, k, rq.Dim, stepCfg)
		if err != nil {
			return Wrap(CodeNumericalFailure, "rq", "Train", "k-means failed for step", err)
		}
		rq.Codebooks[step] = centroids

		for i, v := range vectors {
			_, r := rq.beamEncode(v, step)
			residuals[i] = r
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("rq step trained", map[string]interface{}{"step": step, "codewords": k})
		}
	}
	return nil
}

// beamCandidate is one partial encoding carried through the beam search.
type beamCandidate struct {
	codes     []int
	residual  []float32
	sumSq     float32 // ||residual||^2, the running reconstruction error
}

// Encode finds per-step codes for v via beam search: at each step, every
// surviving candidate is expanded by its top-MaxBeamSize nearest codewords,
// and only the MaxBeamSize lowest-error candidates survive to the next step
// (spec.md §4.5; MaxBeamSize=1 degenerates to the greedy encoder).
func (rq *RQ) Encode(v []float32) []int {
	codes, _ := rq.beamEncode(v, rq.M-1)
	return codes
}

// beamEncode runs the beam search over codebooks 0..upTo (inclusive) and
// returns the winning candidate's codes and residual. Train calls this with
// upTo set to the most recently fit step so residuals for the next step
// reflect a beam search over the codebooks seen so far, rather than a single
// greedy nearest-centroid pass (spec.md §4.5).
func (rq *RQ) beamEncode(v []float32, upTo int) ([]int, []float32) {
	init := beamCandidate{codes: nil, residual: append([]float32(nil), v...)}
	init.sumSq = SumSquares(init.residual)
	beam := []beamCandidate{init}

	for step := 0; step <= upTo; step++ {
		cb := rq.Codebooks[step]
		var next []beamCandidate
		for _, cand := range beam {
			ranked := rankCodewords(cand.residual, cb)
			width := rq.MaxBeamSize
			if width > len(ranked) {
				width = len(ranked)
			}
			for _, r := range ranked[:width] {
				residual := make([]float32, rq.Dim)
				SubInto(residual, cand.residual, cb[r.idx])
				codes := append(append([]int(nil), cand.codes...), r.idx)
				next = append(next, beamCandidate{
					codes:    codes,
					residual: residual,
					sumSq:    SumSquares(residual),
				})
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i].sumSq < next[j].sumSq })
		if len(next) > rq.MaxBeamSize {
			next = next[:rq.MaxBeamSize]
		}
		beam = next
	}

	return beam[0].codes, beam[0].residual
}

type rankedCodeword struct {
	idx  int
	dist float32
}

func rankCodewords(residual []float32, codebook [][]float32) []rankedCodeword {
	out := make([]rankedCodeword, len(codebook))
	for i, c := range codebook {
		out[i] = rankedCodeword{idx: i, dist: Distance(L2, residual, c, 2)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	return out
}

// EncodePacked encodes v and packs the result into a code array.
func (rq *RQ) EncodePacked(v []float32) []byte {
	return rq.PackCodes(rq.Encode(v))
}
