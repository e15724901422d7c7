package quant

import "gonum.org/v1/gonum/mat"

// SearchType selects how an AdditiveQuantizer turns a query and a packed
// code into a comparable score during search (spec.md §4.5).
type SearchType int

const (
	// SearchDecompress reconstructs the full vector and applies Metric
	// directly. Slowest, exact given the codebooks.
	SearchDecompress SearchType = iota
	// SearchLUTNonorm uses a per-step lookup table of query.codeword dot
	// products, summed across steps; valid for InnerProduct-style search
	// where the query-independent norm term is dropped.
	SearchLUTNonorm
	// SearchNormFloat adds a per-code norm correction ||x||^2 to the LUT
	// sum for L2-style search. The norm is not stored: AsymmetricDistance
	// recomputes it by decoding the code on every call.
	SearchNormFloat
	// SearchNormQint8 / SearchNormQint4 are accepted and scored exactly like
	// SearchNormFloat; no 8-bit or 4-bit quantized norm table is kept.
	SearchNormQint8
	SearchNormQint4
	// SearchNormCQ reconstructs each step's contribution on demand rather
	// than precomputing a lookup table, trading CPU for memory.
	SearchNormCQ
)

// AQ is the base additive-quantizer contract (spec.md §4.4): M codebooks of
// up to 2^nbits[i] codewords each, whose sum approximates a vector. RQ, LSQ,
// and ProductAQ's inner quantizers all embed this for codebook storage, code
// packing, and LUT-based search.
type AQ struct {
	Dim       int
	M         int   // number of codebooks (steps)
	Nbits     []int // bits per step; len(Nbits) == M
	Codebooks [][][]float32
	Metric    Metric

	bitOffsets []int // cumulative bit offset of step i within a packed code
	totalBits  int
}

// NewAQ allocates an (untrained) additive quantizer with M steps of 2^nbits
// codewords each over vectors of dimension dim.
func NewAQ(dim, m int, nbits []int, metric Metric) *AQ {
	a := &AQ{
		Dim:       dim,
		M:         m,
		Nbits:     append([]int(nil), nbits...),
		Codebooks: make([][][]float32, m),
		Metric:    metric,
	}
	a.computeOffsets()
	return a
}

func (a *AQ) computeOffsets() {
	a.bitOffsets = make([]int, a.M)
	off := 0
	for i, nb := range a.Nbits {
		a.bitOffsets[i] = off
		off += nb
	}
	a.totalBits = off
}

// CodeBytes returns the packed code length in bytes for this quantizer.
func (a *AQ) CodeBytes() int {
	return (a.totalBits + 7) / 8
}

// K returns the codebook size (number of codewords) for step i.
func (a *AQ) K(i int) int { return 1 << uint(a.Nbits[i]) }

// PackCodes bit-packs one per-step code index per step into a single code
// array, MSB-first within each step's field, steps laid out low-to-high.
func (a *AQ) PackCodes(codes []int) []byte {
	out := make([]byte, a.CodeBytes())
	for i, c := range codes {
		writeBits(out, a.bitOffsets[i], a.Nbits[i], uint32(c))
	}
	return out
}

// UnpackCodes reverses PackCodes.
func (a *AQ) UnpackCodes(packed []byte) []int {
	codes := make([]int, a.M)
	for i := range codes {
		codes[i] = int(readBits(packed, a.bitOffsets[i], a.Nbits[i]))
	}
	return codes
}

func writeBits(buf []byte, offset, nbits int, value uint32) {
	for b := 0; b < nbits; b++ {
		bit := (value >> uint(nbits-1-b)) & 1
		pos := offset + b
		byteIdx, bitIdx := pos/8, 7-pos%8
		if bit != 0 {
			buf[byteIdx] |= 1 << uint(bitIdx)
		}
	}
}

func readBits(buf []byte, offset, nbits int) uint32 {
	var v uint32
	for b := 0; b < nbits; b++ {
		pos := offset + b
		byteIdx, bitIdx := pos/8, 7-pos%8
		bit := (buf[byteIdx] >> uint(bitIdx)) & 1
		v = (v << 1) | uint32(bit)
	}
	return v
}

// Decode reconstructs the approximate vector for a set of per-step codes by
// summing the selected codeword from each step's codebook.
func (a *AQ) Decode(codes []int) []float32 {
	out := make([]float32, a.Dim)
	for i, c := range codes {
		cb := a.Codebooks[i]
		if c < 0 || c >= len(cb) {
			continue
		}
		AddInto(out, out, cb[c])
	}
	return out
}

// DecodePacked unpacks then decodes.
func (a *AQ) DecodePacked(packed []byte) []float32 {
	return a.Decode(a.UnpackCodes(packed))
}

// LUT is a per-step lookup table of query-to-codeword scores, the core of
// asymmetric distance computation (spec.md §4.4, §4.5).
type LUT struct {
	step [][]float32 // step[i][code] = score contribution
}

// BuildLUT precomputes, for each step and each codeword, the inner product
// between query and that codeword via a dense matmul (gonum/mat), so a
// search's per-candidate cost collapses to M table lookups and a sum.
func (a *AQ) BuildLUT(query []float32) *LUT {
	lut := &LUT{step: make([][]float32, a.M)}
	q := mat.NewVecDense(a.Dim, toFloat64(query))
	for i, cb := range a.Codebooks {
		if len(cb) == 0 {
			lut.step[i] = nil
			continue
		}
		k := len(cb)
		codeMat := mat.NewDense(k, a.Dim, nil)
		for r, word := range cb {
			for c, x := range word {
				codeMat.Set(r, c, float64(x))
			}
		}
		var scores mat.VecDense
		scores.MulVec(codeMat, q)
		row := make([]float32, k)
		for c := 0; c < k; c++ {
			row[c] = float32(scores.AtVec(c))
		}
		lut.step[i] = row
	}
	return lut
}

// Score sums the per-step lookup contributions for a packed code under a
// LUT built by BuildLUT (SearchLUTNonorm).
func (l *LUT) Score(a *AQ, packed []byte) float32 {
	var total float32
	codes := a.UnpackCodes(packed)
	for i, c := range codes {
		if row := l.step[i]; row != nil && c < len(row) {
			total += row[c]
		}
	}
	return total
}

// AsymmetricDistance scores a packed code against query under the requested
// SearchType. SearchDecompress and SearchNormCQ reconstruct the vector;
// the LUT-based variants take a precomputed LUT.
func (a *AQ) AsymmetricDistance(st SearchType, query []float32, packed []byte, lut *LUT) float32 {
	switch st {
	case SearchDecompress, SearchNormCQ:
		return Distance(a.Metric, query, a.DecodePacked(packed), 2)
	default:
		if lut == nil {
			lut = a.BuildLUT(query)
		}
		score := lut.Score(a, packed)
		if a.Metric.MaximizeSimilarity() {
			return score
		}
		// ||x||^2 - 2*<q,x> equals ||q-x||^2 minus the code-independent
		// ||q||^2 term, which does not affect ranking.
		norm := SumSquares(a.DecodePacked(packed))
		return norm - 2*score
	}
}
