package quant

// Sub is the contract a Product-AQ composes: anything with a trainable
// additive-quantizer encode/decode contract, satisfied by *RQ and *LSQ via
// the adapters below (spec.md §4.7: "Product-RQ" and "Product-LSQ" are
// ProductAQ instantiated over those two families).
type Sub interface {
	Train(vectors [][]float32) *Error
	EncodePacked(v []float32) []byte
	DecodePacked(packed []byte) []float32
	CodeBytes() int
}

// RQSub adapts *RQ to Sub by fixing the k-means config used for every
// step's training pass.
type RQSub struct {
	*RQ
	KMeans KMeansConfig
}

func (s *RQSub) Train(vectors [][]float32) *Error { return s.RQ.Train(vectors, s.KMeans) }

// LSQSub adapts *LSQ to Sub by fixing the outer ALS/ICM round count.
type LSQSub struct {
	*LSQ
	Iters int
}

func (s *LSQSub) Train(vectors [][]float32) *Error { return s.LSQ.Train(vectors, s.Iters) }

// ProductAQ splits a vector into contiguous subspaces and quantizes each
// independently with its own Sub (spec.md §4.7). An optional Rotation is
// applied before splitting, so subspace energy can be balanced regardless
// of how the caller's dimensions happen to be ordered.
type ProductAQ struct {
	Dim      int
	Splits   []int // cumulative dimension boundaries, len(Splits) == len(Subs)+1
	Subs     []Sub
	Rotation *Rotation
}

// NewProductAQ builds a ProductAQ over nsplits contiguous subspaces of dim:
// every split except the last gets ceil(dim/nsplits) dimensions, and the
// last split absorbs whatever remains (spec.md §4.7; e.g. dim=10, nsplits=3
// gives widths [4,4,2]). rot may be nil to disable rotation.
func NewProductAQ(dim, nsplits int, rot *Rotation, makeSub func(subDim int) Sub) *ProductAQ {
	splits := make([]int, nsplits+1)
	width := (dim + nsplits - 1) / nsplits
	cursor := 0
	for i := 0; i < nsplits-1; i++ {
		cursor += width
		splits[i+1] = cursor
	}
	splits[nsplits] = dim

	subs := make([]Sub, nsplits)
	for i := 0; i < nsplits; i++ {
		subs[i] = makeSub(splits[i+1] - splits[i])
	}

	return &ProductAQ{Dim: dim, Splits: splits, Subs: subs, Rotation: rot}
}

func (p *ProductAQ) project(v []float32) []float32 {
	if p.Rotation == nil {
		return v
	}
	return p.Rotation.Apply(v)
}

func (p *ProductAQ) unproject(v []float32) []float32 {
	// Rotation matrices produced by NewRandomRotation are orthonormal, so
	// the inverse is the transpose: ApplyTranspose multiplies by Q^T
	// instead of deriving a second matrix here.
	if p.Rotation == nil {
		return v
	}
	return p.Rotation.ApplyTranspose(v)
}

func (p *ProductAQ) split(v []float32) [][]float32 {
	out := make([][]float32, len(p.Subs))
	for i := range p.Subs {
		out[i] = v[p.Splits[i]:p.Splits[i+1]]
	}
	return out
}

// Train projects (if rotated) and splits the training set, then trains
// each subspace's quantizer independently.
func (p *ProductAQ) Train(vectors [][]float32) *Error {
	projected := make([][]float32, len(vectors))
	for i, v := range vectors {
		projected[i] = p.project(v)
	}

	for s := range p.Subs {
		sub := make([][]float32, len(vectors))
		for i, v := range projected {
			sub[i] = v[p.Splits[s]:p.Splits[s+1]]
		}
		if err := p.Subs[s].Train(sub); err != nil {
			return err
		}
	}
	return nil
}

// EncodePacked projects, splits, and encodes v, concatenating each
// subspace's packed code in order. With nsplits=1 and no rotation this is
// byte-identical to the single inner Sub's own EncodePacked.
func (p *ProductAQ) EncodePacked(v []float32) []byte {
	projected := p.project(v)
	var out []byte
	for s, sub := range p.Subs {
		part := projected[p.Splits[s]:p.Splits[s+1]]
		out = append(out, sub.EncodePacked(part)...)
	}
	return out
}

// DecodePacked splits a concatenated packed code back into per-subspace
// codes, decodes each, concatenates, and un-rotates.
func (p *ProductAQ) DecodePacked(packed []byte) []float32 {
	out := make([]float32, p.Dim)
	offset := 0
	for s, sub := range p.Subs {
		n := sub.CodeBytes()
		part := sub.DecodePacked(packed[offset : offset+n])
		copy(out[p.Splits[s]:p.Splits[s+1]], part)
		offset += n
	}
	return p.unproject(out)
}

// CodeBytes returns the total packed code length across every subspace.
func (p *ProductAQ) CodeBytes() int {
	n := 0
	for _, s := range p.Subs {
		n += s.CodeBytes()
	}
	return n
}
