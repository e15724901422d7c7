package index

import "context"

// BinaryFillByte is the reconstruction-sentinel byte for packed-bit
// vectors whose original value can't be recovered (spec.md §6): 0xFF, the
// all-one byte, which is also a valid stored byte, so it marks a missing
// slot only in combination with MissingID.
const BinaryFillByte byte = 0xFF

// BinaryResult is one (id, Hamming distance) pair from a BinaryIndex
// search. Hamming distance is always a non-negative integer bit count, so
// it's tracked separately from Result's float32 Distance.
type BinaryResult struct {
	ID       int64
	Distance uint32
}

// BinaryIndex is the contract for indexes over packed-bit codes under
// Hamming distance (spec.md §4.10): LSH's sign-bit codes and any index
// built directly over pre-binarized data.
type BinaryIndex interface {
	Add(ctx context.Context, codes [][]byte) error
	Search(ctx context.Context, queries [][]byte, k int) ([][]BinaryResult, error)

	Ntotal() int64
	CodeBytes() int
}

// FillMissingBinary pads out to exactly k results with (MissingID, a
// maximal Hamming distance) entries.
func FillMissingBinary(results []BinaryResult, k int, codeBytes int) []BinaryResult {
	if len(results) >= k {
		return results[:k]
	}
	out := make([]BinaryResult, k)
	copy(out, results)
	worst := uint32(codeBytes * 8)
	for i := len(results); i < k; i++ {
		out[i] = BinaryResult{ID: MissingID, Distance: worst}
	}
	return out
}
