package flat

import (
	"context"
	"math/bits"
	"sync"

	"github.com/kestrelvec/annquant/internal/parallel"
	"github.com/kestrelvec/annquant/internal/quant"
	"github.com/kestrelvec/annquant/pkg/index"
)

// BinaryIndex is a flat (brute-force) store of packed-bit codes compared
// under Hamming distance (spec.md §4.10).
type BinaryIndex struct {
	mu        sync.RWMutex
	codeBytes int
	chunk     int
	codes     [][]byte
	ids       []int64
	nextID    int64
}

// NewBinary constructs an empty binary flat index over codes of the given
// byte length.
func NewBinary(codeBytes, chunkSize int) *BinaryIndex {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &BinaryIndex{codeBytes: codeBytes, chunk: chunkSize}
}

// Add appends packed codes, assigning sequential ids.
func (b *BinaryIndex) Add(ctx context.Context, codes [][]byte) error {
	for _, c := range codes {
		if len(c) != b.codeBytes {
			return quant.New(quant.CodeDimensionMismatch, "flat-binary", "Add", "code length mismatch")
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range codes {
		b.codes = append(b.codes, append([]byte(nil), c...))
		b.ids = append(b.ids, b.nextID)
		b.nextID++
	}
	return nil
}

// Search returns the k nearest codes under Hamming distance for each
// query, tail-padded with (MissingID, a maximal distance) when fewer than
// k codes are stored.
func (b *BinaryIndex) Search(ctx context.Context, queries [][]byte, k int) ([][]index.BinaryResult, error) {
	b.mu.RLock()
	codes := b.codes
	ids := b.ids
	b.mu.RUnlock()

	out := make([][]index.BinaryResult, len(queries))
	for qi, q := range queries {
		if len(q) != b.codeBytes {
			return nil, quant.New(quant.CodeDimensionMismatch, "flat-binary", "Search", "query code length mismatch")
		}

		type acc struct {
			entries []index.BinaryResult
		}
		merged, err := parallel.MapReduce(ctx, len(codes), b.chunk,
			func(_ context.Context, start, end int) (acc, error) {
				var a acc
				for i := start; i < end; i++ {
					a.entries = append(a.entries, index.BinaryResult{
						ID:       ids[i],
						Distance: hammingDistance(q, codes[i]),
					})
				}
				return a, nil
			},
			func(x, y acc) acc { x.entries = append(x.entries, y.entries...); return x },
			acc{},
		)
		if err != nil {
			return nil, err
		}

		results := topKBinary(merged.entries, k)
		out[qi] = index.FillMissingBinary(results, k, b.codeBytes)
	}
	return out, nil
}

// topKBinary selects the k smallest-distance entries, ties broken by
// smaller id, without pulling in the float32-oriented quant.Selector.
func topKBinary(entries []index.BinaryResult, k int) []index.BinaryResult {
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && binaryLess(entries[j], entries[j-1]) {
			entries[j], entries[j-1] = entries[j-1], entries[j]
			j--
		}
	}
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

func binaryLess(a, b index.BinaryResult) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

func hammingDistance(a, b []byte) uint32 {
	var d uint32
	for i := range a {
		d += uint32(bits.OnesCount8(a[i] ^ b[i]))
	}
	return d
}

// Ntotal returns how many codes are currently stored.
func (b *BinaryIndex) Ntotal() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.codes))
}

// CodeBytes returns the configured packed code length.
func (b *BinaryIndex) CodeBytes() int { return b.codeBytes }
