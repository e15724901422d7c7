package quant

import "testing"

func TestAQPackUnpackCodes(t *testing.T) {
	a := NewAQ(4, 3, []int{8, 4, 6}, L2)
	codes := []int{200, 5, 33}
	packed := a.PackCodes(codes)
	got := a.UnpackCodes(packed)
	for i := range codes {
		if got[i] != codes[i] {
			t.Errorf("step %d: got %d, want %d", i, got[i], codes[i])
		}
	}
}

func TestAQCodeBytes(t *testing.T) {
	a := NewAQ(4, 2, []int{8, 8}, L2)
	if a.CodeBytes() != 2 {
		t.Errorf("CodeBytes = %d, want 2", a.CodeBytes())
	}

	b := NewAQ(4, 3, []int{4, 4, 4}, L2)
	if b.CodeBytes() != 2 {
		t.Errorf("CodeBytes = %d, want 2 (12 bits rounds up to 2 bytes)", b.CodeBytes())
	}
}

func TestAQDecodeSumsCodewords(t *testing.T) {
	a := NewAQ(2, 2, []int{1, 1}, L2)
	a.Codebooks[0] = [][]float32{{1, 0}, {0, 0}}
	a.Codebooks[1] = [][]float32{{0, 0}, {0, 1}}

	got := a.Decode([]int{0, 1})
	want := []float32{1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Decode()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAQAsymmetricDistanceDecompressMatchesDirect(t *testing.T) {
	a := NewAQ(2, 1, []int{1}, L2)
	a.Codebooks[0] = [][]float32{{1, 1}, {5, 5}}

	packed := a.PackCodes([]int{0})
	query := []float32{0, 0}

	viaDecompress := a.AsymmetricDistance(SearchDecompress, query, packed, nil)
	direct := Distance(L2, query, a.DecodePacked(packed), 2)
	if viaDecompress != direct {
		t.Errorf("decompress distance = %v, want %v", viaDecompress, direct)
	}
}
