package quant

import "testing"

func TestMean(t *testing.T) {
	vectors := [][]float32{{1, 1}, {3, 3}, {2, 2}}
	got := Mean(vectors, 2)
	if got[0] != 2 || got[1] != 2 {
		t.Errorf("Mean = %v, want [2 2]", got)
	}
}

func TestMeanEmpty(t *testing.T) {
	got := Mean(nil, 3)
	if len(got) != 3 {
		t.Fatalf("expected zero vector of length 3, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if diff := NormL2(v) - 1; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("normalized norm = %v, want 1", NormL2(v))
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	for _, x := range v {
		if x != 0 {
			t.Error("normalizing a zero vector should leave it unchanged")
		}
	}
}

func TestNearestTieBreaksSmallerIndex(t *testing.T) {
	codebook := [][]float32{{1, 0}, {1, 0}}
	idx, _ := Nearest(L2, []float32{1, 0}, codebook)
	if idx != 0 {
		t.Errorf("Nearest tie should pick smaller index, got %d", idx)
	}
}

func TestSubAddRoundTrip(t *testing.T) {
	a := []float32{5, 6, 7}
	b := []float32{1, 2, 3}
	residual := make([]float32, 3)
	SubInto(residual, a, b)

	restored := make([]float32, 3)
	AddInto(restored, residual, b)
	for i := range a {
		if restored[i] != a[i] {
			t.Errorf("round trip mismatch at %d: got %v, want %v", i, restored[i], a[i])
		}
	}
}
