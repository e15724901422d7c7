package lsh

import (
	"context"
	"testing"
)

func lshFixture() [][]float32 {
	return [][]float32{
		{1, 1, 1, 1},
		{1, 1, 1, -1},
		{-1, -1, -1, -1},
		{-1, -1, -1, 1},
	}
}

func TestLSHHashIsDeterministic(t *testing.T) {
	idx := New(4, Config{NBits: 4, UseRotation: true, Seed: 1})
	if err := idx.Train(context.Background(), lshFixture()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	v := []float32{1, 1, 1, 1}
	h1 := idx.Hash(v)
	h2 := idx.Hash(v)
	if len(h1) != len(h2) {
		t.Fatal("hash length mismatch")
	}
	for i := range h1 {
		if h1[i] != h2[i] {
			t.Errorf("hash not deterministic at byte %d", i)
		}
	}
}

func TestLSHSearchFindsExactMatch(t *testing.T) {
	idx := New(4, Config{NBits: 4})
	if err := idx.Train(context.Background(), lshFixture()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if err := idx.Add(context.Background(), lshFixture()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := idx.Search(context.Background(), [][]float32{{1, 1, 1, 1}}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0][0].ID != 0 {
		t.Errorf("expected exact self-match as id 0, got %+v", results[0][0])
	}
}

func TestLSHTrainThresholdsFalseKeepsZeroThresholds(t *testing.T) {
	idx := New(4, Config{NBits: 4})
	if err := idx.Train(context.Background(), lshFixture()); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if idx.thresh != nil {
		t.Errorf("expected nil (all-zero) thresholds when TrainThresholds is false, got %v", idx.thresh)
	}
}

func TestLSHTrainThresholdsComputesMedian(t *testing.T) {
	idx := New(1, Config{NBits: 1, TrainThresholds: true})
	vectors := [][]float32{{1}, {2}, {3}, {4}}
	if err := idx.Train(context.Background(), vectors); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	want := float32(2.5) // median of 1,2,3,4, not the mean (which is also 2.5 here by coincidence)
	if len(idx.thresh) != 1 || idx.thresh[0] != want {
		t.Errorf("thresh = %v, want [%v]", idx.thresh, want)
	}

	// A skewed sample distinguishes median from mean: mean would be 3.4,
	// median is 2.
	idx2 := New(1, Config{NBits: 1, TrainThresholds: true})
	skewed := [][]float32{{1}, {1}, {2}, {3}, {10}}
	if err := idx2.Train(context.Background(), skewed); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if len(idx2.thresh) != 1 || idx2.thresh[0] != 2 {
		t.Errorf("thresh = %v, want [2] (median), not the mean", idx2.thresh)
	}
}

func TestLSHNBitsDefaultsToDim(t *testing.T) {
	idx := New(6, Config{})
	if idx.NBits() != 6 {
		t.Errorf("NBits = %d, want 6", idx.NBits())
	}
}

func TestLSHResetClearsState(t *testing.T) {
	idx := New(4, Config{NBits: 4})
	idx.Train(context.Background(), lshFixture())
	idx.Add(context.Background(), lshFixture())
	idx.Reset()
	if idx.Ntotal() != 0 {
		t.Errorf("Ntotal after Reset = %d, want 0", idx.Ntotal())
	}
	if !idx.IsTrained() {
		t.Error("expected IsTrained to stay true after Reset")
	}
}
