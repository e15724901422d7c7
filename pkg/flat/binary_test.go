package flat

import (
	"context"
	"testing"
)

func TestBinarySearchHammingOrdering(t *testing.T) {
	b := NewBinary(1, 0)
	codes := [][]byte{
		{0b00000000},
		{0b00000001},
		{0b11111111},
	}
	if err := b.Add(context.Background(), codes); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := b.Search(context.Background(), [][]byte{{0b00000000}}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0][0].ID != 0 || results[0][0].Distance != 0 {
		t.Errorf("expected exact match first, got %+v", results[0][0])
	}
	if results[0][1].ID != 1 || results[0][1].Distance != 1 {
		t.Errorf("expected 1-bit match second, got %+v", results[0][1])
	}
}

func TestBinaryCodeLengthMismatch(t *testing.T) {
	b := NewBinary(2, 0)
	if err := b.Add(context.Background(), [][]byte{{1}}); err == nil {
		t.Fatal("expected code length mismatch error")
	}
}

func TestHammingDistance(t *testing.T) {
	if d := hammingDistance([]byte{0xFF}, []byte{0x00}); d != 8 {
		t.Errorf("hammingDistance = %d, want 8", d)
	}
	if d := hammingDistance([]byte{0xFF}, []byte{0xFF}); d != 0 {
		t.Errorf("hammingDistance = %d, want 0", d)
	}
}
