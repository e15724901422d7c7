package index

import (
	"math"
	"testing"

	"github.com/kestrelvec/annquant/internal/quant"
)

func TestMissingDistanceSign(t *testing.T) {
	if !math.IsInf(float64(MissingDistance(quant.L2)), 1) {
		t.Error("L2 missing distance should be +Inf")
	}
	if !math.IsInf(float64(MissingDistance(quant.InnerProduct)), -1) {
		t.Error("InnerProduct missing distance should be -Inf")
	}
}

func TestFillMissingPadsTail(t *testing.T) {
	results := []Result{{ID: 1, Distance: 0.5}}
	out := FillMissing(results, 3, quant.L2)
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[0].ID != 1 {
		t.Errorf("first result should be preserved, got %+v", out[0])
	}
	for i := 1; i < 3; i++ {
		if out[i].ID != MissingID {
			t.Errorf("result[%d].ID = %d, want MissingID", i, out[i].ID)
		}
		if !math.IsInf(float64(out[i].Distance), 1) {
			t.Errorf("result[%d].Distance = %v, want +Inf", i, out[i].Distance)
		}
	}
}

func TestFillMissingTruncatesExcess(t *testing.T) {
	results := []Result{{ID: 1}, {ID: 2}, {ID: 3}}
	out := FillMissing(results, 2, quant.L2)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestNaNFill(t *testing.T) {
	v := make([]float32, 4)
	NaNFill(v)
	for i, x := range v {
		if !math.IsNaN(float64(x)) {
			t.Errorf("v[%d] = %v, want NaN", i, x)
		}
	}
}

func TestFillMissingBinary(t *testing.T) {
	results := []BinaryResult{{ID: 1, Distance: 2}}
	out := FillMissingBinary(results, 3, 4)
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	if out[1].ID != MissingID || out[1].Distance != 32 {
		t.Errorf("padding entry = %+v, want {MissingID, 32}", out[1])
	}
}
