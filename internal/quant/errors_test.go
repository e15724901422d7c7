package quant

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeNotTrained, "ivf", "Search", "index not trained")
	if !errors.Is(err, ErrNotTrained) {
		t.Error("expected errors.Is to match ErrNotTrained by code")
	}
	if errors.Is(err, ErrDimensionMismatch) {
		t.Error("should not match a different code")
	}
}

func TestErrorWrapUnwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := Wrap(CodeNumericalFailure, "rq", "Train", "k-means failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorMessageIncludesComponentAndOp(t *testing.T) {
	err := New(CodeDimensionMismatch, "flat", "Search", "query dimension mismatch")
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty message")
	}
	if !strings.Contains(msg, "flat.Search") {
		t.Errorf("expected message to include component and op %q, got %q", "flat.Search", msg)
	}
}
