package observability

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// promauto registers collectors against the default registry, so every
// test in this package must share one Metrics instance: a second
// NewMetrics() call would re-register the same metric names and panic.
var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

func testMetrics() *Metrics {
	sharedMetricsOnce.Do(func() { sharedMetrics = NewMetrics() })
	return sharedMetrics
}

func TestMetrics(t *testing.T) {
	m := testMetrics()

	t.Run("NewMetrics", func(t *testing.T) {
		if m == nil {
			t.Fatal("NewMetrics returned nil")
		}
		if m.TrainingsTotal == nil {
			t.Error("TrainingsTotal not initialized")
		}
		if m.TrainingDuration == nil {
			t.Error("TrainingDuration not initialized")
		}
		if m.VectorsAdded == nil {
			t.Error("VectorsAdded not initialized")
		}
		if m.TopKPushedTotal == nil {
			t.Error("TopKPushedTotal not initialized")
		}
	})

	t.Run("RecordTraining", func(t *testing.T) {
		m.RecordTraining("rq", 100*time.Millisecond, nil)
		m.RecordTraining("lsq", 5*time.Second, errors.New("boom"))
		m.RecordTrainingLoss("rq", 0.0123)
	})

	t.Run("RecordAdd", func(t *testing.T) {
		m.RecordAdd("flat", 1, 1)
		for i := 0; i < 50; i++ {
			m.RecordAdd("ivf", 1, i+1)
		}
	})

	t.Run("RecordSearch", func(t *testing.T) {
		m.RecordSearch("flat", 50*time.Microsecond, 10)
		m.RecordSearch("ivf", 1*time.Millisecond, 25)
		for i := 1; i <= 10; i++ {
			m.RecordSearch("lsh", time.Duration(i)*time.Microsecond, i)
		}
	})

	t.Run("RecordIVFListSizes", func(t *testing.T) {
		m.RecordIVFListSizes("ivf-default", []int{0, 5, 100, 4000})
	})

	t.Run("RecordTopKPush", func(t *testing.T) {
		m.RecordTopKPush(false)
		m.RecordTopKPush(true)
	})
}

type codedErr struct{ code string }

func (e codedErr) Error() string { return "coded: " + e.code }
func (e codedErr) Code() string  { return e.code }

func TestErrorCode(t *testing.T) {
	if got := errorCode(errors.New("plain")); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
	if got := errorCode(codedErr{code: "NotTrained"}); got != "NotTrained" {
		t.Errorf("expected NotTrained, got %q", got)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	m := testMetrics()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				m.TopKPushedTotal.Inc()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
