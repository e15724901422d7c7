package quant

import (
	"container/heap"

	"github.com/kestrelvec/annquant/pkg/observability"
)

// TopKEntry is one candidate result tracked by a Selector.
type TopKEntry struct {
	ID       int64
	Distance float32
}

// Selector tracks the k best (ID, Distance) pairs seen across a stream of
// Push calls (spec.md §4.9). It keeps a bounded heap rooted at the current
// worst kept entry, so Push is O(log k) and a full scan is O(n log k).
//
// Ties (equal Distance) are broken in favor of the smaller ID, matching the
// deterministic ordering spec.md requires for reproducible results across
// runs and across parallel shards.
type Selector struct {
	k         int
	maximize  bool
	entries   []TopKEntry
	evictions int64

	metrics *observability.Metrics
}

// NewSelector returns a Selector that keeps the k entries that are best
// under m's ordering (smallest distance, unless m maximizes similarity).
func NewSelector(k int, m Metric) *Selector {
	return &Selector{k: k, maximize: m.MaximizeSimilarity()}
}

// WithMetrics attaches Prometheus instrumentation so every Push reports the
// annquant_topk_pushed_total / annquant_topk_evicted_total counters.
// Optional; a Selector with no attached Metrics simply skips recording.
func (s *Selector) WithMetrics(m *observability.Metrics) *Selector {
	s.metrics = m
	return s
}

// Push offers a candidate. It is kept if the heap has room or it beats the
// current worst kept entry; otherwise it is dropped and EvictedCount
// increments only when an existing entry is displaced.
func (s *Selector) Push(id int64, dist float32) {
	if s.k <= 0 {
		return
	}
	if len(s.entries) < s.k {
		heap.Push((*selectorHeap)(s), TopKEntry{ID: id, Distance: dist})
		if s.metrics != nil {
			s.metrics.RecordTopKPush(false)
		}
		return
	}
	worst := s.entries[0]
	evicted := s.worseThan(worst, TopKEntry{ID: id, Distance: dist})
	if evicted {
		heap.Pop((*selectorHeap)(s))
		heap.Push((*selectorHeap)(s), TopKEntry{ID: id, Distance: dist})
		s.evictions++
	}
	if s.metrics != nil {
		s.metrics.RecordTopKPush(evicted)
	}
}

// worseThan reports whether candidate strictly beats current (so current,
// the heap root, should be evicted). On an exact distance tie, the smaller
// ID wins, matching Results' tie-break so admission and final ordering agree.
func (s *Selector) worseThan(current, candidate TopKEntry) bool {
	if candidate.Distance == current.Distance {
		return candidate.ID < current.ID
	}
	if s.maximize {
		return candidate.Distance > current.Distance
	}
	return candidate.Distance < current.Distance
}

// EvictedCount returns how many entries were displaced across all Push
// calls, exposed for the annquant_topk metrics.
func (s *Selector) EvictedCount() int64 { return s.evictions }

// Results drains the selector into ascending-by-rank order (best first),
// breaking ties by smaller ID, and resets the selector to empty.
func (s *Selector) Results() []TopKEntry {
	out := make([]TopKEntry, len(s.entries))
	copy(out, s.entries)
	sortByRank(out, s.maximize)
	s.entries = nil
	return out
}

// Len reports how many entries are currently held (<= k).
func (s *Selector) Len() int { return len(s.entries) }

func sortByRank(entries []TopKEntry, maximize bool) {
	// insertion sort: k is small in practice and this keeps the tie-break
	// (smaller ID wins) trivially stable without importing sort.Slice's
	// less-predictable comparator semantics for equal keys.
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 && rankLess(entries[j], entries[j-1], maximize) {
			entries[j], entries[j-1] = entries[j-1], entries[j]
			j--
		}
	}
}

func rankLess(a, b TopKEntry, maximize bool) bool {
	if a.Distance != b.Distance {
		if maximize {
			return a.Distance > b.Distance
		}
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// selectorHeap adapts Selector's entries slice to container/heap, ordered
// so the worst kept entry (first to be evicted) sits at the root.
type selectorHeap Selector

func (h *selectorHeap) Len() int { return len(h.entries) }

func (h *selectorHeap) Less(i, j int) bool {
	// root = current worst kept entry, so Less is the *inverse* of rank order
	return rankLess(h.entries[j], h.entries[i], h.maximize)
}

func (h *selectorHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *selectorHeap) Push(x any) {
	h.entries = append(h.entries, x.(TopKEntry))
}

func (h *selectorHeap) Pop() any {
	old := h.entries
	n := len(old)
	item := old[n-1]
	h.entries = old[:n-1]
	return item
}
