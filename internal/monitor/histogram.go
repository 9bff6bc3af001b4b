package monitor

import (
	"sort"
	"sync"
)

// LatencyHistogram keeps a sliding window of latency samples in microseconds
// and computes percentiles lazily: the window is marked dirty on every Record
// and only re-sorted when Stats is asked for.
type LatencyHistogram struct {
	mu      sync.Mutex
	samples []float64
	maxSize int
	dirty   bool
	cached  LatencyStats
}

// LatencyStats holds computed percentiles over the current window.
type LatencyStats struct {
	Min   float64 `json:"min_us"`
	Max   float64 `json:"max_us"`
	Avg   float64 `json:"avg_us"`
	P50   float64 `json:"p50_us"`
	P95   float64 `json:"p95_us"`
	P99   float64 `json:"p99_us"`
	Count int     `json:"count"`
}

// NewLatencyHistogram creates a sliding-window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// RecordNs adds one sample given in nanoseconds.
func (h *LatencyHistogram) RecordNs(ns uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, float64(ns)/1e3)
	h.dirty = true
}

// Stats returns min, max, avg, p50, p95, p99 over the window.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cached.Count > 0 {
		return h.cached
	}
	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	h.cached = LatencyStats{
		Min:   sorted[0],
		Max:   sorted[n-1],
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[min(int(float64(n)*0.95), n-1)],
		P99:   sorted[min(int(float64(n)*0.99), n-1)],
		Count: n,
	}
	h.dirty = false
	return h.cached
}
