package monitor

import "testing"

func TestRecordLatencyTracksMinMax(t *testing.T) {
	s := NewStats()
	for _, ns := range []uint64{500, 100, 900, 300} {
		s.RecordLatency(ns)
	}
	s.OrdersProcessed.Store(4)

	snap := s.GetSnapshot()
	if snap.MinLatencyNs != 100 {
		t.Fatalf("MinLatencyNs=%d, expected 100", snap.MinLatencyNs)
	}
	if snap.MaxLatencyNs != 900 {
		t.Fatalf("MaxLatencyNs=%d, expected 900", snap.MaxLatencyNs)
	}
	if snap.AvgLatencyNs != 450 {
		t.Fatalf("AvgLatencyNs=%v, expected 450", snap.AvgLatencyNs)
	}
}

func TestSnapshotWithNoSamples(t *testing.T) {
	s := NewStats()
	snap := s.GetSnapshot()
	if snap.MinLatencyNs != 0 || snap.MaxLatencyNs != 0 || snap.AvgLatencyNs != 0 {
		t.Fatalf("empty stats should report zero latency: %+v", snap)
	}
}

func TestHistogramPercentiles(t *testing.T) {
	h := NewLatencyHistogram(100)
	// 1..100 microseconds, recorded as ns.
	for i := 1; i <= 100; i++ {
		h.RecordNs(uint64(i) * 1000)
	}
	stats := h.Stats()
	if stats.Count != 100 {
		t.Fatalf("Count=%d, expected 100", stats.Count)
	}
	if stats.Min != 1 || stats.Max != 100 {
		t.Fatalf("min/max=%v/%v, expected 1/100", stats.Min, stats.Max)
	}
	if stats.P50 < 50 || stats.P50 > 52 {
		t.Fatalf("P50=%v, expected ~51", stats.P50)
	}
	if stats.P99 < 99 {
		t.Fatalf("P99=%v, expected >=99", stats.P99)
	}
}

func TestHistogramSlidingWindow(t *testing.T) {
	h := NewLatencyHistogram(10)
	for i := 0; i < 25; i++ {
		h.RecordNs(uint64(i) * 1000)
	}
	stats := h.Stats()
	if stats.Count != 10 {
		t.Fatalf("Count=%d, expected window size 10", stats.Count)
	}
	if stats.Min != 15 {
		t.Fatalf("Min=%v, expected oldest retained sample 15", stats.Min)
	}
}
