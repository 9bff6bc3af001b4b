package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Monitor periodically logs a counter snapshot. It only reads atomics and
// never touches pool or index state.
type Monitor struct {
	Stats     *Stats
	Histogram *LatencyHistogram
	Interval  time.Duration
	Log       zerolog.Logger
	Alerter   *Alerter
}

// Run blocks until ctx is canceled, emitting one snapshot per interval.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.Stats.GetSnapshot()
			ev := m.Log.Info().
				Uint64("received", snap.OrdersReceived).
				Uint64("processed", snap.OrdersProcessed).
				Uint64("rejected", snap.OrdersRejected).
				Uint64("dup_dropped", snap.DuplicatesDropped).
				Uint64("fills", snap.FillsReceived).
				Uint64("published", snap.MessagesPublished).
				Uint64("queue_full", snap.QueueFullDrops).
				Uint64("pool_exhausted", snap.PoolExhausted).
				Float64("avg_latency_ns", snap.AvgLatencyNs)
			if m.Histogram != nil {
				lat := m.Histogram.Stats()
				ev = ev.Float64("p50_us", lat.P50).Float64("p99_us", lat.P99)
			}
			ev.Msg("engine stats")
			if m.Alerter != nil {
				m.Alerter.Check(snap)
			}
		}
	}
}
