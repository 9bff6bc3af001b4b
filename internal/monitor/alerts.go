package monitor

import "fmt"

// AlertSink is a pluggable delivery target for saturation alerts.
type AlertSink interface {
	Send(message string) error
}

// LogSink delivers alerts through a callback, usually a zerolog warn.
type LogSink struct {
	Fn func(message string)
}

func (s LogSink) Send(message string) error {
	if s.Fn != nil {
		s.Fn(message)
	}
	return nil
}

// Thresholds bounds how many drop events per monitor interval are tolerated
// before an alert fires. Zero means any increase fires.
type Thresholds struct {
	QueueFullDrops uint64
	PoolExhausted  uint64
	UpdatesDropped uint64
}

// Alerter compares consecutive snapshots and raises an alert when a drop
// counter grows past its per-interval threshold. Called from the monitor
// goroutine only; prev needs no synchronization.
type Alerter struct {
	Sink       AlertSink
	Thresholds Thresholds

	prev Snapshot
}

// Check folds in one snapshot and sends alerts for any counter whose delta
// since the previous call exceeds its threshold.
func (a *Alerter) Check(snap Snapshot) {
	if a.Sink == nil {
		a.prev = snap
		return
	}
	a.report("outbound queue full", snap.QueueFullDrops, a.prev.QueueFullDrops, a.Thresholds.QueueFullDrops)
	a.report("order pool exhausted", snap.PoolExhausted, a.prev.PoolExhausted, a.Thresholds.PoolExhausted)
	a.report("venue updates dropped", snap.UpdatesDropped, a.prev.UpdatesDropped, a.Thresholds.UpdatesDropped)
	a.prev = snap
}

func (a *Alerter) report(what string, cur, prev, limit uint64) {
	if cur <= prev {
		return
	}
	delta := cur - prev
	if delta > limit {
		_ = a.Sink.Send(fmt.Sprintf("%s: %d events since last check (total %d)", what, delta, cur))
	}
}
