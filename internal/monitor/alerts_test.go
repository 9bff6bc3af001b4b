package monitor

import (
	"strings"
	"testing"
)

type recordingSink struct {
	messages []string
}

func (s *recordingSink) Send(msg string) error {
	s.messages = append(s.messages, msg)
	return nil
}

func TestAlerterFiresOnDeltaAboveThreshold(t *testing.T) {
	sink := &recordingSink{}
	a := &Alerter{Sink: sink, Thresholds: Thresholds{QueueFullDrops: 5}}

	a.Check(Snapshot{QueueFullDrops: 3})
	if len(sink.messages) != 0 {
		t.Fatalf("3 drops under threshold 5 should not alert, got %v", sink.messages)
	}

	a.Check(Snapshot{QueueFullDrops: 20})
	if len(sink.messages) != 1 {
		t.Fatalf("expected 1 alert, got %v", sink.messages)
	}
	if !strings.Contains(sink.messages[0], "queue full") {
		t.Fatalf("unexpected alert text: %s", sink.messages[0])
	}

	// No growth, no alert.
	a.Check(Snapshot{QueueFullDrops: 20})
	if len(sink.messages) != 1 {
		t.Fatalf("unchanged counter alerted: %v", sink.messages)
	}
}

func TestAlerterZeroThresholdFiresOnAnyIncrease(t *testing.T) {
	sink := &recordingSink{}
	a := &Alerter{Sink: sink}

	a.Check(Snapshot{})
	a.Check(Snapshot{PoolExhausted: 1, UpdatesDropped: 2})
	if len(sink.messages) != 2 {
		t.Fatalf("expected 2 alerts, got %v", sink.messages)
	}
}
