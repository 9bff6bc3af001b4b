package journal

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"exec-gateway/pkg/wire"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordReportAndFill(t *testing.T) {
	j := openTestJournal(t)

	j.RecordReport(wire.ExecutionReport{
		Version: 1, ClID: "A1", Status: "accepted",
		ExchangeOrderID: "E1", ReasonCode: "ok", ReasonText: "OK", TsNs: 123,
	})
	j.RecordFill(wire.ExecutionFill{
		Version: 1, ClID: "A1", ExecID: "X1", SymbolOrPair: "BTC-USDT",
		Price: 50000, Size: 1, TsNs: 124,
		Tags: map[string]string{"execution_source": "internal"},
	})

	reports, err := j.ReportCount()
	if err != nil {
		t.Fatalf("ReportCount: %v", err)
	}
	if reports != 1 {
		t.Fatalf("reports = %d, want 1", reports)
	}
	fills, err := j.FillCount()
	if err != nil {
		t.Fatalf("FillCount: %v", err)
	}
	if fills != 1 {
		t.Fatalf("fills = %d, want 1", fills)
	}
}

func TestRecordDispatchesByTopic(t *testing.T) {
	j := openTestJournal(t)

	report, _ := json.Marshal(wire.ExecutionReport{ClID: "B1", Status: "rejected", ReasonCode: "venue_reject", TsNs: 1})
	fill, _ := json.Marshal(wire.ExecutionFill{ClID: "B1", ExecID: "X2", TsNs: 2})

	if err := j.Record(wire.TopicReport, report); err != nil {
		t.Fatalf("Record report: %v", err)
	}
	if err := j.Record(wire.TopicFill, fill); err != nil {
		t.Fatalf("Record fill: %v", err)
	}
	if err := j.Record("exec.unknown", []byte("{}")); err != nil {
		t.Fatalf("unknown topic should be ignored: %v", err)
	}

	reports, _ := j.ReportCount()
	fills, _ := j.FillCount()
	if reports != 1 || fills != 1 {
		t.Fatalf("counts = (%d, %d), want (1, 1)", reports, fills)
	}
}

func TestRecordRejectsMalformedPayload(t *testing.T) {
	j := openTestJournal(t)
	if err := j.Record(wire.TopicReport, []byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestWriterMetrics(t *testing.T) {
	j := openTestJournal(t)
	j.RecordReport(wire.ExecutionReport{ClID: "C1", Status: "accepted", TsNs: 1})
	if err := j.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	m := j.Metrics()
	if m.TotalWrites != 1 || m.TotalBatches != 1 {
		t.Fatalf("metrics = %+v, want one write in one batch", m)
	}
}
