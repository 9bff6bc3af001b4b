// Package journal persists every published report and fill to SQLite for
// offline reconciliation and audit. It sits behind the publish path and never
// touches engine state.
package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver

	"exec-gateway/pkg/wire"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS exec_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cl_id TEXT NOT NULL,
    status TEXT NOT NULL,
    exchange_order_id TEXT,
    reason_code TEXT,
    reason_text TEXT,
    ts_ns INTEGER NOT NULL,
    tags TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS exec_fills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cl_id TEXT NOT NULL,
    exchange_order_id TEXT,
    exec_id TEXT NOT NULL,
    symbol TEXT,
    price REAL NOT NULL,
    size REAL NOT NULL,
    fee_currency TEXT,
    fee_amount REAL,
    liquidity TEXT,
    ts_ns INTEGER NOT NULL,
    tags TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reports_cl_id ON exec_reports(cl_id);
CREATE INDEX IF NOT EXISTS idx_fills_cl_id ON exec_fills(cl_id);
`

// Journal writes reports and fills through a batching writer so the publish
// goroutine never waits on a disk transaction.
type Journal struct {
	db     *sql.DB
	writer *batchWriter
	log    zerolog.Logger
}

// Open creates or opens the journal database at path. ":memory:" is accepted
// for tests.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal: database path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	return &Journal{
		db:     db,
		writer: newBatchWriter(db, 50, 500*time.Millisecond, log),
		log:    log,
	}, nil
}

// Record decodes one published message by topic and queues it for writing.
// Unknown topics are ignored.
func (j *Journal) Record(topic string, payload []byte) error {
	switch topic {
	case wire.TopicReport:
		var r wire.ExecutionReport
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("journal: decode report: %w", err)
		}
		j.RecordReport(r)
	case wire.TopicFill:
		var f wire.ExecutionFill
		if err := json.Unmarshal(payload, &f); err != nil {
			return fmt.Errorf("journal: decode fill: %w", err)
		}
		j.RecordFill(f)
	}
	return nil
}

// RecordReport queues one execution report.
func (j *Journal) RecordReport(r wire.ExecutionReport) {
	j.writer.writeQuery(
		`INSERT INTO exec_reports (cl_id, status, exchange_order_id, reason_code, reason_text, ts_ns, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ClID, r.Status, r.ExchangeOrderID, r.ReasonCode, r.ReasonText, r.TsNs, encodeTags(r.Tags),
	)
}

// RecordFill queues one execution fill.
func (j *Journal) RecordFill(f wire.ExecutionFill) {
	j.writer.writeQuery(
		`INSERT INTO exec_fills (cl_id, exchange_order_id, exec_id, symbol, price, size, fee_currency, fee_amount, liquidity, ts_ns, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ClID, f.ExchangeOrderID, f.ExecID, f.SymbolOrPair, f.Price, f.Size,
		f.FeeCurrency, f.FeeAmount, f.Liquidity, f.TsNs, encodeTags(f.Tags),
	)
}

// Flush forces any buffered rows to disk.
func (j *Journal) Flush() error { return j.writer.flush() }

// Metrics reports writer statistics for the admin API.
func (j *Journal) Metrics() WriterMetrics { return j.writer.metricsSnapshot() }

// Close flushes and releases the database.
func (j *Journal) Close() error {
	j.writer.close()
	return j.db.Close()
}

// ReportCount returns the number of journaled reports, used by tests and the
// admin surface.
func (j *Journal) ReportCount() (int, error) {
	if err := j.writer.flush(); err != nil {
		return 0, err
	}
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM exec_reports`).Scan(&n)
	return n, err
}

// FillCount returns the number of journaled fills.
func (j *Journal) FillCount() (int, error) {
	if err := j.writer.flush(); err != nil {
		return 0, err
	}
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM exec_fills`).Scan(&n)
	return n, err
}

func encodeTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(b)
}
