package journal

import (
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// writeOp is one buffered INSERT.
type writeOp struct {
	query string
	args  []any
}

// batchWriter groups inserts into transactions so the journal keeps up with
// burst publishing without a transaction per row.
type batchWriter struct {
	db          *sql.DB
	mu          sync.Mutex
	buffer      []writeOp
	maxSize     int
	flushIntval time.Duration
	done        chan struct{}
	wg          sync.WaitGroup
	log         zerolog.Logger

	totalWrites  atomic.Uint64
	totalBatches atomic.Uint64
	totalErrors  atomic.Uint64
}

// WriterMetrics is a point-in-time view of batch activity.
type WriterMetrics struct {
	TotalWrites  uint64 `json:"total_writes"`
	TotalBatches uint64 `json:"total_batches"`
	TotalErrors  uint64 `json:"total_errors"`
	Pending      int    `json:"pending"`
}

func newBatchWriter(db *sql.DB, maxSize int, interval time.Duration, log zerolog.Logger) *batchWriter {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	bw := &batchWriter{
		db:          db,
		buffer:      make([]writeOp, 0, maxSize),
		maxSize:     maxSize,
		flushIntval: interval,
		done:        make(chan struct{}),
		log:         log,
	}

	bw.wg.Add(1)
	go bw.backgroundFlush()

	return bw
}

func (bw *batchWriter) writeQuery(query string, args ...any) {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, writeOp{query: query, args: args})
	shouldFlush := len(bw.buffer) >= bw.maxSize
	bw.mu.Unlock()

	if shouldFlush {
		if err := bw.flush(); err != nil {
			bw.log.Warn().Err(err).Msg("journal flush failed")
		}
	}
}

func (bw *batchWriter) flush() error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}
	ops := bw.buffer
	bw.buffer = make([]writeOp, 0, bw.maxSize)
	bw.mu.Unlock()

	return bw.executeBatch(ops)
}

func (bw *batchWriter) executeBatch(ops []writeOp) error {
	bw.totalWrites.Add(uint64(len(ops)))
	bw.totalBatches.Add(1)

	tx, err := bw.db.Begin()
	if err != nil {
		bw.totalErrors.Add(1)
		return err
	}
	for _, op := range ops {
		if _, err := tx.Exec(op.query, op.args...); err != nil {
			tx.Rollback()
			bw.totalErrors.Add(1)
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		bw.totalErrors.Add(1)
		return err
	}
	return nil
}

func (bw *batchWriter) backgroundFlush() {
	defer bw.wg.Done()
	ticker := time.NewTicker(bw.flushIntval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := bw.flush(); err != nil {
				bw.log.Warn().Err(err).Msg("journal background flush failed")
			}
		case <-bw.done:
			if err := bw.flush(); err != nil {
				bw.log.Warn().Err(err).Msg("journal final flush failed")
			}
			return
		}
	}
}

func (bw *batchWriter) metricsSnapshot() WriterMetrics {
	bw.mu.Lock()
	pending := len(bw.buffer)
	bw.mu.Unlock()
	return WriterMetrics{
		TotalWrites:  bw.totalWrites.Load(),
		TotalBatches: bw.totalBatches.Load(),
		TotalErrors:  bw.totalErrors.Load(),
		Pending:      pending,
	}
}

func (bw *batchWriter) close() {
	close(bw.done)
	bw.wg.Wait()
}
