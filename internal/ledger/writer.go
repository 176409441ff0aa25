package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/dlc-settler/internal/notify"
)

// Writer consumes lifecycle events from the notify queue and writes them
// to the ledger database.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the contract registry
	input *notify.Queue

	// Database
	db *pgxpool.Pool

	// Batching
	contracts   []contractRow
	settlements []settlementRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewWriter creates a ledger Writer.
func NewWriter(cfg WriterConfig, input *notify.Queue, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:         cfg,
		input:       input,
		db:          db,
		logger:      logger,
		contracts:   make([]contractRow, 0, cfg.BatchSize),
		settlements: make([]settlementRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("ledger writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping ledger writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("ledger writer stopped")
	case <-ctx.Done():
		w.logger.Warn("ledger writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input queue and accumulates batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			// Use TryNext with context check for responsiveness
			event, ok := w.input.TryNext()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleEvent(event)
		}
	}
}

// flushLoop periodically flushes the batches.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleEvent transforms an event and adds it to the matching batch.
func (w *Writer) handleEvent(event notify.Event) {
	w.batchMu.Lock()
	switch event.Type {
	case notify.EventCreated:
		w.contracts = append(w.contracts, transformCreated(event))
	case notify.EventClosed:
		w.settlements = append(w.settlements, transformClosed(event))
	default:
		w.batchMu.Unlock()
		w.logger.Warn("unknown event type", "type", event.Type)
		return
	}
	shouldFlush := len(w.contracts)+len(w.settlements) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transformCreated converts a created event to a contracts row.
func transformCreated(event notify.Event) contractRow {
	return contractRow{
		ID:        event.RecordID,
		SourceRef: event.SourceRef,
		ClosingTS: event.ClosingTS,
		CreatedTS: event.EmittedAt,
	}
}

// transformClosed converts a closed event to a settlements row.
func transformClosed(event notify.Event) settlementRow {
	return settlementRow{
		EventID:   event.EventID,
		RecordID:  event.RecordID,
		Price:     event.Price,
		SettledTS: event.SettledTS,
		EmittedAt: event.EmittedAt,
	}
}

// flush writes the current batches to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.contracts) == 0 && len(w.settlements) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of the current batches
	contracts := w.contracts
	settlements := w.settlements
	w.contracts = make([]contractRow, 0, w.cfg.BatchSize)
	w.settlements = make([]settlementRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(contracts, settlements)
	if err != nil {
		w.logger.Error("batch insert failed",
			"error", err,
			"count", len(contracts)+len(settlements),
		)
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	total := len(contracts) + len(settlements)
	w.batchMu.Lock()
	w.metrics.Inserts += int64(total - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed ledger batch",
		"contracts", len(contracts),
		"settlements", len(settlements),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(contracts []contractRow, settlements []settlementRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range contracts {
		batch.Queue(`
			INSERT INTO contracts (id, source_ref, closing_ts, created_ts)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, r.ID, r.SourceRef, r.ClosingTS, r.CreatedTS)
	}
	for _, r := range settlements {
		batch.Queue(`
			INSERT INTO settlements (event_id, record_id, price, settled_ts, emitted_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (record_id) DO NOTHING
		`, r.EventID, r.RecordID, r.Price, r.SettledTS, r.EmittedAt)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
