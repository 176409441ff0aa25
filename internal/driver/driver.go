package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/dlc-settler/internal/contract"
	"github.com/rickgao/dlc-settler/internal/model"
)

// Evaluator reports whether settlement work exists.
type Evaluator interface {
	Evaluate() (contract.Upkeep, bool)
}

// Closer performs a settlement attempt.
type Closer interface {
	Close(ctx context.Context, id string, indexHint int) (model.Record, error)
}

// Config holds driver configuration.
type Config struct {
	Interval time.Duration // Poll cadence (default: 10s)
	Agents   int           // Concurrent upkeep agents per cycle (default: 4)
	Timeout  time.Duration // Per-close timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 10 * time.Second,
		Agents:   4,
		Timeout:  10 * time.Second,
	}
}

// Driver periodically polls for due contracts and settles them.
type Driver struct {
	cfg       Config
	evaluator Evaluator
	closer    Closer
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Driver.
func New(cfg Config, evaluator Evaluator, closer Closer, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:       cfg,
		evaluator: evaluator,
		closer:    closer,
		logger:    logger,
	}
}

// Start begins the polling loop.
func (d *Driver) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.run()

	d.logger.Info("upkeep driver started",
		"interval", d.cfg.Interval,
		"agents", d.cfg.Agents,
	)

	return nil
}

// Stop gracefully shuts down the driver.
func (d *Driver) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("upkeep driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (d *Driver) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	// Run a cycle immediately on start.
	d.runCycle()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.runCycle()
		}
	}
}

// runCycle drains all currently due contracts with independent agents.
func (d *Driver) runCycle() {
	start := time.Now()

	if _, ok := d.evaluator.Evaluate(); !ok {
		d.logger.Debug("no settlement work")
		return
	}

	agents := d.cfg.Agents
	if agents < 1 {
		agents = 1
	}

	var wg sync.WaitGroup
	var settled, skipped, failed atomic.Int64

	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.agentLoop(&settled, &skipped, &failed)
		}()
	}
	wg.Wait()

	d.logger.Info("upkeep cycle complete",
		"settled", settled.Load(),
		"skipped", skipped.Load(),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)
}

// agentLoop settles due contracts until no work remains or an error other
// than a lost race occurs. Failed settlements are left for the next cycle.
func (d *Driver) agentLoop(settled, skipped, failed *atomic.Int64) {
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		up, ok := d.evaluator.Evaluate()
		if !ok {
			return
		}

		if err := d.settle(up); err != nil {
			if errors.Is(err, contract.ErrNotEligible) {
				// Another agent won the race; nothing to repair.
				skipped.Add(1)
				continue
			}

			d.logger.Warn("failed to settle contract",
				"id", up.RecordID,
				"err", err,
			)
			failed.Add(1)
			return
		}

		settled.Add(1)
	}
}

// settle attempts a single close under the driver-owned timeout.
func (d *Driver) settle(up contract.Upkeep) error {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.Timeout)
	defer cancel()

	_, err := d.closer.Close(ctx, up.RecordID, up.Index)
	return err
}
