package contract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/dlc-settler/internal/model"
	"github.com/rickgao/dlc-settler/internal/notify"
	"github.com/rickgao/dlc-settler/internal/oracle"
)

// Config holds Registry configuration.
type Config struct {
	Clock Clock
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Clock: systemClock{},
	}
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	clock  Clock
	oracle oracle.PriceOracle
	sink   notify.Sink
	logger *slog.Logger

	state *registryState
}

// NewRegistry creates a contract Registry. The oracle supplies settlement
// prices; the sink receives lifecycle events fire-and-forget.
func NewRegistry(cfg Config, po oracle.PriceOracle, sink notify.Sink, logger *slog.Logger) Registry {
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if sink == nil {
		sink = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &registryImpl{
		clock:  cfg.Clock,
		oracle: po,
		sink:   sink,
		logger: logger,
		state:  newState(),
	}
}

// Add registers a new contract.
func (r *registryImpl) Add(id, sourceRef string, closingTS int64) error {
	rec := model.Record{
		ID:        id,
		SourceRef: sourceRef,
		ClosingTS: closingTS,
		CreatedTS: r.clock.Now().UnixMicro(),
	}

	if err := r.state.add(rec); err != nil {
		return err
	}

	r.logger.Debug("contract added",
		"id", id,
		"source", sourceRef,
		"closing_ts", closingTS,
	)

	r.sink.Publish(notify.Created(rec))
	return nil
}

// Get returns a contract copy by id.
func (r *registryImpl) Get(id string) (model.Record, error) {
	rec, ok := r.state.getRecord(id)
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return rec, nil
}

// Evaluate returns the first contract due for settlement, if any.
func (r *registryImpl) Evaluate() (Upkeep, bool) {
	return r.state.firstDue(r.clock.Now().UnixMicro())
}

// Close settles a contract. The whole sequence runs under the state write
// lock, so a racing Close on the same id re-validates only after this one
// has fully committed or fully backed out.
func (r *registryImpl) Close(ctx context.Context, id string, indexHint int) (model.Record, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return model.Record{}, ErrNotFound
	}

	if !rec.Due(r.clock.Now().UnixMicro()) {
		return model.Record{}, ErrNotEligible
	}

	// Locate the open-set entry before fetching a price, so a consistency
	// breach never commits settlement fields.
	idx, ok := s.indexOfLocked(id, indexHint)
	if !ok {
		r.logger.Error("open contract missing from open set", "id", id)
		return model.Record{}, fmt.Errorf("%w: %s", ErrConsistency, id)
	}

	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}

	quote, err := r.oracle.Latest(ctx, rec.SourceRef)
	if err != nil {
		return model.Record{}, fmt.Errorf("settle %s: %w", id, err)
	}
	if quote.ObservedTS == 0 {
		// A zero observation time would leave the record open forever.
		return model.Record{}, fmt.Errorf("settle %s: %w: quote has no observation time", id, oracle.ErrUnavailable)
	}

	rec.ClosingPrice = quote.Price
	rec.SettledTS = quote.ObservedTS
	s.removeAtLocked(idx)

	settled := *rec

	r.logger.Info("contract settled",
		"id", id,
		"price", settled.ClosingPrice,
		"settled_ts", settled.SettledTS,
	)

	r.sink.Publish(notify.Closed(settled))
	return settled, nil
}

// ClosingPriceAndTime returns the committed settlement fields.
func (r *registryImpl) ClosingPriceAndTime(id string) (price, settledTS int64, err error) {
	rec, ok := r.state.getRecord(id)
	if !ok {
		return 0, 0, ErrNotFound
	}
	if rec.Open() {
		return 0, 0, ErrNotSettled
	}
	return rec.ClosingPrice, rec.SettledTS, nil
}

// ListOpen returns a snapshot copy of the open set.
func (r *registryImpl) ListOpen() []string {
	return r.state.listOpen()
}

// Stats returns registry counters.
func (r *registryImpl) Stats() Stats {
	return r.state.stats()
}
