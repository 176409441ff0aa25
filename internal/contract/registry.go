package contract

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/dlc-settler/internal/model"
)

// Registry errors.
var (
	// ErrAlreadyExists is returned by Add for a duplicate id.
	ErrAlreadyExists = errors.New("contract already exists")

	// ErrNotFound is returned for lookups of unknown ids.
	ErrNotFound = errors.New("contract not found")

	// ErrNotEligible is returned by Close when the contract is not yet due
	// or was already settled. Under concurrent closers this is the expected
	// loser outcome, not a fault.
	ErrNotEligible = errors.New("contract not eligible for settlement")

	// ErrNotSettled is returned by ClosingPriceAndTime before settlement.
	ErrNotSettled = errors.New("contract not settled yet")

	// ErrConsistency indicates an open contract was missing from the open
	// set. Non-recoverable: the registry invariant has been breached.
	ErrConsistency = errors.New("open contract missing from open set")
)

// Registry manages contract creation, upkeep evaluation, and settlement.
type Registry interface {
	// Add registers a new contract with unset settlement fields and places
	// it in the open set. Fails with ErrAlreadyExists on a duplicate id.
	Add(id, sourceRef string, closingTS int64) error

	// Get returns a copy of the contract, or ErrNotFound.
	Get(id string) (model.Record, error)

	// Evaluate scans the open set in its current order and returns the
	// first contract due for settlement, with its position as a removal
	// hint. Read-only: concurrent evaluators may report the same candidate.
	Evaluate() (Upkeep, bool)

	// Close settles a contract exactly once: it re-validates eligibility,
	// fetches the latest price from the oracle, commits the settlement
	// fields, and removes the id from the open set, all as one atomic unit.
	// Racing calls on the same id observe ErrNotEligible after the first
	// succeeds. Oracle failure or cancellation leaves state unchanged.
	Close(ctx context.Context, id string, indexHint int) (model.Record, error)

	// ClosingPriceAndTime returns the settlement price and time, or
	// ErrNotSettled while the contract is open.
	ClosingPriceAndTime(id string) (price, settledTS int64, err error)

	// ListOpen returns a snapshot copy of the open set.
	ListOpen() []string

	// Stats returns registry counters.
	Stats() Stats
}

// Upkeep identifies a contract due for settlement.
type Upkeep struct {
	RecordID string // Contract to settle
	Index    int    // Position in the open set at evaluation time (removal hint)
}

// Stats holds registry counters.
type Stats struct {
	Open    int // Contracts awaiting settlement
	Settled int // Contracts settled
}

// Clock supplies the current time, pluggable for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc is a function adapter for Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
