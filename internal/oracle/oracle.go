package oracle

import (
	"context"
	"errors"

	"github.com/rickgao/dlc-settler/internal/model"
)

// ErrUnavailable indicates the price source could not be reached or did not
// return a usable quote. Callers may safely retry; no state has changed.
var ErrUnavailable = errors.New("oracle unavailable")

// PriceOracle returns the latest known price for a source reference.
// Implementations must be safe for concurrent use and must not mutate
// any settler state.
type PriceOracle interface {
	Latest(ctx context.Context, sourceRef string) (model.Quote, error)
}

// Func is a function adapter for PriceOracle.
type Func func(ctx context.Context, sourceRef string) (model.Quote, error)

func (f Func) Latest(ctx context.Context, sourceRef string) (model.Quote, error) {
	return f(ctx, sourceRef)
}
