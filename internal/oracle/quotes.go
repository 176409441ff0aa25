package oracle

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/dlc-settler/internal/model"
)

// quoteResponse is the wire format of GET /v1/quotes/latest.
type quoteResponse struct {
	Source     string `json:"source"`
	Price      int64  `json:"price"`
	ObservedTS int64  `json:"observed_ts"` // µs since epoch
}

// Latest fetches the most recent quote for a source reference.
// All failures wrap ErrUnavailable so callers can treat them as retryable.
func (c *Client) Latest(ctx context.Context, sourceRef string) (model.Quote, error) {
	query := url.Values{}
	query.Set("source", sourceRef)

	var resp quoteResponse
	if err := c.get(ctx, "/v1/quotes/latest", query, &resp); err != nil {
		return model.Quote{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.ObservedTS == 0 {
		return model.Quote{}, fmt.Errorf("%w: quote for %q has no observation time", ErrUnavailable, sourceRef)
	}

	return model.Quote{
		Source:     resp.Source,
		Price:      resp.Price,
		ObservedTS: resp.ObservedTS,
	}, nil
}
