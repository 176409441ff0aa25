// Package driver implements the external automation loop that polls the
// registry for settlement work.
//
// The Driver:
//   - Ticks on a configurable interval
//   - Runs several independent agents per cycle, each evaluate→close
//   - Treats ErrNotEligible as "already handled elsewhere" and moves on
//   - Owns the per-close timeout; the registry itself never retries
package driver
