// Package contract implements the pending-contract scheduler.
//
// The Registry:
//   - Owns the id → record mapping and enforces creation uniqueness
//   - Maintains the open set (identifiers of unsettled contracts)
//   - Evaluates upkeep: finds the first contract due for settlement
//   - Settles contracts exactly once, racing closers observe ErrNotEligible
package contract
