// Package model defines shared data types used across the DLC settler.
//
// Conventions:
//   - Prices: signed int64 in the price source's smallest unit
//   - Timestamps: int64 microseconds since Unix epoch; 0 means unset
//   - IDs: string for contract identifiers, uuid.UUID for event IDs
package model
