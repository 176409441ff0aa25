// Package database builds the pgx connection pool for the settlement
// ledger.
package database
