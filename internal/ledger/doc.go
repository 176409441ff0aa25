// Package ledger persists contract lifecycle events to Postgres.
//
// The Writer:
//   - Consumes created/closed events from the notify queue
//   - Accumulates batches and flushes on size or interval
//   - Inserts with ON CONFLICT DO NOTHING so replays are harmless
package ledger
