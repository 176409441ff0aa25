// Package notify carries fire-and-forget lifecycle events out of the
// contract registry.
//
// The registry publishes to a Sink; it never waits on delivery. Queue is
// the standard sink, buffering events for the ledger writer.
package notify
