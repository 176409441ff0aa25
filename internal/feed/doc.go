// Package feed implements a streaming price oracle over WebSocket.
//
// The Feed:
//   - Subscribes to a set of sources and caches the latest quote per source
//   - Reconnects with exponential backoff on connection loss
//   - Serves oracle.Latest from the cache, rejecting stale quotes
package feed
