// Package oracle provides price-source lookups for contract settlement.
//
// PriceOracle is the interface the Closer consumes. The REST Client is the
// default implementation; internal/feed provides a streaming alternative.
package oracle
