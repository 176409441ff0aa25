package model

// -----------------------------------------------------------------------------
// Contract Types
// -----------------------------------------------------------------------------

// Record represents a discreet log contract tracked by the settler.
type Record struct {
	ID           string // Primary key, immutable after creation
	SourceRef    string // Price source reference, immutable
	ClosingTS    int64  // Settlement becomes eligible at this time (µs since epoch)
	ClosingPrice int64  // Settlement price, 0 until settled, then immutable
	SettledTS    int64  // Settlement time (µs since epoch), 0 until settled
	CreatedTS    int64  // Creation time (µs since epoch)
}

// Open reports whether the record has not been settled yet.
func (r Record) Open() bool {
	return r.SettledTS == 0
}

// Due reports whether the record is eligible for settlement at nowTS.
// A record is due once its closing time has elapsed and it is still open.
func (r Record) Due(nowTS int64) bool {
	return r.Open() && r.ClosingTS <= nowTS
}

// Quote is a price observation from an oracle.
type Quote struct {
	Source     string // Price source reference
	Price      int64  // Observed price (signed)
	ObservedTS int64  // Observation time (µs since epoch)
}
