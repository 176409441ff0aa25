package ledger

import (
	"time"

	"github.com/google/uuid"
)

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int           // Flush when a batch reaches this size
	FlushInterval time.Duration // Flush at least this often
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Inserts   int64 // Rows inserted
	Conflicts int64 // Rows skipped by ON CONFLICT
	Errors    int64 // Failed flushes
	Flushes   int64 // Flush operations
}

// contractRow is the contracts table shape.
type contractRow struct {
	ID        string
	SourceRef string
	ClosingTS int64
	CreatedTS int64
}

// settlementRow is the settlements table shape.
type settlementRow struct {
	EventID   uuid.UUID
	RecordID  string
	Price     int64
	SettledTS int64
	EmittedAt int64
}
