package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/dlc-settler/internal/model"
)

// Event types.
const (
	EventCreated = "created"
	EventClosed  = "closed"
)

// Event represents a contract lifecycle transition.
type Event struct {
	EventID   uuid.UUID // Unique event ID
	Type      string    // "created" or "closed"
	RecordID  string    // Contract identifier
	SourceRef string    // Price source reference
	ClosingTS int64     // Closing time (µs since epoch)
	Price     int64     // Settlement price (closed only)
	SettledTS int64     // Settlement time (µs since epoch, closed only)
	EmittedAt int64     // Event emission time (µs since epoch)
}

// Created builds a creation event for a record.
func Created(rec model.Record) Event {
	return Event{
		EventID:   uuid.New(),
		Type:      EventCreated,
		RecordID:  rec.ID,
		SourceRef: rec.SourceRef,
		ClosingTS: rec.ClosingTS,
		EmittedAt: time.Now().UnixMicro(),
	}
}

// Closed builds a settlement event for a record.
func Closed(rec model.Record) Event {
	return Event{
		EventID:   uuid.New(),
		Type:      EventClosed,
		RecordID:  rec.ID,
		SourceRef: rec.SourceRef,
		ClosingTS: rec.ClosingTS,
		Price:     rec.ClosingPrice,
		SettledTS: rec.SettledTS,
		EmittedAt: time.Now().UnixMicro(),
	}
}

// Sink receives lifecycle events. Publish must not block; delivery is
// best-effort from the publisher's point of view.
type Sink interface {
	Publish(Event)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) {
	f(e)
}

// Discard is a Sink that drops all events.
var Discard Sink = SinkFunc(func(Event) {})
