package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/dlc-settler/internal/notify"
)

func TestWriter_TransformCreated(t *testing.T) {
	event := notify.Event{
		EventID:   uuid.New(),
		Type:      notify.EventCreated,
		RecordID:  "DLC-1",
		SourceRef: "btc-usd",
		ClosingTS: 1705320000000000,
		EmittedAt: 1705310000000000,
	}

	row := transformCreated(event)

	if row.ID != "DLC-1" {
		t.Errorf("ID = %s, want DLC-1", row.ID)
	}
	if row.SourceRef != "btc-usd" {
		t.Errorf("SourceRef = %s, want btc-usd", row.SourceRef)
	}
	if row.ClosingTS != 1705320000000000 {
		t.Errorf("ClosingTS = %d", row.ClosingTS)
	}
	if row.CreatedTS != 1705310000000000 {
		t.Errorf("CreatedTS = %d", row.CreatedTS)
	}
}

func TestWriter_TransformClosed(t *testing.T) {
	eventID := uuid.New()
	event := notify.Event{
		EventID:   eventID,
		Type:      notify.EventClosed,
		RecordID:  "DLC-1",
		Price:     -250,
		SettledTS: 1705320005000000,
		EmittedAt: 1705320006000000,
	}

	row := transformClosed(event)

	if row.EventID != eventID {
		t.Errorf("EventID = %s, want %s", row.EventID, eventID)
	}
	if row.RecordID != "DLC-1" {
		t.Errorf("RecordID = %s, want DLC-1", row.RecordID)
	}
	if row.Price != -250 {
		t.Errorf("Price = %d, want -250", row.Price)
	}
	if row.SettledTS != 1705320005000000 {
		t.Errorf("SettledTS = %d", row.SettledTS)
	}
}

func TestWriter_HandleEvent_AddsToBatch(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := notify.NewQueue(10)
	w := NewWriter(cfg, input, nil, nil)

	w.handleEvent(notify.Event{Type: notify.EventCreated, RecordID: "a"})
	w.handleEvent(notify.Event{Type: notify.EventClosed, RecordID: "a"})
	w.handleEvent(notify.Event{Type: notify.EventCreated, RecordID: "b"})

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if len(w.contracts) != 2 {
		t.Errorf("len(contracts) = %d, want 2", len(w.contracts))
	}
	if len(w.settlements) != 1 {
		t.Errorf("len(settlements) = %d, want 1", len(w.settlements))
	}
}

func TestWriter_HandleEvent_UnknownType(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := notify.NewQueue(10)
	w := NewWriter(cfg, input, nil, nil)

	w.handleEvent(notify.Event{Type: "mystery", RecordID: "a"})

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if len(w.contracts) != 0 || len(w.settlements) != 0 {
		t.Error("unknown event types must not be batched")
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	input := notify.NewQueue(10)
	w := NewWriter(cfg, input, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Consumer should drain the queue even with no database writes pending.
	input.Publish(notify.Event{Type: "mystery"})

	deadline := time.Now().Add(time.Second)
	for input.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if input.Len() != 0 {
		t.Error("writer did not consume the queue")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWriter_Stats(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := notify.NewQueue(10)
	w := NewWriter(cfg, input, nil, nil)

	stats := w.Stats()
	if stats.Inserts != 0 || stats.Flushes != 0 {
		t.Errorf("fresh writer stats = %+v, want zeros", stats)
	}
}
