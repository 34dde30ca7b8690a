package amqp

import (
	"errors"
	"testing"
	"time"
)

func TestNewLedgerEvent(t *testing.T) {
	e := NewLedgerEvent(EventTransactionCreated, "ws1", "tx1")
	if e.Type != EventTransactionCreated || e.WorkspaceID != "ws1" || e.TransactionID != "tx1" {
		t.Errorf("unexpected event: %+v", e)
	}
	if time.Since(e.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
}

func TestLedgerEventFromJSON(t *testing.T) {
	in := &LedgerEvent{
		Type:          EventTransactionDeleted,
		WorkspaceID:   "ws1",
		TransactionID: "tx1",
		Timestamp:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := in.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	out, err := LedgerEventFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if *out != *in {
		t.Errorf("decoded %+v, want %+v", out, in)
	}

	for _, bad := range []string{
		`not json`,
		`{"type":"transaction.created","workspace_id":"ws1"}`,
		`{"type":"","workspace_id":"ws1","transaction_id":"tx1"}`,
	} {
		if _, err := LedgerEventFromJSON([]byte(bad)); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("LedgerEventFromJSON(%s) err = %v, want ErrMalformedEvent", bad, err)
		}
	}
}
