package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger/memory"
	"ledgerdash/internal/log"
)

type fakeExporter struct {
	appended []core.Transaction
	deleted  []string
	err      error
}

func (f *fakeExporter) AppendTransaction(_ context.Context, tx core.Transaction, _ core.Currency) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, tx)
	return "2025 Ledger!A2:F2", nil
}

func (f *fakeExporter) DeleteTransaction(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func setup(t *testing.T) (*memory.Store, string) {
	t.Helper()
	store := memory.New()
	store.AddWorkspace(core.Workspace{ID: "ws1", Currency: core.EUR}, []core.Category{{Name: "Salary"}}, nil)
	id, err := store.CreateTransaction(context.Background(), core.Transaction{
		WorkspaceID:          "ws1",
		Amount:               core.NewAmount(250000),
		TakenAt:              time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		Description:          "payroll",
		CategoryID:           "salary",
		IsAmountConfidential: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return store, id
}

func TestExportWorker_Created(t *testing.T) {
	store, id := setup(t)
	exp := &fakeExporter{}
	w := NewExportWorker(store, exp, core.ViewOptions{}, log.Discard())

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventTransactionCreated, "ws1", id))
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.appended) != 1 {
		t.Fatalf("appended %d rows", len(exp.appended))
	}
	if exp.appended[0].Amount != nil {
		t.Error("confidential amount must be redacted in the export")
	}
	if exp.appended[0].CategoryName != "Salary" {
		t.Errorf("category = %q", exp.appended[0].CategoryName)
	}
}

func TestExportWorker_CreatedThenDeleted(t *testing.T) {
	store, id := setup(t)
	if err := store.DeleteTransaction(context.Background(), "ws1", id); err != nil {
		t.Fatal(err)
	}
	exp := &fakeExporter{}
	w := NewExportWorker(store, exp, core.ViewOptions{}, log.Discard())

	if err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventTransactionCreated, "ws1", id)); err != nil {
		t.Errorf("missing transaction must be acked, got %v", err)
	}
	if len(exp.appended) != 0 {
		t.Error("nothing should be exported")
	}
	if err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventTransactionDeleted, "ws1", id)); err != nil {
		t.Fatal(err)
	}
	if len(exp.deleted) != 1 || exp.deleted[0] != id {
		t.Errorf("deleted = %v", exp.deleted)
	}
}

func TestExportWorker_ExporterFailureRequeues(t *testing.T) {
	store, id := setup(t)
	boom := errors.New("quota exceeded")
	w := NewExportWorker(store, &fakeExporter{err: boom}, core.ViewOptions{IncludeConfidential: true}, log.Discard())

	for _, typ := range []amqp.EventType{amqp.EventTransactionCreated, amqp.EventTransactionDeleted} {
		if err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(typ, "ws1", id)); !errors.Is(err, boom) {
			t.Errorf("%s: err = %v, want wrapped exporter error", typ, err)
		}
	}
}
