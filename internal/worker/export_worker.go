// Package worker turns ledger events into spreadsheet updates.
package worker

import (
	"context"
	"errors"
	"fmt"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
)

// Exporter is the spreadsheet side of the export.
type Exporter interface {
	AppendTransaction(ctx context.Context, tx core.Transaction, c core.Currency) (string, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// Source is the store side of the export.
type Source interface {
	ledger.TransactionReader
	ledger.WorkspaceReader
}

// ExportWorker mirrors created and deleted transactions into the exporter.
type ExportWorker struct {
	source   Source
	exporter Exporter
	view     core.ViewOptions
	logger   *log.Logger
}

// NewExportWorker returns a worker that exports transactions redacted
// according to view.
func NewExportWorker(source Source, exporter Exporter, view core.ViewOptions, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		view:     view,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent implements amqp.Handler. Returning an error requeues the event.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	logger := w.logger.With(
		log.FieldEventType, e.Type,
		log.FieldWorkspaceID, e.WorkspaceID,
		log.FieldTxID, e.TransactionID)

	switch e.Type {
	case amqp.EventTransactionCreated:
		tx, err := w.source.GetTransaction(ctx, e.WorkspaceID, e.TransactionID)
		if errors.Is(err, ledger.ErrNotFound) {
			// Deleted before we got to it; the delete event follows.
			logger.InfoContext(ctx, "Transaction gone before export, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		ws, err := w.source.GetWorkspace(ctx, e.WorkspaceID)
		if err != nil {
			return fmt.Errorf("load workspace: %w", err)
		}
		ref, err := w.exporter.AppendTransaction(ctx, core.Redact(tx, w.view), ws.Currency)
		if err != nil {
			return fmt.Errorf("export transaction: %w", err)
		}
		logger.InfoContext(ctx, "Transaction exported", log.FieldSheetsRef, ref)
		return nil

	case amqp.EventTransactionDeleted:
		if err := w.exporter.DeleteTransaction(ctx, e.TransactionID); err != nil {
			return fmt.Errorf("remove exported transaction: %w", err)
		}
		logger.InfoContext(ctx, "Exported transaction removed")
		return nil

	default:
		logger.WarnContext(ctx, "Ignoring unknown event type")
		return nil
	}
}
