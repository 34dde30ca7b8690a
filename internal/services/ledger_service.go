// Package services orchestrates the store, the message bus and the
// analytics core for the HTTP layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"ledgerdash/internal/amqp"
	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
)

// LedgerStore is the subset of the store the ledger service writes through.
type LedgerStore interface {
	ledger.WorkspaceReader
	ledger.TransactionWriter
	ledger.TransactionDeleter
}

// Invalidator drops cached reads for a workspace.
type Invalidator interface {
	InvalidateWorkspace(workspaceID string)
}

// CreateTransactionRequest is a transaction as submitted by a client,
// before the amount is parsed against the workspace currency.
type CreateTransactionRequest struct {
	WorkspaceID            string
	Amount                 string
	TakenAt                time.Time
	Description            string
	CategoryID             string
	WalletID               string
	UserID                 string
	IsAmountConfidential   bool
	IsCategoryConfidential bool
}

// LedgerService stores transactions and announces them on the bus.
type LedgerService struct {
	store     LedgerStore
	publisher amqp.Publisher
	cache     Invalidator
	policy    *bluemonday.Policy
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewLedgerService wires the service. publisher and cache may be nil.
func NewLedgerService(store LedgerStore, publisher amqp.Publisher, cache Invalidator, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.WithComponent(log.ComponentLedger),
		events:    log.NewStructuredLogger(logger),
	}
}

// CreateTransaction validates and stores a transaction, returning its ID.
// Validation failures wrap the core sentinel errors.
func (s *LedgerService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (string, error) {
	ws, err := s.store.GetWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return "", fmt.Errorf("load workspace: %w", err)
	}
	amount, err := core.ParseAmount(req.Amount, ws.Currency)
	if err != nil {
		return "", fmt.Errorf("amount %q: %w", req.Amount, err)
	}

	tx := core.Transaction{
		ID:                     uuid.NewString(),
		WorkspaceID:            ws.ID,
		Amount:                 &amount,
		TakenAt:                req.TakenAt.UTC(),
		Description:            s.sanitize(req.Description),
		CategoryID:             strings.TrimSpace(req.CategoryID),
		WalletID:               strings.TrimSpace(req.WalletID),
		UserID:                 s.sanitize(req.UserID),
		IsAmountConfidential:   req.IsAmountConfidential,
		IsCategoryConfidential: req.IsCategoryConfidential,
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(ws.ID)

	var logged *int64
	if !tx.IsAmountConfidential {
		logged = &amount.Minor
	}
	s.events.LogTransactionCreated(ctx, ws.ID, id, logged, tx.CategoryID, tx.WalletID)

	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionCreated, ws.ID, id))
	return id, nil
}

// DeleteTransaction removes a transaction.
func (s *LedgerService) DeleteTransaction(ctx context.Context, workspaceID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("transaction id: %w", ledger.ErrNotFound)
	}
	if err := s.store.DeleteTransaction(ctx, workspaceID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(workspaceID)
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldWorkspaceID, workspaceID,
		log.FieldTxID, id,
		log.FieldOperation, log.OpDelete)

	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionDeleted, workspaceID, id))
	return nil
}

// IsValidationError reports whether err is a client input problem.
func IsValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidWindow,
		core.ErrInvalidGranularity,
		core.ErrEmptyWorkspace,
		core.ErrEmptyDescription,
		core.ErrMissingTakenAt,
		core.ErrDescriptionTooLong,
		ledger.ErrUnknownReference,
		ErrInvalidGroupBy,
		ErrInvalidShareType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// sanitize strips markup. The policy escapes its output for HTML, so the
// result is unescaped again before it reaches JSON and the sheet.
func (s *LedgerService) sanitize(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *LedgerService) invalidate(workspaceID string) {
	if s.cache != nil {
		s.cache.InvalidateWorkspace(workspaceID)
	}
}

// publish never fails the request: the transaction is already stored.
func (s *LedgerService) publish(ctx context.Context, e *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No message bus configured, skipping event", log.FieldEventType, e.Type)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, e.Type,
			log.FieldTxID, e.TransactionID,
			log.FieldError, err.Error())
	}
}
