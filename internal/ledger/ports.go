// Package ledger declares the ports the dashboard uses to reach the
// transaction store. Implementations live in ledger/memory and storage.
package ledger

import (
	"context"
	"errors"
	"time"

	"ledgerdash/internal/core"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

var (
	// ErrNotFound is returned for unknown workspaces and transactions.
	ErrNotFound = errors.New("not found")
	// ErrUnknownReference is returned when a transaction points at a
	// category or wallet that does not exist in its workspace.
	ErrUnknownReference = errors.New("unknown category or wallet")
)

// Ports for outbound adapters.
type (
	TransactionLister interface {
		// ListTransactions returns one page of matching transactions, newest
		// first, redacted according to filter.View, plus the total match count.
		ListTransactions(ctx context.Context, filter core.TransactionFilter) (core.TransactionPage, error)
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, workspaceID, id string) (core.Transaction, error)
	}

	BalanceReader interface {
		// BalanceAsOf returns the workspace balance including every
		// transaction taken at or before asOf.
		BalanceAsOf(ctx context.Context, workspaceID string, asOf time.Time, view core.ViewOptions) (core.Money, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (id string, err error)
	}

	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, workspaceID, id string) error
	}

	TaxonomyReader interface {
		ListCategories(ctx context.Context, workspaceID string) ([]core.Category, error)
		ListWallets(ctx context.Context, workspaceID string) ([]core.Wallet, error)
	}

	WorkspaceReader interface {
		GetWorkspace(ctx context.Context, id string) (core.Workspace, error)
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionLister
		TransactionReader
		BalanceReader
		TransactionWriter
		TransactionDeleter
		TaxonomyReader
		WorkspaceReader
	}
)

// NormalizePage clamps page and size to sane values: page is 1-based, size
// falls back to DefaultPageSize and never exceeds max (MaxPageSize when max
// is not positive).
func NormalizePage(page, size, max int) (int, int) {
	if max <= 0 {
		max = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > max {
		size = max
	}
	return page, size
}

// PageBounds returns the slice bounds of a page over total items.
func PageBounds(page, size, total int) (start, end int) {
	start = (page - 1) * size
	if start > total {
		start = total
	}
	end = start + size
	if end > total {
		end = total
	}
	return start, end
}
