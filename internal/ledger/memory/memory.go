package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
)

// DefaultWorkspaceID is the workspace NewFromFiles seeds.
const DefaultWorkspaceID = "default"

type workspace struct {
	info       core.Workspace
	categories []core.Category
	wallets    []core.Wallet
}

type record struct {
	tx      core.Transaction
	deleted bool
}

// Store keeps workspaces and transactions in process memory.
type Store struct {
	mu         sync.RWMutex
	workspaces map[string]*workspace
	items      []record
}

func New() *Store {
	return &Store{workspaces: make(map[string]*workspace)}
}

// NewFromFiles returns a store with one workspace seeded from the
// category and wallet files in base.
func NewFromFiles(base string, currency core.Currency) *Store {
	cats, wallets := ledger.LoadSeeds(base)
	s := New()
	s.AddWorkspace(core.Workspace{ID: DefaultWorkspaceID, Name: "Default", Currency: currency}, cats, wallets)
	return s
}

// AddWorkspace registers (or replaces) a workspace. Categories and wallets
// without an ID get one derived from their name.
func (s *Store) AddWorkspace(ws core.Workspace, cats []core.Category, wallets []core.Wallet) {
	w := &workspace{
		info:       ws,
		categories: ledger.NormalizeCategories(cats),
		wallets:    ledger.NormalizeWallets(wallets),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[ws.ID] = w
}

func (s *Store) GetWorkspace(_ context.Context, id string) (core.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	if !ok {
		return core.Workspace{}, fmt.Errorf("workspace %q: %w", id, ledger.ErrNotFound)
	}
	return w.info, nil
}

func (s *Store) ListCategories(_ context.Context, workspaceID string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[workspaceID]
	if !ok {
		return nil, fmt.Errorf("workspace %q: %w", workspaceID, ledger.ErrNotFound)
	}
	return append([]core.Category(nil), w.categories...), nil
}

func (s *Store) ListWallets(_ context.Context, workspaceID string) ([]core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[workspaceID]
	if !ok {
		return nil, fmt.Errorf("workspace %q: %w", workspaceID, ledger.ErrNotFound)
	}
	return append([]core.Wallet(nil), w.wallets...), nil
}

// CreateTransaction validates tx, resolves its category and wallet names and
// stores it. An empty ID is replaced with a new UUID.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workspaces[tx.WorkspaceID]
	if !ok {
		return "", fmt.Errorf("workspace %q: %w", tx.WorkspaceID, ledger.ErrNotFound)
	}
	if tx.CategoryID != "" {
		c, ok := findCategory(w.categories, tx.CategoryID)
		if !ok {
			return "", fmt.Errorf("category %q: %w", tx.CategoryID, ledger.ErrUnknownReference)
		}
		tx.CategoryName, tx.CategoryColor = c.Name, c.Color
	}
	if tx.WalletID != "" {
		wl, ok := findWallet(w.wallets, tx.WalletID)
		if !ok {
			return "", fmt.Errorf("wallet %q: %w", tx.WalletID, ledger.ErrUnknownReference)
		}
		tx.WalletName = wl.Name
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	amount := *tx.Amount
	tx.Amount = &amount

	s.items = append(s.items, record{tx: tx})
	return tx.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, workspaceID, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.items {
		if !r.deleted && r.tx.ID == id && r.tx.WorkspaceID == workspaceID {
			return copyTx(r.tx), nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, ledger.ErrNotFound)
}

func (s *Store) DeleteTransaction(_ context.Context, workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		r := &s.items[i]
		if !r.deleted && r.tx.ID == id && r.tx.WorkspaceID == workspaceID {
			r.deleted = true
			return nil
		}
	}
	return fmt.Errorf("transaction %q: %w", id, ledger.ErrNotFound)
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.workspaces[f.WorkspaceID]; !ok {
		return core.TransactionPage{}, fmt.Errorf("workspace %q: %w", f.WorkspaceID, ledger.ErrNotFound)
	}

	var matched []core.Transaction
	for _, r := range s.items {
		if r.deleted || !matches(f, r.tx) {
			continue
		}
		matched = append(matched, r.tx)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.TakenAt.Equal(b.TakenAt) {
			return a.TakenAt.After(b.TakenAt)
		}
		return a.ID < b.ID
	})

	page, size := ledger.NormalizePage(f.Page, f.PageSize, 0)
	start, end := ledger.PageBounds(page, size, len(matched))
	data := make([]core.Transaction, 0, end-start)
	for _, tx := range matched[start:end] {
		data = append(data, core.Redact(copyTx(tx), f.View))
	}
	return core.TransactionPage{Data: data, Count: len(matched)}, nil
}

func (s *Store) BalanceAsOf(_ context.Context, workspaceID string, asOf time.Time, view core.ViewOptions) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workspaces[workspaceID]
	if !ok {
		return core.Money{}, fmt.Errorf("workspace %q: %w", workspaceID, ledger.ErrNotFound)
	}
	balance := w.info.OpeningBalance
	for _, r := range s.items {
		tx := r.tx
		if r.deleted || tx.WorkspaceID != workspaceID || tx.TakenAt.After(asOf) {
			continue
		}
		if tx.IsAmountConfidential && !view.IncludeConfidential {
			continue
		}
		balance = balance.Add(*tx.Amount)
	}
	return balance, nil
}

func matches(f core.TransactionFilter, tx core.Transaction) bool {
	if tx.WorkspaceID != f.WorkspaceID {
		return false
	}
	if !f.From.IsZero() && tx.TakenAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.TakenAt.After(f.To) {
		return false
	}
	// A hidden category must not be matchable by its ID.
	if len(f.CategoryIDs) > 0 && tx.IsCategoryConfidential && !f.View.IncludeConfidential {
		return false
	}
	return in(f.WalletIDs, tx.WalletID) && in(f.CategoryIDs, tx.CategoryID) && in(f.UserIDs, tx.UserID)
}

// in reports whether v is in set; an empty set matches everything.
func in(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func copyTx(tx core.Transaction) core.Transaction {
	if tx.Amount != nil {
		amount := *tx.Amount
		tx.Amount = &amount
	}
	return tx
}

func findCategory(cats []core.Category, id string) (core.Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func findWallet(wallets []core.Wallet, id string) (core.Wallet, bool) {
	for _, w := range wallets {
		if w.ID == id {
			return w, true
		}
	}
	return core.Wallet{}, false
}
