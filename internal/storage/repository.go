// Package storage is the SQLite-backed transaction store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
)

// timeLayout is fixed-width so that taken_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05Z"

// fallbackLayouts are accepted when reading rows written by other tools.
var fallbackLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureWorkspace creates ws with its categories and wallets unless it
// already exists. Existing workspaces are left untouched.
func (r *SQLiteRepository) EnsureWorkspace(ctx context.Context, ws core.Workspace, cats []core.Category, wallets []core.Wallet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO workspaces (id, name, currency_code, currency_exponent, opening_balance_minor)
		 VALUES (?, ?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.Currency.Code, ws.Currency.Exponent, ws.OpeningBalance.Minor)
	if err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for _, c := range ledger.NormalizeCategories(cats) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (workspace_id, id, name, color) VALUES (?, ?, ?, ?)`,
			ws.ID, c.ID, c.Name, c.Color); err != nil {
			return fmt.Errorf("insert category %q: %w", c.ID, err)
		}
	}
	for _, w := range ledger.NormalizeWallets(wallets) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallets (workspace_id, id, name) VALUES (?, ?, ?)`,
			ws.ID, w.ID, w.Name); err != nil {
			return fmt.Errorf("insert wallet %q: %w", w.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.InfoContext(ctx, "Workspace created", log.FieldWorkspaceID, ws.ID)
	return nil
}

func (r *SQLiteRepository) GetWorkspace(ctx context.Context, id string) (core.Workspace, error) {
	var ws core.Workspace
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency_code, currency_exponent, opening_balance_minor FROM workspaces WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Currency.Code, &ws.Currency.Exponent, &ws.OpeningBalance.Minor)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Workspace{}, fmt.Errorf("workspace %q: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	return ws, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, workspaceID string) ([]core.Category, error) {
	if _, err := r.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color FROM categories WHERE workspace_id = ? ORDER BY name, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, workspaceID string) ([]core.Wallet, error) {
	if _, err := r.GetWorkspace(ctx, workspaceID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM wallets WHERE workspace_id = ? ORDER BY name, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := []core.Wallet{}
	for rows.Next() {
		var w core.Wallet
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// CreateTransaction validates and inserts tx. An empty ID is replaced with
// a new UUID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if _, err := r.GetWorkspace(ctx, t.WorkspaceID); err != nil {
		return "", err
	}
	if err := r.checkReference(ctx, "categories", t.WorkspaceID, t.CategoryID); err != nil {
		return "", err
	}
	if err := r.checkReference(ctx, "wallets", t.WorkspaceID, t.WalletID); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, workspace_id, amount_minor, taken_at, description, category_id, wallet_id,
		                           user_id, is_amount_confidential, is_category_confidential)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkspaceID, t.Amount.Minor, formatTime(t.TakenAt), t.Description, t.CategoryID, t.WalletID,
		t.UserID, t.IsAmountConfidential, t.IsCategoryConfidential)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return t.ID, nil
}

func (r *SQLiteRepository) checkReference(ctx context.Context, table, workspaceID, id string) error {
	if id == "" {
		return nil
	}
	var n int
	// table is one of two constants above, never user input.
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE workspace_id = ? AND id = ?`, table)
	if err := r.db.QueryRowContext(ctx, q, workspaceID, id).Scan(&n); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", strings.TrimSuffix(table, "s"), id, ledger.ErrUnknownReference)
	}
	return nil
}

// DeleteTransaction soft-deletes a transaction.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, workspaceID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ? WHERE workspace_id = ? AND id = ? AND deleted_at IS NULL`,
		formatTime(time.Now()), workspaceID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %q: %w", id, ledger.ErrNotFound)
	}
	return nil
}

const selectTransaction = `
SELECT t.id, t.workspace_id, t.amount_minor, t.taken_at, t.description,
       t.category_id, COALESCE(c.name, ''), COALESCE(c.color, ''),
       t.wallet_id, COALESCE(w.name, ''), t.user_id,
       t.is_amount_confidential, t.is_category_confidential
FROM transactions t
LEFT JOIN categories c ON c.workspace_id = t.workspace_id AND c.id = t.category_id
LEFT JOIN wallets w ON w.workspace_id = t.workspace_id AND w.id = t.wallet_id`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, workspaceID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		selectTransaction+` WHERE t.workspace_id = ? AND t.id = ? AND t.deleted_at IS NULL`, workspaceID, id)
	tx, err := r.scanTransaction(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns one page of transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f core.TransactionFilter) (core.TransactionPage, error) {
	if _, err := r.GetWorkspace(ctx, f.WorkspaceID); err != nil {
		return core.TransactionPage{}, err
	}

	where, args := buildWhere(f)

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&count); err != nil {
		return core.TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}

	page, size := ledger.NormalizePage(f.Page, f.PageSize, 0)
	q := selectTransaction + where + ` ORDER BY t.taken_at DESC, t.id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, size, (page-1)*size)...)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	data := []core.Transaction{}
	for rows.Next() {
		tx, err := r.scanTransaction(ctx, rows)
		if err != nil {
			return core.TransactionPage{}, fmt.Errorf("scan transaction: %w", err)
		}
		data = append(data, core.Redact(tx, f.View))
	}
	if err := rows.Err(); err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.TransactionPage{Data: data, Count: count}, nil
}

// BalanceAsOf sums the opening balance and every live transaction taken at
// or before asOf. Confidential amounts count only when the view includes them.
func (r *SQLiteRepository) BalanceAsOf(ctx context.Context, workspaceID string, asOf time.Time, view core.ViewOptions) (core.Money, error) {
	ws, err := r.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return core.Money{}, err
	}
	var sum int64
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_minor), 0) FROM transactions
		 WHERE workspace_id = ? AND deleted_at IS NULL AND taken_at <= ?
		   AND (? OR is_amount_confidential = 0)`,
		workspaceID, formatTime(asOf), view.IncludeConfidential,
	).Scan(&sum)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum transactions: %w", err)
	}
	return ws.OpeningBalance.Add(core.Money{Minor: sum}), nil
}

func buildWhere(f core.TransactionFilter) (string, []any) {
	clauses := []string{"t.workspace_id = ?", "t.deleted_at IS NULL"}
	args := []any{f.WorkspaceID}
	if !f.From.IsZero() {
		clauses = append(clauses, "t.taken_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "t.taken_at <= ?")
		args = append(args, formatTime(f.To))
	}
	for _, set := range []struct {
		col string
		ids []string
	}{
		{"t.wallet_id", f.WalletIDs},
		{"t.category_id", f.CategoryIDs},
		{"t.user_id", f.UserIDs},
	} {
		if len(set.ids) == 0 {
			continue
		}
		clauses = append(clauses, set.col+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(set.ids)), ",")+")")
		for _, id := range set.ids {
			args = append(args, id)
		}
	}
	// A hidden category must not be matchable by its ID.
	if len(f.CategoryIDs) > 0 && !f.View.IncludeConfidential {
		clauses = append(clauses, "t.is_category_confidential = 0")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanTransaction(ctx context.Context, s scanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		amount  int64
		takenAt string
	)
	err := s.Scan(&tx.ID, &tx.WorkspaceID, &amount, &takenAt, &tx.Description,
		&tx.CategoryID, &tx.CategoryName, &tx.CategoryColor,
		&tx.WalletID, &tx.WalletName, &tx.UserID,
		&tx.IsAmountConfidential, &tx.IsCategoryConfidential)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Amount = core.NewAmount(amount)
	tx.TakenAt = parseTime(takenAt)
	if tx.TakenAt.IsZero() {
		r.logger.WarnContext(ctx, "Unparseable taken_at",
			log.FieldTxID, tx.ID, log.FieldWorkspaceID, tx.WorkspaceID, "taken_at", takenAt)
	}
	return tx, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime returns the zero time when s matches no known layout.
func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
