package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

type (
	Granularity string

	Money struct {
		Minor int64
	}

	Currency struct {
		Code     string
		Exponent int32
	}

	Workspace struct {
		ID             string
		Name           string
		Currency       Currency
		OpeningBalance Money
	}

	Transaction struct {
		ID          string
		WorkspaceID string
		// Amount is nil when the value is withheld from the viewer.
		Amount *Money
		// TakenAt is the zero time when the stored timestamp could not be parsed.
		TakenAt       time.Time
		Description   string
		CategoryID    string
		CategoryName  string
		CategoryColor string
		WalletID      string
		WalletName    string
		UserID        string

		IsAmountConfidential   bool
		IsCategoryConfidential bool
	}

	Category struct {
		ID    string
		Name  string
		Color string
	}

	Wallet struct {
		ID   string
		Name string
	}

	// Window is an inclusive time range [Start, End].
	Window struct {
		Start time.Time
		End   time.Time
	}

	// ViewOptions carries per-request visibility settings.
	ViewOptions struct {
		IncludeConfidential bool
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidWindow      = errors.New("invalid window: start must not be after end")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrEmptyWorkspace     = errors.New("empty workspace id")
	ErrEmptyDescription   = errors.New("empty description")
	ErrMissingTakenAt     = errors.New("missing transaction date")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// ParseGranularity accepts day, week, month or year (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if err := g.Validate(); err != nil {
		return "", err
	}
	return g, nil
}

func (g Granularity) Validate() error {
	switch g {
	case Day, Week, Month, Year:
		return nil
	default:
		return ErrInvalidGranularity
	}
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() || w.Start.After(w.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether t lies within the inclusive window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (m Money) Add(o Money) Money { return Money{Minor: m.Minor + o.Minor} }
func (m Money) Sub(o Money) Money { return Money{Minor: m.Minor - o.Minor} }
func (m Money) IsZero() bool      { return m.Minor == 0 }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Minor < 0 {
		return Money{Minor: -m.Minor}
	}
	return m
}

// NewAmount returns a pointer suitable for Transaction.Amount.
func NewAmount(minor int64) *Money {
	return &Money{Minor: minor}
}

// IsRedacted reports whether the amount is unknown to the viewer.
func (t Transaction) IsRedacted() bool {
	return t.Amount == nil
}

// IsIncome reports whether the transaction carries a known positive amount.
func (t Transaction) IsIncome() bool {
	return t.Amount != nil && t.Amount.Minor > 0
}

// IsExpense reports whether the transaction carries a known negative amount.
func (t Transaction) IsExpense() bool {
	return t.Amount != nil && t.Amount.Minor < 0
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.WorkspaceID) == "" {
		return ErrEmptyWorkspace
	}
	if t.TakenAt.IsZero() {
		return ErrMissingTakenAt
	}
	if t.Amount == nil || t.Amount.Minor == 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Redact hides the confidential parts of t unless the view includes them.
func Redact(t Transaction, view ViewOptions) Transaction {
	if view.IncludeConfidential {
		return t
	}
	if t.IsAmountConfidential {
		t.Amount = nil
	}
	if t.IsCategoryConfidential {
		t.CategoryID = ""
		t.CategoryName = ""
		t.CategoryColor = ""
	}
	return t
}

// RedactAll applies Redact to every element, returning a new slice.
func RedactAll(txs []Transaction, view ViewOptions) []Transaction {
	out := make([]Transaction, len(txs))
	for i, t := range txs {
		out[i] = Redact(t, view)
	}
	return out
}
