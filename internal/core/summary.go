package core

import "time"

// Bucket aggregates transactions falling into one calendar period.
type Bucket struct {
	PeriodKey string
	Start     time.Time
	// End is exclusive.
	End              time.Time
	TotalIncome      Money
	TotalExpense     Money // magnitude
	TransactionCount int
	// HasRedactedAmounts is set when a transaction with an unknown amount
	// landed in this bucket; totals are then approximate.
	HasRedactedAmounts bool
}

// Net returns income minus expense for the bucket.
func (b Bucket) Net() Money {
	return b.TotalIncome.Sub(b.TotalExpense)
}

// Contains reports whether t falls into [Start, End).
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// BalancePoint is the closing balance of the period starting at Date.
type BalancePoint struct {
	Date    time.Time
	Balance Money
}

// CategoryShare is one slice of a pie/donut chart or ranked list.
type CategoryShare struct {
	ID         string
	Name       string
	Color      string
	Value      Money
	Percentage float64
	Hidden     bool
}

// TransactionFilter describes a paginated transaction query.
type TransactionFilter struct {
	WorkspaceID string
	From        time.Time
	To          time.Time
	WalletIDs   []string
	CategoryIDs []string
	UserIDs     []string
	View        ViewOptions
	Page        int // 1-based
	PageSize    int
}

// TransactionPage is one page of a transaction query plus the total match count.
type TransactionPage struct {
	Data  []Transaction
	Count int
}
