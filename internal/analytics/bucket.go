// Package analytics turns transaction lists into chart-ready series.
//
// Every function here is pure: no I/O, no shared state. Callers fetch and
// redact transactions first, then feed them through BucketTransactions,
// ReconstructBalances and AggregateByGroup.
package analytics

import (
	"fmt"
	"time"

	"ledgerdash/internal/core"
)

// MaxBuckets caps the number of periods a single window may span.
const MaxBuckets = 5000

// BucketResult is the output of BucketTransactions.
type BucketResult struct {
	Buckets []core.Bucket
	// HasRedactedAmounts is true when any bucket received a transaction
	// with an unknown amount.
	HasRedactedAmounts bool
	// Skipped counts transactions with an unusable timestamp.
	Skipped int
	// Dropped counts transactions outside the window.
	Dropped int
}

// BucketStart returns the start of the calendar period containing t, in t's location.
// Weeks start on Monday.
func BucketStart(t time.Time, g core.Granularity) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch g {
	case core.Week:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) + 6) % 7 // Monday=0
		return day.AddDate(0, 0, -offset)
	case core.Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case core.Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// nextBucketStart advances a bucket start by one period.
func nextBucketStart(start time.Time, g core.Granularity) time.Time {
	switch g {
	case core.Week:
		return start.AddDate(0, 0, 7)
	case core.Month:
		return start.AddDate(0, 1, 0)
	case core.Year:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BucketKey returns the canonical period key for t.
func BucketKey(t time.Time, g core.Granularity) string {
	start := BucketStart(t, g)
	switch g {
	case core.Month:
		return start.Format("2006-01")
	case core.Year:
		return start.Format("2006")
	default:
		return start.Format("2006-01-02")
	}
}

// ValidateWindow checks w and g and rejects windows spanning more than
// MaxBuckets periods.
func ValidateWindow(w core.Window, g core.Granularity) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	last := BucketStart(w.End.In(w.Start.Location()), g)
	n := 0
	for start := BucketStart(w.Start, g); !start.After(last); start = nextBucketStart(start, g) {
		if n == MaxBuckets {
			return fmt.Errorf("%w: spans more than %d %s periods", core.ErrInvalidWindow, MaxBuckets, g)
		}
		n++
	}
	return nil
}

// EmptyBuckets returns the contiguous, chronologically ordered buckets covering w.
func EmptyBuckets(w core.Window, g core.Granularity) ([]core.Bucket, error) {
	if err := ValidateWindow(w, g); err != nil {
		return nil, err
	}
	loc := w.Start.Location()
	last := BucketStart(w.End.In(loc), g)

	var buckets []core.Bucket
	for start := BucketStart(w.Start, g); !start.After(last); {
		next := nextBucketStart(start, g)
		buckets = append(buckets, core.Bucket{
			PeriodKey: BucketKey(start, g),
			Start:     start,
			End:       next,
		})
		start = next
	}
	return buckets, nil
}

// BucketTransactions groups txs into calendar buckets spanning w.
//
// Buckets are generated before any placement so periods without activity
// still appear. Transactions outside w are dropped, transactions with a zero
// TakenAt are skipped, and transactions with a nil amount only flag their
// bucket as approximate.
func BucketTransactions(txs []core.Transaction, w core.Window, g core.Granularity) (BucketResult, error) {
	buckets, err := EmptyBuckets(w, g)
	if err != nil {
		return BucketResult{}, err
	}
	res := BucketResult{Buckets: buckets}

	loc := w.Start.Location()
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.PeriodKey] = i
	}

	for _, tx := range txs {
		if tx.TakenAt.IsZero() {
			res.Skipped++
			continue
		}
		if !w.Contains(tx.TakenAt) {
			res.Dropped++
			continue
		}
		i, ok := index[BucketKey(tx.TakenAt.In(loc), g)]
		if !ok {
			res.Dropped++
			continue
		}
		b := &res.Buckets[i]
		if tx.Amount == nil {
			b.HasRedactedAmounts = true
			res.HasRedactedAmounts = true
			continue
		}
		switch {
		case tx.Amount.Minor > 0:
			b.TotalIncome = b.TotalIncome.Add(*tx.Amount)
		case tx.Amount.Minor < 0:
			b.TotalExpense = b.TotalExpense.Add(tx.Amount.Abs())
		}
		b.TransactionCount++
	}
	return res, nil
}

// Totals sums income and expense across buckets.
func Totals(buckets []core.Bucket) (income, expense core.Money) {
	for _, b := range buckets {
		income = income.Add(b.TotalIncome)
		expense = expense.Add(b.TotalExpense)
	}
	return income, expense
}
