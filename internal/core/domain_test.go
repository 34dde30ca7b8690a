package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseGranularity(t *testing.T) {
	for _, in := range []string{"day", "WEEK", " month ", "year"} {
		if _, err := ParseGranularity(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseGranularity("quarter"); !errors.Is(err, ErrInvalidGranularity) {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
}

func TestWindowValidate(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		w  Window
		ok bool
	}{
		{Window{Start: start, End: start}, true},
		{Window{Start: start, End: start.AddDate(0, 1, 0)}, true},
		{Window{Start: start.AddDate(0, 0, 1), End: start}, false},
		{Window{}, false},
	}
	for i, tc := range cases {
		err := tc.w.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		WorkspaceID: "ws",
		Amount:      NewAmount(-100),
		TakenAt:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Description: "coffee",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Amount: NewAmount(1), TakenAt: good.TakenAt, Description: "a"},
		{WorkspaceID: "ws", Amount: NewAmount(1), Description: "a"},
		{WorkspaceID: "ws", TakenAt: good.TakenAt, Description: "a"},
		{WorkspaceID: "ws", Amount: NewAmount(0), TakenAt: good.TakenAt, Description: "a"},
		{WorkspaceID: "ws", Amount: NewAmount(1), TakenAt: good.TakenAt, Description: " "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRedact(t *testing.T) {
	tx := Transaction{
		Amount:                 NewAmount(-500),
		CategoryID:             "cat",
		CategoryName:           "Rent",
		CategoryColor:          "#fff",
		IsAmountConfidential:   true,
		IsCategoryConfidential: true,
	}

	shown := Redact(tx, ViewOptions{IncludeConfidential: true})
	if shown.Amount == nil || shown.CategoryName != "Rent" {
		t.Fatalf("confidential view must keep values: %+v", shown)
	}

	hidden := Redact(tx, ViewOptions{})
	if hidden.Amount != nil {
		t.Fatalf("expected amount to be redacted")
	}
	if hidden.CategoryID != "" || hidden.CategoryName != "" || hidden.CategoryColor != "" {
		t.Fatalf("expected category to be redacted: %+v", hidden)
	}
	if tx.Amount == nil {
		t.Fatalf("Redact must not mutate its input")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := Money{Minor: 50000}, Money{Minor: -20000}
	if got := a.Add(b); got.Minor != 30000 {
		t.Fatalf("Add = %d", got.Minor)
	}
	if got := a.Sub(b); got.Minor != 70000 {
		t.Fatalf("Sub = %d", got.Minor)
	}
	if got := b.Abs(); got.Minor != 20000 {
		t.Fatalf("Abs = %d", got.Minor)
	}
}
