package analytics

import (
	"math"
	"testing"

	"ledgerdash/internal/core"
)

func catTx(id, name string, minor int64) core.Transaction {
	return core.Transaction{
		ID:           id + "-tx",
		Amount:       core.NewAmount(minor),
		TakenAt:      day(2025, 1, 1),
		CategoryID:   id,
		CategoryName: name,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func sumPct(shares []core.CategoryShare) float64 {
	var s float64
	for _, sh := range shares {
		s += sh.Percentage
	}
	return s
}

func TestAggregateByGroup_Basic(t *testing.T) {
	txs := []core.Transaction{
		catTx("a", "Food", -3000),
		catTx("a", "Food", -2000),
		catTx("b", "Rent", -3000),
		catTx("c", "Fun", -2000),
	}
	shares := AggregateByGroup(txs, ByCategory, AggregateOptions{})
	if len(shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(shares))
	}
	want := []struct {
		id  string
		pct float64
	}{{"a", 50}, {"b", 30}, {"c", 20}}
	for i, w := range want {
		if shares[i].ID != w.id || !approx(shares[i].Percentage, w.pct) {
			t.Errorf("share %d = %s %.2f, want %s %.2f", i, shares[i].ID, shares[i].Percentage, w.id, w.pct)
		}
	}
	if !approx(sumPct(shares), 100) {
		t.Errorf("percentages sum to %f", sumPct(shares))
	}
	if shares[0].Value.Minor != 5000 {
		t.Errorf("food value = %d", shares[0].Value.Minor)
	}
}

func TestAggregateByGroup_Visibility(t *testing.T) {
	txs := []core.Transaction{
		catTx("a", "A", -50),
		catTx("b", "B", -30),
		catTx("c", "C", -20),
	}
	shares := AggregateByGroup(txs, ByCategory, AggregateOptions{Hidden: map[string]bool{"c": true}})

	got := map[string]core.CategoryShare{}
	for _, s := range shares {
		got[s.ID] = s
	}
	if !approx(got["a"].Percentage, 62.5) || !approx(got["b"].Percentage, 37.5) {
		t.Errorf("visible shares = %.2f / %.2f, want 62.5 / 37.5", got["a"].Percentage, got["b"].Percentage)
	}
	if !got["c"].Hidden || got["c"].Percentage != 0 {
		t.Errorf("hidden share = %+v", got["c"])
	}
	if got["c"].Value.Minor != 20 {
		t.Errorf("hidden share keeps its value, got %d", got["c"].Value.Minor)
	}

	t.Run("all hidden", func(t *testing.T) {
		all := ApplyVisibility(shares, map[string]bool{"a": true, "b": true, "c": true})
		for _, s := range all {
			if s.Percentage != 0 || !s.Hidden {
				t.Errorf("expected %s hidden at 0%%, got %+v", s.ID, s)
			}
		}
	})
}

func TestAggregateByGroup_LongTail(t *testing.T) {
	tests := []struct {
		name      string
		values    []int64
		threshold float64
		wantIDs   []string
		wantOther float64 // -1 means no Other
	}{
		{
			name:      "default threshold folds the 1% groups",
			values:    []int64{80, 15, 3, 1, 1},
			wantIDs:   []string{"g0", "g1", "g2"},
			wantOther: 2,
		},
		{
			name:      "higher threshold folds the 3% group too",
			values:    []int64{80, 15, 3, 1, 1},
			threshold: 5,
			wantIDs:   []string{"g0", "g1"},
			wantOther: 5,
		},
		{
			name:      "tail under the display floor is omitted",
			values:    []int64{600, 397, 3},
			wantIDs:   []string{"g0", "g1"},
			wantOther: -1,
		},
		{
			name:      "nothing to fold",
			values:    []int64{50, 50},
			wantIDs:   []string{"g0", "g1"},
			wantOther: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txs []core.Transaction
			for i, v := range tt.values {
				id := "g" + string(rune('0'+i))
				txs = append(txs, catTx(id, id, -v))
			}
			shares := AggregateByGroup(txs, ByCategory, AggregateOptions{MinSegmentPercentage: tt.threshold})

			var ids []string
			var other *core.CategoryShare
			for i := range shares {
				if shares[i].ID == OtherID {
					other = &shares[i]
					continue
				}
				ids = append(ids, shares[i].ID)
			}
			if len(ids) != len(tt.wantIDs) {
				t.Fatalf("primary groups = %v, want %v", ids, tt.wantIDs)
			}
			for i := range ids {
				if ids[i] != tt.wantIDs[i] {
					t.Errorf("primary groups = %v, want %v", ids, tt.wantIDs)
				}
			}
			switch {
			case tt.wantOther < 0 && other != nil:
				t.Errorf("unexpected Other group %+v", *other)
			case tt.wantOther >= 0 && other == nil:
				t.Errorf("missing Other group")
			case other != nil:
				if !approx(other.Percentage, tt.wantOther) {
					t.Errorf("Other = %.2f%%, want %.2f%%", other.Percentage, tt.wantOther)
				}
				if shares[len(shares)-1].ID != OtherID {
					t.Errorf("Other must be last")
				}
				if other.Color != OtherColor {
					t.Errorf("Other color = %q", other.Color)
				}
				if !approx(sumPct(shares), 100) {
					t.Errorf("percentages sum to %f", sumPct(shares))
				}
			}
		})
	}
}

func TestAggregateByGroup_EmptyAndZero(t *testing.T) {
	if got := AggregateByGroup(nil, ByCategory, AggregateOptions{}); got == nil || len(got) != 0 {
		t.Errorf("nil input should give an empty, non-nil slice: %#v", got)
	}
	redacted := []core.Transaction{{ID: "x", TakenAt: day(2025, 1, 1), CategoryID: "a"}}
	if got := AggregateByGroup(redacted, ByCategory, AggregateOptions{}); len(got) != 0 {
		t.Errorf("redacted amounts must be ignored, got %+v", got)
	}
}

func TestAggregateByGroup_Sentinels(t *testing.T) {
	txs := []core.Transaction{
		catTx("", "", -100),
		{ID: "secret", Amount: core.NewAmount(-100), TakenAt: day(2025, 1, 1), IsCategoryConfidential: true},
	}
	shares := AggregateByGroup(txs, ByCategory, AggregateOptions{})
	ids := map[string]bool{}
	for _, s := range shares {
		ids[s.ID] = true
	}
	if !ids[UncategorizedID] || !ids[ConfidentialID] {
		t.Errorf("expected uncategorized and confidential groups, got %+v", shares)
	}

	byWallet := AggregateByGroup(txs, ByWallet, AggregateOptions{})
	if len(byWallet) != 1 || byWallet[0].ID != NoWalletID {
		t.Errorf("wallet grouping = %+v", byWallet)
	}
}

func TestAggregateByGroup_Filters(t *testing.T) {
	txs := []core.Transaction{
		catTx("salary", "Salary", 100000),
		catTx("food", "Food", -4000),
	}
	exp := AggregateByGroup(txs, ByCategory, AggregateOptions{Filter: ExpensesOnly})
	if len(exp) != 1 || exp[0].ID != "food" || !approx(exp[0].Percentage, 100) {
		t.Errorf("expenses = %+v", exp)
	}
	inc := AggregateByGroup(txs, ByCategory, AggregateOptions{Filter: IncomeOnly})
	if len(inc) != 1 || inc[0].ID != "salary" {
		t.Errorf("income = %+v", inc)
	}
}

func TestAggregateByGroup_Colors(t *testing.T) {
	txs := []core.Transaction{
		catTx("b", "B", -10),
		catTx("a", "A", -20),
		{ID: "c", Amount: core.NewAmount(-30), TakenAt: day(2025, 1, 1), CategoryID: "c", CategoryName: "C", CategoryColor: "#123456"},
	}
	first := AggregateByGroup(txs, ByCategory, AggregateOptions{})
	reversed := []core.Transaction{txs[2], txs[1], txs[0]}
	second := AggregateByGroup(reversed, ByCategory, AggregateOptions{})

	colors := map[string]string{}
	for _, s := range first {
		colors[s.ID] = s.Color
	}
	for _, s := range second {
		if colors[s.ID] != s.Color {
			t.Errorf("color for %s changed: %s -> %s", s.ID, colors[s.ID], s.Color)
		}
	}
	if colors["c"] != "#123456" {
		t.Errorf("stored color ignored: %s", colors["c"])
	}
	if colors["a"] != DefaultPalette[0] || colors["b"] != DefaultPalette[1] {
		t.Errorf("palette colors = %s, %s", colors["a"], colors["b"])
	}
}

func TestAggregateByGroup_TieBreak(t *testing.T) {
	txs := []core.Transaction{
		catTx("z", "Beta", -10),
		catTx("y", "Alpha", -10),
	}
	shares := AggregateByGroup(txs, ByCategory, AggregateOptions{})
	if shares[0].Name != "Alpha" || shares[1].Name != "Beta" {
		t.Errorf("ties should sort by name: %+v", shares)
	}
}
