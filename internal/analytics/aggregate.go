package analytics

import (
	"sort"

	"ledgerdash/internal/core"
)

const (
	// DefaultMinSegmentPercentage is the share below which a group is folded into Other.
	DefaultMinSegmentPercentage = 1.5
	// DefaultOtherDisplayFloor is the share Other must exceed to be shown.
	DefaultOtherDisplayFloor = 0.5

	UncategorizedID  = "__uncategorized"
	ConfidentialID   = "__confidential"
	OtherID          = "__other"
	NoWalletID       = "__no_wallet"
	OtherColor       = "#9ca3af"
	uncategorizedTag = "Uncategorized"
)

// DefaultPalette is used for groups without a stored colour.
var DefaultPalette = []string{
	"#2563eb", "#16a34a", "#f59e0b", "#dc2626", "#7c3aed",
	"#0891b2", "#db2777", "#65a30d", "#ea580c", "#4f46e5",
}

// GroupKey identifies the group a transaction belongs to.
type GroupKey struct {
	ID    string
	Name  string
	Color string
}

// KeyFunc maps a transaction to its group.
type KeyFunc func(core.Transaction) GroupKey

// AggregateOptions tunes AggregateByGroup. Zero values pick the defaults.
type AggregateOptions struct {
	Filter               func(core.Transaction) bool
	MinSegmentPercentage float64
	OtherDisplayFloor    float64
	Palette              []string
	Hidden               map[string]bool
}

func (o AggregateOptions) withDefaults() AggregateOptions {
	if o.MinSegmentPercentage <= 0 {
		o.MinSegmentPercentage = DefaultMinSegmentPercentage
	}
	if o.OtherDisplayFloor <= 0 {
		o.OtherDisplayFloor = DefaultOtherDisplayFloor
	}
	if len(o.Palette) == 0 {
		o.Palette = DefaultPalette
	}
	return o
}

// ByCategory groups by category; confidential categories share one group.
func ByCategory(tx core.Transaction) GroupKey {
	if tx.IsCategoryConfidential && tx.CategoryID == "" {
		return GroupKey{ID: ConfidentialID, Name: "Confidential"}
	}
	return GroupKey{ID: tx.CategoryID, Name: tx.CategoryName, Color: tx.CategoryColor}
}

// ByWallet groups by wallet.
func ByWallet(tx core.Transaction) GroupKey {
	if tx.WalletID == "" {
		return GroupKey{ID: NoWalletID, Name: "No wallet"}
	}
	return GroupKey{ID: tx.WalletID, Name: tx.WalletName}
}

// ExpensesOnly and IncomeOnly are ready-made filters.
func ExpensesOnly(tx core.Transaction) bool { return tx.IsExpense() }
func IncomeOnly(tx core.Transaction) bool   { return tx.IsIncome() }

type group struct {
	key   GroupKey
	value int64
}

// AggregateByGroup sums transaction magnitudes per group and returns the
// groups as percentage shares, largest first.
//
// Groups under MinSegmentPercentage of the total are merged into an Other
// group, which is only returned when its share exceeds OtherDisplayFloor.
// The merged value always stays in the total. When opts.Hidden is set the
// visible shares are rescaled to sum to 100.
func AggregateByGroup(txs []core.Transaction, key KeyFunc, opts AggregateOptions) []core.CategoryShare {
	opts = opts.withDefaults()

	groups := make(map[string]*group)
	var total int64
	for _, tx := range txs {
		if tx.Amount == nil {
			continue
		}
		if opts.Filter != nil && !opts.Filter(tx) {
			continue
		}
		k := key(tx)
		if k.ID == "" {
			k = GroupKey{ID: UncategorizedID, Name: uncategorizedTag}
		}
		if k.Name == "" {
			k.Name = k.ID
		}
		g, ok := groups[k.ID]
		if !ok {
			g = &group{key: k}
			groups[k.ID] = g
		}
		v := tx.Amount.Abs().Minor
		g.value += v
		total += v
	}
	if total == 0 {
		return []core.CategoryShare{}
	}

	colors := assignColors(groups, opts.Palette)

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.value != b.value {
			return a.value > b.value
		}
		if a.key.Name != b.key.Name {
			return a.key.Name < b.key.Name
		}
		return a.key.ID < b.key.ID
	})

	shares := make([]core.CategoryShare, 0, len(ordered)+1)
	var other int64
	for _, g := range ordered {
		pct := percentage(g.value, total)
		if pct < opts.MinSegmentPercentage {
			other += g.value
			continue
		}
		shares = append(shares, core.CategoryShare{
			ID:         g.key.ID,
			Name:       g.key.Name,
			Color:      colors[g.key.ID],
			Value:      core.Money{Minor: g.value},
			Percentage: pct,
		})
	}
	if other > 0 {
		if pct := percentage(other, total); pct > opts.OtherDisplayFloor {
			shares = append(shares, core.CategoryShare{
				ID:         OtherID,
				Name:       "Other",
				Color:      OtherColor,
				Value:      core.Money{Minor: other},
				Percentage: pct,
			})
		}
	}

	if len(opts.Hidden) > 0 {
		shares = ApplyVisibility(shares, opts.Hidden)
	}
	return shares
}

// ApplyVisibility marks hidden groups and recomputes the remaining
// percentages relative to the visible sum. Hidden groups get 0%.
func ApplyVisibility(shares []core.CategoryShare, hidden map[string]bool) []core.CategoryShare {
	out := make([]core.CategoryShare, len(shares))
	var visible int64
	for i, s := range shares {
		s.Hidden = hidden[s.ID]
		if !s.Hidden {
			visible += s.Value.Minor
		}
		out[i] = s
	}
	for i := range out {
		if out[i].Hidden || visible == 0 {
			out[i].Percentage = 0
			continue
		}
		out[i].Percentage = percentage(out[i].Value.Minor, visible)
	}
	return out
}

// assignColors keeps stored colours and hands out palette entries by the
// group's position in the ID-sorted set, so the same set always gets the
// same colours.
func assignColors(groups map[string]*group, palette []string) map[string]string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	colors := make(map[string]string, len(ids))
	for i, id := range ids {
		if c := groups[id].key.Color; c != "" {
			colors[id] = c
			continue
		}
		colors[id] = palette[i%len(palette)]
	}
	return colors
}

func percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
