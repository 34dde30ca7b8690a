package ledger

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"ledgerdash/internal/core"
)

// Seed files read from the data directory.
const (
	CategorySeedFile = "seed_categories.txt"
	WalletSeedFile   = "seed_wallets.txt"
)

// LoadSeeds reads the category and wallet seed files in dir. Category lines
// may carry a colour after a comma ("Food,#16a34a"). Blank lines and lines
// starting with # are ignored. Missing files fall back to a small default
// set. IDs are derived from names and duplicates are dropped.
func LoadSeeds(dir string) ([]core.Category, []core.Wallet) {
	var cats []core.Category
	for _, line := range readLines(filepath.Join(dir, CategorySeedFile)) {
		name, color, _ := strings.Cut(line, ",")
		cats = append(cats, core.Category{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)})
	}
	if len(cats) == 0 {
		cats = []core.Category{{Name: "Housing"}, {Name: "Food"}, {Name: "Transport"}, {Name: "Salary"}}
	}

	var wallets []core.Wallet
	for _, line := range readLines(filepath.Join(dir, WalletSeedFile)) {
		wallets = append(wallets, core.Wallet{Name: line})
	}
	if len(wallets) == 0 {
		wallets = []core.Wallet{{Name: "Cash"}, {Name: "Bank"}}
	}
	return NormalizeCategories(cats), NormalizeWallets(wallets)
}

// NormalizeCategories fills missing IDs from names and removes duplicates,
// keeping the first occurrence.
func NormalizeCategories(in []core.Category) []core.Category {
	seen := map[string]bool{}
	out := make([]core.Category, 0, len(in))
	for _, c := range in {
		if c.ID == "" {
			c.ID = Slug(c.Name)
		}
		if c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// NormalizeWallets is NormalizeCategories for wallets.
func NormalizeWallets(in []core.Wallet) []core.Wallet {
	seen := map[string]bool{}
	out := make([]core.Wallet, 0, len(in))
	for _, w := range in {
		if w.ID == "" {
			w.ID = Slug(w.Name)
		}
		if w.ID == "" || seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		out = append(out, w)
	}
	return out
}

// Slug lower-cases name and joins its words with dashes.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
