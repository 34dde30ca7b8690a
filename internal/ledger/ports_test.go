package ledger

import "testing"

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name               string
		page, size, max    int
		wantPage, wantSize int
	}{
		{"defaults", 0, 0, 0, 1, DefaultPageSize},
		{"negative page", -3, 10, 100, 1, 10},
		{"clamped size", 2, 5000, 100, 2, 100},
		{"global max", 1, 5000, 0, 1, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, s := NormalizePage(tt.page, tt.size, tt.max)
			if p != tt.wantPage || s != tt.wantSize {
				t.Errorf("NormalizePage() = %d, %d, want %d, %d", p, s, tt.wantPage, tt.wantSize)
			}
		})
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, size, total int
		start, end        int
	}{
		{1, 10, 25, 0, 10},
		{3, 10, 25, 20, 25},
		{4, 10, 25, 25, 25},
		{1, 10, 0, 0, 0},
	}
	for _, tt := range tests {
		s, e := PageBounds(tt.page, tt.size, tt.total)
		if s != tt.start || e != tt.end {
			t.Errorf("PageBounds(%d,%d,%d) = %d,%d want %d,%d", tt.page, tt.size, tt.total, s, e, tt.start, tt.end)
		}
	}
}
