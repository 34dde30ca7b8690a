package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ledgerdash/internal/core"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "defaults to twelve months",
			wantStart: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   now,
		},
		{
			name:      "dates are inclusive",
			query:     "from=2025-01-01&to=2025-01-31",
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:      "rfc3339",
			query:     "from=2025-01-01T08:00:00Z&to=2025-01-02T08:00:00Z",
			wantStart: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC),
		},
		{name: "garbage", query: "from=yesterday", wantErr: true},
		{name: "inverted", query: "from=2025-02-01&to=2025-01-01", wantErr: true},
		{name: "bad tz", query: "tz=Mars/Olympus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			w, err := parseWindow(q, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", w)
				}
				if statusFor(err) != http.StatusBadRequest {
					t.Errorf("status = %d, want 400", statusFor(err))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !w.Start.Equal(tt.wantStart) || !w.End.Equal(tt.wantEnd) {
				t.Errorf("window = %v..%v, want %v..%v", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParseWindow_TimeZone(t *testing.T) {
	q, _ := url.ParseQuery("from=2025-01-01&to=2025-01-31&tz=Asia/Ho_Chi_Minh")
	w, err := parseWindow(q, time.Now())
	if err != nil {
		t.Skipf("time zone database unavailable: %v", err)
	}
	if w.Start.Location().String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("location = %s", w.Start.Location())
	}
	if w.Start.UTC().Hour() != 17 {
		t.Errorf("start in UTC = %v", w.Start.UTC())
	}
}

func TestParseList(t *testing.T) {
	q, _ := url.ParseQuery("wallet_id=a,b&wallet_id=c&wallet_id=+,")
	got := parseList(q, "wallet_id")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("got %v", got)
	}
	if parseHidden(url.Values{}) != nil {
		t.Error("no hidden parameter should give nil")
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name, body string
		amount     string
		flag       bool
		isJSON     bool
	}{
		{"json number keeps text", `{"amount": 12.10, "is_amount_confidential": true}`, "12.10", true, true},
		{"json string", `{"amount": "-3,50"}`, "-3,50", false, true},
		{"form checkbox", "amount=5&is_amount_confidential=on", "5", true, false},
		{"control chars stripped", "amount=%0012", "12", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(httptest.NewRecorder(), req)
			if err := p.Parse(); err != nil {
				t.Fatal(err)
			}
			if got := p.Get("amount"); got != tt.amount {
				t.Errorf("amount = %q, want %q", got, tt.amount)
			}
			if got := p.Bool("is_amount_confidential"); got != tt.flag {
				t.Errorf("flag = %v", got)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON = %v", p.IsJSON())
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), 400},
		{core.ErrInvalidWindow, 400},
		{errors.New("connection refused"), 502},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestResolveView(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?include_confidential=maybe", nil)
	req.AddCookie(&http.Cookie{Name: confidentialCookie, Value: "1"})
	if !resolveView(req, false).IncludeConfidential {
		t.Error("unparsable query value should fall back to the cookie")
	}
}
