package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_ComponentTag(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, JSON: true}).WithComponent(ComponentStorage)
	logger.Info("hello", FieldWorkspaceID, "ws1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if rec[FieldComponent] != ComponentStorage || rec[FieldWorkspaceID] != "ws1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestLogFields_RedactedAmountOmitted(t *testing.T) {
	f := NewFields().WithTransaction("tx1", nil, "", "")
	if _, ok := f[FieldAmountMinor]; ok {
		t.Error("nil amount must not be logged")
	}
	amount := int64(-500)
	f = NewFields().WithTransaction("tx1", &amount, "cat", "")
	if f[FieldAmountMinor] != int64(-500) || f[FieldCategoryID] != "cat" {
		t.Errorf("unexpected fields: %v", f)
	}
	if _, ok := f[FieldWalletID]; ok {
		t.Error("empty wallet must be omitted")
	}
}

func TestFromContext(t *testing.T) {
	logger := Discard()
	ctx := NewContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected fallback logger")
	}
}

func TestStructuredLogger_LogHTTPEnd(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, JSON: true}))
	r := httptest.NewRequest("GET", "/api/workspaces/ws1/balance", nil)
	sl.LogHTTPEnd(context.Background(), r, 502, 12, "10.0.0.1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["level"] != "ERROR" || rec[FieldStatusCode] != float64(502) {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()
	sl.LogError(context.Background(), "failed", errors.New("boom"), ComponentStorage, OpList, nil)
	if !bytes.Contains(buf.Bytes(), []byte("boom")) {
		t.Errorf("error not logged: %s", buf.String())
	}
}
