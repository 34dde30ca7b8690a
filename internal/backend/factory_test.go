package backend

import (
	"context"
	"path/filepath"
	"testing"

	"ledgerdash/internal/config"
	"ledgerdash/internal/core"
	"ledgerdash/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:          "sqlite",
		SQLiteDBPath:         "./x.db",
		DataDir:              "seed",
		DefaultWorkspaceID:   "shop",
		DefaultWorkspaceName: "Shop",
		DefaultCurrency:      "vnd",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != SQLiteBackend || got.DefaultWorkspace.Currency != core.VND || got.DataDirectory != "seed" {
		t.Errorf("config = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unsupported backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, DefaultWorkspace: core.Workspace{ID: "w"}}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, DefaultWorkspace: core.Workspace{ID: "w"}}, true},
		{"no workspace", Config{Type: MemoryBackend}, true},
		{"bad type", Config{Type: "postgres", DefaultWorkspace: core.Workspace{ID: "w"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	ws := core.Workspace{ID: "default", Name: "Default", Currency: core.EUR}
	dir := t.TempDir()

	for _, cfg := range []Config{
		{Type: MemoryBackend, DataDirectory: dir, DefaultWorkspace: ws},
		{Type: SQLiteBackend, DataDirectory: dir, SQLiteDBPath: filepath.Join(dir, "db", "ledger.db"), DefaultWorkspace: ws},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Cleanup()

			if err := res.Ready(context.Background()); err != nil {
				t.Errorf("not ready: %v", err)
			}
			got, err := res.Store.GetWorkspace(context.Background(), "default")
			if err != nil || got.Currency != core.EUR {
				t.Errorf("workspace = %+v, %v", got, err)
			}
			cats, err := res.Store.ListCategories(context.Background(), "default")
			if err != nil || len(cats) == 0 {
				t.Errorf("expected seeded categories, got %v, %v", cats, err)
			}
		})
	}
}
