package cli

import (
	"context"
	"testing"

	"ledgerdash/internal/config"
	"ledgerdash/internal/log"
)

func TestInitBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"memory", config.Config{DataBackend: "memory", DataDir: t.TempDir(), DefaultWorkspaceID: "ws1"}, false},
		{"unknown backend", config.Config{DataBackend: "postgres", DefaultWorkspaceID: "ws1"}, true},
		{"missing workspace", config.Config{DataBackend: "memory", DataDir: t.TempDir()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := InitBackend(context.Background(), log.Discard(), &tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error instead of a backend")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Store == nil {
				t.Fatal("nil store")
			}
			if res.Cleanup != nil {
				if err := res.Cleanup(); err != nil {
					t.Errorf("cleanup: %v", err)
				}
			}
		})
	}
}
