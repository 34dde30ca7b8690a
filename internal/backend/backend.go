// Package backend builds the transaction store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"ledgerdash/internal/config"
	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
)

// Type names a store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string { return string(t) }

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	SQLiteDBPath string

	// DataDirectory holds the seed files for the default workspace.
	DataDirectory string
	// DefaultWorkspace is created on startup when missing.
	DefaultWorkspace core.Workspace
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(c.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", c.DataBackend)
	}
	return Config{
		Type:          t,
		SQLiteDBPath:  c.SQLiteDBPath,
		DataDirectory: c.DataDir,
		DefaultWorkspace: core.Workspace{
			ID:       c.DefaultWorkspaceID,
			Name:     c.DefaultWorkspaceName,
			Currency: core.CurrencyFromCode(c.DefaultCurrency),
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.DefaultWorkspace.ID == "" {
		return fmt.Errorf("default workspace id is required")
	}
	return nil
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is a ready-to-use store plus its health check and cleanup.
type Result struct {
	Store   ledger.Store
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
