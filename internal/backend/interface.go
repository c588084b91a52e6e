package backend

import (
	"context"

	"dtmoney/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports whether the backend can serve requests
type PingFunc func(ctx context.Context) error

// BackendResult contains the repository and optional lifecycle hooks
type BackendResult struct {
	Repository ports.TransactionRepository
	Cleanup    CleanupFunc
	Ping       PingFunc
}

// Close runs the cleanup hook if present
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates repositories based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory specific
	SeedFile string

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL string
}

// BackendType represents the storage driver
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
