// Package credential persists the bearer token between runs.
//
// A Store is a small key-value slot living on disk, so every gateway built in
// any process sees the same token.
package credential

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnknownBackend is returned by Open for an unsupported store kind.
var ErrUnknownBackend = errors.New("unknown credential store backend")

// Store is a process-wide persistent key-value store.
type Store interface {
	// Get returns the value stored under key. It never fails: read errors
	// are logged and reported as absent.
	Get(key string) (string, bool)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// Open returns the Store backend named by kind ("file" or "sqlite") at path.
func Open(kind, path string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch kind {
	case "", "file":
		return NewFileStore(path, logger), nil
	case "sqlite":
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
