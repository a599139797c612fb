package storage

import (
	"errors"
	"fmt"
	"strings"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var ErrUnsupportedBackend = errors.New("unsupported simulation store backend")

// Backends lists the store kinds NewStore accepts.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite}
}

// NewStore opens the simulation store named by kind. An empty kind selects
// the in-memory store.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnsupportedBackend, kind, strings.Join(Backends(), ", "))
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
