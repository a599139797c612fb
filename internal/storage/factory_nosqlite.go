//go:build !sqlite

package storage

import "fmt"

func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("%w %q: equilibria was built without sqlite; rebuild with -tags sqlite", ErrUnsupportedBackend, BackendSQLite)
}
