// Package storage provides durable key-value slots.
package storage

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Backend kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Backend is a string key-value store.
type Backend interface {
	// Get returns the value for key. ok is false when the key was never set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Close releases the backend's resources.
	Close() error
}

// Open creates a backend of the given kind.
// path is a directory for "file" and a database file for "sqlite"; it is ignored for "memory".
func Open(kind, path string) (Backend, error) {
	switch kind {
	case KindMemory, "":
		return NewMemory(), nil
	case KindFile:
		f, err := OpenFile(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	case KindSQLite:
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, errors.Newf("unsupported storage backend: %s", kind)
	}
}

func validKey(key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	return nil
}
