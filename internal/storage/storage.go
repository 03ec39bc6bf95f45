// Package storage provides the local key-value store that holds client state
// between runs: auth tokens, the unsaved CV draft and the template preference.
//
// Three backends are available: SQLite (the default, one file per user),
// Postgres (shared installations) and an in-memory map (tests and the "memory:" DSN).
// The SQL backends compress values with zstd.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Keys used by the client.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyDraft        = "cv-form-data"
	KeyTemplate     = "cv-template"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// KV is a string key-value store. Implementations are safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Op    string
	Key   string
	Cause error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Open returns the backend selected by dsn:
//
//	""  or "memory:"                      in-memory
//	"postgres://..." or "postgresql://..." Postgres
//	"sqlite://<path>", "file:<path>" or a bare path  SQLite
//
// SQL backends run their migrations before returning.
func Open(ctx context.Context, dsn string) (KV, error) {
	switch {
	case dsn == "" || dsn == "memory:":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pg, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		lite, err := OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return lite, nil
	}
}

// GetOr returns the value for key, or def when the key is absent.
func GetOr(ctx context.Context, kv KV, key, def string) (string, error) {
	v, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
