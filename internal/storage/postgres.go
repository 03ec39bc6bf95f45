package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jonathan/cv-builder/internal/storage/migrations"
)

// Postgres is a KV backed by a Postgres table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, verifies the connection and migrates the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &Error{Op: "open", Cause: fmt.Errorf("failed to connect to database: %w", err)}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &Error{Op: "open", Cause: fmt.Errorf("failed to ping database: %w", err)}
	}

	db := stdlib.OpenDBFromPool(pool)
	err = runMigrations(ctx, db, "pgx", migrations.Postgres, "postgres")
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, &Error{Op: "migrate", Cause: err}
	}

	return &Postgres{pool: pool}, nil
}

// Get implements KV.
func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var blob []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv WHERE key = $1`, key).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &Error{Op: "get", Key: key, Cause: err}
	}
	raw, err := values.decompress(blob)
	if err != nil {
		return "", &Error{Op: "get", Key: key, Cause: err}
	}
	return string(raw), nil
}

// Set implements KV.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	blob, err := values.compress([]byte(value))
	if err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, blob,
	)
	if err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Delete implements KV.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv WHERE key = $1`, key); err != nil {
		return &Error{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Close implements KV.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
