// Package storage provides the durable link store used for cross-run deduplication.
// It implements SQLite (default) and PostgreSQL backends behind one contract.
package storage

import (
	"context"
	"fmt"

	"github.com/masahif/wikicrawl/internal/config"
)

// LinkStore is a durable, deduplicated set of URLs.
// InsertIfAbsent is atomic in the backend itself, so concurrent callers
// never need an exists-then-insert sequence of their own.
type LinkStore interface {
	// Init creates the links table if absent. Safe to call repeatedly.
	Init(ctx context.Context) error
	// InsertIfAbsent persists url and reports whether it was newly inserted.
	InsertIfAbsent(ctx context.Context, url string) (bool, error)
	// Contains reports whether url has ever been stored.
	Contains(ctx context.Context, url string) (bool, error)
	// Count returns the number of stored URLs.
	Count(ctx context.Context) (int, error)
	// List calls fn for every stored URL in discovery order, stopping at the first error.
	List(ctx context.Context, fn func(url string) error) error
	Close() error
}

// Open connects to the store selected by cfg and initializes its schema
func Open(ctx context.Context, cfg config.StoreConfig) (LinkStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store LinkStore
		err   error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err = NewPostgresStore(cfg.DSN)
	default:
		store, err = NewSQLiteStore(cfg.Path)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Driver, err)
	}

	return store, nil
}

var (
	_ LinkStore = (*SQLiteStore)(nil)
	_ LinkStore = (*PostgresStore)(nil)
)
