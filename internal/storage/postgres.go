package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL database driver
	_ "github.com/lib/pq"
)

// PostgresStore implements LinkStore on PostgreSQL, for crawls shared across hosts
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for dsn
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Init verifies connectivity and creates the schema
func (s *PostgresStore) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertIfAbsent relies on ON CONFLICT so racing inserts resolve in the database
func (s *PostgresStore) InsertIfAbsent(ctx context.Context, url string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO links (url) VALUES ($1) ON CONFLICT (url) DO NOTHING", url)
	if err != nil {
		return false, fmt.Errorf("failed to insert URL %s: %w", url, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result for %s: %w", url, err)
	}

	return affected == 1, nil
}

// Contains checks whether the URL is already stored
func (s *PostgresStore) Contains(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM links WHERE url = $1)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query URL %s: %w", url, err)
	}
	return exists, nil
}

// Count returns the number of stored URLs
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM links").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// List streams stored URLs in insertion order
func (s *PostgresStore) List(ctx context.Context, fn func(url string) error) error {
	return listLinks(ctx, s.db, "SELECT url FROM links ORDER BY id ASC", fn)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
