package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStore implements LinkStore using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the SQLite database at dbPath.
// Call Init (or use Open) before the first insert.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Init applies pragmas and creates the schema
func (s *SQLiteStore) Init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// InsertIfAbsent uses INSERT OR IGNORE so the UNIQUE constraint decides
func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, url string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO links (url) VALUES (?)", url)
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
func (s *SQLiteStore) Contains(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM links WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query URL %s: %w", url, err)
	}
	return true, nil
}

// Count returns the number of stored URLs
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM links").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// List streams stored URLs in insertion order
func (s *SQLiteStore) List(ctx context.Context, fn func(url string) error) error {
	return listLinks(ctx, s.db, "SELECT url FROM links ORDER BY id ASC", fn)
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func listLinks(ctx context.Context, db *sql.DB, query string, fn func(url string) error) error {
	// Collect first: with a single pooled connection, fn must not run while rows hold it.
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return fmt.Errorf("failed to scan link: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate links: %w", err)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("failed to close link rows: %w", err)
	}

	for _, url := range urls {
		if err := fn(url); err != nil {
			return err
		}
	}
	return nil
}
