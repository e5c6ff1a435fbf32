package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/neix/internal/errdefs"

	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned when the database exists but has never been
// populated (the packages table is missing).
var ErrNotInitialized = errors.New("database not initialized; run 'neix --update' to build the index")

// ErrNotFound is returned by Get when no record has the requested attr.
var ErrNotFound = errors.New("package not found")

// Store provides SQLite database operations for neix.
type Store struct {
	db    *sql.DB
	order VersionOrder
}

// Option configures a Store.
type Option func(*Store)

// WithVersionOrder selects how versions are compared when picking the
// latest record of a version family.
func WithVersionOrder(order VersionOrder) Option {
	return func(s *Store) { s.order = order }
}

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = -10000",
	"PRAGMA busy_timeout = 5000",
}

// New creates a new Store with the specified database path, creating the
// parent directory if needed. Use ":memory:" for in-memory databases.
func New(dbPath string, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, errdefs.StoreIO(errdefs.PhaseWrite, "failed to create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errdefs.StoreIO(errdefs.PhaseRead, "failed to open database", err)
	}

	// SQLite only allows one writer at a time; a single connection also keeps
	// an in-memory database alive for the lifetime of the Store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errdefs.StoreIO(errdefs.PhaseRead, fmt.Sprintf("failed to apply %q", p), err)
		}
	}

	s := &Store{db: db, order: OrderLexical}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// VersionOrder reports the ordering used for latest-version selection.
func (s *Store) VersionOrder() VersionOrder {
	return s.order
}

// CreateSchema creates all tables and indexes.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errdefs.StoreIO(errdefs.PhaseWrite, "failed to create schema", err)
	}
	return nil
}

// readErr classifies a read-path failure, mapping a missing table to
// ErrNotInitialized.
func readErr(op string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		err = fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	return errdefs.StoreIO(errdefs.PhaseRead, op, err)
}
