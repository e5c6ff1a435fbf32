package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/blackwell-systems/neix/internal/errdefs"
)

const upsertSQL = `
	INSERT INTO packages (attr, name, version, description)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(attr) DO UPDATE SET
		name = excluded.name,
		version = excluded.version,
		description = excluded.description
`

// Tx is a write transaction handed to Update and Rebuild callbacks.
// It must not be used after the callback returns.
type Tx struct {
	tx       *sql.Tx
	upsert   *sql.Stmt
	upserted int
}

// Upsert inserts the record or overwrites the one with the same attr.
// Absent version or description overwrite a stored value with NULL.
func (t *Tx) Upsert(ctx context.Context, pkg Package) error {
	if pkg.Attr == "" {
		return errdefs.InvalidRecord("record has empty attr")
	}
	if pkg.Name == "" {
		return errdefs.InvalidRecord(fmt.Sprintf("record %s has empty name", pkg.Attr))
	}

	if t.upsert == nil {
		stmt, err := t.tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return errdefs.StoreIO(errdefs.PhaseWrite, "failed to prepare upsert", err)
		}
		t.upsert = stmt
	}

	if _, err := t.upsert.ExecContext(ctx, pkg.Attr, pkg.Name, nullable(pkg.Version), nullable(pkg.Description)); err != nil {
		return errdefs.StoreIO(errdefs.PhaseWrite, fmt.Sprintf("failed to upsert package %s", pkg.Attr), err)
	}
	t.upserted++
	return nil
}

// Upserted returns how many upserts succeeded in this transaction.
func (t *Tx) Upserted() int {
	return t.upserted
}

func (t *Tx) exec(ctx context.Context, op, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return errdefs.StoreIO(errdefs.PhaseWrite, op, err)
	}
	return nil
}

func (t *Tx) setMeta(ctx context.Context, key, value string) error {
	return t.exec(ctx, "failed to write metadata "+key, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
}

// Update runs fn inside a single transaction. The transaction commits only
// if fn returns nil; any error rolls back every write fn made.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errdefs.StoreIO(errdefs.PhaseWrite, "failed to begin transaction", err)
	}

	tx := &Tx{tx: sqlTx}
	if err := fn(tx); err != nil {
		tx.close()
		sqlTx.Rollback() //nolint:errcheck
		return err
	}
	tx.close()

	if err := sqlTx.Commit(); err != nil {
		return errdefs.StoreIO(errdefs.PhaseWrite, "failed to commit transaction", err)
	}
	return nil
}

func (t *Tx) close() {
	if t.upsert != nil {
		t.upsert.Close()
		t.upsert = nil
	}
}

// Upsert writes a single record in its own transaction.
func (s *Store) Upsert(ctx context.Context, pkg Package) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.Upsert(ctx, pkg)
	})
}

// RebuildOptions controls a full reindex transaction.
type RebuildOptions struct {
	// Prune deletes every record before fn runs, so attrs missing from the
	// new snapshot do not survive the rebuild.
	Prune bool

	// Source is recorded in the index metadata.
	Source string

	// Now stamps indexed_at; zero means time.Now.
	Now time.Time
}

// Rebuild is the bulk write path of a reindex. In one transaction it drops
// the name index, optionally prunes, runs fn (which upserts the snapshot),
// recreates the index and records the reindex metadata. Readers observe
// either the previous index or the complete new one.
func (s *Store) Rebuild(ctx context.Context, opts RebuildOptions, fn func(tx *Tx) error) error {
	return s.Update(ctx, func(tx *Tx) error {
		if err := tx.exec(ctx, "failed to create schema", schema); err != nil {
			return err
		}
		if err := tx.exec(ctx, "failed to drop name index", dropNameIndex); err != nil {
			return err
		}
		if opts.Prune {
			if err := tx.exec(ctx, "failed to prune packages", "DELETE FROM packages"); err != nil {
				return err
			}
		}

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.exec(ctx, "failed to create name index", createNameIndex); err != nil {
			return err
		}

		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		if err := tx.setMeta(ctx, metaIndexedAt, now.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		if err := tx.setMeta(ctx, metaPackageCount, strconv.Itoa(tx.Upserted())); err != nil {
			return err
		}
		return tx.setMeta(ctx, metaSource, opts.Source)
	})
}
