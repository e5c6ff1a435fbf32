package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Get retrieves a package by attribute path.
func (s *Store) Get(ctx context.Context, attr string) (*Package, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT attr, name, version, description
		FROM packages
		WHERE attr = ?
	`, attr)

	pkg, err := scanPackage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, attr)
	}
	if err != nil {
		return nil, readErr(fmt.Sprintf("failed to get package %s", attr), err)
	}
	return pkg, nil
}

// ListPackages returns every record ordered by attr.
func (s *Store) ListPackages(ctx context.Context) ([]Package, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT attr, name, version, description
		FROM packages
		ORDER BY attr
	`)
	if err != nil {
		return nil, readErr("failed to list packages", err)
	}
	defer rows.Close()

	pkgs, err := scanPackages(rows)
	if err != nil {
		return nil, readErr("failed to list packages", err)
	}
	return pkgs, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages").Scan(&n); err != nil {
		return 0, readErr("failed to count packages", err)
	}
	return n, nil
}

// Info returns record counts and the metadata of the last reindex.
func (s *Store) Info(ctx context.Context) (*Info, error) {
	info := &Info{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT name) FROM packages").
		Scan(&info.Packages, &info.Names)
	if err != nil {
		return nil, readErr("failed to summarize packages", err)
	}

	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}

	if ts := meta[metaIndexedAt]; ts != "" {
		info.IndexedAt, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, readErr("failed to parse indexed_at", err)
		}
	}
	info.Source = meta[metaSource]
	if n := meta[metaPackageCount]; n != "" {
		info.LastSnapshot, err = strconv.Atoi(n)
		if err != nil {
			return nil, readErr("failed to parse package_count", err)
		}
	}

	return info, nil
}

func (s *Store) meta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, readErr("failed to read metadata", err)
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, readErr("failed to scan metadata row", err)
		}
		m[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("error iterating metadata", err)
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (*Package, error) {
	var pkg Package
	var version, description sql.NullString

	if err := row.Scan(&pkg.Attr, &pkg.Name, &version, &description); err != nil {
		return nil, err
	}
	if version.Valid {
		pkg.Version = &version.String
	}
	if description.Valid {
		pkg.Description = &description.String
	}
	return &pkg, nil
}

func scanPackages(rows *sql.Rows) ([]Package, error) {
	pkgs := []Package{}
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package row: %w", err)
		}
		pkgs = append(pkgs, *pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating packages: %w", err)
	}
	return pkgs, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
