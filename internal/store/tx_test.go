package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackwell-systems/neix/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rebuildWith(ctx context.Context, s *Store, opts RebuildOptions, pkgs ...Package) error {
	return s.Rebuild(ctx, opts, func(tx *Tx) error {
		for _, p := range pkgs {
			if err := tx.Upsert(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func TestRebuild_CreatesSchemaOnFreshDatabase(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "neix.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, pkg("hello", "hello", "1", "")))

	got, err := s.Query(ctx, "hello", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRebuild_FailedFirstReindexLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "neix.db"))
	require.NoError(t, err)
	defer s.Close()

	err = rebuildWith(ctx, s, RebuildOptions{}, pkg("a", "a", "1", ""), Package{Attr: "b"})
	require.ErrorIs(t, err, errdefs.ErrInvalidRecord)

	_, err = s.Query(ctx, "a", 10)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRebuild_AtomicOnFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{Source: "old", Now: before},
		pkg("a", "a", "1", "first"),
		pkg("b", "b", "1", ""),
	))

	boom := errors.New("snapshot truncated")
	err := s.Rebuild(ctx, RebuildOptions{Prune: true, Source: "new"}, func(tx *Tx) error {
		require.NoError(t, tx.Upsert(ctx, pkg("a", "a", "2", "second")))
		require.NoError(t, tx.Upsert(ctx, pkg("c", "c", "1", "")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := s.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, attrs(all))
	assert.Equal(t, "1", all[0].VersionOr(""))
	assert.Equal(t, "first", all[0].DescriptionOr(""))

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old", info.Source)
	assert.True(t, info.IndexedAt.Equal(before))

	var idx string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_packages_name'").Scan(&idx)
	assert.NoError(t, err, "rollback must restore the name index")
}

func TestRebuild_KeepsStaleRecordsWithoutPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, pkg("old", "old", "1", ""), pkg("keep", "keep", "1", "")))
	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, pkg("keep", "keep", "2", "")))

	all, err := s.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep", "old"}, attrs(all))
	assert.Equal(t, "2", all[0].VersionOr(""))
}

func TestRebuild_PruneRemovesStaleRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, pkg("old", "old", "1", ""), pkg("keep", "keep", "1", "")))
	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{Prune: true}, pkg("keep", "keep", "2", "")))

	all, err := s.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, attrs(all))
}

func TestRebuild_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	snapshot := []Package{
		pkg("a", "foo", "1.0", "x"),
		pkg("b", "foo", "2.0", ""),
		{Attr: "c", Name: "bar"},
	}

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, snapshot...))
	first, err := s.ListPackages(ctx)
	require.NoError(t, err)

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, snapshot...))
	second, err := s.ListPackages(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRebuild_DuplicateAttrsCollapse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{},
		pkg("a", "a", "1", ""),
		pkg("a", "a", "2", ""),
	))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", got.VersionOr(""))
}

func TestRebuild_RecordsPackageCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, pkg("a", "a", "", ""), pkg("b", "b", "", "")))
	require.NoError(t, rebuildWith(ctx, s, RebuildOptions{}, pkg("a", "a", "2", "")))

	info, err := s.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Packages, "kept records still count")
	assert.Equal(t, 1, info.LastSnapshot)
}
