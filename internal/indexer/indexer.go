// Package indexer drives a full reindex of the store from a nix snapshot.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackwell-systems/neix/internal/errdefs"
	"github.com/blackwell-systems/neix/internal/logging"
	"github.com/blackwell-systems/neix/internal/nix"
	"github.com/blackwell-systems/neix/internal/store"
)

var (
	// ErrLocked is returned when another process is already reindexing.
	ErrLocked = errors.New("another reindex is in progress")

	// ErrEmptySnapshot is returned when a pruning reindex would leave the
	// index empty.
	ErrEmptySnapshot = errors.New("snapshot is empty; refusing to prune the index")
)

// Backuper saves a copy of the index before it is pruned.
type Backuper interface {
	Backup(ctx context.Context) (string, error)
}

// Options configures an Indexer.
type Options struct {
	// Prune deletes records missing from the snapshot.
	Prune bool

	// LockPath is the cross-process lock file. Empty disables locking.
	LockPath string

	// Backups, when set, runs before a pruning reindex of a non-empty index.
	Backups Backuper

	// OnFetched is called once the snapshot is parsed.
	OnFetched func(total int)

	// OnUpserted is called after every upsert with the running count.
	OnUpserted func(done, total int)

	Logger *slog.Logger
}

// Result describes a completed reindex.
type Result struct {
	Packages int
	Source   string
	Backup   string // path of the backup taken, if any
	Duration time.Duration
}

// Indexer repopulates a store from a snapshot source.
type Indexer struct {
	store  *store.Store
	source nix.Source
	opts   Options
	logger *slog.Logger
}

// New creates an Indexer writing to st from src.
func New(st *store.Store, src nix.Source, opts Options) *Indexer {
	logger := logging.WithComponent("indexer")
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "indexer")
	}
	return &Indexer{
		store:  st,
		source: src,
		opts:   opts,
		logger: logger,
	}
}

// Reindex fetches one snapshot and upserts every entry in a single
// transaction. Any failure leaves the store as it was before the call.
func (ix *Indexer) Reindex(ctx context.Context) (*Result, error) {
	start := time.Now()
	desc := ix.source.Describe()

	if ix.opts.LockPath != "" {
		lock := newFileLock(ix.opts.LockPath)
		ok, err := lock.tryLock()
		if err != nil {
			return nil, errdefs.StoreIO(errdefs.PhaseLock, "failed to lock index", err)
		}
		if !ok {
			return nil, errdefs.StoreIO(errdefs.PhaseLock, "failed to lock index", ErrLocked)
		}
		defer func() {
			if err := lock.unlock(); err != nil {
				ix.logger.Warn("failed to release reindex lock", "path", ix.opts.LockPath, "error", err)
			}
		}()
	}

	ix.logger.Debug("fetching snapshot", "source", desc)
	snap, err := ix.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	total := len(snap)
	ix.logger.Debug("snapshot fetched", "source", desc, "entries", total)
	if ix.opts.OnFetched != nil {
		ix.opts.OnFetched(total)
	}

	res := &Result{Source: desc}

	if ix.opts.Prune {
		if total == 0 {
			return nil, errdefs.Snapshot(errdefs.PhaseParse, "refusing to prune", ErrEmptySnapshot)
		}
		if ix.opts.Backups != nil {
			path, err := ix.backup(ctx)
			if err != nil {
				return nil, err
			}
			res.Backup = path
		}
	}

	attrs := snap.Attrs()
	err = ix.store.Rebuild(ctx, store.RebuildOptions{Prune: ix.opts.Prune, Source: desc}, func(tx *store.Tx) error {
		for i, attr := range attrs {
			if err := ctx.Err(); err != nil {
				return errdefs.StoreIO(errdefs.PhaseWrite, "reindex cancelled", err)
			}
			e := snap[attr]
			pkg := store.Package{Attr: attr, Name: e.Name, Version: e.Version, Description: e.Description}
			if err := tx.Upsert(ctx, pkg); err != nil {
				return err
			}
			if ix.opts.OnUpserted != nil {
				ix.opts.OnUpserted(i+1, total)
			}
		}
		return nil
	})
	if err != nil {
		ix.logger.Warn("reindex rolled back", "source", desc, "error", err)
		return nil, err
	}

	res.Packages = total
	res.Duration = time.Since(start)
	ix.logger.Info("reindex complete", "source", desc, "packages", total, "pruned", ix.opts.Prune, "duration", res.Duration)
	return res, nil
}

// backup exports the current index, skipping an empty or uninitialized one.
func (ix *Indexer) backup(ctx context.Context) (string, error) {
	n, err := ix.store.Count(ctx)
	if errors.Is(err, store.ErrNotInitialized) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}

	path, err := ix.opts.Backups.Backup(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to back up index before pruning: %w", err)
	}
	ix.logger.Info("index backed up", "path", path, "packages", n)
	return path, nil
}
