// Package watcher reindexes when a snapshot file changes.
//
// The watcher subscribes to the snapshot file's parent directory, so editors
// and tools that replace the file via rename are picked up as well as
// in-place writes. Bursts of events are debounced into a single reindex.
// A failed reindex is logged and the previous index stays in place.
//
// Example usage:
//
//	w, err := watcher.New("/srv/nix/packages.json", func(ctx context.Context) error {
//		_, err := ix.Reindex(ctx)
//		return err
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer w.Close()
//
//	// Blocks until ctx is cancelled.
//	if err := w.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package watcher
