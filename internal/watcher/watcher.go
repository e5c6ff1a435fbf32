package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/blackwell-systems/neix/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before reindexing.
const DefaultDebounce = 500 * time.Millisecond

// ReindexFunc rebuilds the index from the watched file.
type ReindexFunc func(ctx context.Context) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger used for reindex failures.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l.With("component", "watcher") }
}

// OnReindex registers a callback invoked after every reindex attempt with
// its result.
func OnReindex(fn func(err error)) Option {
	return func(w *Watcher) { w.onReindex = fn }
}

// Watcher triggers a reindex whenever the watched file is written or replaced.
type Watcher struct {
	path      string
	reindex   ReindexFunc
	debounce  time.Duration
	logger    *slog.Logger
	onReindex func(err error)

	fsw       *fsnotify.Watcher
	closeOnce sync.Once
}

// New starts watching path's directory. Events are only consumed once Run is
// called.
func New(path string, reindex ReindexFunc, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watch path cannot be empty")
	}
	if reindex == nil {
		return nil, errors.New("reindex func cannot be nil")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		reindex:  reindex,
		debounce: DefaultDebounce,
		logger:   logging.WithComponent("watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run consumes file events until ctx is cancelled. It returns nil on
// cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("snapshot changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			err := w.reindex(ctx)
			if err != nil && ctx.Err() == nil {
				w.logger.Error("reindex failed; previous index kept", "path", w.path, "error", err)
			}
			if w.onReindex != nil {
				w.onReindex(err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// Close stops the underlying file watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
