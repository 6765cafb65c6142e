// Package watcher summarizes diaries in a folder once they stop changing.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/diarysum/internal/storage"
)

// DefaultDebounce is how long a diary must stay untouched before it is handled.
const DefaultDebounce = 30 * time.Second

// Handler processes a settled diary at its absolute path. Calls are serialized.
type Handler func(ctx context.Context, path string)

// EventCallback is called for every relevant file event.
// kind is one of "changed", "removed".
type EventCallback func(kind, name string)

// Watcher debounces create/write events per file in one folder. Subdirectories
// are not watched.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	handle   Handler
	onEvent  EventCallback
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle delay. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithEventCallback registers cb for raw file events.
func WithEventCallback(cb EventCallback) Option {
	return func(w *Watcher) {
		w.onEvent = cb
	}
}

// New creates a watcher for folder. The folder must exist.
func New(folder string, handle Handler, opts ...Option) (*Watcher, error) {
	store, err := storage.NewFS(folder)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     store.Root(),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		handle:   handle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the watched folder.
func (w *Watcher) Root() string { return w.root }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("watcher: add %s: %w", w.root, err)
	}
	w.logger.Info("watcher: started",
		slog.String("root", w.root),
		slog.Duration("debounce", w.debounce))

	deb := newDebouncer(w.debounce)

	for {
		select {
		case <-ctx.Done():
			deb.stopAll()
			w.logger.Info("watcher: stopped")
			return nil

		case fired := <-deb.settled:
			name, ok := deb.take(fired)
			if !ok {
				continue
			}
			path := filepath.Join(w.root, name)
			w.logger.Debug("watcher: settled", slog.String("file", name))
			if w.handle != nil {
				w.handle(ctx, path)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(ev.Name) != w.root {
				continue
			}
			name := filepath.Base(ev.Name)
			if !storage.IsDiary(name) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				deb.schedule(ctx, name)
				w.notify("changed", name)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name; the new one arrives as Create.
				deb.cancel(name)
				w.notify("removed", name)
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) notify(kind, name string) {
	if w.onEvent != nil {
		w.onEvent(kind, name)
	}
}

type firing struct {
	name string
	gen  uint64
}

type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// debouncer holds one timer per file. It is owned by the Run loop; only the
// timer callbacks run elsewhere and they only send on settled.
type debouncer struct {
	delay   time.Duration
	pending map[string]*pendingTimer
	settled chan firing
	gen     uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]*pendingTimer),
		settled: make(chan firing, 64),
	}
}

// schedule (re)starts the quiet period for name. A timer that already fired
// is replaced, so its queued firing goes stale instead of being run twice.
func (d *debouncer) schedule(ctx context.Context, name string) {
	if p, ok := d.pending[name]; ok && p.timer.Stop() {
		p.timer.Reset(d.delay)
		return
	}
	d.gen++
	f := firing{name: name, gen: d.gen}
	d.pending[name] = &pendingTimer{
		gen: f.gen,
		timer: time.AfterFunc(d.delay, func() {
			select {
			case d.settled <- f:
			case <-ctx.Done():
			}
		}),
	}
}

func (d *debouncer) cancel(name string) {
	if p, ok := d.pending[name]; ok {
		p.timer.Stop()
		delete(d.pending, name)
	}
}

func (d *debouncer) stopAll() {
	for name := range d.pending {
		d.cancel(name)
	}
}

// take accepts a firing that belongs to the current timer for its file.
func (d *debouncer) take(f firing) (string, bool) {
	p, ok := d.pending[f.name]
	if !ok || p.gen != f.gen {
		return "", false
	}
	delete(d.pending, f.name)
	return f.name, true
}
