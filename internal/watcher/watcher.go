// Package watcher monitors a directory tree for finished video files and
// hands them to a transcription handler.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"subgen/internal/logging"
	"subgen/internal/subtitles"
)

// Handler receives the path of a video that is ready to transcribe.
type Handler func(ctx context.Context, path string) error

// Options tunes watch behavior.
type Options struct {
	// Extensions lists accepted video extensions with leading dots,
	// lowercase (".mp4").
	Extensions []string
	// SettleDelay is how long a file must stop growing before it is
	// considered fully written.
	SettleDelay time.Duration
	// MaxConcurrent bounds parallel handler invocations.
	MaxConcurrent int
}

// Watcher delivers settled video files to a handler.
type Watcher struct {
	root    string
	opts    Options
	handler Handler
	logger  *slog.Logger
	sem     chan struct{}
}

// New validates the root directory and constructs a Watcher.
func New(root string, opts Options, handler Handler, logger *slog.Logger) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", root)
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 5 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		root:    root,
		opts:    opts,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "watcher"),
		sem:     make(chan struct{}, opts.MaxConcurrent),
	}, nil
}

// Run watches until the context is canceled. Existing videos without a
// sidecar are handled first, then filesystem events drive the rest.
func (w *Watcher) Run(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer notifier.Close()

	if err := w.addTree(notifier, w.root); err != nil {
		return err
	}
	w.sweepExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, notifier, event)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, notifier *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(notifier, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
		}
		return
	}
	if !w.wantsFile(event.Name) {
		return
	}
	go w.dispatch(ctx, event.Name)
}

// sweepExisting queues videos already present under the root.
func (w *Watcher) sweepExisting(ctx context.Context) {
	err := filepath.WalkDir(w.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		if w.wantsFile(path) {
			go w.dispatch(ctx, path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("initial sweep failed", "error", err)
	}
}

func (w *Watcher) addTree(notifier *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if addErr := notifier.Add(path); addErr != nil {
			return fmt.Errorf("watch %s: %w", path, addErr)
		}
		return nil
	})
}

func (w *Watcher) wantsFile(path string) bool {
	if subtitles.HasSidecar(path) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.opts.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// dispatch waits for the file to settle, then runs the handler under the
// concurrency limit. Re-checks the sidecar after settling since another
// worker may have produced it in the meantime.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	if err := w.waitSettled(ctx, path); err != nil {
		return
	}
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-w.sem }()

	if subtitles.HasSidecar(path) {
		return
	}
	w.logger.Info("transcribing watched file", "path", path)
	if err := w.handler(ctx, path); err != nil {
		w.logger.Error("watch handler failed", "path", path, "error", err)
	}
}

// waitSettled polls the file size until it stops changing for the settle
// delay, so half-copied files are not shipped to the inference server.
func (w *Watcher) waitSettled(ctx context.Context, path string) error {
	interval := w.opts.SettleDelay
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
