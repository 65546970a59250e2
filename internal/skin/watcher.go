package skin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"go-skin-renderer/internal/storage"
)

// Watcher invalidates cached skin metadata when a meta.json below the
// skins directory changes. It is meant for development mode.
type Watcher struct {
	watcher  *fsnotify.Watcher
	resolver *Resolver
	skinsDir string
	logger   *slog.Logger
}

// NewWatcher creates a watcher for root/skins feeding resolver.
func NewWatcher(root string, resolver *Resolver, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:  fsWatcher,
		resolver: resolver,
		skinsDir: filepath.Join(root, storage.SkinsDir),
		logger:   logger,
	}, nil
}

// Start watches the skins directory and every skin directory in it, then
// processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.skinsDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.skinsDir, err)
	}
	entries, err := os.ReadDir(w.skinsDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.skinsDir, err)
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			w.add(filepath.Join(w.skinsDir, e.Name()))
		}
	}
	w.logger.Info("Watching skin metadata", "dir", w.skinsDir)

	go w.eventLoop(ctx)
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) add(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("Failed to watch skin directory", "dir", dir, "error", err)
	}
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	dir := filepath.Dir(event.Name)

	// a new skin directory
	if dir == w.skinsDir {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				w.add(event.Name)
			}
		}
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.resolver.Invalidate(filepath.Base(event.Name))
		}
		return
	}

	if filepath.Base(event.Name) != storage.MetaFile || filepath.Dir(dir) != w.skinsDir {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		name := filepath.Base(dir)
		w.resolver.Invalidate(name)
		w.logger.Info("Skin metadata changed", "skin", name)
	}
}
