// Package watch reports file changes under the managed root.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Event kinds passed to the callback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindRemoved = "removed"
)

// EventCallback is called for every relevant change. rel is slash-separated
// and relative to the root.
type EventCallback func(kind, rel string)

// Watch starts an fsnotify watcher on root and reports changes to files
// accepted by supports until ctx is cancelled. New directories created at
// runtime are added to the watch list, and supported files already inside
// them are reported as created. Hidden files and directories are ignored.
func Watch(ctx context.Context, root string, supports func(name string) bool, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(kind, absPath string) {
		rel, err := filepath.Rel(root, absPath)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)
		logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", kind))
		cb(kind, rel)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name
			name := filepath.Base(absPath)
			if strings.HasPrefix(name, ".") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					for _, p := range supportedFiles(absPath, supports) {
						emit(KindCreated, p)
					}
					continue
				}
			}

			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// The path is gone; a directory can only be recognised by
				// its lack of an extension.
				if supports(name) || filepath.Ext(name) == "" {
					emit(KindRemoved, absPath)
				}
			case !supports(name):
				continue
			case ev.Op&fsnotify.Create != 0:
				emit(KindCreated, absPath)
			case ev.Op&fsnotify.Write != 0:
				emit(KindUpdated, absPath)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// supportedFiles lists supported, non-hidden files below dir.
func supportedFiles(dir string, supports func(string) bool) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(d.Name(), ".") && supports(d.Name()) {
			out = append(out, p)
		}
		return nil
	})
	return out
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
