package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tsawler/notepdf/format"
	"github.com/tsawler/notepdf/internal/logging"
)

// DefaultDebounce is how long Watch waits for a notebook to stop changing.
const DefaultDebounce = 500 * time.Millisecond

// Watch watches roots for created or rewritten notebooks until ctx is
// canceled. Changes are collected until no event arrived for debounce, then
// fn is called with the changed paths, sorted. Directories created while
// watching are added when recursive is set.
func Watch(ctx context.Context, roots []string, recursive bool, debounce time.Duration, fn func(paths []string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := logging.From(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		if err := addDirs(w, root, recursive); err != nil {
			return &IOError{Op: "watch", Path: root, Err: err}
		}
	}
	log.Info().Strs("roots", roots).Msg("watching")

	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("watch stopped")
			return nil

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]bool{}
			fn(paths)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && recursive {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addDirs(w, ev.Name, true); err != nil {
						log.Warn().Err(err).Str("path", ev.Name).Msg("watch new directory failed")
					}
					continue
				}
			}
			if format.Detect(ev.Name) != format.Note {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			// A rename reports the old name; only keep paths that exist.
			if _, err := os.Stat(ev.Name); err != nil {
				continue
			}
			log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("notebook changed")
			pending[ev.Name] = true
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("watch error")
		}
	}
}

func addDirs(w *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
