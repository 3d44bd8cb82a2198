package serve

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pagerouter/internal/logfields"
)

const debounceDelay = 200 * time.Millisecond

// startWatch rebuilds the site whenever a file under the content trees
// changes. Bursts of events collapse into one rebuild.
func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		s.watcher = w

		for _, root := range []string{s.cfg.Build.PagesDir, s.cfg.Build.LocalesDir} {
			if root == "" {
				continue
			}
			if _, statErr := os.Stat(root); statErr != nil {
				continue
			}
			if err = addTree(w, root); err != nil {
				return
			}
		}
		go s.watchLoop(ctx)
	})
	return err
}

func addTree(w *fsnotify.Watcher, root string) error {
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

func (s *Server) watchLoop(ctx context.Context) {
	slog.Info("watching for file changes", logfields.Path(s.cfg.Build.PagesDir))
	debounce := time.NewTicker(time.Hour)
	debounce.Stop()

	trigger := func() {
		select {
		case <-debounce.C:
		default:
		}
		debounce.Reset(debounceDelay)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(s.watcher, ev.Name); err != nil {
						slog.Warn("watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				trigger()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", logfields.Error(err))
		case <-debounce.C:
			debounce.Stop()
			rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			_ = s.Rebuild(rctx)
			cancel()
		}
	}
}
