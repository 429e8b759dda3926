package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watch runs fn once, then again after every write to path, until ctx is
// done. The parent directory is watched so that editors that replace the
// file are noticed.
func watch(ctx context.Context, path string, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	report := func(err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "tacvm: %v\n", err)
		}
	}

	report(fn())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target ||
				ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			slog.Info("Reload", "file", path, "op", ev.Op.String())
			report(fn())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
