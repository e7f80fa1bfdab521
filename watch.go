package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchDataFile calls onChange for every event touching path until ctx is
// done.
//
// The parent directory is watched rather than the file: the xlsx store
// replaces the file by renaming a temporary one over it, which would drop a
// watch held on the file itself.
func watchDataFile(ctx context.Context, path string, onChange func(fsnotify.Op)) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == path {
					onChange(event.Op)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching data file", "err", err)
			}
		}
	}()
	return nil
}

// logDataFileChange reports removal of the data file loudly since every
// request fails until it is restored. Other changes include the server's own
// writes and are only logged at debug level.
func logDataFileChange(ctx context.Context, path string) func(fsnotify.Op) {
	return func(op fsnotify.Op) {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			slog.WarnContext(ctx, "Data file removed or renamed by another program", "path", path, "op", op.String())
			return
		}
		slog.DebugContext(ctx, "Data file changed", "path", path, "op", op.String())
	}
}
