// Package cleanup removes temp files that interrupted writes leave behind.
//
// store.Local writes each collection to "<name>.*.tmp" in the target
// directory and renames it into place. A crash between create and rename
// leaves the temp file on disk; RunPeriodic deletes any whose mtime is older
// than the configured TTL.
package cleanup

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempFiles walks root and removes *.tmp files older than ttl. It returns
// the number removed. Files still being written are recent and left alone.
func TempFiles(root string, ttl time.Duration, logger *slog.Logger) int {
	cutoff := time.Now().Add(-ttl)
	var removed int
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("cleanup: walk failed", "path", path, "err", err)
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		age := time.Since(info.ModTime()).Round(time.Minute)
		if err := os.Remove(path); err != nil {
			logger.Warn("cleanup: remove failed", "file", path, "err", err)
			return nil
		}
		removed++
		logger.Info("cleanup: removed stale temp file", "file", path, "age", age)
		return nil
	})
	if err != nil {
		logger.Warn("cleanup: walk aborted", "root", root, "err", err)
	}
	if removed > 0 {
		logger.Info("cleanup: cycle complete", "removed", removed)
	}
	return removed
}

// RunPeriodic starts a background goroutine that calls TempFiles on every
// interval until ctx is cancelled. A first pass runs immediately to clear
// leftovers from a previous crash.
func RunPeriodic(ctx context.Context, root string, ttl, interval time.Duration, logger *slog.Logger) {
	go func() {
		TempFiles(root, ttl, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				TempFiles(root, ttl, logger)
			case <-ctx.Done():
				return
			}
		}
	}()
}
