package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PruneStats reports what a prune pass removed
type PruneStats struct {
	FilesRemoved int
	BytesFreed   int64
}

// Prune removes journal files whose modification time is older than
// the retention window. The currently open journal is never older
// than the window, so an active Journal is safe while pruning runs.
func Prune(dir string, retention time.Duration) (PruneStats, error) {
	var stats PruneStats

	cutoff := time.Now().Add(-retention)
	files, err := filepath.Glob(filepath.Join(dir, "atoll-*.journal"))
	if err != nil {
		return stats, fmt.Errorf("listing journal files: %w", err)
	}

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return stats, fmt.Errorf("removing %s: %w", path, err)
		}
		stats.FilesRemoved++
		stats.BytesFreed += info.Size()
	}

	return stats, nil
}
