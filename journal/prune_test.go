package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "atoll-20200101-000000.journal")
	if err := os.WriteFile(old, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("Failed to backdate file: %v", err)
	}

	fresh := filepath.Join(dir, "atoll-20300101-000000.journal")
	if err := os.WriteFile(fresh, []byte("{}\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	// An unrelated file must survive regardless of age
	other := filepath.Join(dir, "notes.txt")
	os.WriteFile(other, []byte("keep"), 0644)
	os.Chtimes(other, stale, stale)

	stats, err := Prune(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	if stats.FilesRemoved != 1 {
		t.Errorf("FilesRemoved = %d, want 1", stats.FilesRemoved)
	}
	if stats.BytesFreed == 0 {
		t.Error("BytesFreed = 0, want > 0")
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old journal file should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh journal file should survive")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("unrelated file should survive")
	}
}

func TestPruneEmptyDir(t *testing.T) {
	stats, err := Prune(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if stats.FilesRemoved != 0 {
		t.Errorf("FilesRemoved = %d, want 0", stats.FilesRemoved)
	}
}
