package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/atoll-cloud/atoll/types"
)

func TestJournal_AppendAndRead(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}

	decision := types.Decision{
		Op:           types.OpDelete,
		ResourceKind: "droplet",
		ResourceID:   "123456",
		Reason:       "declared absent",
	}

	if err := j.Append(EntryPlanned, "droplet", decision.ResourceID, decision); err != nil {
		t.Fatalf("Failed to append planned entry: %v", err)
	}
	if err := j.Append(EntrySubmitted, "droplet", decision.ResourceID, decision); err != nil {
		t.Fatalf("Failed to append submitted entry: %v", err)
	}
	if err := j.Append(EntryConfirmed, "droplet", decision.ResourceID, decision); err != nil {
		t.Fatalf("Failed to append confirmed entry: %v", err)
	}

	if err := j.Close(); err != nil {
		t.Fatalf("Failed to close journal: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "atoll-*.journal"))
	if len(files) == 0 {
		t.Fatal("No journal files found")
	}

	reader, err := NewReader(files[0])
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	expectedTypes := []EntryType{EntryPlanned, EntrySubmitted, EntryConfirmed}

	for i, expected := range expectedTypes {
		entry, err := reader.Next()
		if err != nil {
			t.Fatalf("Failed to read entry %d: %v", i, err)
		}

		if entry.Type != expected {
			t.Errorf("Entry %d: type = %v, want %v", i, entry.Type, expected)
		}
		if entry.Kind != "droplet" {
			t.Errorf("Entry %d: kind = %v, want droplet", i, entry.Kind)
		}
		if entry.ResourceID != decision.ResourceID {
			t.Errorf("Entry %d: resource_id = %v, want %v", i, entry.ResourceID, decision.ResourceID)
		}
		if entry.Sequence != int64(i+1) {
			t.Errorf("Entry %d: sequence = %v, want %v", i, entry.Sequence, i+1)
		}
	}

	// Should be EOF
	_, err = reader.Next()
	if err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}
}

func TestJournal_AppendError(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	defer j.Close()

	decision := types.Decision{
		Op:           types.OpCreate,
		ResourceKind: "volume",
		Reason:       "declared present",
	}

	testErr := fmt.Errorf("volume quota exceeded")

	if err := j.AppendError(EntryFailed, "volume", "", decision, testErr); err != nil {
		t.Fatalf("Failed to append error entry: %v", err)
	}

	j.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "atoll-*.journal"))
	reader, _ := NewReader(files[0])
	defer reader.Close()

	entry, err := reader.Next()
	if err != nil {
		t.Fatalf("Failed to read entry: %v", err)
	}

	if entry.Type != EntryFailed {
		t.Errorf("Entry type = %v, want %v", entry.Type, EntryFailed)
	}
	if entry.Error != testErr.Error() {
		t.Errorf("Entry error = %v, want %v", entry.Error, testErr.Error())
	}
}

func TestJournal_Replay(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}

	// Old entry (should be skipped)
	j.Append(EntryPlanned, "droplet", "old-resource", nil)

	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)

	// New entries (should be replayed)
	j.Append(EntryPlanned, "droplet", "new-resource-1", nil)
	j.Append(EntryPlanned, "droplet", "new-resource-2", nil)

	j.Close()

	var replayed []string
	err = Replay(dir, cutoff, func(entry *Entry) error {
		replayed = append(replayed, entry.ResourceID)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	expectedIDs := []string{"new-resource-1", "new-resource-2"}
	if len(replayed) != len(expectedIDs) {
		t.Fatalf("Replayed %d entries, want %d", len(replayed), len(expectedIDs))
	}
	for i, id := range replayed {
		if id != expectedIDs[i] {
			t.Errorf("Replayed[%d] = %v, want %v", i, id, expectedIDs[i])
		}
	}
}

func TestJournal_DataIntegrity(t *testing.T) {
	dir := t.TempDir()

	j, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}

	decision := types.Decision{
		Op:           types.OpDelete,
		ResourceKind: "domain",
		ResourceID:   "example.com",
		Reason:       "reason with special chars: \"quotes\" and \nnewlines",
	}

	j.Append(EntryPlanned, decision.ResourceKind, decision.ResourceID, decision)
	j.Close()

	files, _ := filepath.Glob(filepath.Join(dir, "atoll-*.journal"))
	reader, _ := NewReader(files[0])
	defer reader.Close()

	entry, _ := reader.Next()

	var recovered types.Decision
	if err := json.Unmarshal(entry.Data, &recovered); err != nil {
		t.Fatalf("Failed to unmarshal data: %v", err)
	}

	if recovered.Op != decision.Op {
		t.Errorf("Op = %v, want %v", recovered.Op, decision.Op)
	}
	if recovered.Reason != decision.Reason {
		t.Errorf("Reason = %v, want %v", recovered.Reason, decision.Reason)
	}
}
