package store

import (
	"testing"

	"github.com/atoll-cloud/atoll/types"
)

func testResource(kind, id, name string) types.Resource {
	return types.Resource{ID: id, Kind: kind, Name: name, Region: "nyc3"}
}

func TestStore_RecordRun(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	rev, err := s.RecordRun([]types.Resource{
		testResource("droplet", "1", "web-1"),
		testResource("droplet", "2", "web-2"),
		testResource("volume", "v-1", "data"),
	})
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if rev != 1 {
		t.Errorf("revision = %d, want 1", rev)
	}

	state, err := s.State("droplet/1")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if !state.Exists || state.FirstSeenRev != 1 || state.LastSeenRev != 1 {
		t.Errorf("state = %+v", state)
	}

	droplets := s.StatesByKind("droplet")
	if len(droplets) != 2 {
		t.Errorf("droplet states = %d, want 2", len(droplets))
	}
}

func TestStore_RevisionsAdvance(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	r := testResource("droplet", "1", "web-1")

	first, _ := s.RecordRun([]types.Resource{r})
	second, _ := s.RecordRun([]types.Resource{r})
	if second != first+1 {
		t.Errorf("revisions = %d, %d, want consecutive", first, second)
	}

	state, err := s.State("droplet/1")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.FirstSeenRev != first || state.LastSeenRev != second {
		t.Errorf("state = %+v, want first %d last %d", state, first, second)
	}
}

func TestStore_Disappearance(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	s.RecordRun([]types.Resource{testResource("droplet", "1", "web-1")})
	rev, err := s.RecordDisappearance("droplet/1")
	if err != nil {
		t.Fatalf("RecordDisappearance() error = %v", err)
	}

	state, err := s.State("droplet/1")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.Exists {
		t.Error("resource should be marked gone")
	}
	if state.DisappearedRev != rev {
		t.Errorf("disappeared rev = %d, want %d", state.DisappearedRev, rev)
	}

	if got := s.StatesByKind("droplet"); len(got) != 0 {
		t.Errorf("live droplets = %d, want 0", len(got))
	}
}

func TestStore_ReopenRestoresIndex(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.RecordRun([]types.Resource{testResource("droplet", "1", "web-1")})
	s.RecordRun([]types.Resource{testResource("droplet", "1", "web-1")})
	s.RecordDisappearance("droplet/2") // unknown key is harmless
	s.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if reopened.CurrentRevision() != 3 {
		t.Errorf("revision after reopen = %d, want 3", reopened.CurrentRevision())
	}

	state, err := reopened.State("droplet/1")
	if err != nil {
		t.Fatalf("State() after reopen error = %v", err)
	}
	if state.FirstSeenRev != 1 || state.LastSeenRev != 2 || !state.Exists {
		t.Errorf("state after reopen = %+v", state)
	}
}

func TestStore_Compact(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.RecordRun([]types.Resource{testResource("droplet", "1", "web-1")})
	}

	if err := s.Compact(2); err != nil {
		t.Fatalf("Compact() error = %v", err)
	}

	// Current state survives compaction
	state, err := s.State("droplet/1")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	if state.LastSeenRev != 5 {
		t.Errorf("last seen = %d, want 5", state.LastSeenRev)
	}
}
