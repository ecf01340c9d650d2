// Package store keeps a revisioned record of what each reconcile run
// observed. It is purely historical: match classification always runs
// against a fresh listing, never against this store.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/atoll-cloud/atoll/types"
)

// Bucket names in bbolt
var (
	bucketObservations = []byte("observations")
	bucketMeta         = []byte("meta")
)

// Store is a multi-version observation log: every run bumps the
// revision and appends what it saw.
type Store struct {
	mu sync.RWMutex

	// In-memory index for fast lookups
	index *btree.BTreeG[*ResourceState]

	// On-disk storage
	db *bbolt.DB

	// Current revision number
	currentRev int64

	dir string
}

// ResourceState tracks one resource across revisions.
type ResourceState struct {
	Key            string // kind/id
	Kind           string
	Name           string
	Region         string
	FirstSeenRev   int64
	LastSeenRev    int64
	DisappearedRev int64
	Exists         bool
}

// Open creates or opens a store in the specified directory.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "atoll.db")

	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketObservations, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		index: btree.NewG[*ResourceState](32, func(a, b *ResourceState) bool {
			return a.Key < b.Key
		}),
		db:  db,
		dir: dir,
	}

	s.loadRevision()
	if err := s.rebuildIndex(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}

	return s, nil
}

// Close closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

// ResourceKey builds the store key for a resource.
func ResourceKey(r types.Resource) string {
	return r.Kind + "/" + r.ID
}

// RecordRun records everything one run observed under a single new
// revision.
func (s *Store) RecordRun(observed []types.Resource) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRev++
	rev := s.currentRev

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketObservations)

		for _, r := range observed {
			key := makeObservationKey(rev, ResourceKey(r))
			value, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, value); err != nil {
				return err
			}
		}

		metaBucket := tx.Bucket(bucketMeta)
		return metaBucket.Put([]byte("current_revision"), int64ToBytes(rev))
	})
	if err != nil {
		return 0, err
	}

	for _, r := range observed {
		s.updateIndex(r, rev, true)
	}

	return rev, nil
}

// RecordDisappearance marks a previously seen resource gone.
func (s *Store) RecordDisappearance(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentRev++
	rev := s.currentRev

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketObservations)

		tombstone := map[string]interface{}{
			"key":       key,
			"tombstone": true,
			"timestamp": time.Now(),
		}
		value, err := json.Marshal(tombstone)
		if err != nil {
			return err
		}
		if err := bucket.Put(makeObservationKey(rev, key), value); err != nil {
			return err
		}

		metaBucket := tx.Bucket(bucketMeta)
		return metaBucket.Put([]byte("current_revision"), int64ToBytes(rev))
	})
	if err != nil {
		return 0, err
	}

	probe := &ResourceState{Key: key}
	if existing, found := s.index.Get(probe); found {
		existing.Exists = false
		existing.DisappearedRev = rev
		s.index.ReplaceOrInsert(existing)
	}

	return rev, nil
}

// State returns the current tracked state of a resource.
func (s *Store) State(key string) (*ResourceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := &ResourceState{Key: key}
	existing, found := s.index.Get(probe)
	if !found {
		return nil, fmt.Errorf("resource %s not found", key)
	}
	return existing, nil
}

// StatesByKind returns the tracked state of every live resource of a
// kind, in key order.
func (s *Store) StatesByKind(kind string) []*ResourceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*ResourceState
	s.index.Ascend(func(state *ResourceState) bool {
		if state.Kind == kind && state.Exists {
			results = append(results, state)
		}
		return true
	})
	return results
}

// CurrentRevision returns the current revision number
func (s *Store) CurrentRevision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRev
}

// Compact removes observations older than the last keepRevisions.
func (s *Store) Compact(keepRevisions int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.currentRev - keepRevisions
	if cutoff <= 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketObservations)
		c := bucket.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			rev, _ := parseObservationKey(k)
			if rev < cutoff {
				toDelete = append(toDelete, k)
			}
		}

		for _, key := range toDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Helper functions

func (s *Store) updateIndex(r types.Resource, rev int64, exists bool) {
	key := ResourceKey(r)
	probe := &ResourceState{Key: key}
	existing, found := s.index.Get(probe)

	if !found {
		existing = &ResourceState{
			Key:          key,
			Kind:         r.Kind,
			Name:         r.Name,
			Region:       r.Region,
			FirstSeenRev: rev,
			LastSeenRev:  rev,
			Exists:       exists,
		}
	} else {
		existing.LastSeenRev = rev
		existing.Exists = exists
		existing.Name = r.Name
		if !exists {
			existing.DisappearedRev = rev
		}
	}

	s.index.ReplaceOrInsert(existing)
}

func (s *Store) loadRevision() {
	_ = s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)
		if bucket == nil {
			return nil
		}
		if data := bucket.Get([]byte("current_revision")); data != nil {
			s.currentRev = bytesToInt64(data)
		}
		return nil
	})
}

// rebuildIndex replays the observation log oldest-first so reopening a
// store restores first-seen and last-seen revisions.
func (s *Store) rebuildIndex() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketObservations)
		c := bucket.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			rev, key := parseObservationKey(k)

			var probe struct {
				Tombstone bool `json:"tombstone"`
			}
			if err := json.Unmarshal(v, &probe); err != nil {
				continue
			}
			if probe.Tombstone {
				if existing, found := s.index.Get(&ResourceState{Key: key}); found {
					existing.Exists = false
					existing.DisappearedRev = rev
					s.index.ReplaceOrInsert(existing)
				}
				continue
			}

			var r types.Resource
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			s.updateIndex(r, rev, true)
		}
		return nil
	})
}

func makeObservationKey(rev int64, key string) []byte {
	return []byte(fmt.Sprintf("%016d:%s", rev, key))
}

func parseObservationKey(k []byte) (int64, string) {
	var rev int64
	var key string
	fmt.Sscanf(string(k), "%016d:%s", &rev, &key)
	return rev, key
}

func int64ToBytes(n int64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func bytesToInt64(b []byte) int64 {
	var n int64
	fmt.Sscanf(string(b), "%d", &n)
	return n
}
