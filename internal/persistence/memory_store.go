package persistence

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a goroutine-safe SnapshotStore backed by maps. Snapshots
// are stored encoded, so that a later change to a scope value does not
// alter a recorded snapshot.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]map[int][]byte
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string]map[int][]byte)}
}

var _ SnapshotStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bySeq, ok := s.snapshots[snap.ExecutionKey]
	if !ok {
		bySeq = make(map[int][]byte)
		s.snapshots[snap.ExecutionKey] = bySeq
	}
	bySeq[snap.Seq] = data
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, executionKey string, seq int) (*Snapshot, error) {
	s.mu.RLock()
	data, ok := s.snapshots[executionKey][seq]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return DecodeSnapshot(data)
}

func (s *InMemoryStore) Latest(ctx context.Context, executionKey string) (*Snapshot, error) {
	s.mu.RLock()
	latest := -1
	for seq := range s.snapshots[executionKey] {
		if seq > latest {
			latest = seq
		}
	}
	s.mu.RUnlock()

	if latest < 0 {
		return nil, ErrSnapshotNotFound
	}
	return s.Get(ctx, executionKey, latest)
}

func (s *InMemoryStore) List(_ context.Context, executionKey string) ([]*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bySeq := s.snapshots[executionKey]
	seqs := make([]int, 0, len(bySeq))
	for seq := range bySeq {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	result := make([]*Snapshot, 0, len(seqs))
	for _, seq := range seqs {
		snap, err := DecodeSnapshot(bySeq[seq])
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, nil
}

func (s *InMemoryStore) Delete(_ context.Context, executionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, executionKey)
	return nil
}
