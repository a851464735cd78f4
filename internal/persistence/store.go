// Package persistence stores execution snapshots recorded by the flow
// tester, so that an execution can be rewound to any earlier request.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/flowtest/internal/engine"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot statuses.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Snapshot is one recorded point of a flow execution. ExecutionKey and Seq
// identify it; the remaining fields other than Execution are denormalized
// for listing.
type Snapshot struct {
	ExecutionKey string
	Seq          int
	FlowID       string
	StateID      string
	Status       string
	Outcome      string
	CreatedAt    time.Time
	Execution    *engine.ExecutionSnapshot
}

// NewSnapshot wraps exec as snapshot seq of its execution.
func NewSnapshot(seq int, exec *engine.ExecutionSnapshot) *Snapshot {
	s := &Snapshot{
		ExecutionKey: exec.Key,
		Seq:          seq,
		FlowID:       exec.FlowID,
		Status:       StatusActive,
		CreatedAt:    time.Now().UTC(),
		Execution:    exec,
	}
	if n := len(exec.Sessions); n > 0 {
		s.StateID = exec.Sessions[n-1].StateID
	}
	if exec.Ended {
		s.Status = StatusEnded
		s.Outcome = exec.OutcomeID
	}
	return s
}

// SnapshotStore handles storage of execution snapshots. Saving a snapshot
// with an existing key and sequence number replaces it.
type SnapshotStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, executionKey string, seq int) (*Snapshot, error)
	// Latest returns the snapshot with the highest sequence number.
	Latest(ctx context.Context, executionKey string) (*Snapshot, error)
	// List returns the snapshots of an execution ordered by sequence number.
	List(ctx context.Context, executionKey string) ([]*Snapshot, error)
	// Delete removes every snapshot of an execution. It is idempotent.
	Delete(ctx context.Context, executionKey string) error
}
