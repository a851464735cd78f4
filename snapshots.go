package flowtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/petrijr/flowtest/internal/persistence"
	"github.com/petrijr/flowtest/pkg/api"
)

// Snapshot is one recorded point of an execution.
type Snapshot = persistence.Snapshot

// SnapshotStore stores the snapshots recorded by a tester.
type SnapshotStore = persistence.SnapshotStore

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = persistence.ErrSnapshotNotFound

// NewInMemorySnapshotStore returns a store for tests that need no
// persistence beyond the process.
func NewInMemorySnapshotStore() SnapshotStore { return persistence.NewInMemoryStore() }

func (t *MockFlowTester) recordSnapshot() error {
	if t.store == nil {
		return nil
	}
	t.seq++
	snap := persistence.NewSnapshot(t.seq, t.execution.Snapshot())
	if err := t.store.Save(t.ctx, snap); err != nil {
		return fmt.Errorf("record snapshot %d of execution %s: %w", t.seq, snap.ExecutionKey, err)
	}
	t.logger.Debug("snapshot_recorded",
		zap.String("execution", snap.ExecutionKey),
		zap.Int("seq", snap.Seq),
		zap.String("state", snap.StateID),
		zap.String("status", snap.Status),
	)
	return nil
}

// Snapshots lists the snapshots of the current execution, oldest first.
// Sequence numbers start at 1 with the request that started the flow.
func (t *MockFlowTester) Snapshots(ctx context.Context) ([]*Snapshot, error) {
	if err := t.requireSnapshots(); err != nil {
		return nil, err
	}
	return t.store.List(ctx, t.execution.Key())
}

// RestoreSnapshot rewinds the current execution to snapshot seq, the way a
// browser's back button returns to an earlier page. Later snapshots are
// kept and overwritten as the execution proceeds.
func (t *MockFlowTester) RestoreSnapshot(ctx context.Context, seq int) error {
	if err := t.requireSnapshots(); err != nil {
		return err
	}
	snap, err := t.store.Get(ctx, t.execution.Key(), seq)
	if err != nil {
		return err
	}
	if err := t.execution.Restore(snap.Execution); err != nil {
		return err
	}
	t.seq = seq
	return nil
}

func (t *MockFlowTester) requireSnapshots() error {
	if err := t.requireExecution(); err != nil {
		return err
	}
	if t.store == nil {
		return api.NewIllegalStateError(msgNoSnapshotter)
	}
	return nil
}
