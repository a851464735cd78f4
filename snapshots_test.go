package flowtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshots_RequireStore(t *testing.T) {
	ctx := context.Background()
	tester := newTester(t, "simpleFlows/standaloneFlow.xml", nil)

	_, err := tester.Snapshots(ctx)
	requireIllegalState(t, err, msgNotStarted)

	require.NoError(t, tester.StartFlow(nil))
	_, err = tester.Snapshots(ctx)
	requireIllegalState(t, err, msgNoSnapshotter)
	requireIllegalState(t, tester.RestoreSnapshot(ctx, 1), msgNoSnapshotter)
}

func TestSnapshots_RecordedPerRequest(t *testing.T) {
	ctx := context.Background()
	tester := newTester(t, "simpleFlows/standaloneFlow.xml", nil, WithSnapshotStore(NewInMemorySnapshotStore()))

	require.NoError(t, tester.StartFlow(nil))
	tester.SetEventID("page")
	require.NoError(t, tester.ResumeFlow(nil))
	tester.SetEventID("close")
	require.NoError(t, tester.ResumeFlow(nil))

	snaps, err := tester.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	key := tester.CurrentFlowExecution().Key()
	for i, s := range snaps {
		assert.Equal(t, i+1, s.Seq)
		assert.Equal(t, key, s.ExecutionKey)
		assert.Equal(t, "standaloneFlow", s.FlowID)
	}
	assert.Equal(t, "start", snaps[0].StateID)
	assert.Equal(t, "step", snaps[1].StateID)
	assert.Equal(t, "active", snaps[1].Status)
	assert.Equal(t, "ended", snaps[2].Status)
	assert.Equal(t, "bye", snaps[2].Outcome)
}

func TestSnapshots_RestoreRewindsExecution(t *testing.T) {
	ctx := context.Background()
	tester := newTester(t, "simpleFlows/flowWithInput.xml", nil, WithSnapshotStore(NewInMemorySnapshotStore()))

	require.NoError(t, tester.StartFlow(map[string]any{"inputArgument": "first"}))
	scope, err := tester.Scope()
	require.NoError(t, err)
	scope.Put("inputArgument", "changed")

	tester.SetEventID("page")
	require.NoError(t, tester.ResumeFlow(map[string]any{"inputParameter": "p"}))

	require.NoError(t, tester.RestoreSnapshot(ctx, 1))
	state, err := tester.CurrentStateID()
	require.NoError(t, err)
	assert.Equal(t, "start", state)
	scope, err = tester.Scope()
	require.NoError(t, err)
	assert.Equal(t, "first", scope.Get("inputArgument"), "snapshots are taken at the end of a request")
	assert.False(t, scope.Contains("passed"))

	tester.SetEventID("page")
	require.NoError(t, tester.ResumeFlow(map[string]any{"inputParameter": "again"}))
	snaps, err := tester.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "again", snaps[1].Execution.Sessions[0].Scope["passed"])

	err = tester.RestoreSnapshot(ctx, 9)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
}
