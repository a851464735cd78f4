// Package storetest holds the conformance suite every SnapshotStore
// backend runs.
package storetest

import (
	"context"
	"encoding/gob"
	"time"

	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/persistence"
	"github.com/petrijr/flowtest/pkg/api"
	"github.com/stretchr/testify/suite"
)

// SampleModel is a gob-registered model stored in sample flow scopes.
type SampleModel struct {
	Amount int
	Name   string
}

func init() {
	gob.Register(SampleModel{})
}

// SnapshotStoreSuite is run against every SnapshotStore implementation.
// NewStore returns an empty store for each test.
type SnapshotStoreSuite struct {
	suite.Suite
	NewStore func() persistence.SnapshotStore

	store persistence.SnapshotStore
	ctx   context.Context
}

func (s *SnapshotStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
}

// SampleExecution returns an execution of the "booking" flow, active in
// stateID or ended with outcome "finish".
func SampleExecution(key string, stateID string, ended bool) *engine.ExecutionSnapshot {
	exec := &engine.ExecutionSnapshot{
		Key:     key,
		FlowID:  "booking",
		Started: true,
		Sessions: []engine.SessionSnapshot{{
			FlowID:    "booking",
			StateID:   stateID,
			Status:    api.SessionActive,
			Scope:     map[string]any{"model": SampleModel{Amount: 5, Name: "five"}, "count": 3},
			ViewScope: map[string]any{"page": "first"},
		}},
		Conversation: map[string]any{"user": "jane"},
	}
	if ended {
		exec.Sessions = nil
		exec.Ended = true
		exec.OutcomeID = "finish"
		exec.Output = map[string]any{"total": int64(42)}
	}
	return exec
}

func (s *SnapshotStoreSuite) save(seq int, exec *engine.ExecutionSnapshot) *persistence.Snapshot {
	snap := persistence.NewSnapshot(seq, exec)
	snap.CreatedAt = time.Date(2024, 5, 1, 12, 0, seq, 0, time.UTC)
	s.Require().NoError(s.store.Save(s.ctx, snap))
	return snap
}

func (s *SnapshotStoreSuite) TestSaveGet() {
	s.save(1, SampleExecution("exec-1", "enterDetails", false))

	got, err := s.store.Get(s.ctx, "exec-1", 1)
	s.Require().NoError(err)
	s.Equal("exec-1", got.ExecutionKey)
	s.Equal(1, got.Seq)
	s.Equal("booking", got.FlowID)
	s.Equal("enterDetails", got.StateID)
	s.Equal(persistence.StatusActive, got.Status)
	s.Empty(got.Outcome)
	s.True(got.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)))

	s.Require().Len(got.Execution.Sessions, 1)
	session := got.Execution.Sessions[0]
	s.Equal(SampleModel{Amount: 5, Name: "five"}, session.Scope["model"])
	s.Equal(3, session.Scope["count"])
	s.Equal("first", session.ViewScope["page"])
	s.Equal("jane", got.Execution.Conversation["user"])
}

func (s *SnapshotStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "missing", 1)
	s.ErrorIs(err, persistence.ErrSnapshotNotFound)

	_, err = s.store.Latest(s.ctx, "missing")
	s.ErrorIs(err, persistence.ErrSnapshotNotFound)
}

func (s *SnapshotStoreSuite) TestSaveReplacesSameSequence() {
	s.save(1, SampleExecution("exec-2", "first", false))
	s.save(1, SampleExecution("exec-2", "second", false))

	got, err := s.store.Get(s.ctx, "exec-2", 1)
	s.Require().NoError(err)
	s.Equal("second", got.StateID)

	all, err := s.store.List(s.ctx, "exec-2")
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *SnapshotStoreSuite) TestLatestAndList() {
	s.save(2, SampleExecution("exec-3", "review", false))
	s.save(0, SampleExecution("exec-3", "enter", false))
	s.save(1, SampleExecution("exec-3", "confirm", false))
	s.save(3, SampleExecution("exec-3", "", true))
	s.save(0, SampleExecution("other", "enter", false))

	latest, err := s.store.Latest(s.ctx, "exec-3")
	s.Require().NoError(err)
	s.Equal(3, latest.Seq)
	s.Equal(persistence.StatusEnded, latest.Status)
	s.Equal("finish", latest.Outcome)
	s.True(latest.Execution.Ended)
	s.Equal(int64(42), latest.Execution.Output["total"])

	all, err := s.store.List(s.ctx, "exec-3")
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	states := make([]string, 0, len(all))
	for i, snap := range all {
		s.Equal(i, snap.Seq)
		states = append(states, snap.StateID)
	}
	s.Equal([]string{"enter", "confirm", "review", ""}, states)
}

func (s *SnapshotStoreSuite) TestListEmpty() {
	all, err := s.store.List(s.ctx, "nothing")
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *SnapshotStoreSuite) TestDelete() {
	s.save(0, SampleExecution("exec-4", "enter", false))
	s.save(1, SampleExecution("exec-4", "confirm", false))
	s.save(0, SampleExecution("exec-5", "enter", false))

	s.Require().NoError(s.store.Delete(s.ctx, "exec-4"))
	s.Require().NoError(s.store.Delete(s.ctx, "exec-4"))

	_, err := s.store.Latest(s.ctx, "exec-4")
	s.ErrorIs(err, persistence.ErrSnapshotNotFound)

	all, err := s.store.List(s.ctx, "exec-5")
	s.Require().NoError(err)
	s.Len(all, 1)
}
