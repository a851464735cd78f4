package engine

import (
	"fmt"

	"github.com/petrijr/flowtest/pkg/api"
)

// SessionSnapshot is the recorded state of one flow session.
type SessionSnapshot struct {
	FlowID    string
	StateID   string
	Status    api.FlowSessionStatus
	Scope     map[string]any
	ViewScope map[string]any
}

// ExecutionSnapshot is the recorded state of a flow execution at the end
// of a request. Sessions are ordered from the root to the active session.
type ExecutionSnapshot struct {
	Key          string
	FlowID       string
	Started      bool
	Sessions     []SessionSnapshot
	Conversation map[string]any
	OutcomeID    string
	Output       map[string]any
	Ended        bool
}

// Snapshot records the current state of e. Scope maps are copied; the
// values themselves are shared until the snapshot is encoded.
func (e *FlowExecution) Snapshot() *ExecutionSnapshot {
	snap := &ExecutionSnapshot{
		Key:          e.key,
		FlowID:       e.flow.ID(),
		Started:      e.HasStarted(),
		Conversation: e.conversation.Copy(),
		Ended:        e.HasEnded(),
	}
	for _, s := range e.sessions {
		ss := SessionSnapshot{
			FlowID: s.flow.ID(),
			Status: s.status,
			Scope:  s.scope.Copy(),
		}
		if s.state != nil {
			ss.StateID = s.state.ID()
		}
		if s.viewScope != nil {
			ss.ViewScope = s.viewScope.Copy()
		}
		snap.Sessions = append(snap.Sessions, ss)
	}
	if e.outcome != nil {
		snap.OutcomeID = e.outcome.ID
		snap.Output = e.outcome.Output.Copy()
	}
	return snap
}

// Restore resets e to a recorded snapshot of an execution of the same
// flow. Sub-flows are resolved through the flow's registry.
func (e *FlowExecution) Restore(snap *ExecutionSnapshot) error {
	if snap.FlowID != e.flow.ID() {
		return fmt.Errorf("snapshot of flow %q cannot restore an execution of %q", snap.FlowID, e.flow.ID())
	}
	sessions := make([]*FlowSession, 0, len(snap.Sessions))
	var parent *FlowSession
	for _, ss := range snap.Sessions {
		flow, err := e.resolveFlow(ss.FlowID)
		if err != nil {
			return err
		}
		session := &FlowSession{
			flow:   flow,
			status: ss.Status,
			scope:  api.NewAttributeMap(ss.Scope),
			parent: parent,
		}
		if ss.StateID != "" {
			session.state = flow.State(ss.StateID)
			if session.state == nil {
				return fmt.Errorf("flow %q, state %q: %w", flow.ID(), ss.StateID, ErrStateNotFound)
			}
		}
		if ss.ViewScope != nil || (session.state != nil && session.state.IsViewState()) {
			// Encoded snapshots drop empty maps.
			session.viewScope = api.NewAttributeMap(ss.ViewScope)
		}
		sessions = append(sessions, session)
		parent = session
	}

	e.sessions = sessions
	e.started = snap.Started
	e.conversation = api.NewAttributeMap(snap.Conversation)
	e.outcome = nil
	if snap.Ended {
		e.outcome = &api.FlowExecutionOutcome{ID: snap.OutcomeID, Output: api.NewAttributeMap(snap.Output)}
	}
	return nil
}

func (e *FlowExecution) resolveFlow(id string) (*Flow, error) {
	if id == e.flow.ID() {
		return e.flow, nil
	}
	if e.flow.appContext == nil {
		return nil, &NoSuchFlowDefinitionError{FlowID: id}
	}
	return e.flow.appContext.Registry().FlowDefinition(id)
}
