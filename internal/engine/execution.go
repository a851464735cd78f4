package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/petrijr/flowtest/pkg/api"
)

// FlowSession is one running instance of a flow inside an execution.
type FlowSession struct {
	flow      *Flow
	state     State
	status    api.FlowSessionStatus
	scope     api.AttributeMap
	viewScope api.AttributeMap
	parent    *FlowSession
}

var _ api.FlowSession = (*FlowSession)(nil)

func (s *FlowSession) Definition() api.FlowDefinition { return s.flow }
func (s *FlowSession) Flow() *Flow                    { return s.flow }
func (s *FlowSession) Status() api.FlowSessionStatus  { return s.status }
func (s *FlowSession) Scope() api.AttributeMap        { return s.scope }
func (s *FlowSession) ViewScope() api.AttributeMap    { return s.viewScope }
func (s *FlowSession) IsRoot() bool                   { return s.parent == nil }

func (s *FlowSession) State() api.StateDefinition {
	if s.state == nil {
		return nil
	}
	return s.state
}

func (s *FlowSession) Parent() api.FlowSession {
	if s.parent == nil {
		return nil
	}
	return s.parent
}

// FlowExecution is a live instance of a flow definition: a stack of flow
// sessions plus conversation scope. Not safe for concurrent use.
type FlowExecution struct {
	key          string
	flow         *Flow
	sessions     []*FlowSession
	conversation api.AttributeMap
	listener     api.FlowExecutionListener
	logger       *zap.Logger

	started bool
	outcome *api.FlowExecutionOutcome
}

func newFlowExecution(key string, flow *Flow, listener api.FlowExecutionListener, logger *zap.Logger) *FlowExecution {
	if listener == nil {
		listener = api.NoopListener{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlowExecution{
		key:          key,
		flow:         flow,
		conversation: api.AttributeMap{},
		listener:     listener,
		logger:       logger,
	}
}

func (e *FlowExecution) Key() string                         { return e.key }
func (e *FlowExecution) Definition() *Flow                   { return e.flow }
func (e *FlowExecution) ConversationScope() api.AttributeMap { return e.conversation }
func (e *FlowExecution) Outcome() *api.FlowExecutionOutcome  { return e.outcome }
func (e *FlowExecution) Listener() api.FlowExecutionListener { return e.listener }
func (e *FlowExecution) HasStarted() bool                    { return e.started || len(e.sessions) > 0 }
func (e *FlowExecution) IsActive() bool                      { return len(e.sessions) > 0 }
func (e *FlowExecution) HasEnded() bool                      { return e.HasStarted() && !e.IsActive() }

// ActiveSession returns the innermost running session, or nil.
func (e *FlowExecution) ActiveSession() *FlowSession { return e.activeSession() }

func (e *FlowExecution) activeSession() *FlowSession {
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

// Start starts the flow with input. ext represents the starting request;
// nil means a fresh MockExternalContext.
func (e *FlowExecution) Start(ctx context.Context, input api.AttributeMap, ext api.ExternalContext) error {
	if e.HasStarted() {
		return api.NewIllegalStateError("This flow execution has already been started")
	}
	rc := newRequestControlContext(ctx, e, ext)
	e.started = true
	e.listener.RequestSubmitted(rc)
	if input == nil {
		input = api.AttributeMap{}
	}
	err := e.startSession(rc, e.flow, input)
	return e.finishRequest(rc, err)
}

// Resume continues an execution paused in a view state with the request
// described by ext.
func (e *FlowExecution) Resume(ctx context.Context, ext api.ExternalContext) error {
	session := e.activeSession()
	if session == nil {
		return fmt.Errorf("%w: execution %s is not active", ErrNotResumable, e.key)
	}
	rc := newRequestControlContext(ctx, e, ext)
	e.listener.RequestSubmitted(rc)
	e.listener.Resuming(rc)
	session.status = api.SessionActive

	vs, ok := session.state.(*ViewState)
	if !ok {
		err := fmt.Errorf("%w: current state %v is not a view state", ErrNotResumable, session.State())
		return e.finishRequest(rc, err)
	}
	return e.finishRequest(rc, vs.Resume(rc))
}

// SetCurrentState jumps to stateID without running any state behaviour.
// A root session is created if the execution has none.
func (e *FlowExecution) SetCurrentState(stateID string) error {
	session := e.activeSession()
	if session == nil {
		session = &FlowSession{flow: e.flow, status: api.SessionActive, scope: api.AttributeMap{}}
		e.sessions = append(e.sessions, session)
	}
	s := session.flow.State(stateID)
	if s == nil {
		return fmt.Errorf("flow %q, state %q: %w", session.flow.ID(), stateID, ErrStateNotFound)
	}
	session.state = s
	if s.IsViewState() {
		session.viewScope = api.AttributeMap{}
	} else {
		session.viewScope = nil
	}
	return nil
}

func (e *FlowExecution) finishRequest(rc *RequestControlContext, err error) error {
	if err != nil {
		var fee *FlowExecutionError
		if !errors.As(err, &fee) {
			fee = &FlowExecutionError{FlowID: e.flow.ID(), Err: err}
			if s := rc.CurrentState(); s != nil {
				fee.FlowID = s.Owner().ID()
				fee.StateID = s.ID()
			}
		}
		e.logger.Debug("flow execution failed", zap.Error(err))
		e.listener.ExceptionThrown(rc, fee)
		e.listener.RequestProcessed(rc)
		return fee
	}
	if session := e.activeSession(); session != nil {
		session.status = api.SessionPaused
		e.listener.Paused(rc)
	}
	e.listener.RequestProcessed(rc)
	return nil
}

func (e *FlowExecution) startSession(rc *RequestControlContext, flow *Flow, input api.AttributeMap) error {
	e.listener.SessionCreating(rc, flow)
	session := &FlowSession{
		flow:   flow,
		status: api.SessionCreated,
		scope:  api.AttributeMap{},
		parent: e.activeSession(),
	}
	e.sessions = append(e.sessions, session)
	session.status = api.SessionStarting
	e.listener.SessionStarting(rc, session, input)
	return flow.start(rc, input)
}

func (e *FlowExecution) notifySessionStarted(rc *RequestControlContext) {
	session := e.activeSession()
	session.status = api.SessionActive
	e.listener.SessionStarted(rc, session)
}

// endActiveSession pops the active session. The parent session, if any,
// handles the outcome as an event; otherwise the execution ends.
func (e *FlowExecution) endActiveSession(rc *RequestControlContext, outcome string, output api.AttributeMap) error {
	session := e.activeSession()
	if err := session.flow.end(rc, output); err != nil {
		return err
	}
	e.listener.SessionEnding(rc, session, outcome, output)
	e.sessions = e.sessions[:len(e.sessions)-1]
	session.status = api.SessionEnded
	e.listener.SessionEnded(rc, session, outcome, output)

	parent := e.activeSession()
	if parent == nil {
		e.outcome = &api.FlowExecutionOutcome{ID: outcome, Output: output}
		return nil
	}
	sub, ok := parent.state.(*SubflowState)
	if !ok {
		return fmt.Errorf("parent session of %q is not in a subflow state", session.flow.ID())
	}
	return sub.handleOutcome(rc, session, outcome, output)
}
