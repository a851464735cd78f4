package engine

import (
	"context"
	"fmt"

	"github.com/petrijr/flowtest/pkg/api"
)

// RequestControlContext is the context of one request into a flow
// execution. States use it to drive the execution; views, expressions and
// listeners see it as an api.RequestContext.
type RequestControlContext struct {
	ctx          context.Context
	execution    *FlowExecution
	external     api.ExternalContext
	messages     *api.DefaultMessageContext
	requestScope api.AttributeMap

	currentEvent      *api.Event
	currentTransition *Transition
	currentView       api.View
}

var _ api.RequestContext = (*RequestControlContext)(nil)

func newRequestControlContext(ctx context.Context, e *FlowExecution, ext api.ExternalContext) *RequestControlContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if ext == nil {
		ext = api.NewMockExternalContext()
	}
	var source api.MessageSource
	if e.flow != nil && e.flow.appContext != nil {
		source = e.flow.appContext.MessageSource()
	}
	return &RequestControlContext{
		ctx:          ctx,
		execution:    e,
		external:     ext,
		messages:     api.NewDefaultMessageContext(source, ext.Locale()),
		requestScope: api.AttributeMap{},
	}
}

// NewMockRequestControlContext returns a context whose execution has a
// running root session of flow, so that single states can be entered
// directly.
func NewMockRequestControlContext(flow *Flow) *RequestControlContext {
	e := newFlowExecution("mock", flow, nil, nil)
	e.started = true
	e.sessions = append(e.sessions, &FlowSession{flow: flow, status: api.SessionActive, scope: api.AttributeMap{}})
	return newRequestControlContext(context.Background(), e, nil)
}

func (c *RequestControlContext) Context() context.Context             { return c.ctx }
func (c *RequestControlContext) FlowExecution() *FlowExecution        { return c.execution }
func (c *RequestControlContext) CurrentEvent() *api.Event             { return c.currentEvent }
func (c *RequestControlContext) CurrentView() api.View                { return c.currentView }
func (c *RequestControlContext) RequestScope() api.AttributeMap       { return c.requestScope }
func (c *RequestControlContext) ExternalContext() api.ExternalContext { return c.external }
func (c *RequestControlContext) MessageContext() api.MessageContext   { return c.messages }
func (c *RequestControlContext) ExecutionKey() string                 { return c.execution.key }

func (c *RequestControlContext) ConversationScope() api.AttributeMap {
	return c.execution.conversation
}

func (c *RequestControlContext) RequestParameters() *api.ParameterMap {
	return c.external.RequestParameters()
}

func (c *RequestControlContext) ActiveFlow() api.FlowDefinition {
	if s := c.execution.activeSession(); s != nil {
		return s.flow
	}
	return nil
}

func (c *RequestControlContext) CurrentState() api.StateDefinition {
	if s := c.execution.activeSession(); s != nil && s.state != nil {
		return s.state
	}
	return nil
}

func (c *RequestControlContext) CurrentTransition() api.TransitionDefinition {
	if c.currentTransition == nil {
		return nil
	}
	return c.currentTransition
}

// FlowScope returns the scope of the active session. Without an active
// session an empty, detached map is returned.
func (c *RequestControlContext) FlowScope() api.AttributeMap {
	if s := c.execution.activeSession(); s != nil {
		return s.scope
	}
	return api.AttributeMap{}
}

// ViewScope returns the view scope of the active session, or nil outside
// view states.
func (c *RequestControlContext) ViewScope() api.AttributeMap {
	if s := c.execution.activeSession(); s != nil {
		return s.viewScope
	}
	return nil
}

func (c *RequestControlContext) InViewState() bool {
	if s := c.execution.activeSession(); s != nil && s.state != nil {
		return s.state.IsViewState()
	}
	return false
}

func (c *RequestControlContext) MatchingTransition(eventID string) api.TransitionDefinition {
	if t := c.findTransition(eventID); t != nil {
		return t
	}
	return nil
}

func (c *RequestControlContext) findTransition(eventID string) *Transition {
	session := c.execution.activeSession()
	if session == nil {
		return nil
	}
	if ts, ok := session.state.(TransitionableState); ok {
		if t := matchTransition(ts.Transitions(), eventID); t != nil {
			return t
		}
	}
	return matchTransition(session.flow.globalTransitions, eventID)
}

func (c *RequestControlContext) setCurrentState(s State) {
	session := c.execution.activeSession()
	l := c.execution.listener
	l.StateEntering(c, s)
	prev := session.state
	session.state = s
	if prev == nil {
		l.StateEntered(c, nil, s)
		return
	}
	l.StateEntered(c, prev, s)
}

// HandleEvent signals ev to the current state and executes the matching
// transition. It reports whether the current state was exited.
func (c *RequestControlContext) HandleEvent(ev *api.Event) (bool, error) {
	c.currentEvent = ev
	c.execution.listener.EventSignaled(c, ev)

	session := c.execution.activeSession()
	if session == nil {
		return false, fmt.Errorf("%w: no active session to handle event %q", ErrNotResumable, ev.ID)
	}
	t := c.findTransition(ev.ID)
	if t == nil {
		stateID := ""
		if session.state != nil {
			stateID = session.state.ID()
		}
		return false, &NoMatchingTransitionError{FlowID: session.flow.ID(), StateID: stateID, EventID: ev.ID}
	}
	return c.execute(t)
}

func (c *RequestControlContext) execute(t *Transition) (bool, error) {
	ok, err := t.canExecute(c)
	if err != nil || !ok {
		return false, err
	}
	c.currentTransition = t
	c.execution.listener.TransitionExecuting(c, t)
	if t.Target == "" {
		return false, nil
	}

	session := c.execution.activeSession()
	target := session.flow.State(t.Target)
	if target == nil {
		return false, fmt.Errorf("transition on %q to %q: %w", t.On, t.Target, ErrStateNotFound)
	}
	if ts, ok := session.state.(TransitionableState); ok {
		if err := ts.exit(c); err != nil {
			return false, err
		}
	}
	return true, target.Enter(c)
}
