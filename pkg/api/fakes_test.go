package api

import (
	"context"
)

//
// Minimal definitions and request context used by the listener tests.
//

type fakeFlow struct {
	id     string
	states []string
}

func (f *fakeFlow) ID() string                 { return f.id }
func (f *fakeFlow) StartStateID() string       { return f.states[0] }
func (f *fakeFlow) StateIDs() []string         { return f.states }
func (f *fakeFlow) PossibleOutcomes() []string { return nil }
func (f *fakeFlow) Attributes() AttributeMap   { return AttributeMap{} }
func (f *fakeFlow) Beans() BeanLocator         { return nil }
func (f *fakeFlow) StateDefinition(id string) (StateDefinition, bool) {
	for _, s := range f.states {
		if s == id {
			return &fakeState{id: id, owner: f}, true
		}
	}
	return nil, false
}

type fakeState struct {
	id    string
	owner *fakeFlow
	view  bool
}

func (s *fakeState) ID() string               { return s.id }
func (s *fakeState) Owner() FlowDefinition    { return s.owner }
func (s *fakeState) Attributes() AttributeMap { return AttributeMap{} }
func (s *fakeState) IsViewState() bool        { return s.view }

type fakeTransition struct {
	on, to string
}

func (t fakeTransition) ID() string               { return t.on }
func (t fakeTransition) TargetStateID() string    { return t.to }
func (t fakeTransition) Attributes() AttributeMap { return AttributeMap{} }

type fakeSession struct {
	def   *fakeFlow
	state *fakeState
}

func (s *fakeSession) Definition() FlowDefinition { return s.def }
func (s *fakeSession) State() StateDefinition     { return s.state }
func (s *fakeSession) Status() FlowSessionStatus  { return SessionActive }
func (s *fakeSession) Scope() AttributeMap        { return AttributeMap{} }
func (s *fakeSession) ViewScope() AttributeMap    { return AttributeMap{} }
func (s *fakeSession) Parent() FlowSession        { return nil }
func (s *fakeSession) IsRoot() bool               { return true }

type fakeRequestContext struct {
	ctx      context.Context
	flow     *fakeFlow
	external *MockExternalContext
	messages *DefaultMessageContext
	key      string
}

func newFakeRequestContext(flow *fakeFlow) *fakeRequestContext {
	return &fakeRequestContext{
		ctx:      context.Background(),
		flow:     flow,
		external: NewMockExternalContext(),
		messages: NewDefaultMessageContext(nil, NewMockExternalContext().Locale()),
		key:      "exec-1",
	}
}

func (c *fakeRequestContext) Context() context.Context { return c.ctx }
func (c *fakeRequestContext) ActiveFlow() FlowDefinition {
	if c.flow == nil {
		return nil
	}
	return c.flow
}
func (c *fakeRequestContext) CurrentState() StateDefinition                  { return nil }
func (c *fakeRequestContext) CurrentEvent() *Event                           { return nil }
func (c *fakeRequestContext) CurrentTransition() TransitionDefinition        { return nil }
func (c *fakeRequestContext) CurrentView() View                              { return nil }
func (c *fakeRequestContext) MatchingTransition(string) TransitionDefinition { return nil }
func (c *fakeRequestContext) RequestScope() AttributeMap                     { return AttributeMap{} }
func (c *fakeRequestContext) FlowScope() AttributeMap                        { return AttributeMap{} }
func (c *fakeRequestContext) ViewScope() AttributeMap                        { return AttributeMap{} }
func (c *fakeRequestContext) ConversationScope() AttributeMap                { return AttributeMap{} }
func (c *fakeRequestContext) RequestParameters() *ParameterMap               { return c.external.RequestParameters() }
func (c *fakeRequestContext) ExternalContext() ExternalContext               { return c.external }
func (c *fakeRequestContext) MessageContext() MessageContext                 { return c.messages }
func (c *fakeRequestContext) ExecutionKey() string                           { return c.key }
func (c *fakeRequestContext) InViewState() bool                              { return false }
