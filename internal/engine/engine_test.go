package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/flowtest/internal/el"
	"github.com/petrijr/flowtest/pkg/api"
)

//
// Helpers
//

// testView renders its id into a shared log and produces the _eventId of
// the request as its flow event.
type testView struct {
	id        string
	ctx       api.RequestContext
	log       *[]string
	processed bool
}

func (v *testView) Render() error {
	*v.log = append(*v.log, v.id)
	return nil
}

func (v *testView) UserEventQueued() bool {
	return v.ctx.RequestParameters().Contains(api.EventIDParameter)
}

func (v *testView) ProcessUserEvent()  { v.processed = true }
func (v *testView) HasFlowEvent() bool { return v.processed }

func (v *testView) FlowEvent() *api.Event {
	return api.NewEvent(v, v.ctx.RequestParameters().Get(api.EventIDParameter))
}

func viewFactory(id string, log *[]string) ViewFactory {
	return ViewFactoryFunc(func(ctx api.RequestContext) (api.View, error) {
		return &testView{id: id, ctx: ctx, log: log}, nil
	})
}

// recordingListener keeps the names of the callbacks it receives.
type recordingListener struct {
	api.NoopListener
	calls []string
}

func (l *recordingListener) SessionStarting(api.RequestContext, api.FlowSession, api.AttributeMap) {
	l.calls = append(l.calls, "sessionStarting")
}
func (l *recordingListener) SessionStarted(api.RequestContext, api.FlowSession) {
	l.calls = append(l.calls, "sessionStarted")
}
func (l *recordingListener) StateEntered(_ api.RequestContext, _ api.StateDefinition, s api.StateDefinition) {
	l.calls = append(l.calls, "entered:"+s.ID())
}
func (l *recordingListener) EventSignaled(_ api.RequestContext, ev *api.Event) {
	l.calls = append(l.calls, "event:"+ev.ID)
}
func (l *recordingListener) ViewRendering(_ api.RequestContext, _ api.View, s api.StateDefinition) {
	l.calls = append(l.calls, "rendering:"+s.ID())
}
func (l *recordingListener) Paused(api.RequestContext) { l.calls = append(l.calls, "paused") }
func (l *recordingListener) SessionEnded(_ api.RequestContext, _ api.FlowSession, outcome string, _ api.AttributeMap) {
	l.calls = append(l.calls, "ended:"+outcome)
}

func eventRequest(eventID string) *api.MockExternalContext {
	ext := api.NewMockExternalContext()
	ext.SetEventID(eventID)
	return ext
}

func newExecution(t *testing.T, flow *Flow, listeners ...api.FlowExecutionListener) *FlowExecution {
	t.Helper()
	factory := NewFlowExecutionFactory(StaticListenerLoader{Listeners: listeners}, nil)
	return factory.CreateFlowExecution(flow)
}

// simpleFlow is start --next--> end.
func simpleFlow(t *testing.T, log *[]string) *Flow {
	t.Helper()
	flow := NewFlow("simple")
	flow.SetApplicationContext(NewApplicationContext("simple", nil))
	start := NewViewState("start", viewFactory("start", log))
	start.AddTransition(NewTransition("next", "end"))
	require.NoError(t, flow.AddState(start))
	require.NoError(t, flow.AddState(NewEndState("end")))
	return flow
}

//
// Lifecycle
//

func TestFlowExecution_StartAndResumeToEnd(t *testing.T) {
	var rendered []string
	listener := &recordingListener{}
	exec := newExecution(t, simpleFlow(t, &rendered), listener)

	require.False(t, exec.HasStarted())
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	assert.True(t, exec.IsActive())
	assert.Equal(t, "start", exec.ActiveSession().State().ID())
	assert.Equal(t, api.SessionPaused, exec.ActiveSession().Status())
	assert.Equal(t, []string{"start"}, rendered)

	require.NoError(t, exec.Resume(context.Background(), eventRequest("next")))

	assert.True(t, exec.HasEnded())
	require.NotNil(t, exec.Outcome())
	assert.Equal(t, "end", exec.Outcome().ID)
	assert.Equal(t, []string{
		"sessionStarting", "sessionStarted", "entered:start", "rendering:start", "paused",
		"event:next", "entered:end", "ended:end",
	}, listener.calls)
}

func TestFlowExecution_StartTwiceFails(t *testing.T) {
	var rendered []string
	exec := newExecution(t, simpleFlow(t, &rendered))
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	err := exec.Start(context.Background(), nil, nil)
	assert.ErrorIs(t, err, api.ErrIllegalState)
}

func TestFlowExecution_ResumeWithoutEventRefreshes(t *testing.T) {
	var rendered []string
	exec := newExecution(t, simpleFlow(t, &rendered))
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	require.NoError(t, exec.Resume(context.Background(), api.NewMockExternalContext()))
	assert.Equal(t, []string{"start", "start"}, rendered)
	assert.True(t, exec.IsActive())
}

func TestFlowExecution_UnknownEventFails(t *testing.T) {
	var rendered []string
	exec := newExecution(t, simpleFlow(t, &rendered))
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	err := exec.Resume(context.Background(), eventRequest("bogus"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatchingTransition)

	var fee *FlowExecutionError
	require.True(t, errors.As(err, &fee))
	assert.Equal(t, "simple", fee.FlowID)
	assert.Equal(t, "start", fee.StateID)
}

func TestFlowExecution_ResumeEndedFails(t *testing.T) {
	var rendered []string
	exec := newExecution(t, simpleFlow(t, &rendered))
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	require.NoError(t, exec.Resume(context.Background(), eventRequest("next")))

	err := exec.Resume(context.Background(), eventRequest("next"))
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestFlowExecution_SetCurrentStateSkipsEntry(t *testing.T) {
	var rendered []string
	entries := 0
	flow := simpleFlow(t, &rendered)
	flow.State("start").(*ViewState).AddEntryAction(ActionFunc(func(*RequestControlContext) (*api.Event, error) {
		entries++
		return nil, nil
	}))
	exec := newExecution(t, flow)

	require.NoError(t, exec.SetCurrentState("start"))
	assert.True(t, exec.HasStarted())
	assert.True(t, exec.IsActive())
	assert.NotNil(t, exec.ActiveSession().ViewScope())
	assert.Zero(t, entries)
	assert.Empty(t, rendered)

	require.NoError(t, exec.Resume(context.Background(), eventRequest("next")))
	assert.Equal(t, "end", exec.Outcome().ID)

	assert.ErrorIs(t, newExecution(t, flow).SetCurrentState("nowhere"), ErrStateNotFound)
}

//
// Transitions and states
//

func TestTransition_CriteriaAndTargetlessTransitions(t *testing.T) {
	var rendered []string
	flow := NewFlow("criteria")
	start := NewViewState("start", viewFactory("start", &rendered))
	start.AddTransition(NewTransition("blocked", "end", &EvaluateAction{Expression: el.MustParse("false")}))
	start.AddTransition(NewTransition("stay", "", &SetAction{
		Name:  el.MustParse("flowScope.stayed"),
		Value: el.MustParse("true"),
	}))
	require.NoError(t, flow.AddState(start))
	require.NoError(t, flow.AddState(NewEndState("end")))

	exec := newExecution(t, flow)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	require.NoError(t, exec.Resume(context.Background(), eventRequest("blocked")))
	assert.Equal(t, "start", exec.ActiveSession().State().ID())

	require.NoError(t, exec.Resume(context.Background(), eventRequest("stay")))
	assert.Equal(t, "start", exec.ActiveSession().State().ID())
	assert.Equal(t, []string{"start", "start", "start"}, rendered)
}

func TestGlobalTransition(t *testing.T) {
	var rendered []string
	flow := simpleFlow(t, &rendered)
	cancel := NewEndState("cancelled")
	require.NoError(t, flow.AddState(cancel))
	flow.AddGlobalTransition(NewTransition("cancel", "cancelled"))

	exec := newExecution(t, flow)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	require.NoError(t, exec.Resume(context.Background(), eventRequest("cancel")))
	assert.Equal(t, "cancelled", exec.Outcome().ID)
	assert.Equal(t, []string{"end", "cancelled"}, flow.PossibleOutcomes())
}

func TestActionAndDecisionStates(t *testing.T) {
	flow := NewFlow("decide")
	flow.SetInputMapper(Mappings{{Name: "amount", Required: true}})

	check := NewActionState("check",
		&EvaluateAction{Expression: el.MustParse("'unmatched'")},
		&EvaluateAction{Expression: el.MustParse("flowScope.amount > 10")},
	)
	check.AddTransition(NewTransition(api.EventYes, "route"))
	check.AddTransition(NewTransition(api.EventNo, "small"))

	route := NewDecisionState("route", DecisionBranch{
		Test: el.MustParse("flowScope.amount > 100"),
		Then: "huge",
		Else: "big",
	})

	for _, s := range []State{check, route, NewEndState("huge"), NewEndState("big"), NewEndState("small")} {
		require.NoError(t, flow.AddState(s))
	}

	cases := map[int]string{5: "small", 50: "big", 500: "huge"}
	for amount, outcome := range cases {
		exec := newExecution(t, flow)
		require.NoError(t, exec.Start(context.Background(), api.AttributeMap{"amount": amount}, nil))
		assert.Equal(t, outcome, exec.Outcome().ID, "amount %d", amount)
	}

	err := newExecution(t, flow).Start(context.Background(), nil, nil)
	assert.ErrorContains(t, err, `required attribute "amount" is missing`)
}

func TestActionState_NoMatchingTransition(t *testing.T) {
	flow := NewFlow("stuck")
	require.NoError(t, flow.AddState(NewActionState("act", &EvaluateAction{Expression: el.MustParse("'nope'")})))

	err := newExecution(t, flow).Start(context.Background(), nil, nil)
	var nmt *NoMatchingTransitionError
	require.True(t, errors.As(err, &nmt))
	assert.Equal(t, "nope", nmt.EventID)
	assert.Equal(t, "act", nmt.StateID)
}

func TestEndState_OutputAndExternalRedirect(t *testing.T) {
	flow := NewFlow("redirecting")
	flow.SetOutputMapper(Mappings{{Name: "flowLevel", Expression: el.MustParse("'flow'")}})
	end := NewEndState("gone")
	end.View = ExternalRedirectPrefix + "http://www.google.de"
	end.Output = Mappings{{Name: "out", Expression: el.MustParse("'hooray'")}}
	require.NoError(t, flow.AddState(end))

	ext := api.NewMockExternalContext()
	exec := newExecution(t, flow)
	require.NoError(t, exec.Start(context.Background(), nil, ext))

	assert.Equal(t, "http://www.google.de", ext.ExternalRedirectURL())
	assert.Equal(t, api.AttributeMap{"out": "hooray", "flowLevel": "flow"}, exec.Outcome().Output)
}

func TestViewState_RedirectSkipsRendering(t *testing.T) {
	var rendered []string
	flow := NewFlow("redirect")
	vs := NewViewState("form", viewFactory("form", &rendered))
	vs.Redirect = true
	require.NoError(t, flow.AddState(vs))

	ext := api.NewMockExternalContext()
	exec := newExecution(t, flow)
	require.NoError(t, exec.Start(context.Background(), nil, ext))

	assert.True(t, ext.FlowExecutionRedirectRequested())
	assert.Empty(t, rendered)

	require.NoError(t, exec.Resume(context.Background(), api.NewMockExternalContext()))
	assert.Equal(t, []string{"form"}, rendered)
}

//
// Sub-flows
//

func TestSubflowState_MapsInputAndOutput(t *testing.T) {
	ctx := NewApplicationContext("parent", nil)

	child := NewFlow("child")
	child.SetInputMapper(Mappings{{Name: "greeting"}})
	childEnd := NewEndState("finish")
	childEnd.Output = Mappings{{Name: "reply", Expression: el.MustParse("flowScope.greeting + ' back'")}}
	require.NoError(t, child.AddState(childEnd))
	require.NoError(t, ctx.Registry().RegisterFlow(child))

	parent := NewFlow("parent")
	parent.SetApplicationContext(ctx)
	call := NewSubflowState("call", "child")
	call.Input = Mappings{{Name: "greeting", Expression: el.MustParse("'hello'")}}
	call.Output = Mappings{{Name: "reply"}}
	call.AddTransition(NewTransition("finish", "done"))
	done := NewEndState("done")
	done.Output = Mappings{{Name: "reply"}}
	require.NoError(t, parent.AddState(call))
	require.NoError(t, parent.AddState(done))

	listener := &recordingListener{}
	exec := newExecution(t, parent, listener)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	assert.Equal(t, "done", exec.Outcome().ID)
	assert.Equal(t, "hello back", exec.Outcome().Output.Get("reply"))
	assert.Contains(t, listener.calls, "ended:finish")
	assert.Contains(t, listener.calls, "event:finish")
}

func TestSubflowState_UnknownSubflow(t *testing.T) {
	flow := NewFlow("caller")
	flow.SetApplicationContext(NewApplicationContext("caller", nil))
	require.NoError(t, flow.AddState(NewSubflowState("step", "subFlow")))

	err := flow.State("step").Enter(NewMockRequestControlContext(flow))
	var nsf *NoSuchFlowDefinitionError
	require.True(t, errors.As(err, &nsf))
	assert.Equal(t, "subFlow", nsf.FlowID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlowRegistry_ParentFallback(t *testing.T) {
	parent := NewFlowRegistry(nil)
	require.NoError(t, parent.RegisterFlow(NewFlow("shared")))
	child := NewFlowRegistry(parent)

	f, err := child.FlowDefinition("shared")
	require.NoError(t, err)
	assert.Equal(t, "shared", f.ID())
	assert.True(t, child.Contains("shared"))
	assert.Empty(t, child.IDs())

	_, err = child.FlowDefinition("missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

//
// Snapshots
//

func TestSnapshotRestore(t *testing.T) {
	var rendered []string
	flow := simpleFlow(t, &rendered)
	exec := newExecution(t, flow)
	require.NoError(t, exec.Start(context.Background(), nil, nil))
	exec.ActiveSession().Scope().Put("counter", 1)
	exec.ConversationScope().Put("user", "alice")

	snap := exec.Snapshot()
	assert.Equal(t, exec.Key(), snap.Key)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "start", snap.Sessions[0].StateID)

	require.NoError(t, exec.Resume(context.Background(), eventRequest("next")))
	require.True(t, exec.HasEnded())

	require.NoError(t, exec.Restore(snap))
	assert.True(t, exec.IsActive())
	assert.Equal(t, "start", exec.ActiveSession().State().ID())
	assert.Equal(t, 1, exec.ActiveSession().Scope().Get("counter"))
	assert.Equal(t, "alice", exec.ConversationScope().Get("user"))
	assert.Nil(t, exec.Outcome())

	require.NoError(t, exec.Resume(context.Background(), eventRequest("next")))
	assert.Equal(t, "end", exec.Outcome().ID)

	other := newExecution(t, NewFlow("other"))
	assert.Error(t, other.Restore(snap))
}

//
// Actions
//

func TestResultEvent(t *testing.T) {
	ev := api.NewEvent(nil, "custom")
	boom := errors.New("boom")

	assert.Equal(t, api.EventSuccess, ResultEvent(nil, nil).ID)
	assert.Equal(t, api.EventYes, ResultEvent(nil, true).ID)
	assert.Equal(t, api.EventNo, ResultEvent(nil, false).ID)
	assert.Equal(t, "next", ResultEvent(nil, "next").ID)
	assert.Same(t, ev, ResultEvent(nil, ev))
	assert.Equal(t, api.EventError, ResultEvent(nil, boom).ID)

	withResult := ResultEvent(nil, 42)
	assert.Equal(t, api.EventSuccess, withResult.ID)
	assert.Equal(t, 42, withResult.Attributes.Get("result"))
}

func TestFlowVariablesAndBeans(t *testing.T) {
	type model struct{ Name string }
	var rendered []string

	appCtx := NewApplicationContext("vars", nil)
	require.NoError(t, appCtx.RegisterBean("greeter", &model{Name: "bean"}))
	typ, ok := appCtx.BeanType("greeter")
	require.True(t, ok)

	flow := NewFlow("vars")
	flow.SetApplicationContext(appCtx)
	flow.AddVariable(ZeroValueVariable("fresh", typ))
	vs := NewViewState("show", viewFactory("show", &rendered))
	vs.AddEntryAction(&EvaluateAction{
		Expression: el.MustParse("greeter.name"),
		Result:     el.MustParse("flowScope.copied"),
	})
	require.NoError(t, flow.AddState(vs))

	exec := newExecution(t, flow)
	require.NoError(t, exec.Start(context.Background(), nil, nil))

	scope := exec.ActiveSession().Scope()
	assert.Equal(t, "bean", scope.Get("copied"))
	fresh, ok := scope.Get("fresh").(*model)
	require.True(t, ok)
	assert.Equal(t, "", fresh.Name)
	assert.Equal(t, []string{"greeter"}, appCtx.BeanNames())
}
