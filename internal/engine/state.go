package engine

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/petrijr/flowtest/pkg/api"
)

// ExternalRedirectPrefix marks an end-state view that redirects the client
// to an external URL.
const ExternalRedirectPrefix = "externalRedirect:"

// State is a node of a flow.
type State interface {
	api.StateDefinition
	// Enter makes the state the current state of the active session and
	// runs its behaviour.
	Enter(ctx *RequestControlContext) error
	setOwner(f *Flow)
}

// TransitionableState is a state with outgoing transitions.
type TransitionableState interface {
	State
	Transitions() []*Transition
	exit(ctx *RequestControlContext) error
}

type stateBase struct {
	id           string
	owner        *Flow
	attributes   api.AttributeMap
	entryActions []Action
}

func newStateBase(id string) stateBase {
	return stateBase{id: id, attributes: api.AttributeMap{}}
}

func (s *stateBase) ID() string                   { return s.id }
func (s *stateBase) Attributes() api.AttributeMap { return s.attributes }
func (s *stateBase) IsViewState() bool            { return false }
func (s *stateBase) setOwner(f *Flow)             { s.owner = f }

func (s *stateBase) Owner() api.FlowDefinition {
	if s.owner == nil {
		return nil
	}
	return s.owner
}

func (s *stateBase) flowID() string {
	if s.owner == nil {
		return ""
	}
	return s.owner.ID()
}

func (s *stateBase) AddEntryAction(a Action) { s.entryActions = append(s.entryActions, a) }

type transitionable struct {
	stateBase
	transitions []*Transition
	exitActions []Action
}

func (s *transitionable) Transitions() []*Transition { return s.transitions }

func (s *transitionable) AddTransition(t *Transition) { s.transitions = append(s.transitions, t) }

func (s *transitionable) AddExitAction(a Action) { s.exitActions = append(s.exitActions, a) }

func (s *transitionable) exit(ctx *RequestControlContext) error {
	return executeAll(ctx, s.exitActions)
}

// ViewFactory creates the view rendered by a view state.
type ViewFactory interface {
	GetView(ctx api.RequestContext) (api.View, error)
}

// ViewFactoryFunc adapts a function to a ViewFactory.
type ViewFactoryFunc func(ctx api.RequestContext) (api.View, error)

func (f ViewFactoryFunc) GetView(ctx api.RequestContext) (api.View, error) { return f(ctx) }

// ViewState pauses the flow to render a view and waits for a user event.
type ViewState struct {
	transitionable
	viewFactory   ViewFactory
	Redirect      bool
	Variables     []*FlowVariable
	RenderActions []Action
}

func NewViewState(id string, vf ViewFactory) *ViewState {
	return &ViewState{transitionable: transitionable{stateBase: newStateBase(id)}, viewFactory: vf}
}

func (s *ViewState) IsViewState() bool { return true }

func (s *ViewState) ViewFactory() ViewFactory { return s.viewFactory }

func (s *ViewState) Enter(ctx *RequestControlContext) error {
	ctx.setCurrentState(s)
	session := ctx.execution.activeSession()
	session.viewScope = api.AttributeMap{}
	for _, v := range s.Variables {
		val, err := v.New(ctx)
		if err != nil {
			return fmt.Errorf("view variable %q: %w", v.Name, err)
		}
		session.viewScope.Put(v.Name, val)
	}
	if err := executeAll(ctx, s.entryActions); err != nil {
		return err
	}
	if s.Redirect {
		ctx.ExternalContext().RequestFlowExecutionRedirect()
		return nil
	}
	return s.render(ctx)
}

// Resume processes a queued user event, or refreshes the view when there
// is none. The view is rendered again whenever the flow stays in s.
func (s *ViewState) Resume(ctx *RequestControlContext) error {
	view, err := s.viewFactory.GetView(ctx)
	if err != nil {
		return err
	}
	ctx.currentView = view

	if !view.UserEventQueued() {
		return s.renderView(ctx, view)
	}
	view.ProcessUserEvent()
	if !view.HasFlowEvent() {
		return s.renderView(ctx, view)
	}
	exited, err := ctx.HandleEvent(view.FlowEvent())
	if err != nil {
		return err
	}
	if !exited {
		return s.renderView(ctx, view)
	}
	return nil
}

func (s *ViewState) render(ctx *RequestControlContext) error {
	view, err := s.viewFactory.GetView(ctx)
	if err != nil {
		return err
	}
	ctx.currentView = view
	return s.renderView(ctx, view)
}

func (s *ViewState) renderView(ctx *RequestControlContext, view api.View) error {
	if err := executeAll(ctx, s.RenderActions); err != nil {
		return err
	}
	l := ctx.execution.listener
	l.ViewRendering(ctx, view, s)
	if err := view.Render(); err != nil {
		return fmt.Errorf("render view of state %q: %w", s.id, err)
	}
	l.ViewRendered(ctx, view, s)
	ctx.ExternalContext().RecordResponseComplete()
	return nil
}

func (s *ViewState) exit(ctx *RequestControlContext) error {
	if err := s.transitionable.exit(ctx); err != nil {
		return err
	}
	if session := ctx.execution.activeSession(); session != nil {
		session.viewScope = nil
	}
	return nil
}

// ActionState executes its actions in order until one signals an event
// that matches a transition.
type ActionState struct {
	transitionable
	Actions []Action
}

func NewActionState(id string, actions ...Action) *ActionState {
	return &ActionState{transitionable: transitionable{stateBase: newStateBase(id)}, Actions: actions}
}

func (s *ActionState) Enter(ctx *RequestControlContext) error {
	ctx.setCurrentState(s)
	if err := executeAll(ctx, s.entryActions); err != nil {
		return err
	}
	lastEvent := ""
	for _, a := range s.Actions {
		ev, err := a.Execute(ctx)
		if err != nil {
			return err
		}
		lastEvent = ev.ID
		if ctx.findTransition(ev.ID) != nil {
			_, err := ctx.HandleEvent(ev)
			return err
		}
	}
	return &NoMatchingTransitionError{FlowID: s.flowID(), StateID: s.id, EventID: lastEvent}
}

// DecisionBranch routes to Then when Test evaluates to true, else to Else
// if set.
type DecisionBranch struct {
	Test api.Expression
	Then string
	Else string
}

// DecisionState evaluates its branches in order and takes the first one
// that yields a target.
type DecisionState struct {
	transitionable
	Branches []DecisionBranch
}

func NewDecisionState(id string, branches ...DecisionBranch) *DecisionState {
	return &DecisionState{transitionable: transitionable{stateBase: newStateBase(id)}, Branches: branches}
}

func (s *DecisionState) Enter(ctx *RequestControlContext) error {
	ctx.setCurrentState(s)
	if err := executeAll(ctx, s.entryActions); err != nil {
		return err
	}
	for _, b := range s.Branches {
		v, err := b.Test.Value(ctx)
		if err != nil {
			return err
		}
		ok, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("decision %q: test [%s] is not a boolean: %w", s.id, b.Test.ExpressionString(), err)
		}
		switch {
		case ok:
			_, err := ctx.execute(NewTransition(api.EventYes, b.Then))
			return err
		case b.Else != "":
			_, err := ctx.execute(NewTransition(api.EventNo, b.Else))
			return err
		}
	}
	return &NoMatchingTransitionError{FlowID: s.flowID(), StateID: s.id, EventID: api.EventNo}
}

// SubflowState spawns a sub-flow session looked up in the flow registry.
// The sub-flow's outcome is signaled as an event in this state.
type SubflowState struct {
	transitionable
	SubflowID string
	// Input is evaluated against the calling flow to build the sub-flow
	// input.
	Input Mappings
	// Output copies attributes of the sub-flow output into the calling
	// flow's scopes.
	Output Mappings
}

func NewSubflowState(id, subflowID string) *SubflowState {
	return &SubflowState{transitionable: transitionable{stateBase: newStateBase(id)}, SubflowID: subflowID}
}

func (s *SubflowState) Enter(ctx *RequestControlContext) error {
	ctx.setCurrentState(s)
	if err := executeAll(ctx, s.entryActions); err != nil {
		return err
	}
	var registry *FlowRegistry
	if s.owner != nil && s.owner.appContext != nil {
		registry = s.owner.appContext.Registry()
	}
	if registry == nil {
		return &NoSuchFlowDefinitionError{FlowID: s.SubflowID}
	}
	sub, err := registry.FlowDefinition(s.SubflowID)
	if err != nil {
		return err
	}
	input := api.AttributeMap{}
	if err := s.Input.fromScope(ctx, input); err != nil {
		return fmt.Errorf("subflow %q input: %w", s.SubflowID, err)
	}
	return ctx.execution.startSession(ctx, sub, input)
}

func (s *SubflowState) handleOutcome(ctx *RequestControlContext, ended *FlowSession, outcome string, output api.AttributeMap) error {
	if err := s.Output.toScope(output, ctx); err != nil {
		return fmt.Errorf("subflow %q output: %w", s.SubflowID, err)
	}
	ev := api.NewEvent(ended, outcome)
	ev.Attributes.PutAll(output)
	_, err := ctx.HandleEvent(ev)
	return err
}

// EndState terminates the active flow session with its id as the outcome.
type EndState struct {
	stateBase
	// View is the final response of a root flow; a value starting with
	// ExternalRedirectPrefix redirects instead.
	View   string
	Output Mappings
}

func NewEndState(id string) *EndState {
	return &EndState{stateBase: newStateBase(id)}
}

func (s *EndState) Enter(ctx *RequestControlContext) error {
	ctx.setCurrentState(s)
	if err := executeAll(ctx, s.entryActions); err != nil {
		return err
	}
	if session := ctx.execution.activeSession(); session.IsRoot() && s.View != "" {
		ext := ctx.ExternalContext()
		if url, ok := strings.CutPrefix(s.View, ExternalRedirectPrefix); ok {
			ext.RequestExternalRedirect(url)
		} else {
			ext.ResponseWriter().WriteString(s.View)
			ext.RecordResponseComplete()
		}
	}
	output := api.AttributeMap{}
	if err := s.Output.fromScope(ctx, output); err != nil {
		return fmt.Errorf("end state %q output: %w", s.id, err)
	}
	return ctx.execution.endActiveSession(ctx, s.id, output)
}
