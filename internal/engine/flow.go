package engine

import (
	"fmt"
	"reflect"

	"github.com/petrijr/flowtest/pkg/api"
)

// FlowVariable is created in flow scope when a flow session starts.
type FlowVariable struct {
	Name string
	// New returns the initial value.
	New func(ctx *RequestControlContext) (any, error)
}

// ZeroValueVariable creates a variable holding a pointer to a fresh zero
// value of t.
func ZeroValueVariable(name string, t reflect.Type) *FlowVariable {
	return &FlowVariable{
		Name: name,
		New: func(*RequestControlContext) (any, error) {
			return reflect.New(t).Interface(), nil
		},
	}
}

// Flow is an assembled, executable flow definition.
type Flow struct {
	id         string
	attributes api.AttributeMap

	states       []State
	stateByID    map[string]State
	startStateID string

	globalTransitions []*Transition
	variables         []*FlowVariable
	inputMapper       InputMapper
	outputMapper      OutputMapper
	startActions      []Action
	endActions        []Action

	appContext *ApplicationContext
}

var _ api.FlowDefinition = (*Flow)(nil)

func NewFlow(id string) *Flow {
	return &Flow{
		id:         id,
		attributes: api.AttributeMap{},
		stateByID:  make(map[string]State),
	}
}

func (f *Flow) ID() string                   { return f.id }
func (f *Flow) Attributes() api.AttributeMap { return f.attributes }
func (f *Flow) StartStateID() string         { return f.startStateID }

func (f *Flow) StateIDs() []string {
	out := make([]string, len(f.states))
	for i, s := range f.states {
		out[i] = s.ID()
	}
	return out
}

// PossibleOutcomes lists the ids of the end states in declaration order.
func (f *Flow) PossibleOutcomes() []string {
	var out []string
	for _, s := range f.states {
		if _, ok := s.(*EndState); ok {
			out = append(out, s.ID())
		}
	}
	return out
}

func (f *Flow) StateDefinition(id string) (api.StateDefinition, bool) {
	s, ok := f.stateByID[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// State returns the state with the given id, or nil.
func (f *Flow) State(id string) State {
	return f.stateByID[id]
}

// States returns the states in declaration order.
func (f *Flow) States() []State {
	return append([]State(nil), f.states...)
}

// Beans exposes the beans of the flow's application context.
func (f *Flow) Beans() api.BeanLocator {
	if f.appContext == nil {
		return nil
	}
	return f.appContext
}

// AddState appends s. The first state added becomes the start state unless
// SetStartState says otherwise.
func (f *Flow) AddState(s State) error {
	if _, dup := f.stateByID[s.ID()]; dup {
		return fmt.Errorf("flow %q: duplicate state id %q", f.id, s.ID())
	}
	s.setOwner(f)
	f.states = append(f.states, s)
	f.stateByID[s.ID()] = s
	if f.startStateID == "" {
		f.startStateID = s.ID()
	}
	return nil
}

func (f *Flow) SetStartState(id string) error {
	if _, ok := f.stateByID[id]; !ok {
		return fmt.Errorf("flow %q: start state %q: %w", f.id, id, ErrStateNotFound)
	}
	f.startStateID = id
	return nil
}

func (f *Flow) GlobalTransitions() []*Transition { return f.globalTransitions }

func (f *Flow) AddGlobalTransition(t *Transition) {
	f.globalTransitions = append(f.globalTransitions, t)
}

func (f *Flow) AddVariable(v *FlowVariable) { f.variables = append(f.variables, v) }

func (f *Flow) SetInputMapper(m InputMapper)   { f.inputMapper = m }
func (f *Flow) SetOutputMapper(m OutputMapper) { f.outputMapper = m }
func (f *Flow) AddStartAction(a Action)        { f.startActions = append(f.startActions, a) }
func (f *Flow) AddEndAction(a Action)          { f.endActions = append(f.endActions, a) }

func (f *Flow) SetApplicationContext(c *ApplicationContext) { f.appContext = c }
func (f *Flow) ApplicationContext() *ApplicationContext     { return f.appContext }

// start initializes the flow scope of a new session and enters the start
// state.
func (f *Flow) start(ctx *RequestControlContext, input api.AttributeMap) error {
	for _, v := range f.variables {
		val, err := v.New(ctx)
		if err != nil {
			return fmt.Errorf("variable %q: %w", v.Name, err)
		}
		ctx.FlowScope().Put(v.Name, val)
	}
	if f.inputMapper != nil {
		if err := f.inputMapper.MapInput(input, ctx); err != nil {
			return fmt.Errorf("input mapping: %w", err)
		}
	}
	if err := executeAll(ctx, f.startActions); err != nil {
		return err
	}

	s := f.State(f.startStateID)
	if s == nil {
		return fmt.Errorf("flow %q has no start state: %w", f.id, ErrStateNotFound)
	}
	ctx.execution.notifySessionStarted(ctx)
	return s.Enter(ctx)
}

// end runs the end actions and the flow output mapper.
func (f *Flow) end(ctx *RequestControlContext, output api.AttributeMap) error {
	if err := executeAll(ctx, f.endActions); err != nil {
		return err
	}
	if f.outputMapper != nil {
		if err := f.outputMapper.MapOutput(ctx, output); err != nil {
			return fmt.Errorf("output mapping: %w", err)
		}
	}
	return nil
}
