// Package flowbuilder assembles executable flows from flow documents.
package flowbuilder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/petrijr/flowtest/internal/el"
	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/flowmodel"
	"github.com/petrijr/flowtest/pkg/api"
)

// Transition and state attribute names understood by the view layer.
const (
	AttrBind     = "bind"
	AttrValidate = "validate"
	AttrHistory  = "history"
	AttrModel    = "model"
)

// ViewFactoryCreator creates the view factory of a view state from its view
// id expression.
type ViewFactoryCreator interface {
	CreateViewFactory(viewID api.Expression) engine.ViewFactory
}

// ViewFactoryCreatorFunc adapts a function to a ViewFactoryCreator.
type ViewFactoryCreatorFunc func(viewID api.Expression) engine.ViewFactory

func (f ViewFactoryCreatorFunc) CreateViewFactory(viewID api.Expression) engine.ViewFactory {
	return f(viewID)
}

// Services are the collaborators used while assembling a flow.
type Services struct {
	ViewFactoryCreator ViewFactoryCreator
	Logger             *zap.Logger
}

// ErrNoViewFactoryCreator is returned when a document declares view states
// but no view factory creator is configured.
var ErrNoViewFactoryCreator = errors.New("no view factory creator configured")

// Build assembles m, which must be merged and valid, into a flow bound to
// appCtx.
func Build(m *flowmodel.FlowModel, appCtx *engine.ApplicationContext, svc Services) (*engine.Flow, error) {
	logger := svc.Logger
	if logger == nil {
		logger = zap.L()
	}
	b := &builder{svc: svc, appCtx: appCtx}

	f := engine.NewFlow(m.ID)
	f.SetApplicationContext(appCtx)

	if err := b.attributes(f.Attributes(), m.Attributes); err != nil {
		return nil, err
	}
	for _, v := range m.Vars {
		fv, err := b.variable(v)
		if err != nil {
			return nil, err
		}
		f.AddVariable(fv)
	}

	inputs, err := b.mappings(m.Inputs)
	if err != nil {
		return nil, fmt.Errorf("flow %q input: %w", m.ID, err)
	}
	if len(inputs) > 0 {
		f.SetInputMapper(inputs)
	}
	start, err := b.actions(m.OnStart)
	if err != nil {
		return nil, err
	}
	for _, a := range start {
		f.AddStartAction(a)
	}

	for i := range m.States {
		s, err := b.state(&m.States[i])
		if err != nil {
			return nil, fmt.Errorf("flow %q state %q: %w", m.ID, m.States[i].ID, err)
		}
		if err := f.AddState(s); err != nil {
			return nil, err
		}
	}
	if m.StartState != "" {
		if err := f.SetStartState(m.StartState); err != nil {
			return nil, err
		}
	}

	for i := range m.GlobalTransitions {
		t, err := b.transition(&m.GlobalTransitions[i])
		if err != nil {
			return nil, err
		}
		f.AddGlobalTransition(t)
	}

	end, err := b.actions(m.OnEnd)
	if err != nil {
		return nil, err
	}
	for _, a := range end {
		f.AddEndAction(a)
	}
	outputs, err := b.mappings(m.Outputs)
	if err != nil {
		return nil, fmt.Errorf("flow %q output: %w", m.ID, err)
	}
	if len(outputs) > 0 {
		f.SetOutputMapper(outputs)
	}

	logger.Debug("flow_assembled",
		zap.String("flow", m.ID),
		zap.Strings("states", f.StateIDs()),
		zap.String("start", f.StartStateID()),
	)
	return f, nil
}

type builder struct {
	svc    Services
	appCtx *engine.ApplicationContext
}

func (b *builder) state(s *flowmodel.StateModel) (engine.State, error) {
	switch s.Kind {
	case flowmodel.KindViewState:
		return b.viewState(s)
	case flowmodel.KindActionState:
		return b.actionState(s)
	case flowmodel.KindDecisionState:
		return b.decisionState(s)
	case flowmodel.KindSubflowState:
		return b.subflowState(s)
	case flowmodel.KindEndState:
		return b.endState(s)
	default:
		return nil, fmt.Errorf("unknown state kind %q", s.Kind)
	}
}

// stateParts are the pieces shared by all state kinds.
type stateParts interface {
	engine.State
	AddEntryAction(engine.Action)
}

type transitionParts interface {
	stateParts
	AddTransition(*engine.Transition)
	AddExitAction(engine.Action)
}

func (b *builder) common(st stateParts, s *flowmodel.StateModel) error {
	if err := b.attributes(st.Attributes(), s.Attributes); err != nil {
		return err
	}
	if s.Model != "" {
		st.Attributes().Put(AttrModel, s.Model)
	}
	entry, err := b.actions(s.OnEntry)
	if err != nil {
		return err
	}
	for _, a := range entry {
		st.AddEntryAction(a)
	}

	ts, ok := st.(transitionParts)
	if !ok {
		return nil
	}
	for i := range s.Transitions {
		t, err := b.transition(&s.Transitions[i])
		if err != nil {
			return err
		}
		ts.AddTransition(t)
	}
	exit, err := b.actions(s.OnExit)
	if err != nil {
		return err
	}
	for _, a := range exit {
		ts.AddExitAction(a)
	}
	return nil
}

func (b *builder) viewState(s *flowmodel.StateModel) (engine.State, error) {
	if b.svc.ViewFactoryCreator == nil {
		return nil, ErrNoViewFactoryCreator
	}
	view := s.View
	if view == "" {
		view = s.ID
	}
	viewID, err := el.ParseTemplate(view)
	if err != nil {
		return nil, err
	}
	vs := engine.NewViewState(s.ID, b.svc.ViewFactoryCreator.CreateViewFactory(viewID))
	vs.Redirect = s.Redirect
	for _, v := range s.Vars {
		fv, err := b.variable(v)
		if err != nil {
			return nil, err
		}
		vs.Variables = append(vs.Variables, fv)
	}
	if vs.RenderActions, err = b.actions(s.OnRender); err != nil {
		return nil, err
	}
	return vs, b.common(vs, s)
}

func (b *builder) actionState(s *flowmodel.StateModel) (engine.State, error) {
	actions, err := b.actionList(s.Actions)
	if err != nil {
		return nil, err
	}
	as := engine.NewActionState(s.ID, actions...)
	return as, b.common(as, s)
}

func (b *builder) decisionState(s *flowmodel.StateModel) (engine.State, error) {
	ds := engine.NewDecisionState(s.ID)
	for _, branch := range s.Ifs {
		test, err := el.Parse(branch.Test)
		if err != nil {
			return nil, err
		}
		ds.Branches = append(ds.Branches, engine.DecisionBranch{Test: test, Then: branch.Then, Else: branch.Else})
	}
	return ds, b.common(ds, s)
}

func (b *builder) subflowState(s *flowmodel.StateModel) (engine.State, error) {
	ss := engine.NewSubflowState(s.ID, s.Subflow)
	var err error
	if ss.Input, err = b.mappings(s.Inputs); err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	if ss.Output, err = b.mappings(s.Outputs); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return ss, b.common(ss, s)
}

func (b *builder) endState(s *flowmodel.StateModel) (engine.State, error) {
	es := engine.NewEndState(s.ID)
	es.View = s.View
	var err error
	if es.Output, err = b.mappings(s.Outputs); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	return es, b.common(es, s)
}

func (b *builder) transition(t *flowmodel.TransitionModel) (*engine.Transition, error) {
	criteria, err := b.actionList(t.Actions)
	if err != nil {
		return nil, fmt.Errorf("transition on %q: %w", t.On, err)
	}
	tr := engine.NewTransition(t.On, t.To, criteria...)
	if err := b.attributes(tr.Attributes(), t.Attributes); err != nil {
		return nil, err
	}
	for name, raw := range map[string]string{AttrBind: t.Bind, AttrValidate: t.Validate} {
		if raw == "" {
			continue
		}
		v, err := convert("boolean", raw)
		if err != nil {
			return nil, fmt.Errorf("transition on %q attribute %s: %w", t.On, name, err)
		}
		tr.Attributes().Put(name, v)
	}
	if t.History != "" {
		tr.Attributes().Put(AttrHistory, t.History)
	}
	return tr, nil
}

func (b *builder) actions(list *flowmodel.ActionsModel) ([]engine.Action, error) {
	if list == nil {
		return nil, nil
	}
	return b.actionList(list.Actions)
}

func (b *builder) actionList(list []flowmodel.ActionModel) ([]engine.Action, error) {
	out := make([]engine.Action, 0, len(list))
	for _, a := range list {
		switch a.Kind {
		case flowmodel.ActionEvaluate:
			expr, err := el.Parse(a.Expression)
			if err != nil {
				return nil, err
			}
			action := &engine.EvaluateAction{Expression: expr}
			if a.Result != "" {
				if action.Result, err = el.Parse(a.Result); err != nil {
					return nil, err
				}
			}
			out = append(out, action)
		case flowmodel.ActionSet:
			name, err := el.Parse(a.Name)
			if err != nil {
				return nil, err
			}
			value, err := el.Parse(a.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, &engine.SetAction{Name: name, Value: value})
		default:
			return nil, fmt.Errorf("unknown action %q", a.Kind)
		}
	}
	return out, nil
}

// mappings builds input or output mappings. The value attribute is the
// scope side of the mapping; it defaults to flowScope.<name>.
func (b *builder) mappings(list []flowmodel.MappingModel) (engine.Mappings, error) {
	var out engine.Mappings
	for _, m := range list {
		mapping := engine.Mapping{Name: m.Name, Required: m.Required}
		if m.Value != "" {
			expr, err := el.Parse(m.Value)
			if err != nil {
				return nil, err
			}
			mapping.Expression = expr
		}
		if m.Type != "" {
			conv, err := converter(m.Type)
			if err != nil {
				return nil, fmt.Errorf("mapping %q: %w", m.Name, err)
			}
			mapping.Convert = conv
		}
		out = append(out, mapping)
	}
	return out, nil
}

func (b *builder) attributes(target api.AttributeMap, list []flowmodel.AttributeModel) error {
	for _, a := range list {
		v, err := convert(a.Type, a.Value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		target.Put(a.Name, v)
	}
	return nil
}

// variable creates a variable holding a fresh zero value of the type of
// the bean named by the class attribute.
func (b *builder) variable(v flowmodel.VarModel) (*engine.FlowVariable, error) {
	if b.appCtx == nil {
		return nil, fmt.Errorf("var %q: no application context", v.Name)
	}
	t, ok := b.appCtx.BeanType(v.Class)
	if !ok {
		return nil, fmt.Errorf("var %q: no bean named %q to instantiate", v.Name, v.Class)
	}
	return engine.ZeroValueVariable(v.Name, t), nil
}
