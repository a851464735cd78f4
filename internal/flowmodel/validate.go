package flowmodel

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrInvalidModel is matched by every error returned from Validate.
var ErrInvalidModel = errors.New("invalid flow model")

// ValidationError describes one problem of a flow document.
type ValidationError struct {
	FlowID string
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow %q: %s: %s", e.FlowID, e.Path, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidModel }

// Validate checks m after parents were merged and reports every problem
// found, combined with multierr.
func (m *FlowModel) Validate() error {
	v := validator{flowID: m.ID}

	if len(m.States) == 0 && !m.Abstract {
		v.add("flow", "declares no states")
	}
	if m.StartState != "" && m.State(m.StartState) == nil {
		v.add("flow", fmt.Sprintf("start state %q does not exist", m.StartState))
	}

	ids := make(map[string]bool, len(m.States))
	for i, s := range m.States {
		path := fmt.Sprintf("state[%d]", i)
		if s.ID == "" {
			v.add(path, "missing id")
		} else {
			path = fmt.Sprintf("%s %q", s.Kind, s.ID)
			if ids[s.ID] {
				v.add(path, "duplicate state id")
			}
			ids[s.ID] = true
		}
		v.state(m, path, &s)
	}

	for i, t := range m.GlobalTransitions {
		v.transition(m, fmt.Sprintf("global-transition[%d]", i), &t)
	}
	for _, va := range m.Vars {
		v.variable("var", va)
	}
	for _, in := range m.Inputs {
		if in.Name == "" {
			v.add("input", "missing name")
		}
	}
	for _, out := range m.Outputs {
		if out.Name == "" {
			v.add("output", "missing name")
		}
	}
	v.actions("on-start", m.OnStart.list())
	v.actions("on-end", m.OnEnd.list())

	return v.err
}

type validator struct {
	flowID string
	err    error
}

func (v *validator) add(path, reason string) {
	v.err = multierr.Append(v.err, &ValidationError{FlowID: v.flowID, Path: path, Reason: reason})
}

func (v *validator) state(m *FlowModel, path string, s *StateModel) {
	switch s.Kind {
	case KindViewState, KindEndState:
	case KindActionState:
		if len(s.Actions) == 0 {
			v.add(path, "declares no actions")
		}
	case KindDecisionState:
		if len(s.Ifs) == 0 {
			v.add(path, "declares no if branches")
		}
		for _, b := range s.Ifs {
			if b.Test == "" || b.Then == "" {
				v.add(path, "if requires test and then")
				continue
			}
			v.target(m, path, b.Then)
			if b.Else != "" {
				v.target(m, path, b.Else)
			}
		}
	case KindSubflowState:
		if s.Subflow == "" {
			v.add(path, "missing subflow")
		}
	default:
		v.add(path, fmt.Sprintf("unknown state kind %q", s.Kind))
		return
	}

	if s.Kind != KindActionState {
		for _, a := range s.Actions {
			v.add(path, fmt.Sprintf("unexpected element %q", a.Kind))
		}
	}
	if s.Kind == KindEndState && len(s.Transitions) > 0 {
		v.add(path, "end states cannot declare transitions")
	}
	for i, t := range s.Transitions {
		v.transition(m, fmt.Sprintf("%s transition[%d]", path, i), &t)
	}
	for _, va := range s.Vars {
		v.variable(path+" var", va)
	}
	v.actions(path+" on-entry", s.OnEntry.list())
	v.actions(path+" on-render", s.OnRender.list())
	v.actions(path+" on-exit", s.OnExit.list())
}

func (v *validator) transition(m *FlowModel, path string, t *TransitionModel) {
	if t.On == "" {
		v.add(path, "missing on")
	}
	if t.To != "" {
		v.target(m, path, t.To)
	}
	v.actions(path, t.Actions)
}

func (v *validator) target(m *FlowModel, path, id string) {
	if m.State(id) == nil {
		v.add(path, fmt.Sprintf("target state %q does not exist", id))
	}
}

func (v *validator) variable(path string, va VarModel) {
	if va.Name == "" || va.Class == "" {
		v.add(path, "var requires name and class")
	}
}

func (v *validator) actions(path string, actions []ActionModel) {
	for _, a := range actions {
		switch a.Kind {
		case ActionEvaluate:
			if a.Expression == "" {
				v.add(path, "evaluate requires an expression")
			}
		case ActionSet:
			if a.Name == "" || a.Value == "" {
				v.add(path, "set requires name and value")
			}
		default:
			v.add(path, fmt.Sprintf("unknown action %q", a.Kind))
		}
	}
}
