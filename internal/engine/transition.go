package engine

import (
	"github.com/petrijr/flowtest/pkg/api"
)

// WildcardEvent matches any event.
const WildcardEvent = "*"

// Transition moves a flow from its source state to a target state when an
// event matching On is signaled. Actions are execution criteria: the
// transition is taken only if every action signals success, yes or true.
type Transition struct {
	On         string
	Target     string
	Actions    []Action
	attributes api.AttributeMap
}

var _ api.TransitionDefinition = (*Transition)(nil)

// NewTransition creates a transition on eventID to target. An empty target
// keeps the flow in its current state.
func NewTransition(on, target string, actions ...Action) *Transition {
	return &Transition{On: on, Target: target, Actions: actions, attributes: api.AttributeMap{}}
}

func (t *Transition) ID() string                   { return t.On }
func (t *Transition) TargetStateID() string        { return t.Target }
func (t *Transition) Attributes() api.AttributeMap { return t.attributes }

// Matches reports whether the transition accepts eventID.
func (t *Transition) Matches(eventID string) bool {
	return t.On == WildcardEvent || t.On == eventID
}

func (t *Transition) canExecute(ctx *RequestControlContext) (bool, error) {
	for _, a := range t.Actions {
		ev, err := a.Execute(ctx)
		if err != nil {
			return false, err
		}
		switch ev.ID {
		case api.EventSuccess, api.EventYes, "true":
		default:
			return false, nil
		}
	}
	return true, nil
}

func matchTransition(ts []*Transition, eventID string) *Transition {
	for _, t := range ts {
		if t.Matches(eventID) {
			return t
		}
	}
	return nil
}
