package engine

import (
	"fmt"

	"github.com/petrijr/flowtest/pkg/api"
)

// Action is a unit of behaviour executed by a flow: on start and end, on
// state entry and exit, in action states, on render and as transition
// criteria. The returned event signals the action's result.
type Action interface {
	Execute(ctx *RequestControlContext) (*api.Event, error)
}

// ActionFunc adapts a function to an Action.
type ActionFunc func(ctx *RequestControlContext) (*api.Event, error)

func (f ActionFunc) Execute(ctx *RequestControlContext) (*api.Event, error) { return f(ctx) }

// EvaluateAction evaluates an expression and optionally stores the result.
type EvaluateAction struct {
	Expression api.Expression
	Result     api.Expression
}

func (a *EvaluateAction) Execute(ctx *RequestControlContext) (*api.Event, error) {
	v, err := a.Expression.Value(ctx)
	if err != nil {
		return nil, err
	}
	if a.Result != nil {
		if err := a.Result.SetValue(ctx, v); err != nil {
			return nil, err
		}
	}
	return ResultEvent(a, v), nil
}

func (a *EvaluateAction) String() string {
	return "evaluate " + a.Expression.ExpressionString()
}

// SetAction assigns the value of one expression to another.
type SetAction struct {
	Name  api.Expression
	Value api.Expression
}

func (a *SetAction) Execute(ctx *RequestControlContext) (*api.Event, error) {
	v, err := a.Value.Value(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Name.SetValue(ctx, v); err != nil {
		return nil, err
	}
	return api.NewEvent(a, api.EventSuccess), nil
}

// ResultEvent turns an action result into the event it signals. Booleans
// map to yes/no, nil to success, strings and events to themselves. Any
// other value signals success with the value as the "result" attribute.
func ResultEvent(source any, result any) *api.Event {
	switch r := result.(type) {
	case nil:
		return api.NewEvent(source, api.EventSuccess)
	case bool:
		if r {
			return api.NewEvent(source, api.EventYes)
		}
		return api.NewEvent(source, api.EventNo)
	case string:
		return api.NewEvent(source, r)
	case *api.Event:
		return r
	case api.Event:
		return &r
	case error:
		ev := api.NewEvent(source, api.EventError)
		ev.Attributes.Put("exception", r)
		return ev
	default:
		ev := api.NewEvent(source, api.EventSuccess)
		ev.Attributes.Put("result", r)
		return ev
	}
}

func executeAll(ctx *RequestControlContext, actions []Action) error {
	for _, a := range actions {
		if _, err := a.Execute(ctx); err != nil {
			return fmt.Errorf("action %v: %w", a, err)
		}
	}
	return nil
}
