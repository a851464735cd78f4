package flowtest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/petrijr/flowtest/internal/binding"
	"github.com/petrijr/flowtest/internal/el"
	"github.com/petrijr/flowtest/internal/flowbuilder"
	"github.com/petrijr/flowtest/internal/validation"
	"github.com/petrijr/flowtest/pkg/api"
)

// MockView stands in for a rendered page. Rendering writes the view id to
// the response; a submitted event binds the request parameters onto the
// state's model and validates it.
type MockView struct {
	viewID    string
	ctx       api.RequestContext
	validator api.Validator
	logger    *zap.Logger

	userEventProcessed bool
}

var _ api.View = (*MockView)(nil)

// NewMockView creates the view viewID for the request ctx. validator, if
// non-nil, runs for every bound model.
func NewMockView(viewID string, ctx api.RequestContext, validator api.Validator, logger *zap.Logger) *MockView {
	if logger == nil {
		logger = zap.L()
	}
	return &MockView{viewID: viewID, ctx: ctx, validator: validator, logger: logger}
}

func (v *MockView) ViewID() string { return v.viewID }

func (v *MockView) String() string { return fmt.Sprintf("MockView[viewId = %s]", v.viewID) }

// Render writes the view id to the response.
func (v *MockView) Render() error {
	_, err := v.ctx.ExternalContext().ResponseWriter().WriteString(v.viewID)
	return err
}

func (v *MockView) UserEventQueued() bool {
	return v.ctx.RequestParameters().Contains(api.EventIDParameter)
}

// ProcessUserEvent binds and validates the model of the current state for
// the submitted event. Problems end up in the message context.
func (v *MockView) ProcessUserEvent() {
	eventID := v.eventID()
	if eventID == "" {
		return
	}
	if model := v.model(); model != nil {
		v.processBinding(model, v.ctx.MatchingTransition(eventID))
	}
	v.userEventProcessed = true
}

// HasFlowEvent reports whether a processed event may be signaled, which
// requires the message context to be free of errors.
func (v *MockView) HasFlowEvent() bool {
	return v.userEventProcessed && !v.ctx.MessageContext().HasErrorMessages()
}

func (v *MockView) FlowEvent() *api.Event {
	return api.NewEvent(v, v.eventID())
}

func (v *MockView) eventID() string {
	return v.ctx.RequestParameters().Get(api.EventIDParameter)
}

func (v *MockView) processBinding(model any, t api.TransitionDefinition) {
	if t != nil && !t.Attributes().GetBool(flowbuilder.AttrBind, true) {
		return
	}
	for _, fe := range binding.DefaultBinder.Bind(model, v.ctx.RequestParameters()) {
		if fe.Code == binding.CodePropertyNotFound {
			continue
		}
		v.ctx.MessageContext().AddMessage(api.NewMessageBuilder().
			Error().
			DefaultText(fe.Code + " on " + fe.Field).
			Build())
	}
	if shouldValidate(t) {
		v.validate(model)
	}
}

func shouldValidate(t api.TransitionDefinition) bool {
	if t == nil {
		return true
	}
	if validate, set := t.Attributes().GetOptionalBool(flowbuilder.AttrValidate); set {
		return validate
	}
	return true
}

func (v *MockView) validate(model any) {
	h := &validation.Helper{
		Model:     model,
		ModelName: v.modelExpression().ExpressionString(),
		Validator: v.validator,
		Logger:    v.logger,
	}
	if s := v.ctx.CurrentState(); s != nil {
		h.StateID = s.ID()
	}
	if f := v.ctx.ActiveFlow(); f != nil {
		h.Beans = f.Beans()
	}
	h.Validate(&validation.Context{
		Messages:   v.ctx.MessageContext(),
		Event:      v.eventID(),
		Parameters: v.ctx.RequestParameters(),
	})
}

// model evaluates the model expression of the current state. A failing
// expression is logged and treated as no model.
func (v *MockView) model() any {
	expr := v.modelExpression()
	if expr == nil {
		return nil
	}
	m, err := expr.Value(v.ctx)
	if err != nil {
		v.logger.Warn(fmt.Sprintf("Expression [%s] could not be evaluated. Is the requested Object accessible from the view?",
			expr.ExpressionString()), zap.Error(err))
		return nil
	}
	return m
}

func (v *MockView) modelExpression() api.Expression {
	s := v.ctx.CurrentState()
	if s == nil {
		return nil
	}
	switch m := s.Attributes().Get(flowbuilder.AttrModel).(type) {
	case api.Expression:
		return m
	case string:
		if m == "" {
			return nil
		}
		expr, err := el.Parse(m)
		if err != nil {
			v.logger.Warn("invalid model expression", zap.String("expression", m), zap.Error(err))
			return nil
		}
		return expr
	default:
		return nil
	}
}
