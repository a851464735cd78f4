// Package validation runs model validators after binding, found by naming
// convention or configured explicitly, and reports problems as messages.
package validation

import (
	"reflect"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/petrijr/flowtest/pkg/api"
)

var validationContextType = reflect.TypeOf((*api.ValidationContext)(nil)).Elem()

// Context is the api.ValidationContext handed to validators.
type Context struct {
	Messages   api.MessageContext
	Event      string
	Parameters *api.ParameterMap
}

var _ api.ValidationContext = (*Context)(nil)

func (c *Context) MessageContext() api.MessageContext { return c.Messages }
func (c *Context) UserEvent() string                  { return c.Event }

// UserValue returns the submitted value for field: a string, a []string
// or a file.
func (c *Context) UserValue(field string) any {
	if c.Parameters == nil || !c.Parameters.Contains(field) {
		return nil
	}
	return c.Parameters.AsMap()[field]
}

// Helper invokes the validators of one model in a fixed order:
//
//  1. the global Validator, if set;
//  2. a Validate<StateID>(api.ValidationContext) method of the model;
//  3. a bean named <ModelName>Validator, through its
//     Validate<StateID>(model, api.ValidationContext) method or, failing
//     that, its Validate(model, api.ValidationContext) method.
type Helper struct {
	Model     any
	ModelName string
	StateID   string
	Beans     api.BeanLocator
	Validator api.Validator
	Logger    *zap.Logger
}

// Validate runs every validator that applies.
func (h *Helper) Validate(ctx api.ValidationContext) {
	logger := h.Logger
	if logger == nil {
		logger = zap.L()
	}
	method := MethodName(h.StateID)

	if h.Validator != nil {
		h.Validator.Validate(h.Model, ctx)
	}
	if h.Model == nil {
		return
	}

	if m := reflect.ValueOf(h.Model).MethodByName(method); m.IsValid() && acceptsContextOnly(m.Type()) {
		logger.Debug("invoking model validation method", zap.String("method", method))
		m.Call([]reflect.Value{reflect.ValueOf(ctx)})
	}

	if h.Beans == nil || h.ModelName == "" {
		return
	}
	bean, ok := h.Beans.Bean(h.ModelName + "Validator")
	if !ok {
		return
	}
	v := reflect.ValueOf(bean)
	for _, name := range []string{method, "Validate"} {
		m := v.MethodByName(name)
		if !m.IsValid() || !acceptsModelAndContext(m.Type(), h.Model) {
			continue
		}
		logger.Debug("invoking validator bean",
			zap.String("bean", h.ModelName+"Validator"),
			zap.String("method", name),
		)
		m.Call([]reflect.Value{reflect.ValueOf(h.Model), reflect.ValueOf(ctx)})
		return
	}
}

// MethodName derives the validation method for a state:
// "enterDetails" becomes ValidateEnterDetails and "child-entry"
// ValidateChildEntry.
func MethodName(stateID string) string {
	var b strings.Builder
	b.WriteString("Validate")
	upper := true
	for _, r := range stateID {
		if r == '-' || r == '_' || r == '.' || unicode.IsSpace(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func acceptsContextOnly(t reflect.Type) bool {
	return t.NumIn() == 1 && t.In(0) == validationContextType
}

func acceptsModelAndContext(t reflect.Type, model any) bool {
	if t.NumIn() != 2 || t.In(1) != validationContextType || model == nil {
		return false
	}
	return reflect.TypeOf(model).AssignableTo(t.In(0))
}
