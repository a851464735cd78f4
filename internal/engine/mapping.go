package engine

import (
	"fmt"

	"github.com/petrijr/flowtest/internal/el"
	"github.com/petrijr/flowtest/pkg/api"
)

// Mapping moves one named attribute between an attribute map and the
// scopes of a request. Expression is the scope side of the mapping and
// defaults to flowScope.<Name>.
type Mapping struct {
	Name       string
	Expression api.Expression
	Required   bool
	// Convert, if set, converts the value before it is stored.
	Convert func(any) (any, error)
}

func (m Mapping) expression() (api.Expression, error) {
	if m.Expression != nil {
		return m.Expression, nil
	}
	return el.Parse("flowScope." + m.Name)
}

func (m Mapping) convert(v any) (any, error) {
	if m.Convert == nil || v == nil {
		return v, nil
	}
	out, err := m.Convert(v)
	if err != nil {
		return nil, fmt.Errorf("mapping %q: %w", m.Name, err)
	}
	return out, nil
}

// Mappings is an ordered list of mappings. It serves as flow input and
// output mapper and as the input and output mapper of subflow states.
type Mappings []Mapping

// InputMapper maps the input of a starting flow session into its scopes.
type InputMapper interface {
	MapInput(input api.AttributeMap, ctx *RequestControlContext) error
}

// OutputMapper collects the output of an ending flow session.
type OutputMapper interface {
	MapOutput(ctx *RequestControlContext, output api.AttributeMap) error
}

type InputMapperFunc func(input api.AttributeMap, ctx *RequestControlContext) error

func (f InputMapperFunc) MapInput(input api.AttributeMap, ctx *RequestControlContext) error {
	return f(input, ctx)
}

type OutputMapperFunc func(ctx *RequestControlContext, output api.AttributeMap) error

func (f OutputMapperFunc) MapOutput(ctx *RequestControlContext, output api.AttributeMap) error {
	return f(ctx, output)
}

var (
	_ InputMapper  = Mappings(nil)
	_ OutputMapper = Mappings(nil)
)

// MapInput copies each named attribute of input into the request's scopes.
func (ms Mappings) MapInput(input api.AttributeMap, ctx *RequestControlContext) error {
	return ms.toScope(input, ctx)
}

// MapOutput evaluates each mapping against the request and stores the
// result under its name in output.
func (ms Mappings) MapOutput(ctx *RequestControlContext, output api.AttributeMap) error {
	return ms.fromScope(ctx, output)
}

func (ms Mappings) toScope(source api.AttributeMap, ctx *RequestControlContext) error {
	for _, m := range ms {
		v, ok := source.Lookup(m.Name)
		if (!ok || v == nil) && m.Required {
			return fmt.Errorf("required attribute %q is missing", m.Name)
		}
		if !ok {
			continue
		}
		v, err := m.convert(v)
		if err != nil {
			return err
		}
		target, err := m.expression()
		if err != nil {
			return err
		}
		if err := target.SetValue(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (ms Mappings) fromScope(ctx *RequestControlContext, target api.AttributeMap) error {
	for _, m := range ms {
		source, err := m.expression()
		if err != nil {
			return err
		}
		v, err := source.Value(ctx)
		if err != nil {
			return err
		}
		if v == nil && m.Required {
			return fmt.Errorf("required value %q evaluated to nil", m.Name)
		}
		v, err = m.convert(v)
		if err != nil {
			return err
		}
		target.Put(m.Name, v)
	}
	return nil
}
