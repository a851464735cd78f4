// Package binding maps submitted request parameters onto a view model.
package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/petrijr/flowtest/pkg/api"
)

// Error codes reported for a parameter that could not be bound.
const (
	CodeTypeMismatch     = "typeMismatch"
	CodePropertyNotFound = "propertyNotFound"
)

// FieldError is a parameter that could not be mapped onto the model.
type FieldError struct {
	Field string
	Code  string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s on %s", e.Code, e.Field)
	}
	return fmt.Sprintf("%s on %s: %v", e.Code, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Binder binds parameters onto models. Struct fields are matched by their
// json tag or, case-insensitively, by name; dotted parameter names address
// nested fields.
type Binder struct {
	// Ignore lists parameters that are never bound, such as _eventId.
	Ignore []string
}

// DefaultBinder ignores the event id parameter.
var DefaultBinder = &Binder{Ignore: []string{api.EventIDParameter}}

// Bind maps every parameter onto model, which must be a pointer to a
// struct or a map. Parameters are bound one at a time so that one failing
// parameter does not prevent the others from being bound. The result lists
// the failures in parameter name order.
func (b *Binder) Bind(model any, params *api.ParameterMap) []*FieldError {
	values := params.AsMap()
	names := make([]string, 0, len(values))
	for name := range values {
		if !b.ignored(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var errs []*FieldError
	for _, name := range names {
		if err := b.bindOne(model, name, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (b *Binder) ignored(name string) bool {
	for _, i := range b.Ignore {
		if i == name {
			return true
		}
	}
	return false
}

func (b *Binder) bindOne(model any, name string, value any) *FieldError {
	var meta mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &meta,
		Result:           model,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return &FieldError{Field: name, Code: CodeTypeMismatch, Value: value, Err: err}
	}
	if err := dec.Decode(nest(name, value)); err != nil {
		return &FieldError{Field: name, Code: CodeTypeMismatch, Value: value, Err: err}
	}
	for _, unused := range meta.Unused {
		if strings.EqualFold(unused, name) || hasPrefixFold(name, unused+".") {
			return &FieldError{Field: name, Code: CodePropertyNotFound, Value: value}
		}
	}
	return nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// nest turns a.b.c=v into {a: {b: {c: v}}}.
func nest(name string, value any) map[string]any {
	parts := strings.Split(name, ".")
	out := map[string]any{parts[len(parts)-1]: value}
	for i := len(parts) - 2; i >= 0; i-- {
		out = map[string]any{parts[i]: out}
	}
	return out
}
