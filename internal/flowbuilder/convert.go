package flowbuilder

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// converter returns the conversion for a declared attribute or mapping
// type. Java-style names are accepted next to the Go ones.
func converter(typeName string) (func(any) (any, error), error) {
	switch strings.ToLower(strings.TrimPrefix(typeName, "java.lang.")) {
	case "", "string":
		return func(v any) (any, error) { return cast.ToStringE(v) }, nil
	case "int", "integer":
		return func(v any) (any, error) { return cast.ToIntE(v) }, nil
	case "long", "int64":
		return func(v any) (any, error) { return cast.ToInt64E(v) }, nil
	case "short", "int16":
		return func(v any) (any, error) { return cast.ToInt16E(v) }, nil
	case "float", "float32":
		return func(v any) (any, error) { return cast.ToFloat32E(v) }, nil
	case "double", "float64":
		return func(v any) (any, error) { return cast.ToFloat64E(v) }, nil
	case "bool", "boolean":
		return func(v any) (any, error) { return cast.ToBoolE(v) }, nil
	case "duration":
		return func(v any) (any, error) { return cast.ToDurationE(v) }, nil
	case "time", "date":
		return func(v any) (any, error) { return cast.ToTimeE(v) }, nil
	case "stringlist", "list", "[]string":
		return func(v any) (any, error) { return cast.ToStringSliceE(v) }, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", typeName)
	}
}

func convert(typeName, raw string) (any, error) {
	conv, err := converter(typeName)
	if err != nil {
		return nil, err
	}
	return conv(raw)
}
