// Package el evaluates flow expressions. Expressions are JavaScript
// snippets run on goja against the variables of a request: beans, the
// scopes and a set of implicit objects.
package el

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
	c "github.com/patrickmn/go-cache"

	"github.com/petrijr/flowtest/pkg/api"
)

const valueVariable = "__flowtestValue"

var (
	// ErrEmptyExpression is returned when parsing a blank expression.
	ErrEmptyExpression = errors.New("el: empty expression")

	identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	scopePath  = regexp.MustCompile(`^(flowScope|viewScope|conversationScope|requestScope)\.([A-Za-z_$][A-Za-z0-9_$]*)$`)

	programs = c.New(c.NoExpiration, 10*time.Minute)
)

// EvaluationError reports an expression that could not be compiled,
// evaluated or assigned.
type EvaluationError struct {
	Expression string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("expression [%s] failed: %v", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Expression is a compiled flow expression.
type Expression struct {
	src  string
	prog *goja.Program
}

var _ api.Expression = (*Expression)(nil)

// Parse compiles src. A surrounding #{...} or ${...} delimiter is stripped.
// Compiled programs are shared process-wide.
func Parse(src string) (*Expression, error) {
	body := strip(src)
	if body == "" {
		return nil, ErrEmptyExpression
	}
	prog, err := compile(body)
	if err != nil {
		return nil, &EvaluationError{Expression: src, Err: err}
	}
	return &Expression{src: body, prog: prog}, nil
}

// MustParse is like Parse but panics on error. Intended for constant
// expressions in code and tests.
func MustParse(src string) *Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func strip(src string) string {
	s := strings.TrimSpace(src)
	if (strings.HasPrefix(s, "#{") || strings.HasPrefix(s, "${")) && strings.HasSuffix(s, "}") {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return s
}

func compile(body string) (*goja.Program, error) {
	if p, ok := programs.Get(body); ok {
		return p.(*goja.Program), nil
	}
	p, err := goja.Compile("", body, false)
	if err != nil {
		return nil, err
	}
	programs.Set(body, p, c.NoExpiration)
	return p, nil
}

func (e *Expression) ExpressionString() string { return e.src }

func (e *Expression) String() string { return e.src }

// IsIdentifier reports whether the expression is a bare variable name.
func (e *Expression) IsIdentifier() bool { return identifier.MatchString(e.src) }

// Value evaluates the expression. context is an api.RequestContext, an
// api.AttributeMap or a map[string]any. undefined and null evaluate to nil.
func (e *Expression) Value(context any) (any, error) {
	if scope, name, ok := scopeAttribute(context, e.src); ok {
		return scope.Get(name), nil
	}
	vm, err := newRuntime(context)
	if err != nil {
		return nil, &EvaluationError{Expression: e.src, Err: err}
	}
	v, err := vm.RunProgram(e.prog)
	if err != nil {
		return nil, &EvaluationError{Expression: e.src, Err: err}
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

// SetValue assigns value to the target named by the expression. A bare
// name is stored in the scope already holding it, or in flow scope.
func (e *Expression) SetValue(context any, value any) error {
	if e.IsIdentifier() {
		target, err := assignTarget(context, e.src)
		if err != nil {
			return &EvaluationError{Expression: e.src, Err: err}
		}
		target[e.src] = value
		return nil
	}
	if scope, name, ok := scopeAttribute(context, e.src); ok {
		scope.Put(name, value)
		return nil
	}

	prog, err := compile(e.src + " = " + valueVariable)
	if err != nil {
		return &EvaluationError{Expression: e.src, Err: err}
	}
	vm, err := newRuntime(context)
	if err != nil {
		return &EvaluationError{Expression: e.src, Err: err}
	}
	if err := vm.Set(valueVariable, value); err != nil {
		return &EvaluationError{Expression: e.src, Err: err}
	}
	if _, err := vm.RunProgram(prog); err != nil {
		return &EvaluationError{Expression: e.src, Err: err}
	}
	return nil
}

// scopeAttribute resolves a <scope>.<name> path against a request without
// going through the runtime, so that Go values keep their types.
func scopeAttribute(context any, src string) (api.AttributeMap, string, bool) {
	ctx, ok := context.(api.RequestContext)
	if !ok {
		return nil, "", false
	}
	m := scopePath.FindStringSubmatch(src)
	if m == nil {
		return nil, "", false
	}
	var scope api.AttributeMap
	switch m[1] {
	case "flowScope":
		scope = ctx.FlowScope()
	case "viewScope":
		scope = ctx.ViewScope()
	case "conversationScope":
		scope = ctx.ConversationScope()
	case "requestScope":
		scope = ctx.RequestScope()
	}
	return scope, m[2], scope != nil
}

func assignTarget(context any, name string) (map[string]any, error) {
	switch ctx := context.(type) {
	case api.RequestContext:
		for _, scope := range []api.AttributeMap{ctx.RequestScope(), ctx.ViewScope(), ctx.FlowScope(), ctx.ConversationScope()} {
			if scope.Contains(name) {
				return scope, nil
			}
		}
		return ctx.FlowScope(), nil
	case api.AttributeMap:
		return ctx, nil
	case map[string]any:
		return ctx, nil
	default:
		return nil, fmt.Errorf("unsupported evaluation context %T", context)
	}
}

// Literal is a constant expression evaluating to its own text.
type Literal string

var _ api.Expression = Literal("")

func (l Literal) ExpressionString() string { return string(l) }

func (l Literal) Value(any) (any, error) { return string(l), nil }

func (l Literal) SetValue(any, any) error {
	return &EvaluationError{Expression: string(l), Err: errors.New("literal expressions cannot be assigned")}
}

// IsDelimited reports whether src is wrapped in #{...} or ${...}.
func IsDelimited(src string) bool {
	s := strings.TrimSpace(src)
	return strings.HasSuffix(s, "}") && (strings.HasPrefix(s, "#{") || strings.HasPrefix(s, "${"))
}

// ParseTemplate parses a delimited src as an expression and returns any
// other text as a Literal.
func ParseTemplate(src string) (api.Expression, error) {
	if !IsDelimited(src) {
		return Literal(src), nil
	}
	return Parse(src)
}
