package el

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/flowtest/pkg/api"
)

type account struct {
	Name   string
	Amount int
}

func (a *account) Describe(prefix string) string { return prefix + a.Name }

func TestParse_StripsDelimiters(t *testing.T) {
	e, err := Parse(" #{ flowScope.to } ")
	require.NoError(t, err)
	assert.Equal(t, "flowScope.to", e.ExpressionString())

	e, err = Parse("${a}")
	require.NoError(t, err)
	assert.True(t, e.IsIdentifier())

	_, err = Parse("  ")
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = Parse("a ===")
	var evalErr *EvaluationError
	assert.True(t, errors.As(err, &evalErr))
}

func TestValue_MapContext(t *testing.T) {
	vars := map[string]any{
		"acct": &account{Name: "bob", Amount: 3},
		"n":    2,
	}

	v, err := MustParse("acct.name").Value(vars)
	require.NoError(t, err)
	assert.Equal(t, "bob", v)

	v, err = MustParse("acct.amount * n").Value(vars)
	require.NoError(t, err)
	assert.EqualValues(t, 6, v)

	v, err = MustParse("acct.describe('mr ')").Value(vars)
	require.NoError(t, err)
	assert.Equal(t, "mr bob", v)

	v, err = MustParse("'hooray'").Value(nil)
	require.NoError(t, err)
	assert.Equal(t, "hooray", v)

	v, err = MustParse("acct.missing").Value(vars)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestValue_UnknownVariableFails(t *testing.T) {
	_, err := MustParse("beanModel").Value(map[string]any{})
	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "beanModel", evalErr.Expression)
}

func TestValue_UnsupportedContext(t *testing.T) {
	_, err := MustParse("1").Value(42)
	assert.Error(t, err)
}

func TestSetValue_PropertyPath(t *testing.T) {
	acct := &account{}
	scope := api.AttributeMap{"acct": acct, "flowScope": map[string]any{}}

	require.NoError(t, MustParse("acct.name").SetValue(scope, "alice"))
	assert.Equal(t, "alice", acct.Name)

	require.NoError(t, MustParse("acct.amount").SetValue(scope, 7))
	assert.Equal(t, 7, acct.Amount)

	inner := scope["flowScope"].(map[string]any)
	require.NoError(t, MustParse("flowScope.passed").SetValue(scope, "yes"))
	assert.Equal(t, "yes", inner["passed"])
}

func TestSetValue_BareName(t *testing.T) {
	scope := api.AttributeMap{}
	require.NoError(t, MustParse("result").SetValue(scope, 5))
	assert.Equal(t, 5, scope["result"])
}

func TestParseTemplate(t *testing.T) {
	lit, err := ParseTemplate("viewName")
	require.NoError(t, err)
	assert.Equal(t, Literal("viewName"), lit)
	v, err := lit.Value(nil)
	require.NoError(t, err)
	assert.Equal(t, "viewName", v)
	assert.Error(t, lit.SetValue(nil, "x"))

	expr, err := ParseTemplate("#{flowScope.name}")
	require.NoError(t, err)
	v, err = expr.Value(map[string]any{"flowScope": map[string]any{"name": "dynamic"}})
	require.NoError(t, err)
	assert.Equal(t, "dynamic", v)

	assert.True(t, IsDelimited(" ${a} "))
	assert.False(t, IsDelimited("a}"))
}
