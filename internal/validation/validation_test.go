package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/petrijr/flowtest/pkg/api"
)

type beanModel struct {
	Amount int    `json:"amount"`
	Name   string `json:"name,omitempty"`
	calls  []string
}

func (m *beanModel) ValidateEnterDetails(ctx api.ValidationContext) {
	m.calls = append(m.calls, "model:"+ctx.UserEvent())
}

type beanModelValidator struct{ calls []string }

func (v *beanModelValidator) ValidateEnterDetails(model *beanModel, _ api.ValidationContext) {
	v.calls = append(v.calls, "state")
	model.calls = append(model.calls, "bean")
}

func (v *beanModelValidator) Validate(*beanModel, api.ValidationContext) {
	v.calls = append(v.calls, "generic")
}

type beans map[string]any

func (b beans) Bean(name string) (any, bool)  { v, ok := b[name]; return v, ok }
func (b beans) ContainsBean(name string) bool { _, ok := b[name]; return ok }
func (b beans) BeanNames() []string           { return nil }

func newContext(event string) *Context {
	return &Context{
		Messages: api.NewDefaultMessageContext(api.NewStaticMessageSource(), language.English),
		Event:    event,
	}
}

func TestHelperInvocationOrder(t *testing.T) {
	model := &beanModel{}
	validator := &beanModelValidator{}
	var global []string

	h := &Helper{
		Model:     model,
		ModelName: "beanModel",
		StateID:   "enterDetails",
		Beans:     beans{"beanModelValidator": validator},
		Validator: api.ValidatorFunc(func(m any, ctx api.ValidationContext) {
			global = append(global, ctx.UserEvent())
			m.(*beanModel).calls = append(m.(*beanModel).calls, "global")
		}),
	}
	h.Validate(newContext("submit"))

	assert.Equal(t, []string{"submit"}, global)
	assert.Equal(t, []string{"global", "model:submit", "bean"}, model.calls)
	assert.Equal(t, []string{"state"}, validator.calls)
}

func TestHelperFallsBackToGenericValidate(t *testing.T) {
	model := &beanModel{}
	validator := &beanModelValidator{}

	h := &Helper{Model: model, ModelName: "beanModel", StateID: "other", Beans: beans{"beanModelValidator": validator}}
	h.Validate(newContext("submit"))

	assert.Equal(t, []string{"generic"}, validator.calls)
	assert.Empty(t, model.calls)
}

func TestHelperWithoutModel(t *testing.T) {
	called := false
	h := &Helper{StateID: "s", Validator: api.ValidatorFunc(func(any, api.ValidationContext) { called = true })}
	h.Validate(newContext("e"))
	assert.True(t, called)
}

func TestMethodName(t *testing.T) {
	assert.Equal(t, "ValidateEnterDetails", MethodName("enterDetails"))
	assert.Equal(t, "ValidateChildEntry", MethodName("child-entry"))
	assert.Equal(t, "ValidateA1B", MethodName("a1_b"))
}

func TestContextUserValue(t *testing.T) {
	params := api.NewParameterMap()
	params.Put("amount", "12")
	params.PutArray("tags", []string{"a", "b"})
	ctx := &Context{Parameters: params}

	assert.Equal(t, "12", ctx.UserValue("amount"))
	assert.Equal(t, []string{"a", "b"}, ctx.UserValue("tags"))
	assert.Nil(t, ctx.UserValue("missing"))
	assert.Nil(t, (&Context{}).UserValue("amount"))
}

const amountSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"amount": {"type": "integer", "minimum": 0, "maximum": 100},
		"name": {"type": "string"}
	}
}`

func TestSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidatorFromBytes([]byte(amountSchema))
	require.NoError(t, err)

	ctx := newContext("submit")
	v.Validate(&beanModel{Amount: 500}, ctx)

	msgs := ctx.Messages.AllMessages()
	require.Len(t, msgs, 2)
	bySource := map[string]api.Message{}
	for _, m := range msgs {
		assert.Equal(t, api.SeverityError, m.Severity)
		bySource[m.Source] = m
	}
	require.Contains(t, bySource, "amount")
	require.Contains(t, bySource, "name")
	assert.NotEmpty(t, bySource["amount"].Text)
	assert.Contains(t, bySource["name"].Text, "required")

	ok := newContext("submit")
	v.Validate(&beanModel{Amount: 5, Name: "x"}, ok)
	assert.Empty(t, ok.Messages.AllMessages())
}

func TestSchemaValidatorRejectsBadSchema(t *testing.T) {
	_, err := NewSchemaValidatorFromBytes([]byte(`{"type": 12}`))
	assert.Error(t, err)
}
