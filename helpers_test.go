package flowtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/petrijr/flowtest/pkg/api"
)

// BeanModel is the view model of the event flows.
type BeanModel struct {
	Amount  int      `json:"amount"`
	Name    string   `json:"name"`
	Entries []string `json:"entries"`
}

// BeanModelValidator is found by convention as beanModelValidator.
type BeanModelValidator struct {
	calls int
}

func (v *BeanModelValidator) Validate(model *BeanModel, ctx api.ValidationContext) {
	v.calls++
	switch {
	case model.Amount < 1:
		ctx.MessageContext().AddMessage(api.NewMessageBuilder().Error().Source("amount").Code("amount.tooLow").Build())
	case model.Amount > 100:
		ctx.MessageContext().AddMessage(api.NewMessageBuilder().Error().Source("amount").Code("amount.tooHigh").Build())
	}
}

// SomeService is a bean called from flow expressions.
type SomeService struct{}

func (s *SomeService) AddMessage(mc api.MessageContext) {
	mc.AddMessage(api.NewMessageBuilder().Info().Source("service").DefaultText("This is a message").Build())
}

func (s *SomeService) AddLocalizedMessage(mc api.MessageContext) {
	mc.AddMessage(api.NewMessageBuilder().Info().Source("service").Code("greeting").Build())
}

func (s *SomeService) Greet(name string) string { return "Hello " + name }

func xmlBuilder(location string, tc *FlowTestContext) *ExternalizedFlowBuilder {
	return NewXMLFlowBuilder(NewXMLConfiguration(location)).WithContext(tc).WithLogger(zap.NewNop())
}

func newTester(t *testing.T, location string, tc *FlowTestContext, opts ...Option) *MockFlowTester {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	tester, err := NewMockFlowTester(xmlBuilder(location, tc), opts...)
	require.NoError(t, err)
	return tester
}

// modelContext provides the BeanModel type to the event flows' variables.
func modelContext(beans ...any) *FlowTestContext {
	tc := NewFlowTestContext(beans...)
	tc.AddNamedBean("BeanModel", BeanModel{})
	tc.AddMessages(language.English, map[string]string{
		"amount.tooLow":  "Amount too low",
		"amount.tooHigh": "Amount too high",
	})
	return tc
}

func messageTexts(msgs []api.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func nopLogger() *zap.Logger { return zap.NewNop() }
