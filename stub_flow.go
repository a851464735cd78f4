package flowtest

import (
	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/pkg/api"
)

// StubFlow stands in for a sub-flow. Its flow ends immediately in a single
// end state, capturing the input it was started with and emitting the
// configured output attributes.
type StubFlow struct {
	flowID     string
	endStateID string

	inputAttributes  api.AttributeMap
	outputAttributes map[string]any

	cached *engine.Flow
}

var _ FlowDefinitionHolder = (*StubFlow)(nil)

// NewStubFlow creates a stub sub-flow with the id flowID that ends in
// endStateID. Both ids are required.
func NewStubFlow(flowID, endStateID string) (*StubFlow, error) {
	if flowID == "" {
		return nil, api.NewIllegalArgumentError("Flow Id may not be null")
	}
	if endStateID == "" {
		return nil, api.NewIllegalArgumentError("EndState Id may not be null")
	}
	return &StubFlow{
		flowID:           flowID,
		endStateID:       endStateID,
		inputAttributes:  api.AttributeMap{},
		outputAttributes: make(map[string]any),
	}, nil
}

// MustStubFlow is like NewStubFlow but panics on invalid ids.
func MustStubFlow(flowID, endStateID string) *StubFlow {
	s, err := NewStubFlow(flowID, endStateID)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *StubFlow) FlowDefinitionID() string { return s.flowID }
func (s *StubFlow) EndStateID() string       { return s.endStateID }

// SetEndStateID changes the outcome. The next call to FlowDefinition
// rebuilds the flow.
func (s *StubFlow) SetEndStateID(endStateID string) error {
	if endStateID == "" {
		return api.NewIllegalArgumentError("EndState Id may not be null")
	}
	s.endStateID = endStateID
	return nil
}

// FlowDefinition returns the cached flow, rebuilding it when its first
// possible outcome no longer matches EndStateID.
func (s *StubFlow) FlowDefinition() (*engine.Flow, error) {
	if s.cached != nil && s.cached.PossibleOutcomes()[0] == s.endStateID {
		return s.cached, nil
	}

	f := engine.NewFlow(s.flowID)
	if err := f.AddState(engine.NewEndState(s.endStateID)); err != nil {
		return nil, err
	}
	f.SetInputMapper(engine.InputMapperFunc(func(input api.AttributeMap, _ *engine.RequestControlContext) error {
		s.inputAttributes.PutAll(input)
		return nil
	}))
	f.SetOutputMapper(engine.OutputMapperFunc(func(_ *engine.RequestControlContext, output api.AttributeMap) error {
		output.PutAll(s.outputAttributes)
		return nil
	}))
	s.cached = f
	return f, nil
}

// InputAttributes returns the input captured since the last call and
// forgets it.
func (s *StubFlow) InputAttributes() api.AttributeMap {
	out := s.inputAttributes.Copy()
	s.inputAttributes.Clear()
	return out
}

// AddOutputAttribute adds an attribute to the output of every later run,
// including runs of a flow obtained before the call.
func (s *StubFlow) AddOutputAttribute(key string, value any) {
	s.outputAttributes[key] = value
}

// SetOutputAttributes replaces the output attributes.
func (s *StubFlow) SetOutputAttributes(attrs map[string]any) {
	s.outputAttributes = make(map[string]any, len(attrs))
	for k, v := range attrs {
		s.outputAttributes[k] = v
	}
}
