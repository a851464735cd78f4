package api

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// ExternalContext is the flow's view of the environment that submitted a
// request: parameters, the native request object and the response.
type ExternalContext interface {
	RequestParameters() *ParameterMap
	NativeRequest() any
	NativeResponse() any
	Locale() language.Tag
	SessionMap() AttributeMap
	ApplicationMap() AttributeMap
	ResponseWriter() *strings.Builder

	RequestExternalRedirect(location string)
	RequestFlowExecutionRedirect()
	RecordResponseComplete()
	IsResponseComplete() bool
}

// MockExternalContext is an ExternalContext for driving flows from tests.
// A new one is expected for every simulated request.
type MockExternalContext struct {
	params         *ParameterMap
	nativeRequest  any
	nativeResponse any
	locale         language.Tag
	session        AttributeMap
	application    AttributeMap
	response       strings.Builder

	externalRedirectURL   string
	flowExecutionRedirect bool
	responseComplete      bool
}

var _ ExternalContext = (*MockExternalContext)(nil)

// NewMockExternalContext returns an external context with empty parameters
// and the English locale.
func NewMockExternalContext() *MockExternalContext {
	return &MockExternalContext{
		params:      NewParameterMap(),
		locale:      language.English,
		session:     AttributeMap{},
		application: AttributeMap{},
	}
}

func (c *MockExternalContext) RequestParameters() *ParameterMap { return c.params }
func (c *MockExternalContext) NativeRequest() any               { return c.nativeRequest }
func (c *MockExternalContext) NativeResponse() any              { return c.nativeResponse }
func (c *MockExternalContext) Locale() language.Tag             { return c.locale }
func (c *MockExternalContext) SessionMap() AttributeMap         { return c.session }
func (c *MockExternalContext) ApplicationMap() AttributeMap     { return c.application }
func (c *MockExternalContext) ResponseWriter() *strings.Builder { return &c.response }

// SetRequestParameterMap replaces the request parameters. A nil map is
// replaced by an empty one.
func (c *MockExternalContext) SetRequestParameterMap(params *ParameterMap) {
	if params == nil {
		params = NewParameterMap()
	}
	c.params = params
}

// SetEventID submits a user event by setting the _eventId parameter.
func (c *MockExternalContext) SetEventID(eventID string) {
	c.params.Put(EventIDParameter, eventID)
}

// EventID returns the submitted user event, or "".
func (c *MockExternalContext) EventID() string {
	return c.params.Get(EventIDParameter)
}

func (c *MockExternalContext) SetNativeRequest(req any)  { c.nativeRequest = req }
func (c *MockExternalContext) SetNativeResponse(res any) { c.nativeResponse = res }
func (c *MockExternalContext) SetLocale(tag language.Tag) {
	c.locale = tag
}

func (c *MockExternalContext) RequestExternalRedirect(location string) {
	c.externalRedirectURL = location
	c.responseComplete = true
}

func (c *MockExternalContext) RequestFlowExecutionRedirect() {
	c.flowExecutionRedirect = true
	c.responseComplete = true
}

func (c *MockExternalContext) RecordResponseComplete() {
	c.responseComplete = true
}

func (c *MockExternalContext) IsResponseComplete() bool { return c.responseComplete }

// ExternalRedirectURL returns the URL requested by an end state rendering
// an externalRedirect: view, or "".
func (c *MockExternalContext) ExternalRedirectURL() string { return c.externalRedirectURL }

// FlowExecutionRedirectRequested reports whether a view state asked for a
// redirect before rendering.
func (c *MockExternalContext) FlowExecutionRedirectRequested() bool {
	return c.flowExecutionRedirect
}

// ResponseText returns everything written to the response.
func (c *MockExternalContext) ResponseText() string { return c.response.String() }

// RequestContext is the per-request view of a flow execution handed to
// views, validators, expressions and listeners.
type RequestContext interface {
	// Context carries cancellation and tracing information of the caller.
	Context() context.Context

	ActiveFlow() FlowDefinition
	CurrentState() StateDefinition
	CurrentEvent() *Event
	CurrentTransition() TransitionDefinition
	CurrentView() View
	MatchingTransition(eventID string) TransitionDefinition

	RequestScope() AttributeMap
	FlowScope() AttributeMap
	ViewScope() AttributeMap
	ConversationScope() AttributeMap

	RequestParameters() *ParameterMap
	ExternalContext() ExternalContext
	MessageContext() MessageContext

	// ExecutionKey identifies the flow execution the request belongs to.
	ExecutionKey() string
	InViewState() bool
}
