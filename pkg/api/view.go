package api

// View renders a view state and processes the user events submitted from it.
type View interface {
	Render() error
	UserEventQueued() bool
	ProcessUserEvent()
	HasFlowEvent() bool
	FlowEvent() *Event
}

// Expression is a parsed expression evaluated against a context object,
// usually a RequestContext or a plain attribute map.
type Expression interface {
	ExpressionString() string
	Value(context any) (any, error)
	SetValue(context any, value any) error
}

// ValidationContext is handed to validators of a bound model.
type ValidationContext interface {
	MessageContext() MessageContext
	// UserEvent is the id of the event that triggered validation.
	UserEvent() string
	// UserValue returns the raw submitted value for a model field, or nil.
	UserValue(field string) any
}

// Validator validates a model after binding and reports problems as
// messages on the validation context.
type Validator interface {
	Validate(model any, ctx ValidationContext)
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(model any, ctx ValidationContext)

func (f ValidatorFunc) Validate(model any, ctx ValidationContext) { f(model, ctx) }
