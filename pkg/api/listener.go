package api

import (
	"go.uber.org/zap"
)

// FlowExecutionListener receives callbacks at every lifecycle point of a
// flow execution.
//
// Implementations run synchronously on the request path and should be
// cheap. Embed NoopListener to implement only the callbacks of interest.
type FlowExecutionListener interface {
	// RequestSubmitted is called when a start or resume request enters the
	// execution, before any state is touched.
	RequestSubmitted(ctx RequestContext)

	// RequestProcessed is called when the request is done, whether it
	// succeeded or not.
	RequestProcessed(ctx RequestContext)

	SessionCreating(ctx RequestContext, definition FlowDefinition)
	SessionStarting(ctx RequestContext, session FlowSession, input AttributeMap)
	SessionStarted(ctx RequestContext, session FlowSession)

	EventSignaled(ctx RequestContext, event *Event)
	TransitionExecuting(ctx RequestContext, transition TransitionDefinition)
	StateEntering(ctx RequestContext, state StateDefinition)
	StateEntered(ctx RequestContext, previous StateDefinition, state StateDefinition)

	// ViewRendering is called right before a view is rendered; the message
	// context holds everything the view will display.
	ViewRendering(ctx RequestContext, view View, viewState StateDefinition)
	ViewRendered(ctx RequestContext, view View, viewState StateDefinition)

	Paused(ctx RequestContext)
	Resuming(ctx RequestContext)

	SessionEnding(ctx RequestContext, session FlowSession, outcome string, output AttributeMap)
	SessionEnded(ctx RequestContext, session FlowSession, outcome string, output AttributeMap)

	ExceptionThrown(ctx RequestContext, err error)
}

// NoopListener is a FlowExecutionListener that does nothing.
type NoopListener struct{}

var _ FlowExecutionListener = NoopListener{}

func (NoopListener) RequestSubmitted(RequestContext)                                 {}
func (NoopListener) RequestProcessed(RequestContext)                                 {}
func (NoopListener) SessionCreating(RequestContext, FlowDefinition)                  {}
func (NoopListener) SessionStarting(RequestContext, FlowSession, AttributeMap)       {}
func (NoopListener) SessionStarted(RequestContext, FlowSession)                      {}
func (NoopListener) EventSignaled(RequestContext, *Event)                            {}
func (NoopListener) TransitionExecuting(RequestContext, TransitionDefinition)        {}
func (NoopListener) StateEntering(RequestContext, StateDefinition)                   {}
func (NoopListener) StateEntered(RequestContext, StateDefinition, StateDefinition)   {}
func (NoopListener) ViewRendering(RequestContext, View, StateDefinition)             {}
func (NoopListener) ViewRendered(RequestContext, View, StateDefinition)              {}
func (NoopListener) Paused(RequestContext)                                           {}
func (NoopListener) Resuming(RequestContext)                                         {}
func (NoopListener) ExceptionThrown(RequestContext, error)                           {}
func (NoopListener) SessionEnding(RequestContext, FlowSession, string, AttributeMap) {}
func (NoopListener) SessionEnded(RequestContext, FlowSession, string, AttributeMap)  {}

// CompositeListener fans out callbacks to multiple listeners, in order.
type CompositeListener struct {
	listeners []FlowExecutionListener
}

// NewCompositeListener creates a listener that forwards callbacks to each
// non-nil listener in ls.
func NewCompositeListener(ls ...FlowExecutionListener) FlowExecutionListener {
	filtered := make([]FlowExecutionListener, 0, len(ls))
	for _, l := range ls {
		if l != nil {
			filtered = append(filtered, l)
		}
	}
	if len(filtered) == 0 {
		return NoopListener{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeListener{listeners: filtered}
}

func (c *CompositeListener) RequestSubmitted(ctx RequestContext) {
	for _, l := range c.listeners {
		l.RequestSubmitted(ctx)
	}
}

func (c *CompositeListener) RequestProcessed(ctx RequestContext) {
	for _, l := range c.listeners {
		l.RequestProcessed(ctx)
	}
}

func (c *CompositeListener) SessionCreating(ctx RequestContext, def FlowDefinition) {
	for _, l := range c.listeners {
		l.SessionCreating(ctx, def)
	}
}

func (c *CompositeListener) SessionStarting(ctx RequestContext, s FlowSession, input AttributeMap) {
	for _, l := range c.listeners {
		l.SessionStarting(ctx, s, input)
	}
}

func (c *CompositeListener) SessionStarted(ctx RequestContext, s FlowSession) {
	for _, l := range c.listeners {
		l.SessionStarted(ctx, s)
	}
}

func (c *CompositeListener) EventSignaled(ctx RequestContext, event *Event) {
	for _, l := range c.listeners {
		l.EventSignaled(ctx, event)
	}
}

func (c *CompositeListener) TransitionExecuting(ctx RequestContext, t TransitionDefinition) {
	for _, l := range c.listeners {
		l.TransitionExecuting(ctx, t)
	}
}

func (c *CompositeListener) StateEntering(ctx RequestContext, state StateDefinition) {
	for _, l := range c.listeners {
		l.StateEntering(ctx, state)
	}
}

func (c *CompositeListener) StateEntered(ctx RequestContext, previous, state StateDefinition) {
	for _, l := range c.listeners {
		l.StateEntered(ctx, previous, state)
	}
}

func (c *CompositeListener) ViewRendering(ctx RequestContext, view View, state StateDefinition) {
	for _, l := range c.listeners {
		l.ViewRendering(ctx, view, state)
	}
}

func (c *CompositeListener) ViewRendered(ctx RequestContext, view View, state StateDefinition) {
	for _, l := range c.listeners {
		l.ViewRendered(ctx, view, state)
	}
}

func (c *CompositeListener) Paused(ctx RequestContext) {
	for _, l := range c.listeners {
		l.Paused(ctx)
	}
}

func (c *CompositeListener) Resuming(ctx RequestContext) {
	for _, l := range c.listeners {
		l.Resuming(ctx)
	}
}

func (c *CompositeListener) SessionEnding(ctx RequestContext, s FlowSession, outcome string, output AttributeMap) {
	for _, l := range c.listeners {
		l.SessionEnding(ctx, s, outcome, output)
	}
}

func (c *CompositeListener) SessionEnded(ctx RequestContext, s FlowSession, outcome string, output AttributeMap) {
	for _, l := range c.listeners {
		l.SessionEnded(ctx, s, outcome, output)
	}
}

func (c *CompositeListener) ExceptionThrown(ctx RequestContext, err error) {
	for _, l := range c.listeners {
		l.ExceptionThrown(ctx, err)
	}
}

// LoggingListener writes structured lifecycle logs using zap.
type LoggingListener struct {
	NoopListener
	Logger *zap.Logger
}

// NewLoggingListener creates a listener logging to logger. If logger is nil,
// zap.L() is used.
func NewLoggingListener(logger *zap.Logger) *LoggingListener {
	if logger == nil {
		logger = zap.L()
	}
	return &LoggingListener{Logger: logger}
}

func flowID(ctx RequestContext) string {
	if f := ctx.ActiveFlow(); f != nil {
		return f.ID()
	}
	return ""
}

func (l *LoggingListener) SessionStarting(ctx RequestContext, s FlowSession, input AttributeMap) {
	l.Logger.Debug("session_starting",
		zap.String("flow", s.Definition().ID()),
		zap.String("execution", ctx.ExecutionKey()),
		zap.Strings("input", input.Keys()),
	)
}

func (l *LoggingListener) EventSignaled(ctx RequestContext, event *Event) {
	l.Logger.Debug("event_signaled",
		zap.String("flow", flowID(ctx)),
		zap.String("execution", ctx.ExecutionKey()),
		zap.String("event", event.ID),
	)
}

func (l *LoggingListener) StateEntered(ctx RequestContext, previous, state StateDefinition) {
	from := ""
	if previous != nil {
		from = previous.ID()
	}
	l.Logger.Debug("state_entered",
		zap.String("flow", state.Owner().ID()),
		zap.String("execution", ctx.ExecutionKey()),
		zap.String("from", from),
		zap.String("state", state.ID()),
	)
}

func (l *LoggingListener) ViewRendering(ctx RequestContext, view View, state StateDefinition) {
	l.Logger.Debug("view_rendering",
		zap.String("flow", state.Owner().ID()),
		zap.String("execution", ctx.ExecutionKey()),
		zap.String("state", state.ID()),
		zap.Int("messages", len(ctx.MessageContext().AllMessages())),
	)
}

func (l *LoggingListener) SessionEnded(ctx RequestContext, s FlowSession, outcome string, output AttributeMap) {
	l.Logger.Debug("session_ended",
		zap.String("flow", s.Definition().ID()),
		zap.String("execution", ctx.ExecutionKey()),
		zap.String("outcome", outcome),
		zap.Strings("output", output.Keys()),
	)
}

func (l *LoggingListener) ExceptionThrown(ctx RequestContext, err error) {
	l.Logger.Error("flow_exception",
		zap.String("flow", flowID(ctx)),
		zap.String("execution", ctx.ExecutionKey()),
		zap.Error(err),
	)
}
