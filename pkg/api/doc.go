// Package api contains the contracts shared by the flowtest harness and its
// flow engine. It provides the primitives a flow touches at runtime, the
// definitions a test inspects, and the hooks used to observe executions.
//
// Most users interact with the higher-level flowtest package, which
// re-exports selected types from this package. The api package is intended
// for custom views, validators and listeners, or for contributors extending
// the engine itself.
//
// # Attributes and parameters
//
// Scopes (flow, view, conversation, request), flow input and flow output are
// all AttributeMaps. A simulated request carries a ParameterMap holding plain
// values, multi-valued parameters and uploaded files; the _eventId parameter
// names the user event being submitted.
//
// # Definitions
//
// FlowDefinition, StateDefinition and TransitionDefinition describe an
// assembled flow graph. FlowSession is one running instance of a definition;
// sub-flows push additional sessions on top of their parent.
//
// # Messages
//
// Views and validators report problems through a MessageContext. Messages
// are built with MessageBuilder and resolved against a MessageSource for the
// locale of the request. StaticMessageSource falls back from a locale to its
// parents, e.g. de-CH to de to und.
//
// # Observability
//
// FlowExecutionListener receives a callback at every lifecycle point of an
// execution. Ready-made implementations log with zap (LoggingListener),
// count with Prometheus (MetricsListener) and trace with OpenTelemetry
// (TracingListener). Combine several with NewCompositeListener.
package api
