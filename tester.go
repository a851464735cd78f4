package flowtest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/persistence"
	"github.com/petrijr/flowtest/pkg/api"
)

// Precondition messages of the tester.
const (
	msgNotStarted    = "Flow must be started before assertions can be made."
	msgNoEventID     = "An event ID must be set to resume the flow"
	msgNotEnded      = "Flow Execution must have ended to assert the outcome"
	msgNotActive     = "Flow Execution must be active to assert current events"
	msgNoSnapshotter = "Snapshots require a snapshot store"
)

// Option configures a MockFlowTester.
type Option func(*MockFlowTester)

// WithLogger sets the logger of the tester and its logging listener.
func WithLogger(logger *zap.Logger) Option {
	return func(t *MockFlowTester) { t.logger = logger }
}

// WithListeners attaches additional listeners to every execution.
func WithListeners(ls ...api.FlowExecutionListener) Option {
	return func(t *MockFlowTester) { t.listeners = append(t.listeners, ls...) }
}

// WithContext sets the context every request runs with.
func WithContext(ctx context.Context) Option {
	return func(t *MockFlowTester) { t.ctx = ctx }
}

// WithSnapshotStore records a snapshot of the execution after every start
// and resume.
func WithSnapshotStore(store persistence.SnapshotStore) Option {
	return func(t *MockFlowTester) { t.store = store }
}

// WithMetrics counts executions in registerer under namespace. The
// listener is available through Metrics. Testers given the same
// registerer share its counters.
func WithMetrics(registerer prometheus.Registerer, namespace string) Option {
	return func(t *MockFlowTester) {
		m, err := api.NewMetricsListener(registerer, namespace)
		if err != nil {
			t.optErr = multierr.Append(t.optErr, err)
			return
		}
		t.metrics = m
	}
}

// WithTracer records one span per request.
func WithTracer(tracer trace.Tracer) Option {
	return func(t *MockFlowTester) { t.listeners = append(t.listeners, api.NewTracingListener(tracer)) }
}

// WithLocale sets the locale of simulated requests. The default is
// English.
func WithLocale(tag language.Tag) Option {
	return func(t *MockFlowTester) { t.locale = &tag }
}

// MockFlowTester drives an execution of the flow under test through
// simulated requests and exposes its state for assertions:
//
//	tester, err := flowtest.NewMockFlowTester(builder)
//	err = tester.StartFlow(nil)
//	tester.SetEventID("page")
//	err = tester.ResumeFlow(map[string]any{"name": "value"})
//	state, err := tester.CurrentStateID()
//
// A tester is not safe for concurrent use.
type MockFlowTester struct {
	flow      *engine.Flow
	factory   *engine.FlowExecutionFactory
	recorder  *renderRecorder
	logger    *zap.Logger
	listeners []api.FlowExecutionListener
	metrics   *api.MetricsListener
	store     persistence.SnapshotStore
	ctx       context.Context
	locale    *language.Tag
	optErr    error

	execution *engine.FlowExecution
	context   *api.MockExternalContext
	eventID   string
	request   any
	seq       int
}

// NewMockFlowTester builds the flow of builder and returns a tester for
// it.
func NewMockFlowTester(builder MockFlowBuilder, opts ...Option) (*MockFlowTester, error) {
	flow, err := builder.BuildFlow()
	if err != nil {
		return nil, err
	}
	t := &MockFlowTester{
		flow:     flow,
		recorder: &renderRecorder{},
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.optErr != nil {
		return nil, t.optErr
	}
	if t.logger == nil {
		t.logger = zap.L()
	}

	listeners := []api.FlowExecutionListener{t.recorder, api.NewLoggingListener(t.logger)}
	if t.metrics != nil {
		listeners = append(listeners, t.metrics)
	}
	listeners = append(listeners, t.listeners...)
	t.factory = engine.NewFlowExecutionFactory(engine.StaticListenerLoader{Listeners: listeners}, t.logger)
	return t, nil
}

// Flow returns the flow under test.
func (t *MockFlowTester) Flow() *Flow { return t.flow }

// Metrics returns the listener installed by WithMetrics, or nil.
func (t *MockFlowTester) Metrics() *api.MetricsListener { return t.metrics }

// CurrentFlowExecution returns the current execution, or nil before the
// flow was started.
func (t *MockFlowTester) CurrentFlowExecution() *FlowExecution { return t.execution }

// LastRequestContext returns the external context of the last request, or
// nil if no request has been made.
func (t *MockFlowTester) LastRequestContext() *api.MockExternalContext { return t.context }

// SetEventID sets the event submitted by the following resumes. An empty
// id means no event is set, so ResumeFlow rejects it like an unset one.
func (t *MockFlowTester) SetEventID(eventID string) { t.eventID = eventID }

// SetRequest sets the native request object handed to later requests.
func (t *MockFlowTester) SetRequest(request any) { t.request = request }

// StartFlow starts a new execution with input, discarding the previous
// one. The event id is reset.
func (t *MockFlowTester) StartFlow(input map[string]any) error {
	t.newExecution()
	t.context = t.newExternalContext()
	t.eventID = ""
	if err := t.execution.Start(t.ctx, api.NewAttributeMap(input), t.context); err != nil {
		return err
	}
	return t.recordSnapshot()
}

// StartFlowAt creates a new execution paused in stateID without entering
// it: no actions run and nothing is rendered.
func (t *MockFlowTester) StartFlowAt(stateID string) error {
	t.newExecution()
	return t.execution.SetCurrentState(stateID)
}

// ResumeFlow submits the current event id together with params.
func (t *MockFlowTester) ResumeFlow(params map[string]any) error {
	if err := t.requireExecution(); err != nil {
		return err
	}
	if t.eventID == "" {
		return api.NewIllegalStateError(msgNoEventID)
	}
	t.context = t.newExternalContext()
	t.context.SetRequestParameterMap(encodeParameters(params))
	t.context.SetEventID(t.eventID)
	if err := t.execution.Resume(t.ctx, t.context); err != nil {
		return err
	}
	return t.recordSnapshot()
}

func (t *MockFlowTester) newExecution() {
	t.execution = t.factory.CreateFlowExecution(t.flow)
	t.recorder.reset()
	t.seq = 0
}

// ExecutionHasEnded reports whether the execution has ended.
func (t *MockFlowTester) ExecutionHasEnded() (bool, error) {
	if err := t.requireExecution(); err != nil {
		return false, err
	}
	return t.execution.HasEnded(), nil
}

// FlowOutcome returns the id of the end state the flow ended in.
func (t *MockFlowTester) FlowOutcome() (string, error) {
	if err := t.requireEnded(); err != nil {
		return "", err
	}
	return t.execution.Outcome().ID, nil
}

// OutputAttributes returns the output of the ended flow.
func (t *MockFlowTester) OutputAttributes() (api.AttributeMap, error) {
	if err := t.requireEnded(); err != nil {
		return nil, err
	}
	return t.execution.Outcome().Output, nil
}

// ExternalRedirectURL returns the URL the ended flow redirected to, or ""
// if it did not redirect.
func (t *MockFlowTester) ExternalRedirectURL() (string, error) {
	if err := t.requireEnded(); err != nil {
		return "", err
	}
	if t.context == nil {
		return "", nil
	}
	return t.context.ExternalRedirectURL(), nil
}

// CurrentStateID returns the state the active session is in.
func (t *MockFlowTester) CurrentStateID() (string, error) {
	if err := t.requireActive(); err != nil {
		return "", err
	}
	s := t.execution.ActiveSession().State()
	if s == nil {
		return "", nil
	}
	return s.ID(), nil
}

// Scope returns the flow scope of the active session. Changes to the map
// are visible to the flow.
func (t *MockFlowTester) Scope() (api.AttributeMap, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	return t.execution.ActiveSession().Scope(), nil
}

// FlowScope is Scope.
func (t *MockFlowTester) FlowScope() (api.AttributeMap, error) { return t.Scope() }

// ViewScope returns the view scope of the active session, which is nil
// outside view states.
func (t *MockFlowTester) ViewScope() (api.AttributeMap, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	return t.execution.ActiveSession().ViewScope(), nil
}

// ConversationScope returns the scope shared by all sessions of the
// execution.
func (t *MockFlowTester) ConversationScope() (api.AttributeMap, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	return t.execution.ConversationScope(), nil
}

// CurrentViewID returns the id of the last rendered mock view, or "" if
// no view was rendered by the current execution.
func (t *MockFlowTester) CurrentViewID() (string, error) {
	if err := t.requireExecution(); err != nil {
		return "", err
	}
	return t.recorder.viewID, nil
}

// AllMessages returns the messages present when a view was last rendered.
func (t *MockFlowTester) AllMessages() ([]api.Message, error) {
	if err := t.requireExecution(); err != nil {
		return nil, err
	}
	return append([]api.Message(nil), t.recorder.messages...), nil
}

// QueryScope evaluates a JSONPath expression, e.g. "$.beanModel.name",
// against the JSON form of the flow scope.
func (t *MockFlowTester) QueryScope(path string) (any, error) {
	scope, err := t.Scope()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(scope)
	if err != nil {
		return nil, fmt.Errorf("encode flow scope: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode flow scope: %w", err)
	}
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	return jsonpath.JsonPathLookup(doc, path)
}

func (t *MockFlowTester) requireExecution() error {
	if t.execution == nil {
		return api.NewIllegalStateError(msgNotStarted)
	}
	return nil
}

func (t *MockFlowTester) requireEnded() error {
	if err := t.requireExecution(); err != nil {
		return err
	}
	if !t.execution.HasEnded() {
		return api.NewIllegalStateError(msgNotEnded)
	}
	return nil
}

func (t *MockFlowTester) requireActive() error {
	if err := t.requireExecution(); err != nil {
		return err
	}
	if !t.execution.IsActive() {
		return api.NewIllegalStateError(msgNotActive)
	}
	return nil
}

// renderRecorder captures the messages and the view id at every view
// rendering. Each rendering replaces the previous capture.
type renderRecorder struct {
	api.NoopListener
	messages []api.Message
	viewID   string
}

func (r *renderRecorder) ViewRendering(ctx api.RequestContext, view api.View, _ api.StateDefinition) {
	r.messages = append([]api.Message(nil), ctx.MessageContext().AllMessages()...)
	if mv, ok := view.(*MockView); ok {
		r.viewID = mv.ViewID()
	}
}

func (r *renderRecorder) reset() {
	r.messages = nil
	r.viewID = ""
}
