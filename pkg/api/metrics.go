package api

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsNamespace prefixes every metric of a MetricsListener unless
// another namespace is given.
const DefaultMetricsNamespace = "flowtest"

// MetricsListener counts flow lifecycle events in Prometheus metrics and
// tracks which states of each flow have been entered.
//
// Metrics (namespace "flowtest" by default):
//
//	sessions_started_total{flow}
//	sessions_ended_total{flow,outcome}
//	state_entries_total{flow,state}
//	events_total{flow,event}
//	view_renders_total{flow,state}
//	exceptions_total{flow}
type MetricsListener struct {
	NoopListener

	sessionsStarted *prometheus.CounterVec
	sessionsEnded   *prometheus.CounterVec
	stateEntries    *prometheus.CounterVec
	events          *prometheus.CounterVec
	viewRenders     *prometheus.CounterVec
	exceptions      *prometheus.CounterVec

	mu       sync.Mutex
	coverage map[string]map[string]struct{}
}

// NewMetricsListener registers the listener's collectors with registry. A nil
// registry means prometheus.DefaultRegisterer; an empty namespace means
// DefaultMetricsNamespace. Collectors already registered under the same
// names are shared, so listeners created for the same registry count into
// the same series. State coverage is kept per listener.
func NewMetricsListener(registry prometheus.Registerer, namespace string) (*MetricsListener, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}

	m := &MetricsListener{coverage: make(map[string]map[string]struct{})}
	for _, c := range []struct {
		dst    **prometheus.CounterVec
		name   string
		help   string
		labels []string
	}{
		{&m.sessionsStarted, "sessions_started_total", "Flow sessions started, by flow", []string{"flow"}},
		{&m.sessionsEnded, "sessions_ended_total", "Flow sessions ended, by flow and outcome", []string{"flow", "outcome"}},
		{&m.stateEntries, "state_entries_total", "States entered, by flow and state", []string{"flow", "state"}},
		{&m.events, "events_total", "Events signaled, by flow and event id", []string{"flow", "event"}},
		{&m.viewRenders, "view_renders_total", "Views rendered, by flow and view state", []string{"flow", "state"}},
		{&m.exceptions, "exceptions_total", "Errors raised while executing flows, by flow", []string{"flow"}},
	} {
		vec, err := registerCounterVec(registry, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      c.name,
			Help:      c.help,
		}, c.labels)
		if err != nil {
			return nil, err
		}
		*c.dst = vec
	}
	return m, nil
}

func registerCounterVec(registry prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	err := registry.Register(vec)
	if err == nil {
		return vec, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("register metric %s: %w", prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name), err)
}

func (m *MetricsListener) SessionStarted(_ RequestContext, s FlowSession) {
	m.sessionsStarted.WithLabelValues(s.Definition().ID()).Inc()
}

func (m *MetricsListener) SessionEnded(_ RequestContext, s FlowSession, outcome string, _ AttributeMap) {
	m.sessionsEnded.WithLabelValues(s.Definition().ID(), outcome).Inc()
}

func (m *MetricsListener) StateEntered(_ RequestContext, _ StateDefinition, state StateDefinition) {
	flow := state.Owner().ID()
	m.stateEntries.WithLabelValues(flow, state.ID()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	states, ok := m.coverage[flow]
	if !ok {
		states = make(map[string]struct{})
		m.coverage[flow] = states
	}
	states[state.ID()] = struct{}{}
}

func (m *MetricsListener) EventSignaled(ctx RequestContext, event *Event) {
	m.events.WithLabelValues(flowID(ctx), event.ID).Inc()
}

func (m *MetricsListener) ViewRendered(_ RequestContext, _ View, state StateDefinition) {
	m.viewRenders.WithLabelValues(state.Owner().ID(), state.ID()).Inc()
}

func (m *MetricsListener) ExceptionThrown(ctx RequestContext, _ error) {
	m.exceptions.WithLabelValues(flowID(ctx)).Inc()
}

// StateCoverage returns the sorted ids of the states of flowID that have
// been entered at least once.
func (m *MetricsListener) StateCoverage(flowID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.coverage[flowID]))
	for id := range m.coverage[flowID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
