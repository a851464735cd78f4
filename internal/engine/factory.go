package engine

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petrijr/flowtest/pkg/api"
)

// ListenerLoader selects the listeners attached to executions of a flow.
type ListenerLoader interface {
	ListenersFor(flow *Flow) []api.FlowExecutionListener
}

// StaticListenerLoader attaches the same listeners to every execution.
type StaticListenerLoader struct {
	Listeners []api.FlowExecutionListener
}

func (l StaticListenerLoader) ListenersFor(*Flow) []api.FlowExecutionListener {
	return l.Listeners
}

// FlowExecutionFactory creates executions with freshly generated keys.
type FlowExecutionFactory struct {
	loader ListenerLoader
	logger *zap.Logger
}

func NewFlowExecutionFactory(loader ListenerLoader, logger *zap.Logger) *FlowExecutionFactory {
	if loader == nil {
		loader = StaticListenerLoader{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlowExecutionFactory{loader: loader, logger: logger}
}

// CreateFlowExecution returns a new, not yet started execution of flow.
func (f *FlowExecutionFactory) CreateFlowExecution(flow *Flow) *FlowExecution {
	key := uuid.NewString()
	listener := api.NewCompositeListener(f.loader.ListenersFor(flow)...)
	return newFlowExecution(key, flow, listener, f.logger.With(zap.String("execution", key)))
}
