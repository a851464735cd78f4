package flowtest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/flowbuilder"
	"github.com/petrijr/flowtest/internal/flowmodel"
)

// MockFlowBuilder builds the flow under test.
type MockFlowBuilder interface {
	BuildFlow() (*Flow, error)
}

// FlowBuilderFunc adapts a function to a MockFlowBuilder, e.g. for flows
// assembled in code.
type FlowBuilderFunc func() (*Flow, error)

func (f FlowBuilderFunc) BuildFlow() (*Flow, error) { return f() }

// ExternalizedFlowBuilder builds a flow from a flow document and the
// documents of its parents:
//
//	b := flowtest.NewXMLFlowBuilder(flowtest.NewXMLConfiguration("simpleFlows/standaloneFlow.xml")).
//	    WithContext(flowtest.NewFlowTestContext(&SomeService{}))
//	tester, err := flowtest.NewMockFlowTester(b)
//
// The flow is built once; later calls return the same *Flow. A failed build
// is not cached.
type ExternalizedFlowBuilder struct {
	conf    *DocumentConfiguration
	format  flowmodel.Format
	context *FlowTestContext
	logger  *zap.Logger

	models *flowmodel.Registry
	flow   *engine.Flow
}

var _ MockFlowBuilder = (*ExternalizedFlowBuilder)(nil)

// NewFlowBuilder builds documents in the format recorded by conf.
func NewFlowBuilder(conf *DocumentConfiguration) *ExternalizedFlowBuilder {
	return &ExternalizedFlowBuilder{
		conf:   conf,
		format: conf.Format(),
		models: flowmodel.NewRegistry(),
	}
}

// NewXMLFlowBuilder builds XML documents.
func NewXMLFlowBuilder(conf *DocumentConfiguration) *ExternalizedFlowBuilder {
	b := NewFlowBuilder(conf)
	b.format = flowmodel.FormatXML
	return b
}

// NewYAMLFlowBuilder builds YAML documents.
func NewYAMLFlowBuilder(conf *DocumentConfiguration) *ExternalizedFlowBuilder {
	b := NewFlowBuilder(conf)
	b.format = flowmodel.FormatYAML
	return b
}

// WithContext sets the beans, sub-flows and messages the flow is built
// against. A nil context builds the flow without any.
func (b *ExternalizedFlowBuilder) WithContext(tc *FlowTestContext) *ExternalizedFlowBuilder {
	b.context = tc
	return b
}

func (b *ExternalizedFlowBuilder) WithLogger(logger *zap.Logger) *ExternalizedFlowBuilder {
	b.logger = logger
	return b
}

// Configuration returns the document configuration the builder reads.
func (b *ExternalizedFlowBuilder) Configuration() *DocumentConfiguration { return b.conf }

func (b *ExternalizedFlowBuilder) BuildFlow() (*Flow, error) {
	if b.flow != nil {
		return b.flow, nil
	}
	f, err := b.build()
	if err != nil {
		return nil, err
	}
	b.flow = f
	return f, nil
}

func (b *ExternalizedFlowBuilder) build() (*engine.Flow, error) {
	logger := b.logger
	if logger == nil {
		logger = zap.L()
	}

	resource, err := b.conf.Resource()
	if err != nil {
		return nil, err
	}
	appCtx := engine.NewApplicationContext(resource.ID, nil)
	if err := b.registerBeans(appCtx); err != nil {
		return nil, err
	}
	if err := b.registerSubFlows(appCtx.Registry()); err != nil {
		return nil, err
	}
	b.registerMessages(appCtx)

	if err := b.registerParents(); err != nil {
		return nil, err
	}
	m, err := b.load(resource)
	if err != nil {
		return nil, err
	}
	if err := b.models.Register(m); err != nil {
		return nil, err
	}
	if err := b.models.Resolve(m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	f, err := flowbuilder.Build(m, appCtx, builderServices(b.context, logger))
	if err != nil {
		return nil, fmt.Errorf("build flow %q from %s: %w", resource.ID, resource.Path.Description(), err)
	}
	logger.Debug("flow_built",
		zap.String("flow", f.ID()),
		zap.String("resource", resource.Path.Description()),
		zap.Strings("beans", appCtx.BeanNames()),
		zap.Strings("subflows", appCtx.Registry().IDs()),
	)
	return f, nil
}

func (b *ExternalizedFlowBuilder) registerBeans(appCtx *engine.ApplicationContext) error {
	if b.context == nil {
		return nil
	}
	for name, bean := range b.context.Beans() {
		if err := appCtx.RegisterBean(name, bean); err != nil {
			return err
		}
	}
	return nil
}

func (b *ExternalizedFlowBuilder) registerSubFlows(registry *engine.FlowRegistry) error {
	if b.context == nil {
		return nil
	}
	for _, h := range b.context.SubFlows() {
		if err := registry.Register(h); err != nil {
			return err
		}
	}
	return nil
}

func (b *ExternalizedFlowBuilder) registerMessages(appCtx *engine.ApplicationContext) {
	if b.context == nil {
		return
	}
	source := appCtx.MessageSource()
	for locale, messages := range b.context.AllMessages() {
		for _, p := range messages.Pairs() {
			source.AddMessage(p.Key, locale, p.Value)
		}
	}
}

// registerParents loads the parent documents so that the main document
// can be merged with them.
func (b *ExternalizedFlowBuilder) registerParents() error {
	parents, err := b.conf.FlowResources()
	if err != nil {
		return err
	}
	for _, r := range parents {
		m, err := b.load(r)
		if err != nil {
			return err
		}
		if err := b.models.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *ExternalizedFlowBuilder) load(r *Resource) (*flowmodel.FlowModel, error) {
	rc, err := r.Path.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.Path.Description(), err)
	}
	defer rc.Close()

	m, err := flowmodel.Parse(rc, b.format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.Path.Description(), err)
	}
	m.ID = r.ID
	return m, nil
}

// HolderFor registers the flow built by b as the sub-flow id, next to or
// instead of stub flows.
func HolderFor(id string, b MockFlowBuilder) FlowDefinitionHolder {
	return builderHolder{id: id, builder: b}
}

type builderHolder struct {
	id      string
	builder MockFlowBuilder
}

func (h builderHolder) FlowDefinitionID() string { return h.id }

func (h builderHolder) FlowDefinition() (*engine.Flow, error) {
	return h.builder.BuildFlow()
}
