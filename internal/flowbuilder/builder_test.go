package flowbuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/flowmodel"
	"github.com/petrijr/flowtest/pkg/api"
)

type order struct {
	Amount int
	Items  []string
}

type idView struct {
	id  string
	ctx api.RequestContext
}

func (v *idView) Render() error {
	v.ctx.ExternalContext().ResponseWriter().WriteString(v.id)
	return nil
}
func (v *idView) UserEventQueued() bool {
	return v.ctx.RequestParameters().Contains(api.EventIDParameter)
}
func (v *idView) ProcessUserEvent()  {}
func (v *idView) HasFlowEvent() bool { return true }
func (v *idView) FlowEvent() *api.Event {
	return api.NewEvent(v, v.ctx.RequestParameters().Get(api.EventIDParameter))
}

func services(t *testing.T, logger *zap.Logger) Services {
	return Services{
		Logger: logger,
		ViewFactoryCreator: ViewFactoryCreatorFunc(func(viewID api.Expression) engine.ViewFactory {
			return engine.ViewFactoryFunc(func(ctx api.RequestContext) (api.View, error) {
				id, err := viewID.Value(ctx)
				if err != nil {
					return nil, err
				}
				return &idView{id: id.(string), ctx: ctx}, nil
			})
		}),
	}
}

const orderFlow = `<flow start-state="enter">
	<attribute name="secured" value="true" type="boolean"/>
	<var name="order" class="orderBean"/>
	<input name="limit" type="int" required="true"/>
	<input name="label" value="flowScope.title"/>
	<on-start>
		<set name="flowScope.started" value="'yes'"/>
	</on-start>
	<view-state id="enter" view="#{flowScope.title}" model="order">
		<transition on="next" to="check" validate="false">
			<evaluate expression="flowScope.limit > 5"/>
		</transition>
		<transition on="back" bind="false"/>
	</view-state>
	<decision-state id="check">
		<if test="flowScope.limit > 10" then="large" else="compute"/>
	</decision-state>
	<action-state id="compute">
		<evaluate expression="'done'" result="flowScope.result"/>
		<transition on="done" to="small"/>
	</action-state>
	<end-state id="large" view="externalRedirect:http://example.com"/>
	<end-state id="small">
		<output name="result" value="flowScope.result"/>
	</end-state>
	<output name="limit"/>
</flow>`

func buildOrderFlow(t *testing.T, logger *zap.Logger) *engine.Flow {
	t.Helper()
	m, err := flowmodel.ParseXML(strings.NewReader(orderFlow))
	require.NoError(t, err)
	m.ID = "orderFlow"
	require.NoError(t, m.Validate())

	appCtx := engine.NewApplicationContext("orderFlow", nil)
	require.NoError(t, appCtx.RegisterBean("orderBean", &order{Amount: 7}))

	f, err := Build(m, appCtx, services(t, logger))
	require.NoError(t, err)
	return f
}

func start(t *testing.T, f *engine.Flow, input map[string]any) (*engine.FlowExecution, *api.MockExternalContext, error) {
	t.Helper()
	exec := engine.NewFlowExecutionFactory(engine.StaticListenerLoader{}, zap.NewNop()).CreateFlowExecution(f)
	ext := api.NewMockExternalContext()
	err := exec.Start(context.Background(), api.NewAttributeMap(input), ext)
	return exec, ext, err
}

func TestBuildAssemblesStatesAndAttributes(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := buildOrderFlow(t, zap.New(core))

	assert.Equal(t, []string{"enter", "check", "compute", "large", "small"}, f.StateIDs())
	assert.Equal(t, "enter", f.StartStateID())
	assert.Equal(t, []string{"large", "small"}, f.PossibleOutcomes())
	assert.Equal(t, true, f.Attributes().Get("secured"))

	enter := f.State("enter").(*engine.ViewState)
	assert.Equal(t, "order", enter.Attributes().GetString(AttrModel))
	require.Len(t, enter.Transitions(), 2)
	next := enter.Transitions()[0]
	assert.Equal(t, false, next.Attributes().Get(AttrValidate))
	assert.False(t, next.Attributes().Contains(AttrBind))
	assert.Len(t, next.Actions, 1)
	back := enter.Transitions()[1]
	assert.Empty(t, back.TargetStateID())
	assert.Equal(t, false, back.Attributes().Get(AttrBind))

	entries := logs.FilterMessage("flow_assembled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "orderFlow", entries[0].ContextMap()["flow"])
}

func TestBuiltFlowRuns(t *testing.T) {
	f := buildOrderFlow(t, zap.NewNop())

	exec, ext, err := start(t, f, map[string]any{"limit": "8", "label": "Orders"})
	require.NoError(t, err)
	assert.Equal(t, "Orders", ext.ResponseText())

	scope := exec.ActiveSession().Scope()
	assert.Equal(t, 8, scope.Get("limit"))
	assert.Equal(t, "yes", scope.Get("started"))
	assert.Equal(t, &order{}, scope.Get("order"))

	resume := api.NewMockExternalContext()
	resume.SetEventID("next")
	require.NoError(t, exec.Resume(context.Background(), resume))

	require.True(t, exec.HasEnded())
	assert.Equal(t, "small", exec.Outcome().ID)
	assert.Equal(t, "done", exec.Outcome().Output.Get("result"))
	assert.Equal(t, 8, exec.Outcome().Output.Get("limit"))
}

func TestBuiltFlowDecisionRedirects(t *testing.T) {
	f := buildOrderFlow(t, zap.NewNop())

	exec, _, err := start(t, f, map[string]any{"limit": 20, "label": "big"})
	require.NoError(t, err)

	resume := api.NewMockExternalContext()
	resume.SetEventID("next")
	require.NoError(t, exec.Resume(context.Background(), resume))
	assert.Equal(t, "large", exec.Outcome().ID)
	assert.Equal(t, "http://example.com", resume.ExternalRedirectURL())
}

func TestBuiltFlowCriteriaBlockTransition(t *testing.T) {
	f := buildOrderFlow(t, zap.NewNop())

	exec, _, err := start(t, f, map[string]any{"limit": 3, "label": "few"})
	require.NoError(t, err)

	resume := api.NewMockExternalContext()
	resume.SetEventID("next")
	require.NoError(t, exec.Resume(context.Background(), resume))
	assert.True(t, exec.IsActive())
	assert.Equal(t, "enter", exec.ActiveSession().State().ID())
	assert.Equal(t, "few", resume.ResponseText())
}

func TestBuiltFlowRequiresInput(t *testing.T) {
	f := buildOrderFlow(t, zap.NewNop())

	_, _, err := start(t, f, nil)
	assert.ErrorContains(t, err, `required attribute "limit" is missing`)
}

func TestBuildErrors(t *testing.T) {
	appCtx := engine.NewApplicationContext("broken", nil)

	unknownBean := &flowmodel.FlowModel{ID: "broken", Vars: []flowmodel.VarModel{{Name: "x", Class: "missing"}},
		States: []flowmodel.StateModel{{Kind: flowmodel.KindEndState, ID: "end"}}}
	_, err := Build(unknownBean, appCtx, Services{})
	assert.ErrorContains(t, err, `no bean named "missing"`)

	noViews := &flowmodel.FlowModel{ID: "broken", States: []flowmodel.StateModel{{Kind: flowmodel.KindViewState, ID: "v"}}}
	_, err = Build(noViews, appCtx, Services{})
	assert.ErrorIs(t, err, ErrNoViewFactoryCreator)

	badType := &flowmodel.FlowModel{ID: "broken", Inputs: []flowmodel.MappingModel{{Name: "a", Type: "complex"}},
		States: []flowmodel.StateModel{{Kind: flowmodel.KindEndState, ID: "end"}}}
	_, err = Build(badType, appCtx, Services{})
	assert.ErrorContains(t, err, `unsupported type "complex"`)
}

func TestConverter(t *testing.T) {
	for typeName, want := range map[string]any{
		"java.lang.Integer": 42,
		"long":              int64(42),
		"double":            float64(42),
		"string":            "42",
	} {
		conv, err := converter(typeName)
		require.NoError(t, err, typeName)
		got, err := conv("42")
		require.NoError(t, err, typeName)
		assert.Equal(t, want, got, typeName)
	}

	conv, err := converter("boolean")
	require.NoError(t, err)
	_, err = conv("maybe")
	assert.Error(t, err)
}
