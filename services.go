package flowtest

import (
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/petrijr/flowtest/internal/engine"
	"github.com/petrijr/flowtest/internal/flowbuilder"
	"github.com/petrijr/flowtest/pkg/api"
)

// MockViewFactoryCreator creates factories producing MockViews. The view
// id of a state defaults to the state id.
type MockViewFactoryCreator struct {
	// Validator runs for every model bound by the created views.
	Validator api.Validator
	Logger    *zap.Logger
}

var _ flowbuilder.ViewFactoryCreator = (*MockViewFactoryCreator)(nil)

func (c *MockViewFactoryCreator) CreateViewFactory(viewID api.Expression) engine.ViewFactory {
	return engine.ViewFactoryFunc(func(ctx api.RequestContext) (api.View, error) {
		id, err := viewID.Value(ctx)
		if err != nil {
			return nil, err
		}
		return NewMockView(cast.ToString(id), ctx, c.Validator, c.Logger), nil
	})
}

// builderServices returns the services flows are assembled with.
func builderServices(tc *FlowTestContext, logger *zap.Logger) flowbuilder.Services {
	vfc := &MockViewFactoryCreator{Logger: logger}
	if tc != nil {
		vfc.Validator = tc.Validator()
	}
	return flowbuilder.Services{ViewFactoryCreator: vfc, Logger: logger}
}
