package el

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/petrijr/flowtest/pkg/api"
)

// Variables returns the names visible to an expression evaluated against a
// request context. Later sources win: beans, conversation scope, flow
// scope, view scope, request scope and finally the implicit objects.
func Variables(ctx api.RequestContext) map[string]any {
	vars := make(map[string]any)

	if flow := ctx.ActiveFlow(); flow != nil && flow.Beans() != nil {
		beans := flow.Beans()
		for _, name := range beans.BeanNames() {
			if b, ok := beans.Bean(name); ok {
				vars[name] = b
			}
		}
	}
	for _, scope := range []api.AttributeMap{
		ctx.ConversationScope(),
		ctx.FlowScope(),
		ctx.ViewScope(),
		ctx.RequestScope(),
	} {
		for k, v := range scope {
			vars[k] = v
		}
	}

	vars["flowScope"] = scopeValue(ctx.FlowScope())
	vars["viewScope"] = scopeValue(ctx.ViewScope())
	vars["conversationScope"] = scopeValue(ctx.ConversationScope())
	vars["requestScope"] = scopeValue(ctx.RequestScope())
	vars["requestParameters"] = ctx.RequestParameters().AsMap()
	vars["messageContext"] = ctx.MessageContext()
	vars["externalContext"] = ctx.ExternalContext()
	vars["flowRequestContext"] = ctx
	if ev := ctx.CurrentEvent(); ev != nil {
		vars["currentEvent"] = ev
	} else {
		vars["currentEvent"] = nil
	}
	return vars
}

// scopeValue hands goja the scope's storage as a plain map so that
// assignments through flowScope.x reach the scope. A missing scope is an
// empty, detached map.
func scopeValue(scope api.AttributeMap) map[string]any {
	if scope == nil {
		return map[string]any{}
	}
	return map[string]any(scope)
}

func newRuntime(context any) (*goja.Runtime, error) {
	var vars map[string]any
	switch ctx := context.(type) {
	case api.RequestContext:
		vars = Variables(ctx)
	case api.AttributeMap:
		vars = map[string]any(ctx)
	case map[string]any:
		vars = ctx
	case nil:
		vars = map[string]any{}
	default:
		return nil, fmt.Errorf("unsupported evaluation context %T", context)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	for k, v := range vars {
		if v == nil {
			if err := vm.Set(k, goja.Null()); err != nil {
				return nil, err
			}
			continue
		}
		if err := vm.Set(k, v); err != nil {
			return nil, err
		}
	}
	return vm, nil
}
