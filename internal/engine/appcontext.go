package engine

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/text/language"

	"github.com/petrijr/flowtest/pkg/api"
)

// ApplicationContext holds the collaborators a flow is built against: named
// beans, the message source and the registry used to look up sub-flows.
type ApplicationContext struct {
	id string

	mu       sync.RWMutex
	beans    map[string]any
	messages *api.StaticMessageSource
	registry *FlowRegistry
}

var _ api.BeanLocator = (*ApplicationContext)(nil)

// NewApplicationContext creates an empty context. parent, if non-nil,
// backs the flow registry.
func NewApplicationContext(id string, parent *FlowRegistry) *ApplicationContext {
	return &ApplicationContext{
		id:       id,
		beans:    make(map[string]any),
		messages: api.NewStaticMessageSource(),
		registry: NewFlowRegistry(parent),
	}
}

func (c *ApplicationContext) ID() string { return c.id }

// RegisterBean stores bean under name, replacing any previous bean.
func (c *ApplicationContext) RegisterBean(name string, bean any) error {
	if name == "" {
		return fmt.Errorf("bean name must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beans[name] = bean
	return nil
}

func (c *ApplicationContext) Bean(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.beans[name]
	return b, ok
}

func (c *ApplicationContext) ContainsBean(name string) bool {
	_, ok := c.Bean(name)
	return ok
}

func (c *ApplicationContext) BeanNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.beans))
	for name := range c.beans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BeanType returns the dynamic type of the named bean with pointers
// removed.
func (c *ApplicationContext) BeanType(name string) (reflect.Type, bool) {
	b, ok := c.Bean(name)
	if !ok || b == nil {
		return nil, false
	}
	t := reflect.TypeOf(b)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, true
}

func (c *ApplicationContext) MessageSource() *api.StaticMessageSource { return c.messages }

// Message resolves a message code through the context's message source.
func (c *ApplicationContext) Message(code string, args []any, locale language.Tag) (string, error) {
	return c.messages.Message(code, args, locale)
}

func (c *ApplicationContext) Registry() *FlowRegistry { return c.registry }
