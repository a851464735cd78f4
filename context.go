package flowtest

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/petrijr/flowtest/pkg/api"
)

// FlowTestContext collects what a flow is built against: beans, stub
// sub-flows and messages. It is consumed when the flow is built.
type FlowTestContext struct {
	beans     map[string]any
	subFlows  []FlowDefinitionHolder
	messages  *MessageContainer
	validator api.Validator
}

// NewFlowTestContext creates a context holding beans, each named by
// BeanName.
func NewFlowTestContext(beans ...any) *FlowTestContext {
	c := &FlowTestContext{
		beans:    make(map[string]any),
		messages: NewMessageContainer(),
	}
	for _, b := range beans {
		c.AddBean(b)
	}
	return c
}

// AddBean registers bean under the name given by BeanName.
func (c *FlowTestContext) AddBean(bean any) {
	c.AddNamedBean(BeanName(bean), bean)
}

// AddNamedBean registers bean under name, replacing an earlier bean.
func (c *FlowTestContext) AddNamedBean(name string, bean any) {
	c.beans[name] = bean
}

// ContainsBean reports whether bean is registered under any name.
// Uncomparable beans are compared with reflect.DeepEqual.
func (c *FlowTestContext) ContainsBean(bean any) bool {
	byIdentity := bean == nil || reflect.TypeOf(bean).Comparable()
	for _, b := range c.beans {
		if byIdentity && b == bean || !byIdentity && reflect.DeepEqual(b, bean) {
			return true
		}
	}
	return false
}

func (c *FlowTestContext) ContainsBeanWithName(name string) bool {
	_, ok := c.beans[name]
	return ok
}

// Beans returns a copy of the registered beans by name.
func (c *FlowTestContext) Beans() map[string]any {
	out := make(map[string]any, len(c.beans))
	for k, v := range c.beans {
		out[k] = v
	}
	return out
}

// AddSubFlow registers a sub-flow, usually a *StubFlow.
func (c *FlowTestContext) AddSubFlow(holder FlowDefinitionHolder) {
	c.subFlows = append(c.subFlows, holder)
}

// SubFlows returns a copy of the registered sub-flows.
func (c *FlowTestContext) SubFlows() []FlowDefinitionHolder {
	return append([]FlowDefinitionHolder(nil), c.subFlows...)
}

func (c *FlowTestContext) Messages(locale language.Tag) *Messages {
	return c.messages.Messages(locale)
}

func (c *FlowTestContext) AddMessage(locale language.Tag, key, value string) {
	c.messages.AddMessage(locale, key, value)
}

func (c *FlowTestContext) AddMessages(locale language.Tag, values map[string]string) {
	c.messages.AddMessages(locale, values)
}

func (c *FlowTestContext) AllMessages() map[language.Tag]*Messages {
	return c.messages.AllMessages()
}

// SetValidator sets a validator run by mock views for every bound model,
// before any conventional validator.
func (c *FlowTestContext) SetValidator(v api.Validator) {
	c.validator = v
}

func (c *FlowTestContext) Validator() api.Validator { return c.validator }

// BeanName derives the conventional name of a bean from its type:
// pointers are dereferenced, a named type T becomes "t" (TestBean becomes
// testBean, URL stays URL), an unnamed slice or array of T becomes
// "tList" and an unnamed map becomes "map".
func BeanName(bean any) string {
	if bean == nil {
		return "nil"
	}
	return typeVariableName(reflect.TypeOf(bean))
}

func typeVariableName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		if i := strings.IndexByte(name, '['); i > 0 {
			name = name[:i]
		}
		return decapitalize(name)
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return typeVariableName(t.Elem()) + "List"
	case reflect.Map:
		return "map"
	default:
		return t.Kind().String()
	}
}

// decapitalize lower-cases the first letter unless the first two letters
// are both upper case.
func decapitalize(name string) string {
	first, size := utf8.DecodeRuneInString(name)
	if size == 0 {
		return name
	}
	if second, _ := utf8.DecodeRuneInString(name[size:]); unicode.IsUpper(first) && unicode.IsUpper(second) {
		return name
	}
	return string(unicode.ToLower(first)) + name[size:]
}
