package flowtest

import (
	"sort"

	"golang.org/x/text/language"
)

// MessagePair is one message key and its text.
type MessagePair struct {
	Key   string
	Value string
}

// Messages is the set of message pairs of one locale.
type Messages struct {
	pairs map[MessagePair]struct{}
}

func newMessages() *Messages {
	return &Messages{pairs: make(map[MessagePair]struct{})}
}

// AddMessage adds a pair and returns m for chaining.
func (m *Messages) AddMessage(key, value string) *Messages {
	m.pairs[MessagePair{Key: key, Value: value}] = struct{}{}
	return m
}

// Pairs lists the pairs sorted by key, then value.
func (m *Messages) Pairs() []MessagePair {
	out := make([]MessagePair, 0, len(m.pairs))
	for p := range m.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Len returns the number of pairs.
func (m *Messages) Len() int { return len(m.pairs) }

// MessageContainer holds messages by locale. They are registered with the
// message source of a flow when it is built.
type MessageContainer struct {
	messages map[language.Tag]*Messages
}

func NewMessageContainer() *MessageContainer {
	return &MessageContainer{messages: make(map[language.Tag]*Messages)}
}

// Messages returns the messages of locale, registering an empty set if
// there are none yet.
func (c *MessageContainer) Messages(locale language.Tag) *Messages {
	m, ok := c.messages[locale]
	if !ok {
		m = newMessages()
		c.messages[locale] = m
	}
	return m
}

func (c *MessageContainer) AddMessage(locale language.Tag, key, value string) {
	c.Messages(locale).AddMessage(key, value)
}

func (c *MessageContainer) AddMessages(locale language.Tag, values map[string]string) {
	m := c.Messages(locale)
	for k, v := range values {
		m.AddMessage(k, v)
	}
}

// AllMessages returns a copy of the locale map. The *Messages values are
// shared.
func (c *MessageContainer) AllMessages() map[language.Tag]*Messages {
	out := make(map[language.Tag]*Messages, len(c.messages))
	for k, v := range c.messages {
		out[k] = v
	}
	return out
}
