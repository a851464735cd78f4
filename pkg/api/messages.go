package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// ErrNoSuchMessage is returned when a message code cannot be resolved for a
// locale or any of its parents.
var ErrNoSuchMessage = errors.New("no such message")

// Severity classifies a Message.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "Severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// Message is a resolved, user-facing message.
type Message struct {
	Source   string
	Text     string
	Severity Severity
}

func (m Message) String() string {
	if m.Source == "" {
		return fmt.Sprintf("[%s] %s", m.Severity, m.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", m.Severity, m.Source, m.Text)
}

// MessageSource resolves message codes for a locale.
type MessageSource interface {
	Message(code string, args []any, locale language.Tag) (string, error)
}

// MessageResolver turns a pending message into a Message once the message
// source and locale of the request are known.
type MessageResolver interface {
	ResolveMessage(source MessageSource, locale language.Tag) Message
}

// MessageBuilder assembles a MessageResolver fluently:
//
//	api.NewMessageBuilder().Error().Source("amount").Code("amount.tooLow").Arg(-1).Build()
type MessageBuilder struct {
	source      string
	severity    Severity
	codes       []string
	args        []any
	defaultText string
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{severity: SeverityInfo}
}

func (b *MessageBuilder) Info() *MessageBuilder    { b.severity = SeverityInfo; return b }
func (b *MessageBuilder) Warning() *MessageBuilder { b.severity = SeverityWarning; return b }
func (b *MessageBuilder) Error() *MessageBuilder   { b.severity = SeverityError; return b }
func (b *MessageBuilder) Fatal() *MessageBuilder   { b.severity = SeverityFatal; return b }

func (b *MessageBuilder) Source(source string) *MessageBuilder {
	b.source = source
	return b
}

// Code adds a message code; codes are tried in the order they were added.
func (b *MessageBuilder) Code(code string) *MessageBuilder {
	b.codes = append(b.codes, code)
	return b
}

func (b *MessageBuilder) Arg(arg any) *MessageBuilder {
	b.args = append(b.args, arg)
	return b
}

func (b *MessageBuilder) DefaultText(text string) *MessageBuilder {
	b.defaultText = text
	return b
}

func (b *MessageBuilder) Build() MessageResolver {
	return &builtMessage{
		source:      b.source,
		severity:    b.severity,
		codes:       append([]string(nil), b.codes...),
		args:        append([]any(nil), b.args...),
		defaultText: b.defaultText,
	}
}

type builtMessage struct {
	source      string
	severity    Severity
	codes       []string
	args        []any
	defaultText string
}

func (m *builtMessage) ResolveMessage(src MessageSource, locale language.Tag) Message {
	text := m.defaultText
	resolved := false
	if src != nil {
		for _, code := range m.codes {
			if t, err := src.Message(code, m.args, locale); err == nil {
				text = t
				resolved = true
				break
			}
		}
	}
	if !resolved && text == "" && len(m.codes) > 0 {
		text = m.codes[0]
	}
	return Message{Source: m.source, Text: text, Severity: m.severity}
}

// StaticMessageSource is a programmatically filled MessageSource. Lookups
// fall back from a locale to its parents and finally to language.Und.
type StaticMessageSource struct {
	mu       sync.RWMutex
	messages map[language.Tag]map[string]string
}

var _ MessageSource = (*StaticMessageSource)(nil)

func NewStaticMessageSource() *StaticMessageSource {
	return &StaticMessageSource{messages: make(map[language.Tag]map[string]string)}
}

// AddMessage registers text for code in locale.
func (s *StaticMessageSource) AddMessage(code string, locale language.Tag, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCode, ok := s.messages[locale]
	if !ok {
		byCode = make(map[string]string)
		s.messages[locale] = byCode
	}
	byCode[code] = text
}

func (s *StaticMessageSource) Message(code string, args []any, locale language.Tag) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for tag := locale; ; tag = tag.Parent() {
		if text, ok := s.messages[tag][code]; ok {
			return formatMessage(text, args), nil
		}
		if tag == language.Und {
			break
		}
	}
	return "", fmt.Errorf("%w: code %q for locale %q", ErrNoSuchMessage, code, locale)
}

// formatMessage replaces {0}, {1}, ... with the given arguments.
func formatMessage(text string, args []any) string {
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(args))
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(a))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// MessageContext collects the messages produced while handling a request.
type MessageContext interface {
	AddMessage(resolver MessageResolver)
	AllMessages() []Message
	MessagesBySource(source string) []Message
	HasErrorMessages() bool
	ClearMessages()
}

// DefaultMessageContext resolves messages eagerly against a MessageSource.
type DefaultMessageContext struct {
	source   MessageSource
	locale   language.Tag
	messages []Message
}

var _ MessageContext = (*DefaultMessageContext)(nil)

func NewDefaultMessageContext(source MessageSource, locale language.Tag) *DefaultMessageContext {
	return &DefaultMessageContext{source: source, locale: locale}
}

func (c *DefaultMessageContext) AddMessage(resolver MessageResolver) {
	c.messages = append(c.messages, resolver.ResolveMessage(c.source, c.locale))
}

// AllMessages returns a copy of the collected messages in insertion order.
func (c *DefaultMessageContext) AllMessages() []Message {
	return append([]Message(nil), c.messages...)
}

func (c *DefaultMessageContext) MessagesBySource(source string) []Message {
	var out []Message
	for _, m := range c.messages {
		if m.Source == source {
			out = append(out, m)
		}
	}
	return out
}

func (c *DefaultMessageContext) HasErrorMessages() bool {
	for _, m := range c.messages {
		if m.Severity >= SeverityError {
			return true
		}
	}
	return false
}

func (c *DefaultMessageContext) ClearMessages() {
	c.messages = nil
}
