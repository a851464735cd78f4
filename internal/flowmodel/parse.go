package flowmodel

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the syntax of a flow document.
type Format int

const (
	FormatXML Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFor derives the format from a file name: .yaml and .yml are YAML,
// anything else is XML.
func FormatFor(name string) Format {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatXML
}

// Parse decodes one document in the given format.
func Parse(r io.Reader, format Format) (*FlowModel, error) {
	switch format {
	case FormatXML:
		return ParseXML(r)
	case FormatYAML:
		return ParseYAML(r)
	default:
		return nil, fmt.Errorf("unsupported flow document format %v", format)
	}
}

// ParseXML decodes a <flow> document.
func ParseXML(r io.Reader) (*FlowModel, error) {
	var m FlowModel
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode xml flow: %w", err)
	}
	m.normalizeKinds()
	return &m, nil
}

// ParseYAML decodes a YAML flow document. State and action kinds are given
// by their kind keys.
func ParseYAML(r io.Reader) (*FlowModel, error) {
	var m FlowModel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode yaml flow: %w", err)
	}
	return &m, nil
}

// normalizeKinds copies element names into the Kind fields.
func (m *FlowModel) normalizeKinds() {
	for i := range m.States {
		s := &m.States[i]
		if s.Kind == "" {
			s.Kind = s.XMLName.Local
		}
		normalizeActions(s.Actions)
		normalizeActions(s.OnEntry.list())
		normalizeActions(s.OnRender.list())
		normalizeActions(s.OnExit.list())
		for j := range s.Transitions {
			normalizeActions(s.Transitions[j].Actions)
		}
	}
	for j := range m.GlobalTransitions {
		normalizeActions(m.GlobalTransitions[j].Actions)
	}
	normalizeActions(m.OnStart.list())
	normalizeActions(m.OnEnd.list())
}

func normalizeActions(actions []ActionModel) {
	for i := range actions {
		if actions[i].Kind == "" {
			actions[i].Kind = actions[i].XMLName.Local
		}
	}
}
