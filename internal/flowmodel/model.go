// Package flowmodel is the document model of externalized flow
// definitions. XML and YAML documents decode into the same FlowModel, which
// is merged with its parent flows and validated before a flow is assembled
// from it.
package flowmodel

import (
	"encoding/xml"
	"strings"
)

// State kinds.
const (
	KindViewState     = "view-state"
	KindActionState   = "action-state"
	KindDecisionState = "decision-state"
	KindSubflowState  = "subflow-state"
	KindEndState      = "end-state"
)

// Action kinds.
const (
	ActionEvaluate = "evaluate"
	ActionSet      = "set"
)

// FlowModel is one flow document.
type FlowModel struct {
	XMLName xml.Name `xml:"flow" yaml:"-"`

	// ID is not part of the document; it is derived from the resource the
	// document was loaded from.
	ID string `xml:"-" yaml:"id,omitempty"`

	// Parent is a comma-separated list of parent flow ids.
	Parent     string `xml:"parent,attr" yaml:"parent,omitempty"`
	StartState string `xml:"start-state,attr" yaml:"startState,omitempty"`
	Abstract   bool   `xml:"abstract,attr" yaml:"abstract,omitempty"`

	Attributes        []AttributeModel  `xml:"attribute" yaml:"attributes,omitempty"`
	Vars              []VarModel        `xml:"var" yaml:"vars,omitempty"`
	Inputs            []MappingModel    `xml:"input" yaml:"inputs,omitempty"`
	OnStart           *ActionsModel     `xml:"on-start" yaml:"onStart,omitempty"`
	States            []StateModel      `xml:",any" yaml:"states,omitempty"`
	GlobalTransitions []TransitionModel `xml:"global-transitions>transition" yaml:"globalTransitions,omitempty"`
	OnEnd             *ActionsModel     `xml:"on-end" yaml:"onEnd,omitempty"`
	Outputs           []MappingModel    `xml:"output" yaml:"outputs,omitempty"`
}

// ParentIDs splits Parent into trimmed, non-empty flow ids.
func (m *FlowModel) ParentIDs() []string {
	var out []string
	for _, p := range strings.Split(m.Parent, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// State returns the state with the given id, or nil.
func (m *FlowModel) State(id string) *StateModel {
	for i := range m.States {
		if m.States[i].ID == id {
			return &m.States[i]
		}
	}
	return nil
}

// StateIDs lists the state ids in document order.
func (m *FlowModel) StateIDs() []string {
	out := make([]string, len(m.States))
	for i, s := range m.States {
		out[i] = s.ID
	}
	return out
}

// AttributeModel is a named metadata attribute.
type AttributeModel struct {
	Name  string `xml:"name,attr" yaml:"name"`
	Value string `xml:"value,attr" yaml:"value"`
	Type  string `xml:"type,attr" yaml:"type,omitempty"`
}

// VarModel declares a flow or view variable. Class names the bean whose
// type the variable is instantiated from.
type VarModel struct {
	Name  string `xml:"name,attr" yaml:"name"`
	Class string `xml:"class,attr" yaml:"class"`
}

// MappingModel is an input or output mapping.
type MappingModel struct {
	Name     string `xml:"name,attr" yaml:"name"`
	Value    string `xml:"value,attr" yaml:"value,omitempty"`
	Type     string `xml:"type,attr" yaml:"type,omitempty"`
	Required bool   `xml:"required,attr" yaml:"required,omitempty"`
}

// ActionsModel is an ordered action list such as on-entry.
type ActionsModel struct {
	Actions []ActionModel `xml:",any" yaml:"actions"`
}

// ActionModel is an evaluate or set action.
type ActionModel struct {
	XMLName xml.Name `yaml:"-"`
	Kind    string   `xml:"-" yaml:"kind"`

	Expression string `xml:"expression,attr" yaml:"expression,omitempty"`
	Result     string `xml:"result,attr" yaml:"result,omitempty"`
	Name       string `xml:"name,attr" yaml:"name,omitempty"`
	Value      string `xml:"value,attr" yaml:"value,omitempty"`
}

// TransitionModel is a transition. Bind and Validate are kept as strings so
// that an absent attribute can be told apart from an explicit false.
type TransitionModel struct {
	On       string `xml:"on,attr" yaml:"on"`
	To       string `xml:"to,attr" yaml:"to,omitempty"`
	Bind     string `xml:"bind,attr" yaml:"bind,omitempty"`
	Validate string `xml:"validate,attr" yaml:"validate,omitempty"`
	History  string `xml:"history,attr" yaml:"history,omitempty"`

	Attributes []AttributeModel `xml:"attribute" yaml:"attributes,omitempty"`
	Actions    []ActionModel    `xml:",any" yaml:"actions,omitempty"`
}

// IfModel is one branch of a decision state.
type IfModel struct {
	Test string `xml:"test,attr" yaml:"test"`
	Then string `xml:"then,attr" yaml:"then"`
	Else string `xml:"else,attr" yaml:"else,omitempty"`
}

// StateModel is any kind of state; Kind selects which fields apply.
type StateModel struct {
	XMLName xml.Name `yaml:"-"`
	Kind    string   `xml:"-" yaml:"kind"`
	ID      string   `xml:"id,attr" yaml:"id"`

	View     string `xml:"view,attr" yaml:"view,omitempty"`
	Model    string `xml:"model,attr" yaml:"model,omitempty"`
	Redirect bool   `xml:"redirect,attr" yaml:"redirect,omitempty"`
	Subflow  string `xml:"subflow,attr" yaml:"subflow,omitempty"`

	Attributes  []AttributeModel  `xml:"attribute" yaml:"attributes,omitempty"`
	Vars        []VarModel        `xml:"var" yaml:"vars,omitempty"`
	OnEntry     *ActionsModel     `xml:"on-entry" yaml:"onEntry,omitempty"`
	OnRender    *ActionsModel     `xml:"on-render" yaml:"onRender,omitempty"`
	Ifs         []IfModel         `xml:"if" yaml:"if,omitempty"`
	Inputs      []MappingModel    `xml:"input" yaml:"inputs,omitempty"`
	Outputs     []MappingModel    `xml:"output" yaml:"outputs,omitempty"`
	Transitions []TransitionModel `xml:"transition" yaml:"transitions,omitempty"`
	OnExit      *ActionsModel     `xml:"on-exit" yaml:"onExit,omitempty"`

	// Actions are the actions of an action state.
	Actions []ActionModel `xml:",any" yaml:"actions,omitempty"`
}

func (a *ActionsModel) list() []ActionModel {
	if a == nil {
		return nil
	}
	return a.Actions
}
