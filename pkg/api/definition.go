package api

// BeanLocator gives read access to the named collaborators available to a
// flow's expressions.
type BeanLocator interface {
	Bean(name string) (any, bool)
	ContainsBean(name string) bool
	BeanNames() []string
}

// FlowDefinition is the static, assembled graph of one flow.
type FlowDefinition interface {
	ID() string
	StartStateID() string
	StateIDs() []string
	// PossibleOutcomes lists the ids of the end states, in declaration order.
	PossibleOutcomes() []string
	Attributes() AttributeMap
	StateDefinition(id string) (StateDefinition, bool)
	Beans() BeanLocator
}

// StateDefinition is a state of a flow definition.
type StateDefinition interface {
	ID() string
	Owner() FlowDefinition
	Attributes() AttributeMap
	IsViewState() bool
}

// TransitionDefinition is a path between states, taken on a matching event.
type TransitionDefinition interface {
	ID() string
	TargetStateID() string
	Attributes() AttributeMap
}

// FlowSessionStatus is the lifecycle status of a flow session.
type FlowSessionStatus string

const (
	SessionCreated  FlowSessionStatus = "CREATED"
	SessionStarting FlowSessionStatus = "STARTING"
	SessionActive   FlowSessionStatus = "ACTIVE"
	SessionPaused   FlowSessionStatus = "PAUSED"
	SessionEnded    FlowSessionStatus = "ENDED"
)

// FlowSession is one running instance of a flow definition inside an
// execution; sub-flows push additional sessions.
type FlowSession interface {
	Definition() FlowDefinition
	State() StateDefinition
	Status() FlowSessionStatus
	Scope() AttributeMap
	ViewScope() AttributeMap
	Parent() FlowSession
	IsRoot() bool
}

// FlowExecutionOutcome is the terminal result of a flow execution.
type FlowExecutionOutcome struct {
	ID     string
	Output AttributeMap
}
