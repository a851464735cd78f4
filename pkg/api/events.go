package api

// Well-known event ids produced when action results are turned into events.
const (
	EventSuccess = "success"
	EventError   = "error"
	EventYes     = "yes"
	EventNo      = "no"
)

// Event is a signal that drives a flow forward, either submitted by the
// user (through a view) or returned by an action or a finished sub-flow.
type Event struct {
	ID         string
	Source     any
	Attributes AttributeMap
}

// NewEvent creates an event without attributes.
func NewEvent(source any, id string) *Event {
	return &Event{ID: id, Source: source, Attributes: AttributeMap{}}
}

func (e *Event) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.ID
}
