package engine

import (
	"errors"
	"fmt"

	"github.com/petrijr/flowtest/internal/el"
)

var (
	// ErrFlowNotFound is matched by every NoSuchFlowDefinitionError.
	ErrFlowNotFound = errors.New("flow definition not found")

	// ErrNoMatchingTransition is matched by every NoMatchingTransitionError.
	ErrNoMatchingTransition = errors.New("no matching transition")

	// ErrStateNotFound is returned when a transition or SetCurrentState names
	// a state the flow does not define.
	ErrStateNotFound = errors.New("state not found")

	// ErrNotResumable is returned when resuming an execution that is not
	// paused in a view state.
	ErrNotResumable = errors.New("flow execution cannot be resumed")
)

// EvaluationError is the error type of failed expressions.
type EvaluationError = el.EvaluationError

// NoSuchFlowDefinitionError reports a flow id unknown to a FlowRegistry.
type NoSuchFlowDefinitionError struct {
	FlowID string
}

func (e *NoSuchFlowDefinitionError) Error() string {
	return fmt.Sprintf("no flow definition %q found", e.FlowID)
}

func (e *NoSuchFlowDefinitionError) Is(target error) bool { return target == ErrFlowNotFound }

// NoMatchingTransitionError reports an event no transition of the current
// state or the flow's global transitions accepts.
type NoMatchingTransitionError struct {
	FlowID  string
	StateID string
	EventID string
}

func (e *NoMatchingTransitionError) Error() string {
	return fmt.Sprintf("no transition found on occurrence of event %q in state %q of flow %q",
		e.EventID, e.StateID, e.FlowID)
}

func (e *NoMatchingTransitionError) Is(target error) bool { return target == ErrNoMatchingTransition }

// FlowExecutionError wraps any failure raised while a flow executes, with
// the flow and state it happened in.
type FlowExecutionError struct {
	FlowID  string
	StateID string
	Err     error
}

func (e *FlowExecutionError) Error() string {
	if e.StateID == "" {
		return fmt.Sprintf("flow %q: %v", e.FlowID, e.Err)
	}
	return fmt.Sprintf("flow %q, state %q: %v", e.FlowID, e.StateID, e.Err)
}

func (e *FlowExecutionError) Unwrap() error { return e.Err }
