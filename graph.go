package flowtest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/petrijr/flowtest/internal/engine"
)

// WriteDOT writes the state graph of flow in Graphviz DOT syntax. View
// states are boxes, decisions diamonds, sub-flow states 3D boxes and end
// states double circles. Global transitions are drawn from every
// transitionable state, dashed.
func WriteDOT(w io.Writer, flow *Flow) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", strconv.Quote(flow.ID()))
	fmt.Fprintf(bw, "  __start [shape=point];\n")
	fmt.Fprintf(bw, "  __start -> %s;\n", strconv.Quote(flow.StartStateID()))

	for _, s := range flow.States() {
		label := s.ID()
		if sub, ok := s.(*engine.SubflowState); ok {
			label += "\n(" + sub.SubflowID + ")"
		}
		fmt.Fprintf(bw, "  %s [shape=%s, label=%s];\n", strconv.Quote(s.ID()), dotShape(s), strconv.Quote(label))
	}

	for _, s := range flow.States() {
		if d, ok := s.(*engine.DecisionState); ok {
			for _, b := range d.Branches {
				writeEdge(bw, s.ID(), b.Then, "["+b.Test.ExpressionString()+"]", false)
				if b.Else != "" {
					writeEdge(bw, s.ID(), b.Else, "else", false)
				}
			}
		}
		ts, ok := s.(engine.TransitionableState)
		if !ok {
			continue
		}
		for _, t := range ts.Transitions() {
			writeEdge(bw, s.ID(), t.Target, t.On, false)
		}
		for _, t := range flow.GlobalTransitions() {
			writeEdge(bw, s.ID(), t.Target, t.On, true)
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func writeEdge(w io.Writer, from, to, label string, global bool) {
	if to == "" {
		to = from
	}
	style := ""
	if global {
		style = ", style=dashed"
	}
	fmt.Fprintf(w, "  %s -> %s [label=%s%s];\n", strconv.Quote(from), strconv.Quote(to), strconv.Quote(label), style)
}

func dotShape(s engine.State) string {
	switch s.(type) {
	case *engine.ViewState:
		return "box"
	case *engine.DecisionState:
		return "diamond"
	case *engine.SubflowState:
		return "box3d"
	case *engine.EndState:
		return "doublecircle"
	default:
		return "ellipse"
	}
}
