package flowtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDOT(t *testing.T) {
	flow, err := xmlBuilder("simpleFlows/flowWithOutput.xml", nil).BuildFlow()
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, WriteDOT(&sb, flow))
	dot := sb.String()

	assert.True(t, strings.HasPrefix(dot, `digraph "flowWithOutput" {`))
	assert.Contains(t, dot, `__start -> "route";`)
	assert.Contains(t, dot, `"route" [shape=ellipse, label="route"];`)
	assert.Contains(t, dot, `"wait" [shape=box, label="wait"];`)
	assert.Contains(t, dot, `"output" [shape=doublecircle, label="output"];`)
	assert.Contains(t, dot, `"route" -> "redirect" [label="redirect"];`)
	assert.Contains(t, dot, `"wait" -> "output" [label="finish"];`)
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestWriteDOT_DecisionsAndSubFlows(t *testing.T) {
	flow, err := NewYAMLFlowBuilder(NewYAMLConfiguration("yamlFlows/orderFlow.yaml")).WithLogger(nopLogger()).BuildFlow()
	require.NoError(t, err)
	var sb strings.Builder
	require.NoError(t, WriteDOT(&sb, flow))
	assert.Contains(t, sb.String(), `"check" [shape=diamond, label="check"];`)
	assert.Contains(t, sb.String(), `"check" -> "large" [label="[flowScope.limit > 10]"];`)
	assert.Contains(t, sb.String(), `"check" -> "small" [label="else"];`)

	tc := NewFlowTestContext()
	tc.AddSubFlow(MustStubFlow("subFlow", "end"))
	flow, err = xmlBuilder("subFlows/flow.xml", tc).BuildFlow()
	require.NoError(t, err)
	sb.Reset()
	require.NoError(t, WriteDOT(&sb, flow))
	assert.Contains(t, sb.String(), `"callSub" [shape=box3d, label="callSub\n(subFlow)"];`)
	assert.Contains(t, sb.String(), `"callSub" -> "start" [label="*"];`)
}
