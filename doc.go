// Package flowtest is a test harness for web flows: state machines of view,
// action, decision, sub-flow and end states that advance on user events.
//
// A flow is described in an XML or YAML document. The harness builds it
// against stub collaborators, drives it through simulated requests and
// exposes its state for assertions. No server, browser or template engine
// is involved: views are mock views that write their id to the response.
//
// # Building
//
// A DocumentConfiguration locates the flow document and the documents of
// its parent flows. Plain string locations are resolved below the testdata
// directory; FilePath, *os.File and *url.URL locations are read from disk
// or fetched.
//
// A FlowTestContext carries what the flow is built against:
//   - beans, referenced by name from expressions,
//   - stub sub-flows (StubFlow) or real ones (HolderFor),
//   - messages per locale,
//   - an optional global validator, e.g. a schema validator.
//
// Example:
//
//	conf := flowtest.NewXMLConfiguration("simpleFlows/standaloneFlow.xml")
//	builder := flowtest.NewXMLFlowBuilder(conf).
//	    WithContext(flowtest.NewFlowTestContext(&SomeService{}))
//
// # Testing
//
// MockFlowTester starts the flow, resumes it with an event id and request
// parameters, and answers questions about the execution:
//
//	tester, err := flowtest.NewMockFlowTester(builder)
//	if err != nil {
//		t.Fatal(err)
//	}
//	if err := tester.StartFlow(nil); err != nil {
//		t.Fatal(err)
//	}
//	tester.SetEventID("page")
//	if err := tester.ResumeFlow(map[string]any{"amount": 99}); err != nil {
//		t.Fatal(err)
//	}
//	state, err := tester.CurrentStateID()
//
// Request parameters are bound onto the model of the current view state
// and validated. Binding and validation failures become error messages and
// keep the flow where it is.
//
// Accessors fail with an *IllegalStateError when called at the wrong point
// of the execution, e.g. FlowOutcome before the flow ended.
//
// # Snapshots
//
// With WithSnapshotStore the tester records the execution after every
// request. RestoreSnapshot rewinds to any recorded request, which
// simulates the browser's back button. Stores are available for memory,
// SQLite, PostgreSQL, MySQL, Redis and MongoDB. Package snapshotstore
// opens the one a Config names, so that only programs which import it link
// the database drivers.
package flowtest
