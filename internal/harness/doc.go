// Package harness runs workflow scenarios against the interpreter.
//
// A scenario is a YAML file naming a workflow document, the run's inputs,
// canned HTTP responses and the expected outcome:
//
//	name: increment_counter
//	description: "Counter ends at the initial value plus the increment"
//	workflow: ../workflows/counter.json
//	parameters:
//	  start: 5
//	http:
//	  "GET https://api.example.com/items":
//	    status: 200
//	    body: {count: 3}
//	expect:
//	  outputs:
//	    Increment: {name: counter, type: Integer, value: 8}
//	assertions:
//	  - type: order
//	    steps: [Init, Increment]
//
// Each scenario runs in a fresh in-memory store with a DeterministicClock,
// sequential guid() values and a fixed run ID, so the same scenario always
// produces the same outputs. HTTP never leaves the process: requests are
// answered by engine.MockHTTP and recorded for request assertions.
//
// Expected outputs use subset semantics. Objects match when every expected
// key matches; arrays and scalars must match exactly.
//
// RunWithGolden additionally snapshots the run (order, outputs, requests,
// error code) as canonical JSON under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
