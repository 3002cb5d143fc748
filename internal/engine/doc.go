// Package engine interprets workflow documents directly.
//
// A run sorts the document's steps by dependency, then walks them once in
// that order. For each step the engine:
//
//  1. looks up the Action registered for the step's kind
//  2. evaluates the step inputs against the run's State
//  3. executes the kind's effect (compose a value, update a variable, call
//     HTTP, deliver a binding)
//  4. records the result under the step name
//
// The first failing step aborts the run, and its error names the step.
//
// The walk is single-threaded: given the same document, inputs, guid
// generator and clock, a run produces the same outputs in the same order.
//
// Http and ApiConnection calls go through an HTTPDoer. MockHTTP answers
// without touching the network and is used by the scenario harness. Binding
// steps hand their content to a Publisher when one is configured. Runs and
// step results are written to a store.Store when one is attached.
package engine
