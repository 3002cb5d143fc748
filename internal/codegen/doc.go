// Package codegen emits Go source for a durable orchestration host.
//
// The emitted file targets the durabletask-go programming model. A workflow
// becomes one orchestrator function, one function per step that does not run
// inline, and a Register function that adds them to a task registry.
//
// Each step kind has a Generator. Generators are looked up in a Generators
// map that callers build once (DefaultGenerators) and pass to Emit. A
// generator reports its Shape, which decides where its statements land:
//
//	Inline        statements inside the orchestrator body
//	Method        a function called directly from the orchestrator
//	RemoteCall    a function that awaits the CallHttp activity
//	OutOfProcess  an activity function, reached only through CallActivity
//
// Out-of-process steps cannot see the orchestrator state. Values they need
// are computed in the orchestrator and passed as the activity input; the
// activity unpacks them in a prologue. See expr.Effects.
package codegen
