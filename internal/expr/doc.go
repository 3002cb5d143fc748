// Package expr recognizes and rewrites embedded workflow expressions.
//
// A workflow input is a JSON tree. Any string leaf may contain calls of the
// form @name(args) (or @{name(args)} inside text). The set of names is closed:
//
//	outputs('Step')        value produced by an earlier step
//	parameters('$name')    workflow parameter
//	variables('name')      current value of a workflow variable
//	items('loop')          current loop item (interpretation only)
//	triggerBody()          body the run was started with
//	guid()                 new random identifier
//	utcNow()               current UTC time
//	encodeURIComponent(x)  URI component escaping
//	base64(x)              base64 encoding of x's text
//
// Any other name, and any property access chained after a call
// (@triggerBody().name, @outputs('A')['x']), is rejected with
// UNRECOGNIZED_EXPRESSION.
//
// There are two consumers. Evaluate resolves a tree against a Resolver and
// returns a plain value. Emit rewrites a tree into a Template: the tree's JSON
// (or text) with every call replaced by an interpolation hole holding a Go
// expression. Template.Lower turns the template into a Go string expression
// for generated code.
//
// Emission threads a Context (current step, whether the step runs out of
// process) and returns Effects: the deferred parameters discovered for the
// step and whether the trigger body was referenced. Callers merge Effects;
// the translator keeps no shared state.
package expr
