// Package diag defines the fatal error kinds the compiler can raise.
//
// Every error produced here formats to the exact shape the orchestrator
// writes to stderr: "error: <kind>: <path>: <message>". Compilation
// is a pure batch: the first error of any kind aborts the run and no
// partial output files are produced.
package diag

import "fmt"

// InputError means the input document could not be opened or parsed.
// The orchestrator also reports a failure to create or write an
// output file as an InputError.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("error: input: %s: %s", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Rule names the violated well-formedness rule: one per invariant of
// the data model section, plus RuleDuplicateDecision for a decision
// name declared more than once.
type Rule string

const (
	RuleUnknownInitial    Rule = "unknown-initial"
	RuleDanglingTarget    Rule = "dangling-target"
	RuleUnknownDecision   Rule = "unknown-decision"
	RuleMalformedFork     Rule = "malformed-fork"
	RuleDuplicateDecision Rule = "duplicate-decision"
	RuleDuplicateSibling  Rule = "duplicate-sibling"
	RuleCycle             Rule = "cycle"
)

// ValidationError means a §3 invariant was violated. NodePath is the
// absolute path of the offending state or the state owning the
// offending transition/decision.
type ValidationError struct {
	NodePath string
	Rule     Rule
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("error: validation: %s: [%s] %s", e.NodePath, e.Rule, e.Message)
}

// EmissionError is raised by a backend when the model is missing
// information that backend requires to emit source.
type EmissionError struct {
	Backend string
	Field   string
	Message string
}

func (e *EmissionError) Error() string {
	return fmt.Sprintf("error: emission: %s: [%s] %s", e.Backend, e.Field, e.Message)
}
