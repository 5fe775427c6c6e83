// Package gen drives the tree walk that produces, per state, the four
// lifecycle procedures of §4.F, the transition-selection logic inside
// each state's "_do" body, and the inspector. The walk is the shared
// template-method skeleton: all syntax-sensitive decisions are routed
// through the Backend capability record passed in, per the Design
// Notes' "interface, or record of functions, passed to the walker"
// guidance — Generator never branches on backend identity.
package gen

import "github.com/hsmgen/hsmgen/internal/model"

// Backend is the capability set a language backend must provide. It
// supplies the syntax tokens, statement-level hooks, and final
// assembly routine that let the shared walk in Generator produce
// working source in that language, per §4.G.
type Backend interface {
	// Name identifies the backend, e.g. "c", "rust", "python".
	Name() string

	// Ext is the extension of the primary generated source file.
	Ext() string

	// HeaderExt, if ok is true, is the extension of a second,
	// separately-assembled header file (the C backend's header/source
	// split).
	HeaderExt() (ext string, ok bool)

	// StmtTerminator is appended after each generated statement (";"
	// for C/Rust, "" for Python).
	StmtTerminator() string

	// OpenIf renders the opening of an "if (cond)" block, ready to be
	// followed by statements and a CloseBlock.
	OpenIf(cond string) string

	// CloseBlock renders whatever closes a block opened by OpenIf (a
	// "}" line for brace languages, "" for indent-sensitive ones,
	// where FormatTemplate is instead responsible for the indent).
	CloseBlock() string

	// NullCheckCall renders a complete, guarded statement that invokes
	// the named lifecycle procedure ("entry", "exit", "do", or
	// "start") on whatever vtable ptrExpr currently points at, doing
	// nothing if the slot is empty. Folding the guard and the call
	// into one hook (rather than composing them from separate
	// pieces) lets backends whose null-check idiom also binds a name
	// to the pointee (Rust's "if let Some(v) = ...") do so without a
	// second hook.
	NullCheckCall(ptrExpr, method string) string

	// FnPtrAssign renders assigning targetFn into the function-pointer
	// slot ptrExpr as a full statement. An empty targetFn assigns the
	// backend's null literal instead, clearing the slot.
	FnPtrAssign(ptrExpr, targetFn string) string

	// VTableRef renders a reference to the generated vtable constant
	// for the state identified by ident (Ident(s)), suitable as the
	// targetFn argument to FnPtrAssign.
	VTableRef(ident string) string

	// AssignPtr renders copying one already-computed pointer/slot
	// expression into another, e.g. for shallow-history restore
	// ("ctx->m_active = ctx->m_history;").
	AssignPtr(dstExpr, srcExpr string) string

	TrueLiteral() string
	FalseLiteral() string

	// NullTest renders a "expr is null" predicate.
	NullTest(expr string) string

	// Negate renders the boolean negation of expr ("!(expr)" for
	// brace languages, "not (expr)" for Python).
	Negate(expr string) string

	// CtxField renders access to field on the Context parameter
	// ("ctx->field" for C, "ctx.field" for Rust/Python).
	CtxField(field string) string

	// Stmt renders one statement line, appending the backend's
	// terminator.
	Stmt(line string) string

	// Call renders a direct call to a generated procedure, e.g.
	// "A_entry(e, ctx)" as a full statement.
	Call(procName string) string

	// InStateExpand is the one substitution permitted on guard/action
	// text: expanding "IN_STATE(path)" into this backend's
	// active-state predicate.
	InStateExpand(statePath string) string

	// FormatTemplate is the template-substitution routine: it expands
	// tmpl against data. Indent-sensitive backends (Python) override
	// this to re-indent inserted multi-line blocks to the
	// surrounding scope before substitution.
	FormatTemplate(tmpl string, data map[string]string) (string, error)

	// AssembleOutput concatenates the generated per-state procedures
	// (gathered in ctx) with the Context type definition, includes,
	// initializers, and the top-level init/tick/is_running/
	// get_state_str entry points, returning one entry per output file
	// keyed by file extension ("c", "h", "rs", "py", ...).
	//
	// get_state_str's tree walk is assembled here rather than routed
	// through the shared statement-level hooks: it is fundamentally a
	// string-formatting concern (how to join a name, a "/", and a
	// recursive child description, or bracket a set of orthogonal
	// regions) that varies more by language idiom — strcat into a
	// static buffer in C, push_str in Rust, list appends joined at the
	// end in Python — than the
	// other four lifecycle procedures do. AssembleOutput has ctx.Doc,
	// the same tree every other stage walks, so it builds its own
	// "describe current configuration" function directly from it.
	AssembleOutput(ctx *GenContext) (map[string]string, error)
}

// GenContext accumulates everything the walk produces, for
// AssembleOutput to stitch together.
type GenContext struct {
	Doc     *model.Document
	Backend Backend

	// Procs holds, per state (keyed by Ident), the four rendered
	// lifecycle procedure bodies plus the transition-selection block
	// inlined into "_do".
	Procs map[string]*StateProcs

	// DecisionDispatchers holds the rendered dispatcher function body
	// for each flattened decision, keyed by DecisionDispatchName.
	DecisionDispatchers map[string]string

	// StateOrder preserves a deterministic traversal order (pre-order,
	// children in declaration order) for backends that must emit
	// procedures in a fixed sequence.
	StateOrder []*model.State
}

// StateProcs is one state's four lifecycle procedure bodies, each
// already rendered as a backend-specific statement block (not yet
// wrapped in a function signature — AssembleOutput does that via
// FormatTemplate).
type StateProcs struct {
	State *model.State
	Start string
	Entry string
	Exit  string
	Do    string
}
