// Package path implements the path-expression grammar of the `to:`
// field and resolves it against a current state, per §4.C.
//
// Expressions are parsed once into the algebraic type recommended by
// the Design Notes, rather than re-parsed as strings at every
// resolution site.
package path

// Expr is a parsed path expression.
type Expr interface{ isExpr() }

// Absolute is "/a/b/c".
type Absolute struct{ Segments []string }

// Descend is "./a/b" — descend into the current state's subtree.
type Descend struct{ Segments []string }

// Up is "../../a/b" — N steps up from the current path, then descend.
type Up struct {
	N    int
	Tail []string
}

// SelfExpr is ".", a self-transition.
type SelfExpr struct{}

// NullExpr is the termination token.
type NullExpr struct{}

// DecisionRef is "@name".
type DecisionRef struct{ Name string }

// Fork is "prefix/[limb1, limb2, ...]", targeting simultaneous entry
// into multiple regions of an orthogonal state.
type Fork struct {
	Prefix Expr
	Limbs  [][]string
}

// Sibling is a bare name, resolved as a sibling of the current state's
// last path segment.
type Sibling struct{ Name string }

func (Absolute) isExpr()    {}
func (Descend) isExpr()     {}
func (Up) isExpr()          {}
func (SelfExpr) isExpr()    {}
func (NullExpr) isExpr()    {}
func (DecisionRef) isExpr() {}
func (Fork) isExpr()        {}
func (Sibling) isExpr()     {}
