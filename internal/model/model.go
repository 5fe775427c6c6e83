// Package model defines the in-memory intermediate representation (IR)
// of a statechart: the State tree, transitions, decisions, hooks and
// context schema that the rest of the compiler reads.
//
// The IR is built once by Load, frozen by the validator, and read
// read-only by every later stage. Nothing downstream of Load mutates
// it, except the loader itself while it is still assembling the tree.
package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the closed set of state shapes. Leaf / composite-OR /
// composite-AND are tagged rather than expressed as a class
// hierarchy, so every consumer switches on Kind instead of doing type
// assertions.
type Kind int

const (
	KindLeaf Kind = iota
	KindOR
	KindAND
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindOR:
		return "composite_or"
	case KindAND:
		return "composite_and"
	default:
		return "unknown"
	}
}

// State is one node of the statechart tree.
type State struct {
	Name   string
	Kind   Kind
	Parent *State // back-reference only; Parent never owns Children

	// Children preserves declaration order: it is what backends and
	// the DOT emitter walk, and what the inspector's path strings are
	// built from.
	Children *orderedmap.OrderedMap[string, *State]

	// Initial names the default child for composite_or states. Every
	// region (child of a composite_and state) has its own Initial.
	Initial *State

	// InitialRaw is the unresolved name given in the `initial:` field,
	// kept so the validator can report a precise message when it names
	// no existing child.
	InitialRaw string

	// History, if true, makes re-entry without an explicit target
	// restore the last active child instead of following Initial.
	// Only shallow history is supported (see DESIGN.md's "Open
	// Questions resolved" section).
	History bool

	Entry, Exit, Do string // opaque target-language code, verbatim

	Transitions []*Transition

	// Path is the absolute path from the root, computed once by the
	// loader and used as the canonical key everywhere a state must be
	// named (diagnostics, generated procedure names, inspector output).
	Path []string
}

// IsLeaf reports whether s has no children.
func (s *State) IsLeaf() bool {
	return s.Children == nil || s.Children.Len() == 0
}

// PathString renders Path as "/a/b/c" ("/" for the root).
func (s *State) PathString() string {
	if len(s.Path) == 0 {
		return "/"
	}
	out := ""
	for _, seg := range s.Path {
		out += "/" + seg
	}
	return out
}

// Transition is one guarded (or unconditional) edge out of a state.
type Transition struct {
	Guard  string // opaque boolean expression; "" means always true
	Action string // opaque code; "" means no action
	ToRaw  string // unparsed path expression from the document
}

// Decision is a named, reusable list of guarded transitions, looked
// up by "@name" wherever a To expression can appear. Owner is the
// state the decision was declared under; relative path expressions in
// the decision's own transitions resolve against Owner, the same way
// an ordinary transition declared directly on that state would.
type Decision struct {
	Name        string
	Owner       *State
	Transitions []*Transition
}

// Hooks are the four optional global code strings injected at every
// corresponding site in the generated code.
type Hooks struct {
	Entry, Exit, Do, Transition string
}

// ContextField is one user-declared field of the generated Context
// aggregate.
type ContextField struct {
	Name string
	Type string
}

// Document is the fully loaded, not-yet-validated IR for one input
// model.
type Document struct {
	Root *State

	// Decisions is the flattened, global decision dictionary: every
	// `decisions:` map found anywhere in the tree, collected during
	// loading. Keyed by decision name; loading fails on a duplicate
	// name (see Load).
	Decisions *orderedmap.OrderedMap[string, *Decision]

	Hooks Hooks

	Context     []ContextField
	ContextInit string
	Includes    string

	// Langs is the set of target languages this document should be
	// compiled for. A scalar `lang:` yields a single entry; a YAML
	// sequence yields all of them (supplemental multi-target support,
	// see SPEC_FULL.md).
	Langs []string
}

// RegionOf walks up from s to the direct child of the nearest
// composite_and ancestor (the region root that contains s). If s
// itself is not inside any orthogonal state, it returns the document
// root.
func RegionOf(s *State) *State {
	for s.Parent != nil && s.Parent.Kind != KindAND {
		s = s.Parent
	}
	return s
}

// FindByPath resolves an absolute path (as produced by State.Path) to
// its node, starting at root. It returns nil if no such node exists.
func (d *Document) FindByPath(path []string) *State {
	cur := d.Root
	for _, seg := range path {
		if cur.Children == nil {
			return nil
		}
		next, ok := cur.Children.Get(seg)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
