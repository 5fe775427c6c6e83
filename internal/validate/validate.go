// Package validate proves the well-formedness invariants of §3 over a
// loaded model.Document before any component reads it for planning or
// emission.
package validate

import (
	"fmt"

	"github.com/hsmgen/hsmgen/internal/diag"
	"github.com/hsmgen/hsmgen/internal/model"
	"github.com/hsmgen/hsmgen/internal/path"
)

// Validate performs a single total pass over doc: every state and
// every transition is visited, including those nested inside
// orthogonal regions and those reachable only through decisions. It
// returns the first violation found, per §4.B's "fail on first
// violation" contract.
func Validate(doc *model.Document) error {
	visited := make(map[*model.State]bool)
	if err := validateState(doc, doc.Root, visited); err != nil {
		return err
	}
	return validateDecisions(doc)
}

func validateState(doc *model.Document, s *model.State, visited map[*model.State]bool) error {
	if visited[s] {
		// A state reachable twice via distinct parent chains would
		// indicate the parent relation is no longer a tree (invariant
		// 6). The loader's own construction cannot produce this, but a
		// hand-edited or round-tripped IR might.
		return &diag.ValidationError{
			NodePath: s.PathString(),
			Rule:     diag.RuleCycle,
			Message:  "state reachable via more than one path from root; parent relation is not a tree",
		}
	}
	visited[s] = true

	if !s.IsLeaf() && s.Kind != model.KindAND {
		if s.Initial == nil {
			msg := fmt.Sprintf("composite state %s has no usable initial sub-state", s.PathString())
			if s.InitialRaw != "" {
				msg = fmt.Sprintf("initial %q of state %s does not name an existing direct child", s.InitialRaw, s.PathString())
			}
			return &diag.ValidationError{
				NodePath: s.PathString(),
				Rule:     diag.RuleUnknownInitial,
				Message:  msg,
			}
		}
	}

	for _, t := range s.Transitions {
		if err := validateTransition(doc, s, t); err != nil {
			return err
		}
	}

	if s.Children != nil {
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			if err := validateState(doc, pair.Value, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTransition(doc *model.Document, owner *model.State, t *model.Transition) error {
	result, err := path.Resolve(doc, owner, t.ToRaw)
	if err != nil {
		rule := diag.RuleDanglingTarget
		expr, perr := path.Parse(t.ToRaw)
		if perr == nil {
			if _, ok := expr.(path.Fork); ok {
				rule = diag.RuleMalformedFork
			}
		}
		return &diag.ValidationError{
			NodePath: owner.PathString(),
			Rule:     rule,
			Message:  fmt.Sprintf("transition to %q: %s", t.ToRaw, err),
		}
	}

	switch result.Kind {
	case path.Decision:
		if _, ok := doc.Decisions.Get(result.Decision); !ok {
			return &diag.ValidationError{
				NodePath: owner.PathString(),
				Rule:     diag.RuleUnknownDecision,
				Message:  fmt.Sprintf("transition to %q: no decision named %q", t.ToRaw, result.Decision),
			}
		}
	case path.ForkResult:
		seen := make(map[*model.State]bool, len(result.Limbs))
		for _, limb := range result.Limbs {
			region := model.RegionOf(limb)
			if seen[region] {
				return &diag.ValidationError{
					NodePath: owner.PathString(),
					Rule:     diag.RuleMalformedFork,
					Message:  fmt.Sprintf("transition to %q: fork names the same region more than once", t.ToRaw),
				}
			}
			seen[region] = true
		}
	}
	return nil
}

// validateDecisions checks invariant 3 (and the rest of invariant 2
// for fork targets) for every transition reachable only through the
// flat decisions dictionary — states never visit these via the tree
// walk above.
func validateDecisions(doc *model.Document) error {
	for pair := doc.Decisions.Oldest(); pair != nil; pair = pair.Next() {
		d := pair.Value
		for _, t := range d.Transitions {
			if err := validateTransition(doc, d.Owner, t); err != nil {
				return err
			}
		}
	}
	return nil
}
