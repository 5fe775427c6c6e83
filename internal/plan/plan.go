// Package plan computes, for any (source, target) pair, the Least
// Common Ancestor and the ordered exit/entry sequences the generator
// lowers into code, per §4.D.
//
// The planner never resolves history itself: whether a composite's
// history pointer or its initial child is used is a runtime decision
// (it depends on what the generated program has actually visited),
// so the planner's entry sequence stops at the resolved target state
// and the generator emits a trailing call into that state's own
// "_start" procedure whenever the target is not already a leaf. That
// procedure (§4.F.1) is exactly where the history-vs-initial choice is
// made, once per composite, and reused by every transition that lands
// on it.
package plan

import (
	"fmt"

	"github.com/hsmgen/hsmgen/internal/model"
)

// TransitionPlan is the lowered form of a single-target transition.
type TransitionPlan struct {
	LCA            *model.State
	ExitSequence   []*model.State // bottom-up: Src ... child-of-LCA
	EntrySequence  []*model.State // top-down: child-of-LCA ... Dst
	SelfTransition bool
}

// LimbPlan is one region's share of a fork entry.
type LimbPlan struct {
	Region        *model.State   // the composite_and's direct child this limb enters
	EntrySequence []*model.State // top-down: Region ... target (Region itself if the fork left this region unnamed)
}

// ForkPlan is the lowered form of a transition whose target is a fork
// into multiple regions of one orthogonal state.
type ForkPlan struct {
	LCA          *model.State
	ExitSequence []*model.State // bottom-up: Src ... child-of-LCA
	SharedEntry  []*model.State // top-down: child-of-LCA ... the composite_and state itself (inclusive)
	Limbs        []LimbPlan     // one per region of the composite_and state, in declaration order
}

// LCA returns the deepest state that is an ancestor of both a and b.
// A self-transition (a == b) is special-cased here: per the
// Design Notes' resolved Open Question, a transition whose source and
// target are identical forces a full exit and re-entry of that state,
// so its own LCA is itself, not its parent.
func LCA(a, b *model.State) *model.State {
	if a == b {
		return a
	}
	ca, cb := ancestorChain(a), ancestorChain(b)
	var last *model.State
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if ca[i] != cb[i] {
			break
		}
		last = ca[i]
	}
	return last
}

// ancestorChain returns [root, ..., s], root-first.
func ancestorChain(s *model.State) []*model.State {
	var rev []*model.State
	for n := s; n != nil; n = n.Parent {
		rev = append(rev, n)
	}
	chain := make([]*model.State, len(rev))
	for i, n := range rev {
		chain[len(rev)-1-i] = n
	}
	return chain
}

// Plan computes the transition plan for a single-target transition
// from src to dst, per §4.D.1–3.
func Plan(src, dst *model.State) *TransitionPlan {
	if src == dst {
		return &TransitionPlan{
			LCA:            src,
			ExitSequence:   []*model.State{src},
			EntrySequence:  []*model.State{dst},
			SelfTransition: true,
		}
	}

	lca := LCA(src, dst)

	var exitSeq []*model.State
	for n := src; n != lca; n = n.Parent {
		exitSeq = append(exitSeq, n)
	}

	var entryRev []*model.State
	for n := dst; n != lca; n = n.Parent {
		entryRev = append(entryRev, n)
	}
	entrySeq := make([]*model.State, len(entryRev))
	for i, n := range entryRev {
		entrySeq[len(entryRev)-1-i] = n
	}

	return &TransitionPlan{
		LCA:           lca,
		ExitSequence:  exitSeq,
		EntrySequence: entrySeq,
	}
}

// PlanFork computes the transition plan for a fork target, per
// §4.D.4. andState is the composite_and state whose direct children
// are the regions; limbs maps each explicitly named region (the region
// state itself) to its resolved target state. Regions absent from
// limbs still appear in the resulting
// plan, entered only as far as the region root itself — the generator
// then calls that region's own "_start" to pick up its usual
// initial/history entry, exactly as if the fork had not mentioned it.
func PlanFork(src, andState *model.State, limbs map[*model.State]*model.State) (*ForkPlan, error) {
	if andState.Kind != model.KindAND {
		return nil, fmt.Errorf("fork target %s is not a composite_and state", andState.PathString())
	}

	lca := LCA(src, andState)

	var exitSeq []*model.State
	for n := src; n != lca; n = n.Parent {
		exitSeq = append(exitSeq, n)
	}

	var sharedRev []*model.State
	for n := andState; n != lca; n = n.Parent {
		sharedRev = append(sharedRev, n)
	}
	shared := make([]*model.State, len(sharedRev))
	for i, n := range sharedRev {
		shared[len(sharedRev)-1-i] = n
	}

	var result []LimbPlan
	for pair := andState.Children.Oldest(); pair != nil; pair = pair.Next() {
		region := pair.Value
		target, explicit := limbs[region]
		if !explicit {
			result = append(result, LimbPlan{Region: region, EntrySequence: []*model.State{region}})
			continue
		}
		var rev []*model.State
		for n := target; n != region.Parent; n = n.Parent {
			rev = append(rev, n)
		}
		seq := make([]*model.State, len(rev))
		for i, n := range rev {
			seq[len(rev)-1-i] = n
		}
		result = append(result, LimbPlan{Region: region, EntrySequence: seq})
	}

	return &ForkPlan{
		LCA:          lca,
		ExitSequence: exitSeq,
		SharedEntry:  shared,
		Limbs:        result,
	}, nil
}
