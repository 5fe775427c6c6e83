package gen

import (
	"strings"

	"github.com/hsmgen/hsmgen/internal/model"
	"github.com/hsmgen/hsmgen/internal/path"
	"github.com/hsmgen/hsmgen/internal/plan"
)

// transitionBlock renders one guarded transition of owner as an
// independent "if (guard) { ...; }" block (§4.F.2). Blocks are
// sequential, not chained with "else if": each fires at most once per
// tick by virtue of guards being mutually exclusive in a
// well-specified model, and firing one is enough to mark
// transition_fired without needing to suppress evaluation of the
// rest — the generated guards are themselves side-effect-free
// expressions, so re-testing a later one after an earlier fire costs
// nothing but a redundant condition check.
func (b *builder) transitionBlock(owner *model.State, t *model.Transition) ([]string, error) {
	body, err := b.fireBody(owner, t)
	if err != nil {
		return nil, err
	}
	cond := b.be.TrueLiteral()
	if t.Guard != "" {
		cond = b.expand(t.Guard)
	}
	return renderBlock(cond, body, b.be), nil
}

// renderBlock wraps body (already-rendered statement lines) in an
// "if (cond) { ... }" block, indenting the body one level. An entry
// that spans several physical lines (Python's two-line NullCheckCall)
// has every one of its lines indented, not just the first.
func renderBlock(cond string, body []string, be Backend) []string {
	lines := []string{be.OpenIf(cond)}
	for _, s := range body {
		lines = append(lines, "\t"+strings.ReplaceAll(s, "\n", "\n\t"))
	}
	if close := be.CloseBlock(); close != "" {
		lines = append(lines, close)
	}
	return lines
}

// fireBody renders the statements that run once a transition's guard
// (evaluated by the caller) has held: the global transition hook, the
// transition_fired flag, the inlined action, then the lowered
// exit/entry sequence (or decision delegation, or termination) for
// whichever of the four path.ResultKind outcomes t.ToRaw resolves to.
// It is shared between ordinary per-state transitions and decision
// arms (decisionBody), which differ only in which state supplies the
// path-resolution context.
func (b *builder) fireBody(owner *model.State, t *model.Transition) ([]string, error) {
	var lines []string

	if b.doc.Hooks.Transition != "" {
		lines = append(lines, b.be.Stmt(b.expand(b.doc.Hooks.Transition)))
	}
	lines = append(lines, b.be.Stmt(b.be.CtxField("transition_fired")+" = "+b.be.TrueLiteral()))
	if t.Action != "" {
		lines = append(lines, b.be.Stmt(b.expand(t.Action)))
	}

	result, err := path.Resolve(b.doc, owner, t.ToRaw)
	if err != nil {
		// Unreachable for a validated document; Generator is only
		// ever run after validate.Validate has passed.
		return nil, err
	}

	switch result.Kind {
	case path.Terminate:
		ep := plan.Plan(owner, b.doc.Root)
		lines = append(lines, b.exitLines(ep.ExitSequence)...)
		lines = append(lines, b.be.FnPtrAssign(b.be.CtxField(ActiveChildField(b.doc.Root)), ""))

	case path.Decision:
		d, _ := b.doc.Decisions.Get(result.Decision)
		lines = append(lines, b.be.Call(DecisionDispatchName(d)))

	case path.Single:
		sl, serr := b.planSingleLines(owner, result.State)
		if serr != nil {
			return nil, serr
		}
		lines = append(lines, sl...)

	case path.ForkResult:
		limbTargets := make(map[*model.State]*model.State, len(result.Limbs))
		for _, limb := range result.Limbs {
			limbTargets[model.RegionOf(limb)] = limb
		}
		fp, ferr := plan.PlanFork(owner, result.AndState, limbTargets)
		if ferr != nil {
			return nil, ferr
		}
		lines = append(lines, b.forkLines(fp)...)
	}

	return lines, nil
}

// planSingleLines lowers a single-target (non-fork) transition into
// its exit/entry lines. A target reached by an ordinary path
// expression can still land inside a different region of an enclosing
// orthogonal state than the source (§4.D.5's cross-limb case, e.g.
// testdata/cross_limb.yaml's "/m/r2/v" fired from within region r1):
// the LCA of such a transition is the orthogonal state itself, so it
// is routed through plan.PlanFork exactly as an explicit fork would
// be — the crossed-into region as the one explicit limb, the vacated
// source region left unnamed so it falls back to its own "_start"
// (picking up its usual initial/history entry) — instead of the plain
// ancestor-chain walk, which would leave the vacated region's
// active-child pointer stale and pointing at an already-exited state.
func (b *builder) planSingleLines(owner, tgt *model.State) ([]string, error) {
	if tgt != owner {
		if lca := plan.LCA(owner, tgt); lca.Kind == model.KindAND {
			if dstRegion := model.RegionOf(tgt); dstRegion.Parent == lca {
				fp, err := plan.PlanFork(owner, lca, map[*model.State]*model.State{dstRegion: tgt})
				if err != nil {
					return nil, err
				}
				return b.forkLines(fp), nil
			}
		}
	}

	var lines []string
	tp := plan.Plan(owner, tgt)
	lines = append(lines, b.exitLines(tp.ExitSequence)...)
	lines = append(lines, b.entryLines(tp.EntrySequence)...)
	lines = b.startIfComposite(lines, tgt)
	return lines, nil
}

// forkLines renders a resolved fork plan: the shared exit up to the
// orthogonal's LCA, the shared entry back down into the orthogonal
// state, then each region's own entry sequence, continued into that
// region's own "_start" when the fork left it at a non-leaf.
func (b *builder) forkLines(fp *plan.ForkPlan) []string {
	var lines []string
	lines = append(lines, b.exitLines(fp.ExitSequence)...)
	lines = append(lines, b.entryLines(fp.SharedEntry)...)
	for _, lp := range fp.Limbs {
		lines = append(lines, b.entryLines(lp.EntrySequence)...)
		target := lp.EntrySequence[len(lp.EntrySequence)-1]
		lines = b.startIfComposite(lines, target)
	}
	return lines
}

// decisionBody renders a decision's dispatcher function body: its
// transitions are tried in order with first-match semantics, using
// d.Owner as the path-resolution context for every arm's "to". The
// transition_fired flag is cleared on entry and each arm is guarded by
// its negation, so once one arm fires no later guard is evaluated; the
// flag is set again on the way out, since the transition that called
// the dispatcher has itself fired.
func (b *builder) decisionBody(d *model.Decision) (string, error) {
	fired := b.be.CtxField("transition_fired")
	lines := []string{b.be.Stmt(fired + " = " + b.be.FalseLiteral())}
	for _, t := range d.Transitions {
		block, err := b.transitionBlock(d.Owner, t)
		if err != nil {
			return "", err
		}
		lines = append(lines, renderBlock(b.be.Negate(fired), block, b.be)...)
	}
	lines = append(lines, b.be.Stmt(fired+" = "+b.be.TrueLiteral()))
	return joinLines(lines), nil
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
