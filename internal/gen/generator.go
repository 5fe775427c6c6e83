package gen

import (
	"strings"

	"github.com/hsmgen/hsmgen/internal/model"
)

// Run drives the whole walk of §4.F over doc using be, producing a
// GenContext ready for be.AssembleOutput. It is the only exported
// entry point of this package; everything else is plumbing shared
// between the per-state procedure builders here and the transition
// emitters in transitions.go. The inspector (get_state_str) is not
// built here at all — each backend assembles it directly from
// ctx.Doc inside AssembleOutput, per backend.go's Backend.AssembleOutput
// doc comment.
func Run(doc *model.Document, be Backend) (*GenContext, error) {
	b := &builder{doc: doc, be: be}

	ctx := &GenContext{
		Doc:                 doc,
		Backend:             be,
		Procs:               make(map[string]*StateProcs),
		DecisionDispatchers: make(map[string]string),
	}

	if err := b.walk(doc.Root, ctx); err != nil {
		return nil, err
	}

	for pair := doc.Decisions.Oldest(); pair != nil; pair = pair.Next() {
		d := pair.Value
		body, err := b.decisionBody(d)
		if err != nil {
			return nil, err
		}
		ctx.DecisionDispatchers[DecisionDispatchName(d)] = body
	}

	return ctx, nil
}

// builder carries the shared read-only inputs to every procedure and
// transition builder. It holds no mutable state of its own; Run's
// GenContext is what accumulates results.
type builder struct {
	doc *model.Document
	be  Backend
}

func (b *builder) walk(s *model.State, ctx *GenContext) error {
	ctx.StateOrder = append(ctx.StateOrder, s)

	do, err := b.doBody(s)
	if err != nil {
		return err
	}

	start, err := b.startBody(s)
	if err != nil {
		return err
	}

	ctx.Procs[Ident(s)] = &StateProcs{
		State: s,
		Start: start,
		Entry: b.entryBody(s),
		Exit:  b.exitBody(s),
		Do:    do,
	}

	if s.Children != nil {
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			if err := b.walk(pair.Value, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// expand performs the one substitution permitted on opaque guard,
// action, and hook text: turning every "IN_STATE(path)" occurrence
// into the backend's active-state predicate.
func (b *builder) expand(code string) string {
	const macro = "IN_STATE("
	var out strings.Builder
	rest := code
	for {
		i := strings.Index(rest, macro)
		if i < 0 {
			out.WriteString(rest)
			return out.String()
		}
		out.WriteString(rest[:i])
		rest = rest[i+len(macro):]
		close := strings.IndexByte(rest, ')')
		if close < 0 {
			out.WriteString(macro)
			out.WriteString(rest)
			return out.String()
		}
		statePath := strings.TrimSpace(rest[:close])
		out.WriteString(b.be.InStateExpand(statePath))
		rest = rest[close+1:]
	}
}

// entryBody renders s's "_entry" procedure: the global entry hook
// runs before s's own entry code, outer-to-inner.
func (b *builder) entryBody(s *model.State) string {
	var lines []string
	if b.doc.Hooks.Entry != "" {
		lines = append(lines, b.be.Stmt(b.expand(b.doc.Hooks.Entry)))
	}
	if s.Entry != "" {
		lines = append(lines, b.be.Stmt(b.expand(s.Entry)))
	}
	return strings.Join(lines, "\n")
}

// exitBody renders s's "_exit" procedure: s's own exit code runs
// before the global exit hook, inner-to-outer, the mirror of entry.
// It never recurses into s's children — whichever descendant was
// active already had its own "_exit" invoked earlier in the same
// bottom-up exit-sequence walk (see exitLines).
//
// A composite_and state is the one exception: its regions are not
// individually threaded into any transition's exit sequence (the
// planner excludes the orthogonal state itself whenever both ends of
// a transition stay within one region, and treats it as an ordinary
// ancestor otherwise), so its own "_exit" is the only place a region's
// teardown happens at all. Unlike an ordinary ancestor walk, nothing
// upstream of this call can be relied on to have already exited
// whatever is active inside each region — termination is the clearest
// case, where nothing exits a region's contents beforehand — so each
// region's actual active descendant is walked down dynamically and
// exited before the region root's own exit code runs (see
// regionExitLines).
func (b *builder) exitBody(s *model.State) string {
	var lines []string
	if s.Exit != "" {
		lines = append(lines, b.be.Stmt(b.expand(s.Exit)))
	}
	if s.Kind == model.KindAND {
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			lines = append(lines, b.regionExitLines(pair.Value)...)
		}
	}
	if s.History {
		lines = append(lines, b.be.AssignPtr(b.be.CtxField(HistoryField(s)), b.be.CtxField(ActiveChildField(s))))
	}
	if b.doc.Hooks.Exit != "" {
		lines = append(lines, b.be.Stmt(b.expand(b.doc.Hooks.Exit)))
	}
	return strings.Join(lines, "\n")
}

// regionExitLines renders the full teardown of one region of a
// composite_and state being exited as a whole: whatever is currently
// active inside the region exits first, then the region root's own
// "_exit" runs — the exit-side mirror of startBody's descent into a
// region's initial/history child. A nested composite_and region
// recurses into its own regions the same way startBody's composite_and
// case does; an ordinary region reaches its actual active descendant
// with one level of dynamic dispatch through the region's own
// active-child field, which is as deep as any region goes in practice
// (a region nesting a further composite below its immediate children
// would need the same per-child identity dispatch the inspector uses
// to recurse past that level too).
func (b *builder) regionExitLines(region *model.State) []string {
	var lines []string
	switch {
	case region.Kind == model.KindAND:
		for pair := region.Children.Oldest(); pair != nil; pair = pair.Next() {
			lines = append(lines, b.regionExitLines(pair.Value)...)
		}
	case !region.IsLeaf():
		lines = append(lines, b.be.NullCheckCall(b.be.CtxField(ActiveChildField(region)), "exit"))
	}
	lines = append(lines, b.be.Call(ProcName(region, "exit")))
	return lines
}

// startBody renders s's "_start" procedure: descent from s (already
// entered) down to a concrete leaf. Leaves terminate the recursion
// with an empty body; composite_or states pick a child (shallow
// history if enabled and recorded, otherwise Initial), enter it and
// recurse into its "_start"; composite_and states enter and start
// every region.
func (b *builder) startBody(s *model.State) (string, error) {
	var lines []string
	switch {
	case s.IsLeaf():
		// nothing below a leaf to descend into

	case s.Kind == model.KindAND:
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			region := pair.Value
			lines = append(lines, b.be.Call(ProcName(region, "entry")))
			lines = append(lines, b.be.Call(ProcName(region, "start")))
		}

	default:
		activeField := b.be.CtxField(ActiveChildField(s))
		if s.History {
			histField := b.be.CtxField(HistoryField(s))
			lines = append(lines, b.be.OpenIf(b.be.Negate(b.be.NullTest(histField))))
			lines = append(lines, "\t"+b.be.AssignPtr(activeField, histField))
			lines = append(lines, b.be.CloseBlock())
			lines = append(lines, b.be.OpenIf(b.be.NullTest(histField)))
			lines = append(lines, "\t"+b.be.FnPtrAssign(activeField, b.be.VTableRef(Ident(s.Initial))))
			lines = append(lines, b.be.CloseBlock())
		} else {
			lines = append(lines, b.be.FnPtrAssign(activeField, b.be.VTableRef(Ident(s.Initial))))
		}
		lines = append(lines, b.be.NullCheckCall(activeField, "entry"))
		lines = append(lines, b.be.NullCheckCall(activeField, "start"))
	}
	return strings.Join(lines, "\n"), nil
}

// doBody renders s's "_do" procedure: the global do hook, s's own do
// code, the transition-selection block (§4.F.2), then recursive
// dispatch into whatever is currently active below s.
func (b *builder) doBody(s *model.State) (string, error) {
	var lines []string
	if b.doc.Hooks.Do != "" {
		lines = append(lines, b.be.Stmt(b.expand(b.doc.Hooks.Do)))
	}
	if s.Do != "" {
		lines = append(lines, b.be.Stmt(b.expand(s.Do)))
	}

	for _, t := range s.Transitions {
		block, err := b.transitionBlock(s, t)
		if err != nil {
			return "", err
		}
		lines = append(lines, block...)
	}

	switch {
	case s.IsLeaf():
		// nothing further to dispatch into
	case s.Kind == model.KindAND:
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			lines = append(lines, b.be.Call(ProcName(pair.Value, "do")))
		}
	default:
		lines = append(lines, b.be.NullCheckCall(b.be.CtxField(ActiveChildField(s)), "do"))
	}

	return strings.Join(lines, "\n"), nil
}

// exitLines renders the exit half of a planned sequence: bottom-up,
// each state's "_exit" is invoked through its parent's active-child
// slot, guarded in case the slot is already empty. A state whose
// parent is a composite_and is skipped here — that parent's own
// "_exit" (reached later in the same walk, see exitBody) tears down
// every region uniformly, this one included.
func (b *builder) exitLines(seq []*model.State) []string {
	var lines []string
	for _, x := range seq {
		if x.Parent == nil {
			lines = append(lines, b.be.Call(ProcName(x, "exit")))
			continue
		}
		if x.Parent.Kind == model.KindAND {
			continue
		}
		field := b.be.CtxField(ActiveChildField(x.Parent))
		lines = append(lines, b.be.NullCheckCall(field, "exit"))
	}
	return lines
}

// entryLines renders the entry half of a planned sequence: top-down,
// each state's "_entry" runs and its parent's active-child slot is
// pointed at it. A state whose parent is a composite_and is skipped
// — that parent's own "_start" enters every region, this one included
// (see startBody).
func (b *builder) entryLines(seq []*model.State) []string {
	var lines []string
	for _, y := range seq {
		if y.Parent != nil && y.Parent.Kind == model.KindAND {
			continue
		}
		lines = append(lines, b.be.Call(ProcName(y, "entry")))
		if y.Parent != nil {
			field := b.be.CtxField(ActiveChildField(y.Parent))
			lines = append(lines, b.be.FnPtrAssign(field, b.be.VTableRef(Ident(y))))
		}
	}
	return lines
}

// startIfComposite appends a call into target's own "_start" unless
// target is a leaf, picking up history-vs-initial descent exactly as
// every other transition landing on target would.
func (b *builder) startIfComposite(lines []string, target *model.State) []string {
	if !target.IsLeaf() {
		lines = append(lines, b.be.Call(ProcName(target, "start")))
	}
	return lines
}
