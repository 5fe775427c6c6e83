package path

import (
	"fmt"

	"github.com/hsmgen/hsmgen/internal/model"
)

// ResultKind distinguishes the four outcomes §4.C allows for a
// resolved target.
type ResultKind int

const (
	Single ResultKind = iota
	ForkResult
	Terminate
	Decision
)

// Result is the outcome of resolving one `to:` expression.
type Result struct {
	Kind     ResultKind
	State    *model.State   // Kind == Single
	Limbs    []*model.State // Kind == ForkResult, one per region limb
	AndState *model.State   // Kind == ForkResult, the composite_and the limbs fork from
	Decision string         // Kind == Decision
}

// Resolve applies the rules of §4.C, turning raw relative to ctx (the
// source state of the transition) into a Result. It performs no
// semantic checks beyond path existence: an unresolvable path segment
// is reported as an error for the validator to wrap into a
// diag.ValidationError; Resolve itself carries no diagnostic
// formatting.
func Resolve(doc *model.Document, ctx *model.State, raw string) (Result, error) {
	expr, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}
	return resolveExpr(doc, ctx, expr)
}

func resolveExpr(doc *model.Document, ctx *model.State, expr Expr) (Result, error) {
	switch e := expr.(type) {
	case NullExpr:
		return Result{Kind: Terminate}, nil

	case DecisionRef:
		return Result{Kind: Decision, Decision: e.Name}, nil

	case SelfExpr:
		return Result{Kind: Single, State: ctx}, nil

	case Absolute:
		st, err := walk(doc.Root, e.Segments)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: Single, State: st}, nil

	case Descend:
		st, err := walk(ctx, e.Segments)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: Single, State: st}, nil

	case Up:
		base := ctx
		for i := 0; i < e.N; i++ {
			if base.Parent == nil {
				return Result{}, fmt.Errorf("path goes above root (%d levels up from %s)", e.N, ctx.PathString())
			}
			base = base.Parent
		}
		st, err := walk(base, e.Tail)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: Single, State: st}, nil

	case Sibling:
		if ctx.Parent == nil {
			return Result{}, fmt.Errorf("state %s has no parent, cannot resolve sibling %q", ctx.PathString(), e.Name)
		}
		st, err := walk(ctx.Parent, []string{e.Name})
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: Single, State: st}, nil

	case Fork:
		prefixResult, err := resolveExpr(doc, ctx, e.Prefix)
		if err != nil {
			return Result{}, err
		}
		if prefixResult.Kind != Single {
			return Result{}, fmt.Errorf("fork prefix must resolve to a single state")
		}
		base := prefixResult.State
		if base.Kind != model.KindAND {
			return Result{}, fmt.Errorf("fork prefix %s is not an orthogonal (composite_and) state", base.PathString())
		}
		limbs := make([]*model.State, 0, len(e.Limbs))
		for _, limb := range e.Limbs {
			if len(limb) == 0 {
				return Result{}, fmt.Errorf("fork under %s: empty limb", base.PathString())
			}
			regionName := limb[0]
			region, ok := base.Children.Get(regionName)
			if !ok {
				return Result{}, fmt.Errorf("fork under %s: no such region %q", base.PathString(), regionName)
			}
			st, err := walk(region, limb[1:])
			if err != nil {
				return Result{}, err
			}
			limbs = append(limbs, st)
		}
		return Result{Kind: ForkResult, Limbs: limbs, AndState: base}, nil

	default:
		return Result{}, fmt.Errorf("unhandled path expression %T", expr)
	}
}

// walk descends from base through segs, verifying each segment exists
// as a child of the previous.
func walk(base *model.State, segs []string) (*model.State, error) {
	cur := base
	for _, seg := range segs {
		if cur.Children == nil {
			return nil, fmt.Errorf("%s has no children, cannot descend into %q", cur.PathString(), seg)
		}
		next, ok := cur.Children.Get(seg)
		if !ok {
			return nil, fmt.Errorf("%s has no child %q", cur.PathString(), seg)
		}
		cur = next
	}
	return cur, nil
}
