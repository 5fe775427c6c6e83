// Package dot renders a validated model.Document as Graphviz DOT text,
// per §4.E. Diagram assembly follows the same hand-built
// strings.Builder style as the teacher's own PlantUML emitter and the
// sibling rfsm visualization example: no graph-rendering library
// sits in front of the text, since neither reference reaches for one
// and the format itself is simple line-oriented text.
package dot

import (
	"fmt"
	"strings"

	"github.com/hsmgen/hsmgen/internal/model"
	"github.com/hsmgen/hsmgen/internal/path"
)

const maxLabelRunes = 40

// Render produces the complete DOT source for doc.
func Render(doc *model.Document) string {
	var b strings.Builder
	b.WriteString("digraph statemachine {\n")
	b.WriteString("\trankdir=TB;\n")
	b.WriteString("\tcompound=true;\n\n")

	dumpState(&b, doc.Root, 1, true)

	var edges strings.Builder
	emitTransitions(&edges, doc, doc.Root)
	emitDecisionDiamonds(&edges, doc)

	b.WriteString(edges.String())
	b.WriteString("}\n")
	return b.String()
}

func nodeID(s *model.State) string {
	if len(s.Path) == 0 {
		return "root"
	}
	return "n_" + strings.Join(s.Path, "_")
}

func decisionID(name string) string {
	return "dec_" + name
}

// dumpState recursively renders s and its subtree. When s is the
// document root, it is rendered as the outermost graph rather than a
// cluster, since Graphviz has no "root cluster" concept.
func dumpState(b *strings.Builder, s *model.State, indent int, isRoot bool) {
	prefix := strings.Repeat("\t", indent)

	if !isRoot {
		b.WriteString(prefix)
		fmt.Fprintf(b, "subgraph cluster_%s {\n", nodeID(s))
		b.WriteString(prefix + "\t")
		fmt.Fprintf(b, "label=%q;\n", s.Name)
		if s.Parent != nil && s.Parent.Kind == model.KindAND {
			b.WriteString(prefix + "\t")
			b.WriteString("style=dashed;\n")
		}
	}

	if s.IsLeaf() {
		if !isRoot {
			b.WriteString(prefix + "\t")
			fmt.Fprintf(b, "%s [label=%q, shape=box];\n", nodeID(s), s.Name)
		}
	} else {
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			dumpState(b, pair.Value, indent+1, false)
			if s.Kind == model.KindAND {
				b.WriteString(prefix + "\t")
				fmt.Fprintf(b, "// region %s runs concurrently with its siblings\n", pair.Value.Name)
			}
		}
		if s.Kind != model.KindAND && s.Initial != nil {
			b.WriteString(prefix + "\t")
			fmt.Fprintf(b, "%s_initial [shape=point];\n", nodeID(s))
			b.WriteString(prefix + "\t")
			fmt.Fprintf(b, "%s_initial -> %s;\n", nodeID(s), nodeID(s.Initial))
		}
	}

	if !isRoot {
		b.WriteString(prefix)
		b.WriteString("}\n")
	}
}

func emitTransitions(b *strings.Builder, doc *model.Document, s *model.State) {
	for _, t := range s.Transitions {
		emitOneTransition(b, doc, s, t, nodeID(s))
	}
	if s.Children != nil {
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			emitTransitions(b, doc, pair.Value)
		}
	}
}

func emitOneTransition(b *strings.Builder, doc *model.Document, owner *model.State, t *model.Transition, fromID string) {
	label := transitionLabel(t)
	result, err := path.Resolve(doc, owner, t.ToRaw)
	if err != nil {
		// Unreachable once the document has passed validation; left
		// defensive so a caller rendering an unvalidated document
		// still gets a diagram instead of a panic.
		fmt.Fprintf(b, "\t%s -> %s [label=%q, color=red];\n", fromID, fromID, "unresolved: "+err.Error())
		return
	}

	switch result.Kind {
	case path.Terminate:
		termID := fromID + "_terminate"
		fmt.Fprintf(b, "\t%s [shape=point];\n", termID)
		fmt.Fprintf(b, "\t%s -> %s [label=%q];\n", fromID, termID, label)

	case path.Decision:
		fmt.Fprintf(b, "\t%s -> %s [label=%q];\n", fromID, decisionID(result.Decision), label)

	case path.Single:
		fmt.Fprintf(b, "\t%s -> %s [label=%q];\n", fromID, nodeID(result.State), label)

	case path.ForkResult:
		forkID := fromID + "_fork_" + strings.Join(pathSuffix(t.ToRaw), "_")
		fmt.Fprintf(b, "\t%s [shape=point];\n", forkID)
		fmt.Fprintf(b, "\t%s -> %s [label=%q];\n", fromID, forkID, label)
		for _, limb := range result.Limbs {
			fmt.Fprintf(b, "\t%s -> %s;\n", forkID, nodeID(limb))
		}
	}
}

// pathSuffix gives emitOneTransition a short, stable-enough token to
// disambiguate multiple fork nodes originating from the same state.
func pathSuffix(raw string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '[', ']', ',', ' ', '.':
			return '_'
		default:
			return r
		}
	}, raw)
	return []string{cleaned}
}

func emitDecisionDiamonds(b *strings.Builder, doc *model.Document) {
	for pair := doc.Decisions.Oldest(); pair != nil; pair = pair.Next() {
		d := pair.Value
		fmt.Fprintf(b, "\t%s [label=%q, shape=diamond];\n", decisionID(d.Name), d.Name)
		for _, t := range d.Transitions {
			emitOneTransition(b, doc, d.Owner, t, decisionID(d.Name))
		}
	}
}

func transitionLabel(t *model.Transition) string {
	var parts []string
	if t.Guard != "" {
		parts = append(parts, "["+truncate(t.Guard)+"]")
	}
	if t.Action != "" {
		parts = append(parts, "/ "+truncate(t.Action))
	}
	return strings.Join(parts, " ")
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabelRunes {
		return s
	}
	return string(r[:maxLabelRunes-1]) + "…"
}
