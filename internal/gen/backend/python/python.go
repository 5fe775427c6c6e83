// Package python implements the gen.Backend for emitting a single
// .py module: first-class callables, no statement terminator, and
// indent-sensitive blocks — FormatTemplate re-indents every inserted
// multi-line body to the surrounding scope before substitution, per
// §4.F's closing paragraph and §4.G's Python requirements.
package python

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/hsmgen/hsmgen/internal/gen"
	"github.com/hsmgen/hsmgen/internal/model"
)

// Backend is the Python code-generation backend.
type Backend struct{}

// New returns a Python Backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string              { return "python" }
func (*Backend) Ext() string               { return "py" }
func (*Backend) HeaderExt() (string, bool) { return "", false }
func (*Backend) StmtTerminator() string    { return "" }

func (*Backend) OpenIf(cond string) string { return fmt.Sprintf("if %s:", cond) }
func (*Backend) CloseBlock() string        { return "" }

func (*Backend) TrueLiteral() string  { return "True" }
func (*Backend) FalseLiteral() string { return "False" }

func (*Backend) NullTest(expr string) string { return fmt.Sprintf("%s is None", expr) }
func (*Backend) Negate(expr string) string   { return fmt.Sprintf("not (%s)", expr) }

func (*Backend) CtxField(field string) string { return "ctx." + field }

func (*Backend) Stmt(line string) string { return line }

func (*Backend) Call(procName string) string { return fmt.Sprintf("%s(e, ctx)", procName) }

func (*Backend) VTableRef(ident string) string { return ident + "_VT" }

func (*Backend) AssignPtr(dstExpr, srcExpr string) string {
	return fmt.Sprintf("%s = %s", dstExpr, srcExpr)
}

func (*Backend) FnPtrAssign(ptrExpr, targetFn string) string {
	if targetFn == "" {
		return fmt.Sprintf("%s = None", ptrExpr)
	}
	return fmt.Sprintf("%s = %s", ptrExpr, targetFn)
}

func memberName(method string) string {
	if method == "do" {
		return "tick"
	}
	return method
}

// NullCheckCall renders a guarded call as two physical lines; the
// indent-sensitive body that follows "if ptrExpr is not None:" is
// re-indented by FormatTemplate along with everything else inserted
// into a function body, so it is written here at the caller's base
// indentation and left for that pass to shift.
func (*Backend) NullCheckCall(ptrExpr, method string) string {
	m := memberName(method)
	return fmt.Sprintf("if %s is not None:\n\t%s.%s(e, ctx)", ptrExpr, ptrExpr, m)
}

func (*Backend) InStateExpand(statePath string) string {
	return fmt.Sprintf("in_state(ctx, %q)", statePath)
}

const fnTemplate = `def {{.Name}}(e, ctx):
{{.Body}}
`

// FormatTemplate expands tmpl normally, then re-indents every line of
// the substituted {{.Body}} value by one level (4 spaces), turning
// the tab-delimited nesting the shared walker produces into valid
// Python block structure. Every other backend treats a tab as free
// whitespace; this is the one place indentation is load-bearing.
func (b *Backend) FormatTemplate(tmpl string, data map[string]string) (string, error) {
	reindented := make(map[string]string, len(data))
	for k, v := range data {
		if k == "Body" {
			v = reindentBody(v)
		}
		reindented[k] = v
	}
	t, err := template.New("fn").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, reindented); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// reindentBody converts each line's leading run of tabs into an
// equivalent run of 4-space indent units, one level deeper than the
// surrounding def (the function body itself starts at one tab/4
// spaces; nested if-blocks accumulate further tabs from renderBlock).
func reindentBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		depth := 0
		for depth < len(l) && l[depth] == '\t' {
			depth++
		}
		lines[i] = strings.Repeat("    ", depth+1) + l[depth:]
	}
	return strings.Join(lines, "\n")
}

func (b *Backend) AssembleOutput(ctx *gen.GenContext) (map[string]string, error) {
	doc := ctx.Doc
	var src strings.Builder
	src.WriteString("from dataclasses import dataclass, field\n")
	src.WriteString("from typing import Callable, Optional\n\n")
	if doc.Includes != "" {
		src.WriteString(doc.Includes)
		src.WriteString("\n")
	}
	src.WriteString("class Event:\n\tpass\n\n\n")

	src.WriteString("@dataclass\n")
	src.WriteString("class StateVTable:\n")
	src.WriteString("\tentry: Callable\n\texit: Callable\n\ttick: Callable\n\tstart: Callable\n\tname: str\n\n\n")

	src.WriteString("@dataclass\n")
	src.WriteString("class Context:\n")
	src.WriteString("\ttransition_fired: bool = False\n")
	for _, s := range ctx.StateOrder {
		if s.IsLeaf() || s.Kind == model.KindAND {
			continue
		}
		src.WriteString(fmt.Sprintf("\t%s: Optional[StateVTable] = None\n", gen.ActiveChildField(s)))
		if s.History {
			src.WriteString(fmt.Sprintf("\t%s: Optional[StateVTable] = None\n", gen.HistoryField(s)))
		}
	}
	for _, f := range doc.Context {
		src.WriteString(fmt.Sprintf("\t%s: %s = None\n", f.Name, f.Type))
	}
	src.WriteString("\n\n")

	for _, s := range ctx.StateOrder {
		procs := ctx.Procs[gen.Ident(s)]
		for _, pair := range []struct {
			suffix string
			body   string
		}{
			{"entry", procs.Entry}, {"exit", procs.Exit}, {"do", procs.Do}, {"start", procs.Start},
		} {
			if err := writeProc(&src, b, gen.ProcName(s, pair.suffix), pair.body); err != nil {
				return nil, err
			}
		}
		src.WriteString(fmt.Sprintf(
			"%s_VT = StateVTable(entry=%s, exit=%s, tick=%s, start=%s, name=%q)\n\n\n",
			gen.Ident(s), gen.ProcName(s, "entry"), gen.ProcName(s, "exit"),
			gen.ProcName(s, "do"), gen.ProcName(s, "start"), s.Name,
		))
	}

	for _, name := range sortedKeys(ctx.DecisionDispatchers) {
		if err := writeProc(&src, b, name, ctx.DecisionDispatchers[name]); err != nil {
			return nil, err
		}
	}

	writeInspector(&src, doc)

	src.WriteString("def sm_init(ctx):\n")
	if doc.ContextInit != "" {
		src.WriteString(fmt.Sprintf("\t%s(ctx)\n", doc.ContextInit))
	}
	src.WriteString("\te = Event()\n")
	src.WriteString(fmt.Sprintf("\t%s(e, ctx)\n\n\n", gen.ProcName(doc.Root, "start")))

	src.WriteString("def sm_tick(e, ctx):\n")
	src.WriteString("\tctx.transition_fired = False\n")
	src.WriteString(fmt.Sprintf("\t%s(e, ctx)\n\n\n", gen.ProcName(doc.Root, "do")))

	src.WriteString("def sm_is_running(ctx):\n")
	src.WriteString(fmt.Sprintf("\treturn ctx.%s is not None\n", gen.ActiveChildField(doc.Root)))

	return map[string]string{"py": src.String()}, nil
}

func writeProc(b *strings.Builder, be *Backend, name, body string) error {
	if body == "" {
		body = "\tpass"
	}
	rendered, err := be.FormatTemplate(fnTemplate, map[string]string{"Name": name, "Body": body})
	if err != nil {
		return err
	}
	b.WriteString(rendered)
	b.WriteString("\n\n")
	return nil
}

func writeInspector(b *strings.Builder, doc *model.Document) {
	var body strings.Builder
	body.WriteString("out = []\n")
	writeDescribeCalls(&body, doc.Root, "")
	body.WriteString("return \"\".join(out)")
	rendered, _ := (&Backend{}).FormatTemplate("def sm_get_state_str(ctx):\n{{.Body}}\n", map[string]string{"Body": body.String()})
	b.WriteString(rendered)
	b.WriteString("\n\n")

	b.WriteString("def in_state(ctx, path):\n")
	b.WriteString("\treturn path in sm_get_state_str(ctx)\n\n\n")
}

func writeDescribeCalls(b *strings.Builder, s *model.State, indent string) {
	if s.IsLeaf() {
		b.WriteString(fmt.Sprintf("%sout.append(\"/%s\")\n", indent, s.Name))
		return
	}
	if len(s.Path) > 0 {
		b.WriteString(fmt.Sprintf("%sout.append(\"/%s\")\n", indent, s.Name))
	}
	switch s.Kind {
	case model.KindAND:
		b.WriteString(indent + "out.append(\"[\")\n")
		first := true
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteString(indent + "out.append(\" | \")\n")
			}
			first = false
			writeDescribeCalls(b, pair.Value, indent)
		}
		b.WriteString(indent + "out.append(\"]\")\n")
	default:
		field := gen.ActiveChildField(s)
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			b.WriteString(fmt.Sprintf("%sif ctx.%s is %s_VT:\n", indent, field, gen.Ident(pair.Value)))
			writeDescribeCalls(b, pair.Value, indent+"\t")
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
