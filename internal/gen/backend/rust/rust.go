// Package rust implements the gen.Backend for emitting a single .rs
// source file: value-semantics references, Option<&'static VTable>
// function-pointer slots, "if let Some(v) = ..." null checks, ";"
// terminators — the idioms §4.G requires of the Rust target.
package rust

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/hsmgen/hsmgen/internal/gen"
	"github.com/hsmgen/hsmgen/internal/model"
)

// Backend is the Rust code-generation backend.
type Backend struct{}

// New returns a Rust Backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string              { return "rust" }
func (*Backend) Ext() string               { return "rs" }
func (*Backend) HeaderExt() (string, bool) { return "", false }
func (*Backend) StmtTerminator() string    { return ";" }

func (*Backend) OpenIf(cond string) string { return fmt.Sprintf("if %s {", cond) }
func (*Backend) CloseBlock() string        { return "}" }

func (*Backend) TrueLiteral() string  { return "true" }
func (*Backend) FalseLiteral() string { return "false" }

func (*Backend) NullTest(expr string) string { return fmt.Sprintf("%s.is_none()", expr) }
func (*Backend) Negate(expr string) string   { return fmt.Sprintf("!(%s)", expr) }

func (*Backend) CtxField(field string) string { return "ctx." + field }

func (*Backend) Stmt(line string) string { return line + ";" }

func (*Backend) Call(procName string) string { return fmt.Sprintf("%s(e, ctx);", procName) }

func (*Backend) VTableRef(ident string) string { return "Some(&" + ident + "_VT)" }

func (*Backend) AssignPtr(dstExpr, srcExpr string) string {
	return fmt.Sprintf("%s = %s;", dstExpr, srcExpr)
}

func (*Backend) FnPtrAssign(ptrExpr, targetFn string) string {
	if targetFn == "" {
		return fmt.Sprintf("%s = None;", ptrExpr)
	}
	return fmt.Sprintf("%s = %s;", ptrExpr, targetFn)
}

func memberName(method string) string {
	if method == "do" {
		return "tick"
	}
	return method
}

// NullCheckCall renders Rust's idiomatic "if let Some(v) = ptrExpr {
// (v.method)(e, ctx); }" guard, binding the pointee to v so the call
// itself reads as an ordinary method/field invocation.
func (*Backend) NullCheckCall(ptrExpr, method string) string {
	m := memberName(method)
	return fmt.Sprintf("if let Some(v) = %s { (v.%s)(e, ctx); }", ptrExpr, m)
}

func (*Backend) InStateExpand(statePath string) string {
	return fmt.Sprintf("in_state(ctx, %q)", statePath)
}

func (*Backend) FormatTemplate(tmpl string, data map[string]string) (string, error) {
	t, err := template.New("fn").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const fnTemplate = `fn {{.Name}}(e: &Event, ctx: &mut Context) {
{{.Body}}
}
`

// AssembleOutput produces the single .rs file: the Event/Context/
// StateVTable types, one const StateVTable per state, every procedure
// body, the decision dispatchers, the inspector, and the four public
// entry points.
func (*Backend) AssembleOutput(ctx *gen.GenContext) (map[string]string, error) {
	be := &Backend{}
	doc := ctx.Doc

	var src strings.Builder
	src.WriteString("#![allow(dead_code, unused_variables)]\n\n")
	if doc.Includes != "" {
		src.WriteString(doc.Includes)
		src.WriteString("\n")
	}
	src.WriteString("pub struct Event;\n\n")
	src.WriteString("pub struct StateVTable {\n")
	src.WriteString("\tentry: fn(&Event, &mut Context),\n")
	src.WriteString("\texit: fn(&Event, &mut Context),\n")
	src.WriteString("\ttick: fn(&Event, &mut Context),\n")
	src.WriteString("\tstart: fn(&Event, &mut Context),\n")
	src.WriteString("\tname: &'static str,\n")
	src.WriteString("}\n\n")

	src.WriteString("pub struct Context {\n")
	src.WriteString("\tpub transition_fired: bool,\n")
	for _, s := range ctx.StateOrder {
		if s.IsLeaf() || s.Kind == model.KindAND {
			continue
		}
		src.WriteString(fmt.Sprintf("\tpub %s: Option<&'static StateVTable>,\n", gen.ActiveChildField(s)))
		if s.History {
			src.WriteString(fmt.Sprintf("\tpub %s: Option<&'static StateVTable>,\n", gen.HistoryField(s)))
		}
	}
	for _, f := range doc.Context {
		src.WriteString(fmt.Sprintf("\tpub %s: %s,\n", f.Name, f.Type))
	}
	src.WriteString("}\n\n")

	for _, s := range ctx.StateOrder {
		procs := ctx.Procs[gen.Ident(s)]
		for _, pair := range []struct {
			suffix string
			body   string
		}{
			{"entry", procs.Entry}, {"exit", procs.Exit}, {"do", procs.Do}, {"start", procs.Start},
		} {
			if err := writeProc(&src, be, gen.ProcName(s, pair.suffix), pair.body); err != nil {
				return nil, err
			}
		}
		name := "\"\""
		if s.Name != "" {
			name = fmt.Sprintf("%q", s.Name)
		}
		src.WriteString(fmt.Sprintf(
			"const %s_VT: StateVTable = StateVTable { entry: %s, exit: %s, tick: %s, start: %s, name: %s };\n\n",
			gen.Ident(s), gen.ProcName(s, "entry"), gen.ProcName(s, "exit"),
			gen.ProcName(s, "do"), gen.ProcName(s, "start"), name,
		))
	}

	for _, name := range sortedKeys(ctx.DecisionDispatchers) {
		if err := writeProc(&src, be, name, ctx.DecisionDispatchers[name]); err != nil {
			return nil, err
		}
	}

	writeInspector(&src, doc)

	src.WriteString("pub fn sm_init(ctx: &mut Context) {\n")
	if doc.ContextInit != "" {
		src.WriteString(fmt.Sprintf("\t%s(ctx);\n", doc.ContextInit))
	}
	src.WriteString("\tlet e = Event;\n")
	src.WriteString(fmt.Sprintf("\t%s(&e, ctx);\n", gen.ProcName(doc.Root, "start")))
	src.WriteString("}\n\n")

	src.WriteString("pub fn sm_tick(e: &Event, ctx: &mut Context) {\n")
	src.WriteString("\tctx.transition_fired = false;\n")
	src.WriteString(fmt.Sprintf("\t%s(e, ctx);\n", gen.ProcName(doc.Root, "do")))
	src.WriteString("}\n\n")

	src.WriteString("pub fn sm_is_running(ctx: &Context) -> bool {\n")
	src.WriteString(fmt.Sprintf("\tctx.%s.is_some()\n", gen.ActiveChildField(doc.Root)))
	src.WriteString("}\n")

	return map[string]string{"rs": src.String()}, nil
}

func writeProc(b *strings.Builder, be *Backend, name, body string) error {
	if body == "" {
		body = "\tlet _ = e;\n\tlet _ = &ctx;"
	} else {
		body = indent(body, "\t")
	}
	rendered, err := be.FormatTemplate(fnTemplate, map[string]string{"Name": name, "Body": body})
	if err != nil {
		return err
	}
	b.WriteString(rendered)
	b.WriteString("\n")
	return nil
}

func indent(body, prefix string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func writeInspector(b *strings.Builder, doc *model.Document) {
	b.WriteString("pub fn sm_get_state_str(ctx: &Context) -> String {\n")
	b.WriteString("\tlet mut out = String::new();\n")
	writeDescribeCalls(b, doc.Root, "\t")
	b.WriteString("\tout\n")
	b.WriteString("}\n\n")

	b.WriteString("pub fn in_state(ctx: &Context, path: &str) -> bool {\n")
	b.WriteString("\tsm_get_state_str(ctx).contains(path)\n")
	b.WriteString("}\n\n")
}

func writeDescribeCalls(b *strings.Builder, s *model.State, indent string) {
	if s.IsLeaf() {
		b.WriteString(fmt.Sprintf("%sout.push_str(\"/%s\");\n", indent, s.Name))
		return
	}
	if len(s.Path) > 0 {
		b.WriteString(fmt.Sprintf("%sout.push_str(\"/%s\");\n", indent, s.Name))
	}
	switch s.Kind {
	case model.KindAND:
		b.WriteString(indent + "out.push_str(\"[\");\n")
		first := true
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteString(indent + "out.push_str(\" | \");\n")
			}
			first = false
			writeDescribeCalls(b, pair.Value, indent)
		}
		b.WriteString(indent + "out.push_str(\"]\");\n")
	default:
		field := gen.ActiveChildField(s)
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			b.WriteString(fmt.Sprintf("%sif matches!(ctx.%s, Some(v) if std::ptr::eq(v, &%s_VT)) {\n", indent, field, gen.Ident(pair.Value)))
			writeDescribeCalls(b, pair.Value, indent+"\t")
			b.WriteString(indent + "}\n")
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
