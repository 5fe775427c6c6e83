// Package c implements the gen.Backend for emitting a C source/header
// pair: function pointers, explicit NULL checks, manual header/source
// split, ";" terminators — the idioms §4.G requires of the C target.
package c

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/hsmgen/hsmgen/internal/gen"
	"github.com/hsmgen/hsmgen/internal/model"
)

// Backend is the C code-generation backend.
type Backend struct{}

// New returns a C Backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return "c" }
func (*Backend) Ext() string  { return "c" }
func (*Backend) HeaderExt() (string, bool) { return "h", true }
func (*Backend) StmtTerminator() string { return ";" }

func (*Backend) OpenIf(cond string) string { return fmt.Sprintf("if (%s) {", cond) }
func (*Backend) CloseBlock() string        { return "}" }

func (*Backend) TrueLiteral() string  { return "true" }
func (*Backend) FalseLiteral() string { return "false" }

func (*Backend) NullTest(expr string) string { return fmt.Sprintf("(%s == NULL)", expr) }
func (*Backend) Negate(expr string) string   { return fmt.Sprintf("!(%s)", expr) }

func (*Backend) CtxField(field string) string { return "ctx->" + field }

func (*Backend) Stmt(line string) string { return line + ";" }

func (*Backend) Call(procName string) string { return fmt.Sprintf("%s(e, ctx);", procName) }

func (*Backend) VTableRef(ident string) string { return "&" + ident + "_vt" }

func (*Backend) AssignPtr(dstExpr, srcExpr string) string {
	return fmt.Sprintf("%s = %s;", dstExpr, srcExpr)
}

func (*Backend) FnPtrAssign(ptrExpr, targetFn string) string {
	if targetFn == "" {
		return fmt.Sprintf("%s = NULL;", ptrExpr)
	}
	return fmt.Sprintf("%s = %s;", ptrExpr, targetFn)
}

// memberName maps a generic lifecycle method name to the vtable's own
// member name; "do" is renamed to "tick" since "do" is reserved in
// C++ and every downstream consumer of this header might compile as
// one.
func memberName(method string) string {
	if method == "do" {
		return "tick"
	}
	return method
}

func (*Backend) NullCheckCall(ptrExpr, method string) string {
	m := memberName(method)
	return fmt.Sprintf("if (%s) { %s->%s(e, ctx); }", ptrExpr, ptrExpr, m)
}

// InStateExpand renders IN_STATE(path) as a call to the generated
// in_state() helper, which tests whether path names an ancestor (or
// the exact state) of the current active configuration by comparing
// against the live inspector string.
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

const fnTemplate = `static void {{.Name}}(Event e, Context *ctx) {
{{.Body}}
}
`

func vtableField(name string) string {
	if name == "" {
		return "NULL"
	}
	return name
}

// AssembleOutput produces the header (type/prototype declarations and
// the Context struct) and the source (vtables, procedure bodies, the
// decision dispatchers, and the four public entry points) per §4.H.
func (*Backend) AssembleOutput(ctx *gen.GenContext) (map[string]string, error) {
	be := &Backend{}
	doc := ctx.Doc

	var header strings.Builder
	header.WriteString("#ifndef STATEMACHINE_H\n#define STATEMACHINE_H\n\n")
	header.WriteString("#include <stdbool.h>\n")
	if doc.Includes != "" {
		header.WriteString(doc.Includes)
		header.WriteString("\n")
	}
	header.WriteString("\ntypedef struct Context Context;\n")
	header.WriteString("typedef struct { int unused; } Event;\n\n")
	header.WriteString("typedef struct StateVTable {\n")
	header.WriteString("\tvoid (*entry)(Event, Context *);\n")
	header.WriteString("\tvoid (*exit)(Event, Context *);\n")
	header.WriteString("\tvoid (*tick)(Event, Context *);\n")
	header.WriteString("\tvoid (*start)(Event, Context *);\n")
	header.WriteString("\tconst char *name;\n")
	header.WriteString("} StateVTable;\n\n")

	header.WriteString("struct Context {\n")
	header.WriteString("\tbool transition_fired;\n")
	for _, s := range ctx.StateOrder {
		if s.IsLeaf() {
			continue
		}
		if s.Kind == model.KindAND {
			continue // regions are always active; no slot needed
		}
		header.WriteString(fmt.Sprintf("\tconst StateVTable *%s;\n", gen.ActiveChildField(s)))
		if s.History {
			header.WriteString(fmt.Sprintf("\tconst StateVTable *%s;\n", gen.HistoryField(s)))
		}
	}
	for _, f := range doc.Context {
		header.WriteString(fmt.Sprintf("\t%s %s;\n", f.Type, f.Name))
	}
	header.WriteString("};\n\n")

	header.WriteString("void sm_init(Context *ctx);\n")
	header.WriteString("void sm_tick(Event e, Context *ctx);\n")
	header.WriteString("bool sm_is_running(Context *ctx);\n")
	header.WriteString("const char *sm_get_state_str(Context *ctx);\n")
	header.WriteString("\n#endif\n")

	var src strings.Builder
	src.WriteString("#include \"statemachine.h\"\n#include <string.h>\n#include <stdio.h>\n\n")

	// Forward declarations of every lifecycle procedure, so vtables
	// (which reference each other's "start" target by address) and
	// mutually-recursive do/start bodies can appear in any order.
	for _, s := range ctx.StateOrder {
		for _, suffix := range []string{"entry", "exit", "do", "start"} {
			src.WriteString(fmt.Sprintf("static void %s(Event, Context *);\n", gen.ProcName(s, suffix)))
		}
	}
	src.WriteString("\n")

	dispatchNames := sortedKeys(ctx.DecisionDispatchers)
	for _, name := range dispatchNames {
		src.WriteString(fmt.Sprintf("static void %s(Event, Context *);\n", name))
	}
	src.WriteString("\n")

	for _, s := range ctx.StateOrder {
		procs := ctx.Procs[gen.Ident(s)]
		if err := writeProc(&src, be, gen.ProcName(s, "entry"), procs.Entry); err != nil {
			return nil, err
		}
		if err := writeProc(&src, be, gen.ProcName(s, "exit"), procs.Exit); err != nil {
			return nil, err
		}
		if err := writeProc(&src, be, gen.ProcName(s, "do"), procs.Do); err != nil {
			return nil, err
		}
		if err := writeProc(&src, be, gen.ProcName(s, "start"), procs.Start); err != nil {
			return nil, err
		}
		name := "NULL"
		if s.Name != "" {
			name = fmt.Sprintf("%q", s.Name)
		}
		src.WriteString(fmt.Sprintf(
			"static const StateVTable %s_vt = { %s, %s, %s, %s, %s };\n\n",
			gen.Ident(s), gen.ProcName(s, "entry"), gen.ProcName(s, "exit"),
			gen.ProcName(s, "do"), gen.ProcName(s, "start"), vtableField(name),
		))
	}

	for _, name := range dispatchNames {
		if err := writeProc(&src, be, name, ctx.DecisionDispatchers[name]); err != nil {
			return nil, err
		}
	}

	writeInspector(&src, doc)

	src.WriteString("void sm_init(Context *ctx) {\n")
	src.WriteString("\tmemset(ctx, 0, sizeof(*ctx));\n")
	if doc.ContextInit != "" {
		src.WriteString(fmt.Sprintf("\t%s(ctx);\n", doc.ContextInit))
	}
	src.WriteString("\tEvent e = {0};\n")
	src.WriteString(fmt.Sprintf("\t%s(e, ctx);\n", gen.ProcName(doc.Root, "start")))
	src.WriteString("}\n\n")

	src.WriteString("void sm_tick(Event e, Context *ctx) {\n")
	src.WriteString("\tctx->transition_fired = false;\n")
	src.WriteString(fmt.Sprintf("\t%s(e, ctx);\n", gen.ProcName(doc.Root, "do")))
	src.WriteString("}\n\n")

	src.WriteString("bool sm_is_running(Context *ctx) {\n")
	src.WriteString(fmt.Sprintf("\treturn ctx->%s != NULL;\n", gen.ActiveChildField(doc.Root)))
	src.WriteString("}\n\n")

	files := map[string]string{
		"c": src.String(),
		"h": header.String(),
	}
	return files, nil
}

func writeProc(b *strings.Builder, be *Backend, name, body string) error {
	if body == "" {
		body = "\t(void)e; (void)ctx;"
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

// writeInspector emits get_state_str and the in_state() helper it is
// built on: a recursive walk of the static tree shape (known at
// codegen time) that follows each composite's active pointer at
// runtime, building the path string into a static buffer.
func writeInspector(b *strings.Builder, doc *model.Document) {
	b.WriteString("static char state_str_buf[512];\n\n")

	b.WriteString("const char *sm_get_state_str(Context *ctx) {\n")
	b.WriteString("\tstate_str_buf[0] = '\\0';\n")
	writeDescribeCalls(b, doc.Root, "\t")
	b.WriteString("\treturn state_str_buf;\n")
	b.WriteString("}\n\n")

	b.WriteString("bool in_state(Context *ctx, const char *path) {\n")
	b.WriteString("\tsm_get_state_str(ctx);\n")
	b.WriteString("\treturn strstr(state_str_buf, path) != NULL;\n")
	b.WriteString("}\n\n")
}

// writeDescribeCalls recursively emits, at codegen time, the sequence
// of appends that build the live path string for s's subtree,
// dereferencing each composite's active pointer at runtime.
func writeDescribeCalls(b *strings.Builder, s *model.State, indent string) {
	if s.IsLeaf() {
		b.WriteString(fmt.Sprintf("%sstrcat(state_str_buf, \"/%s\");\n", indent, s.Name))
		return
	}
	if len(s.Path) > 0 {
		b.WriteString(fmt.Sprintf("%sstrcat(state_str_buf, \"/%s\");\n", indent, s.Name))
	}
	switch s.Kind {
	case model.KindAND:
		b.WriteString(indent + "strcat(state_str_buf, \"[\");\n")
		first := true
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteString(indent + "strcat(state_str_buf, \" | \");\n")
			}
			first = false
			writeDescribeCalls(b, pair.Value, indent)
		}
		b.WriteString(indent + "strcat(state_str_buf, \"]\");\n")
	default:
		// The active child is one of a statically-known, finite set
		// of siblings; a cascade of identity checks against each
		// sibling's vtable address recurses into the matching branch
		// with its own literal name, avoiding any need to thread a
		// name back out of a runtime-dispatched call.
		field := gen.ActiveChildField(s)
		for pair := s.Children.Oldest(); pair != nil; pair = pair.Next() {
			b.WriteString(fmt.Sprintf("%sif (ctx->%s == &%s_vt) {\n", indent, field, gen.Ident(pair.Value)))
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
