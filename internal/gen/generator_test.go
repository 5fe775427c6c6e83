package gen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/gen"
	"github.com/hsmgen/hsmgen/internal/gen/backend/c"
	"github.com/hsmgen/hsmgen/internal/model"
)

func load(t *testing.T, name string) *model.Document {
	t.Helper()
	doc, err := model.Load("../../testdata/" + name)
	require.NoError(t, err)
	return doc
}

func TestRunProducesOneProcSetPerState(t *testing.T) {
	doc := load(t, "toggle.yaml")
	ctx, err := gen.Run(doc, c.New())
	require.NoError(t, err)

	// root, off, on
	assert.Len(t, ctx.StateOrder, 3)
	for _, s := range ctx.StateOrder {
		procs, ok := ctx.Procs[gen.Ident(s)]
		require.True(t, ok, "missing procs for %s", s.PathString())
		assert.NotNil(t, procs.State)
	}
}

func TestDoBodyInlinesGuardedTransition(t *testing.T) {
	doc := load(t, "toggle.yaml")
	ctx, err := gen.Run(doc, c.New())
	require.NoError(t, err)

	off, ok := doc.Root.Children.Get("off")
	require.True(t, ok)

	procs := ctx.Procs[gen.Ident(off)]
	assert.Contains(t, procs.Do, "button_pressed(ctx)")
	assert.Contains(t, procs.Do, "transition_fired")
	assert.Contains(t, procs.Do, "ctx->cycles++")
}

func TestEntryBodyOrdersGlobalHookBeforeOwnCode(t *testing.T) {
	doc, err := model.Load("../../testdata/toggle.yaml")
	require.NoError(t, err)
	doc.Hooks.Entry = "log_entry()"

	ctx, err := gen.Run(doc, c.New())
	require.NoError(t, err)

	off, ok := doc.Root.Children.Get("off")
	require.True(t, ok)
	procs := ctx.Procs[gen.Ident(off)]

	hookIdx := indexOf(procs.Entry, "log_entry()")
	ownIdx := indexOf(procs.Entry, "lamp_off()")
	require.GreaterOrEqual(t, hookIdx, 0)
	require.GreaterOrEqual(t, ownIdx, 0)
	assert.Less(t, hookIdx, ownIdx)
}

func TestDecisionDispatcherGeneratedForEveryDecision(t *testing.T) {
	doc := load(t, "decision.yaml")
	ctx, err := gen.Run(doc, c.New())
	require.NoError(t, err)

	body, ok := ctx.DecisionDispatchers[gen.DecisionDispatchName(mustDecision(t, doc, "route"))]
	require.True(t, ok)
	assert.Contains(t, body, "ctx->level > 10")
	assert.Contains(t, body, "high")
}

func TestForkTransitionEntersBothRegions(t *testing.T) {
	doc := load(t, "orthogonal_fork.yaml")
	ctx, err := gen.Run(doc, c.New())
	require.NoError(t, err)

	m, ok := doc.Root.Children.Get("m")
	require.True(t, ok)
	r1, _ := m.Children.Get("r1")
	p, _ := r1.Children.Get("p")

	procs := ctx.Procs[gen.Ident(p)]
	assert.Contains(t, procs.Do, gen.ProcName(mustChild(t, r1, "q"), "entry"))
	assert.Contains(t, procs.Do, "r2")
}

func TestTerminationClearsRootActiveChild(t *testing.T) {
	doc := load(t, "orthogonal_fork.yaml")
	ctx, err := gen.Run(doc, c.New())
	require.NoError(t, err)

	m, ok := doc.Root.Children.Get("m")
	require.True(t, ok)
	procs := ctx.Procs[gen.Ident(m)]
	assert.Contains(t, procs.Do, "= NULL")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func mustDecision(t *testing.T, doc *model.Document, name string) *model.Decision {
	t.Helper()
	d, ok := doc.Decisions.Get(name)
	require.True(t, ok)
	return d
}

func mustChild(t *testing.T, s *model.State, name string) *model.State {
	t.Helper()
	c, ok := s.Children.Get(name)
	require.True(t, ok)
	return c
}
