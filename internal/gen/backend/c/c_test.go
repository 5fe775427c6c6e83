package c_test

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
	doc, err := model.Load("../../../../testdata/" + name)
	require.NoError(t, err)
	return doc
}

func TestAssembleOutputProducesHeaderAndSource(t *testing.T) {
	doc := load(t, "toggle.yaml")
	be := c.New()
	genCtx, err := gen.Run(doc, be)
	require.NoError(t, err)

	files, err := be.AssembleOutput(genCtx)
	require.NoError(t, err)
	require.Contains(t, files, "c")
	require.Contains(t, files, "h")

	assert.Contains(t, files["h"], "struct Context {")
	assert.Contains(t, files["h"], "int cycles;")
	assert.Contains(t, files["c"], "void sm_init(Context *ctx)")
	assert.Contains(t, files["c"], "init_ctx(ctx)")
	assert.Contains(t, files["c"], "void sm_tick(Event e, Context *ctx)")
	assert.Contains(t, files["c"], "bool sm_is_running(Context *ctx)")
}

func TestAssembleOutputDeclaresHistorySlotOnlyWhenNeeded(t *testing.T) {
	doc := load(t, "history.yaml")
	be := c.New()
	genCtx, err := gen.Run(doc, be)
	require.NoError(t, err)

	files, err := be.AssembleOutput(genCtx)
	require.NoError(t, err)
	assert.Contains(t, files["h"], "working_history")

	doc2 := load(t, "toggle.yaml")
	genCtx2, err := gen.Run(doc2, be)
	require.NoError(t, err)
	files2, err := be.AssembleOutput(genCtx2)
	require.NoError(t, err)
	assert.NotContains(t, files2["h"], "_history")
}

func TestAssembleOutputOmitsActiveSlotForOrthogonalState(t *testing.T) {
	doc := load(t, "orthogonal_fork.yaml")
	be := c.New()
	genCtx, err := gen.Run(doc, be)
	require.NoError(t, err)

	files, err := be.AssembleOutput(genCtx)
	require.NoError(t, err)
	// "m" is composite_and: it is always fully active, so it gets no
	// active-child slot of its own, unlike its OR-composite regions.
	assert.NotContains(t, files["h"], "m_active;")
	assert.Contains(t, files["h"], "m_r1_active;")
	assert.Contains(t, files["h"], "m_r2_active;")
}

func TestAssembleOutputIncludesInspector(t *testing.T) {
	doc := load(t, "toggle.yaml")
	be := c.New()
	genCtx, err := gen.Run(doc, be)
	require.NoError(t, err)

	files, err := be.AssembleOutput(genCtx)
	require.NoError(t, err)
	assert.Contains(t, files["c"], "sm_get_state_str(Context *ctx)")
	assert.Contains(t, files["c"], "strcat(state_str_buf")
}
