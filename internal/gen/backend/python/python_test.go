package python_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/gen"
	"github.com/hsmgen/hsmgen/internal/gen/backend/python"
	"github.com/hsmgen/hsmgen/internal/model"
)

func load(t *testing.T, name string) *model.Document {
	t.Helper()
	doc, err := model.Load("../../../../testdata/" + name)
	require.NoError(t, err)
	return doc
}

func TestAssembleOutputSingleFile(t *testing.T) {
	doc := load(t, "toggle.yaml")
	be := python.New()
	genCtx, err := gen.Run(doc, be)
	require.NoError(t, err)

	files, err := be.AssembleOutput(genCtx)
	require.NoError(t, err)
	require.Contains(t, files, "py")

	src := files["py"]
	assert.Contains(t, src, "class Context:")
	assert.Contains(t, src, "def sm_init(ctx):")
	assert.Contains(t, src, "def sm_tick(e, ctx):")
	assert.Contains(t, src, "def sm_is_running(ctx):")
}

func TestReindentBodyShiftsTabsToFourSpaceLevels(t *testing.T) {
	doc := load(t, "toggle.yaml")
	be := python.New()
	genCtx, err := gen.Run(doc, be)
	require.NoError(t, err)

	files, err := be.AssembleOutput(genCtx)
	require.NoError(t, err)

	// The guarded transition inside off's "_do" body nests an "if"
	// one level past the function's own body indent: the function
	// body is 4 spaces, the nested if-block content must be 8.
	lines := strings.Split(files["py"], "\n")
	found := false
	for i, l := range lines {
		if strings.Contains(l, "if button_pressed(ctx):") {
			found = true
			require.Less(t, i+1, len(lines))
			assert.True(t, strings.HasPrefix(lines[i+1], "        "), "expected body line to be indented 8 spaces, got %q", lines[i+1])
		}
	}
	assert.True(t, found, "expected to find the guarded transition's if-statement")
}

func TestNoStatementTerminator(t *testing.T) {
	doc := load(t, "toggle.yaml")
	be := python.New()
	assert.Equal(t, "", be.StmtTerminator())
	assert.Equal(t, "line", be.Stmt("line"))
}
