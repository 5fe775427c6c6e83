package dot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/dot"
	"github.com/hsmgen/hsmgen/internal/model"
)

func load(t *testing.T, name string) *model.Document {
	t.Helper()
	doc, err := model.Load("../../testdata/" + name)
	require.NoError(t, err)
	return doc
}

func TestRenderToggleHasLeafNodesAndEdge(t *testing.T) {
	doc := load(t, "toggle.yaml")
	out := dot.Render(doc)

	assert.Contains(t, out, "digraph statemachine {")
	assert.Contains(t, out, `label="off"`)
	assert.Contains(t, out, `label="on"`)
	assert.Contains(t, out, "button_pressed(ctx)")
}

func TestRenderOrthogonalRegionsGetDashedClusters(t *testing.T) {
	doc := load(t, "orthogonal_fork.yaml")
	out := dot.Render(doc)

	assert.Contains(t, out, "subgraph cluster_n_m {")
	assert.Contains(t, out, "style=dashed;")
	assert.Contains(t, out, "subgraph cluster_n_m_r1 {")
	assert.Contains(t, out, "subgraph cluster_n_m_r2 {")
}

func TestRenderForkProducesFanOutEdges(t *testing.T) {
	doc := load(t, "orthogonal_fork.yaml")
	out := dot.Render(doc)

	assert.Contains(t, out, "shape=point")
	// Fan-out edges land on the two limb targets.
	assert.Contains(t, out, "-> n_m_r1_q")
	assert.Contains(t, out, "-> n_m_r2_v")
}

func TestRenderDecisionIsADiamond(t *testing.T) {
	doc := load(t, "decision.yaml")
	out := dot.Render(doc)

	assert.Contains(t, out, `dec_route [label="route", shape=diamond];`)
	assert.Contains(t, out, "n_idle -> dec_route")
}

func TestRenderTerminationIsAPoint(t *testing.T) {
	doc := load(t, "orthogonal_fork.yaml")
	out := dot.Render(doc)
	assert.Contains(t, out, "n_m_terminate [shape=point];")
	assert.Contains(t, out, "n_m -> n_m_terminate")
}

func TestRenderTruncatesLongGuardLabels(t *testing.T) {
	doc := load(t, "toggle.yaml")
	off, ok := doc.Root.Children.Get("off")
	require.True(t, ok)
	off.Transitions[0].Guard = "this_guard_expression_is_deliberately_far_too_long_to_fit_on_one_edge_label_line(ctx)"

	out := dot.Render(doc)
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, "deliberately_far_too_long_to_fit_on_one_edge_label_line")
}
