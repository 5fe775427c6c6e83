package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/model"
	"github.com/hsmgen/hsmgen/internal/path"
)

func TestResolveSingleSibling(t *testing.T) {
	doc, err := model.Load("../../testdata/toggle.yaml")
	require.NoError(t, err)

	off, ok := doc.Root.Children.Get("off")
	require.True(t, ok)

	r, err := path.Resolve(doc, off, off.Transitions[0].ToRaw)
	require.NoError(t, err)
	assert.Equal(t, path.Single, r.Kind)
	assert.Equal(t, "on", r.State.Name)
}

func TestResolveSelfTransition(t *testing.T) {
	doc, err := model.Load("../../testdata/self_transition.yaml")
	require.NoError(t, err)

	active := doc.Root.Initial
	r, err := path.Resolve(doc, active, active.Transitions[0].ToRaw)
	require.NoError(t, err)
	assert.Equal(t, path.Single, r.Kind)
	assert.Same(t, active, r.State)
}

func TestResolveTerminate(t *testing.T) {
	doc, err := model.Load("../../testdata/orthogonal_fork.yaml")
	require.NoError(t, err)

	m, ok := doc.Root.Children.Get("m")
	require.True(t, ok)
	require.Len(t, m.Transitions, 1)

	r, err := path.Resolve(doc, m, m.Transitions[0].ToRaw)
	require.NoError(t, err)
	assert.Equal(t, path.Terminate, r.Kind)
}

func TestResolveDecision(t *testing.T) {
	doc, err := model.Load("../../testdata/decision.yaml")
	require.NoError(t, err)

	idle, ok := doc.Root.Children.Get("idle")
	require.True(t, ok)

	r, err := path.Resolve(doc, idle, idle.Transitions[0].ToRaw)
	require.NoError(t, err)
	assert.Equal(t, path.Decision, r.Kind)
	assert.Equal(t, "route", r.Decision)
}

func TestResolveForkResultCarriesAndState(t *testing.T) {
	doc, err := model.Load("../../testdata/orthogonal_fork.yaml")
	require.NoError(t, err)

	m, ok := doc.Root.Children.Get("m")
	require.True(t, ok)
	r1, ok := m.Children.Get("r1")
	require.True(t, ok)
	p, ok := r1.Children.Get("p")
	require.True(t, ok)
	require.Len(t, p.Transitions, 1)

	r, err := path.Resolve(doc, p, p.Transitions[0].ToRaw)
	require.NoError(t, err)
	require.Equal(t, path.ForkResult, r.Kind)
	require.Same(t, m, r.AndState)
	require.Len(t, r.Limbs, 2)
	assert.Equal(t, []string{"m", "r1", "q"}, r.Limbs[0].Path)
	assert.Equal(t, []string{"m", "r2", "v"}, r.Limbs[1].Path)
}

func TestResolveCrossLimbPlainPath(t *testing.T) {
	doc, err := model.Load("../../testdata/cross_limb.yaml")
	require.NoError(t, err)

	m, ok := doc.Root.Children.Get("m")
	require.True(t, ok)
	r1, ok := m.Children.Get("r1")
	require.True(t, ok)
	p, ok := r1.Children.Get("p")
	require.True(t, ok)
	require.Len(t, p.Transitions, 1)

	r, err := path.Resolve(doc, p, p.Transitions[0].ToRaw)
	require.NoError(t, err)
	assert.Equal(t, path.Single, r.Kind)
	assert.Equal(t, []string{"m", "r2", "v"}, r.State.Path)
}

func TestResolveUpAndAbsolute(t *testing.T) {
	doc, err := model.Load("../../testdata/cross_limb.yaml")
	require.NoError(t, err)

	m, ok := doc.Root.Children.Get("m")
	require.True(t, ok)
	r1, ok := m.Children.Get("r1")
	require.True(t, ok)
	p, ok := r1.Children.Get("p")
	require.True(t, ok)

	r, err := path.Resolve(doc, p, "../../r2/v")
	require.NoError(t, err)
	assert.Equal(t, path.Single, r.Kind)
	assert.Equal(t, []string{"m", "r2", "v"}, r.State.Path)

	r2, err := path.Resolve(doc, p, "/m/r2/u")
	require.NoError(t, err)
	assert.Equal(t, path.Single, r2.Kind)
	assert.Equal(t, []string{"m", "r2", "u"}, r2.State.Path)
}

func TestResolveDanglingTarget(t *testing.T) {
	doc, err := model.Load("../../testdata/toggle.yaml")
	require.NoError(t, err)

	off, ok := doc.Root.Children.Get("off")
	require.True(t, ok)

	_, err = path.Resolve(doc, off, "nonexistent")
	assert.Error(t, err)
}
