package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/path"
)

func TestParseKinds(t *testing.T) {
	cases := []struct {
		raw  string
		want interface{}
	}{
		{"null", path.NullExpr{}},
		{"", path.NullExpr{}},
		{"@pick", path.DecisionRef{Name: "pick"}},
		{".", path.SelfExpr{}},
		{"/a/b", path.Absolute{Segments: []string{"a", "b"}}},
		{"./child/grandchild", path.Descend{Segments: []string{"child", "grandchild"}}},
		{"sibling", path.Sibling{Name: "sibling"}},
	}
	for _, c := range cases {
		got, err := path.Parse(c.raw)
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}
}

func TestParseUp(t *testing.T) {
	got, err := path.Parse("../../sibling")
	require.NoError(t, err)
	up, ok := got.(path.Up)
	require.True(t, ok)
	assert.Equal(t, 2, up.N)
	assert.Equal(t, []string{"sibling"}, up.Tail)
}

func TestParseFork(t *testing.T) {
	got, err := path.Parse("/m/[r1/q, r2/v]")
	require.NoError(t, err)
	f, ok := got.(path.Fork)
	require.True(t, ok)
	assert.Equal(t, []string{"m"}, f.Prefix.(path.Absolute).Segments)
	assert.Equal(t, [][]string{{"r1", "q"}, {"r2", "v"}}, f.Limbs)
}

func TestParseForkMissingCloseBracket(t *testing.T) {
	_, err := path.Parse("/m/[r1/q, r2/v")
	assert.Error(t, err)
}

func TestParseForkEmptyLimb(t *testing.T) {
	_, err := path.Parse("/m/[r1/q, ]")
	assert.Error(t, err)
}
