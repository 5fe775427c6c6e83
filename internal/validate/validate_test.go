package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/diag"
	"github.com/hsmgen/hsmgen/internal/model"
	"github.com/hsmgen/hsmgen/internal/validate"
)

func load(t *testing.T, name string) *model.Document {
	t.Helper()
	doc, err := model.Load("../../testdata/" + name)
	require.NoError(t, err)
	return doc
}

func TestValidatePassingFixtures(t *testing.T) {
	for _, name := range []string{
		"toggle.yaml",
		"self_transition.yaml",
		"orthogonal_fork.yaml",
		"cross_limb.yaml",
		"history.yaml",
		"decision.yaml",
		"multilang.yaml",
	} {
		t.Run(name, func(t *testing.T) {
			doc := load(t, name)
			assert.NoError(t, validate.Validate(doc))
		})
	}
}

func TestValidateFailingFixtures(t *testing.T) {
	cases := []struct {
		fixture string
		rule    diag.Rule
	}{
		{"invalid_unknown_initial.yaml", diag.RuleUnknownInitial},
		{"invalid_dangling_target.yaml", diag.RuleDanglingTarget},
		{"invalid_unknown_decision.yaml", diag.RuleUnknownDecision},
		{"invalid_malformed_fork.yaml", diag.RuleMalformedFork},
		{"invalid_duplicate_decision.yaml", diag.RuleDuplicateDecision},
		{"invalid_duplicate_sibling.yaml", diag.RuleDuplicateSibling},
	}
	for _, c := range cases {
		t.Run(c.fixture, func(t *testing.T) {
			doc, err := model.Load("../../testdata/" + c.fixture)
			if err != nil {
				// Some rules (duplicate sibling, duplicate decision) are
				// caught by the loader itself rather than surviving to a
				// separate validate.Validate call; either stage reporting
				// the same Rule satisfies P4.
				var verr *diag.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, c.rule, verr.Rule)
				return
			}
			err = validate.Validate(doc)
			require.Error(t, err)
			var verr *diag.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, c.rule, verr.Rule)
		})
	}
}

func TestValidateMalformedForkDuplicateRegion(t *testing.T) {
	doc := load(t, "invalid_malformed_fork.yaml")
	err := validate.Validate(doc)
	require.Error(t, err)
	var verr *diag.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, diag.RuleMalformedFork, verr.Rule)
	assert.Contains(t, verr.Message, "same region more than once")
}

func TestValidateDecisionReachedOnlyThroughFlatDictionary(t *testing.T) {
	// The decision's own transitions are validated even though no
	// state walk ever visits them directly (they hang off the flat
	// Decisions dictionary, not the tree).
	doc := load(t, "decision.yaml")
	require.NoError(t, validate.Validate(doc))

	d, ok := doc.Decisions.Get("route")
	require.True(t, ok)
	require.Len(t, d.Transitions, 2)
}
