package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsmgen/hsmgen/internal/cli"
	"github.com/hsmgen/hsmgen/internal/diag"
)

func TestRunProducesDotAndSourceFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out")

	cmd := cli.NewRootCmd()
	cmd.SetArgs([]string{"../../testdata/toggle.yaml", "-o", base})
	err := cmd.Execute()
	require.NoError(t, err)

	dotBytes, err := os.ReadFile(base + ".dot")
	require.NoError(t, err)
	assert.Contains(t, string(dotBytes), "digraph statemachine {")

	cBytes, err := os.ReadFile(base + ".c")
	require.NoError(t, err)
	assert.Contains(t, string(cBytes), "sm_init")

	hBytes, err := os.ReadFile(base + ".h")
	require.NoError(t, err)
	assert.Contains(t, string(hBytes), "struct Context {")
}

func TestRunHonorsLangFlagOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out")

	cmd := cli.NewRootCmd()
	cmd.SetArgs([]string{"../../testdata/toggle.yaml", "-o", base, "--lang", "python"})
	err := cmd.Execute()
	require.NoError(t, err)

	_, err = os.Stat(base + ".c")
	assert.True(t, os.IsNotExist(err), "expected no .c output once --lang overrides the model's own lang: field")

	pyBytes, err := os.ReadFile(base + ".py")
	require.NoError(t, err)
	assert.Contains(t, string(pyBytes), "def sm_init(ctx):")
}

func TestRunRejectsUnreadableInput(t *testing.T) {
	cmd := cli.NewRootCmd()
	cmd.SetArgs([]string{"../../testdata/does_not_exist.yaml"})
	err := cmd.Execute()
	require.Error(t, err)

	var ierr *diag.InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 1, cli.ExitCode(err))
}

func TestRunRejectsInvalidModel(t *testing.T) {
	cmd := cli.NewRootCmd()
	cmd.SetArgs([]string{"../../testdata/invalid_dangling_target.yaml"})
	err := cmd.Execute()
	require.Error(t, err)

	var verr *diag.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, cli.ExitCode(err))
}

func TestRunRejectsUnknownLang(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out")

	cmd := cli.NewRootCmd()
	cmd.SetArgs([]string{"../../testdata/toggle.yaml", "-o", base, "--lang", "cobol"})
	err := cmd.Execute()
	require.Error(t, err)

	var eerr *diag.EmissionError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, 3, cli.ExitCode(err))

	_, err = os.Stat(base + ".dot")
	assert.True(t, os.IsNotExist(err), "no artifact (not even the diagram) should be written once any backend fails")
}
