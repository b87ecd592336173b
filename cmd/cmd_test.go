package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/nedelec/orientation"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestOrientationCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "orientation", "--dim", "3", "--code", "5", "--refine", "2", "--mesh-file", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Dimensions: 3\nFace orientation: 5\nOrientation ask: 101\n")
	assert.Contains(t, out, "Shared face - combined orientation: 5\n")
	assert.Contains(t, out, "Interface faces after 2 refinements: 16, orientation 5 on all\n")
	_, err = os.Stat(filepath.Join(dir, "3D_mesh.msh"))
	assert.NoError(t, err)

	_, err = execute(t, "orientation", "--dim", "2", "--code", "4", "--out", dir)
	assert.True(t, errors.Is(err, orientation.ErrInvalidOrientationCode))
	_, err = execute(t, "orientation", "--dim", "4", "--code", "0", "--out", dir)
	assert.Error(t, err)
}

func TestShapesCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "shapes", "--dim", "2", "--code", "1", "--degree", "0", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "FE_Nedelec<2>(0)")
	assert.Contains(t, out, "Shared face - orientation: 1\n")
	files, err := filepath.Glob(filepath.Join(dir, "2D_shape_function*.vtk"))
	require.NoError(t, err)
	assert.Len(t, files, 7)

	files, err = RunShapes(&bytes.Buffer{}, dir, orientation.Dim3, 0, 0, true)
	require.NoError(t, err)
	assert.Len(t, files, 12)
}

func TestConvergenceCommand(t *testing.T) {
	dir := t.TempDir()
	study := filepath.Join(dir, "study.yaml")
	require.NoError(t, os.WriteFile(study, []byte(`
Title: Test Case
Dim: 2
Code: 3
Degrees: [0]
StartLevels:
  0: 1
Levels: 2
`), 0o644))
	out, err := execute(t, "convergence", "-I", study, "--out", dir, "--xlsx", "--timings")
	require.NoError(t, err)
	assert.Contains(t, out, "\"Test Case\"\t\t= Title\n")
	assert.Less(t, strings.Index(out, "= Title"), strings.Index(out, "Dimensions: 2"))
	assert.Contains(t, out, "Dimensions: 2\nFace orientation: 3\nFE degree: 0\n")
	assert.Contains(t, out, "------------------------------\n")
	assert.Contains(t, out, "Total wallclock time elapsed")
	assert.Contains(t, out, "p = 0: fitted order")
	for _, name := range []string{"main_table_p0.txt", "main_table_p0.tex", "main_tables.xlsx"} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	_, err = execute(t, "convergence", "-I", filepath.Join(dir, "missing.yaml"), "--out", dir)
	assert.Error(t, err)
}
