package vtk

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/nedelec/mesh"
)

func TestPatchPoints(t *testing.T) {
	pts := PatchPoints(2, 2)
	require.Len(t, pts, 9)
	assert.Equal(t, []float64{0.5, 0}, pts[1])
	assert.Equal(t, []float64{0, 0.5}, pts[3])
	assert.Equal(t, []float64{1, 1}, pts[8])
	assert.Len(t, PatchPoints(3, 16), 17*17*17)
}

func TestWritePatches(t *testing.T) {
	m, err := mesh.NewMesh(2, [][]float64{{0, 0}, {2, 0}, {0, 1}, {2, 1}}, [][]int{{0, 1, 2, 3}})
	require.NoError(t, err)
	var buf bytes.Buffer
	err = WritePatches(&buf, m, 2, "u", func(elem int, points [][]float64) ([][]float64, error) {
		v := make([][]float64, len(points))
		for i, p := range points {
			v[i] = []float64{p[0], -p[1]}
		}
		return v, nil
	})
	require.NoError(t, err)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# vtk DataFile Version 3.0\nu\nASCII\n"))
	assert.Contains(t, out, "POINTS 9 double\n0 0 0\n1 0 0\n2 0 0\n")
	assert.Contains(t, out, "CELLS 4 20\n4 0 1 4 3\n4 1 2 5 4\n4 3 4 7 6\n")
	assert.Contains(t, out, "CELL_TYPES 4\n9\n")
	assert.Contains(t, out, "VECTORS u double\n0 -0 0\n0.5 -0 0\n")

	var again bytes.Buffer
	require.NoError(t, WritePatches(&again, m, 2, "u", func(elem int, points [][]float64) ([][]float64, error) {
		v := make([][]float64, len(points))
		for i, p := range points {
			v[i] = []float64{p[0], -p[1]}
		}
		return v, nil
	}))
	assert.Equal(t, out, again.String())
}

func TestWritePatchesErrors(t *testing.T) {
	m, err := mesh.NewMesh(3,
		[][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}},
		[][]int{{0, 1, 2, 3, 4, 5, 6, 7}})
	require.NoError(t, err)
	boom := errors.New("boom")
	err = WritePatches(&bytes.Buffer{}, m, 1, "u", func(int, [][]float64) ([][]float64, error) { return nil, boom })
	assert.True(t, errors.Is(err, boom))
	err = WritePatches(&bytes.Buffer{}, m, 1, "u", func(int, [][]float64) ([][]float64, error) {
		return make([][]float64, 3), nil
	})
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePatches(&buf, m, 1, "u", func(_ int, p [][]float64) ([][]float64, error) {
		return p, nil
	}))
	assert.Contains(t, buf.String(), "8 0 1 3 2 4 5 7 6\n")
	assert.Contains(t, buf.String(), "CELL_TYPES 1\n12\n")
}
