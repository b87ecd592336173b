package twocell

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/orientation"
)

func TestBuildAllCodes(t *testing.T) {
	for _, dim := range []orientation.Dim{orientation.Dim2, orientation.Dim3} {
		for code := orientation.Code(0); code <= dim.MaxCode(); code++ {
			tc, err := Build(code, dim)
			require.NoError(t, err, "%s code %d", dim, code)
			assert.Len(t, tc.Mesh.InteriorFaces(), 1)
			assert.True(t, tc.Matches())
			assert.Equal(t, orientation.Standard, tc.Shared[0].Combined)
			assert.True(t, tc.Shared[0].Owner)
			assert.False(t, tc.Shared[1].Owner)
			assert.Equal(t, 1, tc.Shared[0].LocalFace)
			if dim == orientation.Dim3 {
				assert.Equal(t, code, tc.ObservedCode())
				assert.Equal(t, code, orientation.Encode(tc.Shared[1].Flags))
			} else {
				assert.Equal(t, code&1 == 1, tc.Shared[1].Flags.Orientation)
			}
			assert.Equal(t, 3<<(int(dim)-1), tc.Mesh.NumVertices)
		}
	}
}

func TestBuildCode5(t *testing.T) {
	tc, err := Build(5, orientation.Dim3)
	require.NoError(t, err)
	sf := tc.Shared[1]
	assert.True(t, sf.Flags.Flip)
	assert.False(t, sf.Flags.Rotation)
	assert.True(t, sf.Flags.Orientation)
	assert.Equal(t, orientation.Code(5), sf.Combined)
	assert.Equal(t, 0, sf.LocalFace)
}

func TestBuildInvalidCode(t *testing.T) {
	tc, err := Build(4, orientation.Dim2)
	assert.Nil(t, tc)
	assert.True(t, errors.Is(err, orientation.ErrInvalidOrientationCode))

	dir := t.TempDir()
	file := filepath.Join(dir, "never.msh")
	_, err = Build(9, orientation.Dim3, WithMeshFile(file))
	assert.True(t, errors.Is(err, orientation.ErrInvalidOrientationCode))
	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVerifyDetectsMismatch(t *testing.T) {
	tc, err := Build(3, orientation.Dim3)
	require.NoError(t, err)
	tc.Code = 2
	err = tc.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, mesh.ErrMeshTopology))
	var mte *MeshTopologyError
	require.True(t, errors.As(err, &mte))
	assert.Equal(t, orientation.Code(2), mte.Code)
	assert.Equal(t, 1, mte.Cell)
	assert.Contains(t, err.Error(), "right [2 3 6 7 0 1 4 5]")
}

func TestRefinedInterfacesKeepOrientation(t *testing.T) {
	for _, dim := range []orientation.Dim{orientation.Dim2, orientation.Dim3} {
		for code := orientation.Code(0); code <= dim.MaxCode(); code++ {
			tc, err := Build(code, dim)
			require.NoError(t, err)
			require.NoError(t, tc.Mesh.RefineGlobal(2))
			n, err := tc.VerifyRefined(tc.Mesh)
			require.NoError(t, err, "%s code %d", dim, code)
			want := 4
			if dim == orientation.Dim3 {
				want = 16
			}
			assert.Equal(t, want, n)
		}
	}
}

func TestMeshFileWritten(t *testing.T) {
	file := filepath.Join(t.TempDir(), "two_cells.msh")
	_, err := Build(6, orientation.Dim3, WithMeshFile(file))
	require.NoError(t, err)
	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	m, err := mesh.ReadGmsh22(f)
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumElements)
	code, err := m.FaceOrientation(1, m.EToF[0][1])
	require.NoError(t, err)
	assert.Equal(t, orientation.Code(6), code)
}

func TestReport(t *testing.T) {
	tc, err := Build(5, orientation.Dim3)
	require.NoError(t, err)
	var buf bytes.Buffer
	tc.Report(&buf)
	out := buf.String()
	assert.Contains(t, out, "Orientation ask: 101")
	assert.Contains(t, out, "Shared face - combined orientation: 5")
	assert.Contains(t, out, "Shared face - combined orientation: 1")

	tc2, err := Build(2, orientation.Dim2)
	require.NoError(t, err)
	buf.Reset()
	tc2.Report(&buf)
	assert.Contains(t, buf.String(), "Shared face - orientation: 0")
	assert.NotContains(t, buf.String(), "flip")
}
