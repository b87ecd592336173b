package nedelec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/orientation"
)

func TestLegendreOrthonormal(t *testing.T) {
	x, w := GaussLine(6)
	L := make([]float64, 5)
	gram := make([][]float64, 5)
	for i := range gram {
		gram[i] = make([]float64, 5)
	}
	for q := range x {
		Legendre(x[q], L)
		for i := range L {
			for j := range L {
				gram[i][j] += w[q] * L[i] * L[j]
			}
		}
	}
	for i := range gram {
		for j := range gram[i] {
			want := 0.
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, gram[i][j], 1e-13, "(%d,%d)", i, j)
		}
	}
	Legendre(1, L)
	for k := range L {
		assert.InDelta(t, math.Sqrt(2*float64(k)+1), L[k], 1e-13)
	}
}

func TestGaussExactness(t *testing.T) {
	q := NewGauss(3, 3)
	assert.Equal(t, 27, q.Size())
	var sum, mom float64
	for i, pt := range q.Points {
		sum += q.Weights[i]
		mom += q.Weights[i] * math.Pow(pt[0], 5) * pt[1] * pt[2] * pt[2]
	}
	assert.InDelta(t, 1., sum, 1e-14)
	assert.InDelta(t, 1./6*1./2*1./3, mom, 1e-14)
}

func TestDofCounts(t *testing.T) {
	for _, tc := range []struct {
		dim, p                           int
		n, perLine, perQuad, perInterior int
	}{
		{2, 0, 4, 1, 0, 0},
		{2, 1, 12, 2, 0, 4},
		{2, 3, 40, 4, 0, 24},
		{3, 0, 12, 1, 0, 0},
		{3, 1, 54, 2, 4, 6},
		{3, 2, 144, 3, 12, 36},
	} {
		fe, err := New(tc.dim, tc.p)
		require.NoError(t, err)
		assert.Equal(t, tc.n, fe.NDofs())
		assert.Equal(t, tc.perLine, fe.DofsPerLine())
		assert.Equal(t, tc.perQuad, fe.DofsPerQuad())
		assert.Equal(t, tc.perInterior, fe.DofsPerInterior())
		assert.Equal(t, fe.NDofs(), fe.NEdges()*fe.DofsPerLine()+fe.NFaces()*fe.DofsPerQuad()*(tc.dim-2)+fe.DofsPerInterior())
		assert.Equal(t, tc.p+1, fe.Degree())
	}
	fe, err := New(3, 2)
	require.NoError(t, err)
	assert.Equal(t, "FE_Nedelec<3>(2)", fe.Name())
	_, err = New(4, 0)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func testKeys(fe *Element) []Key {
	keys := []Key{fe.StandardKey()}
	if fe.Dim() == 2 {
		return append(keys, 0b0101, 0b1111)
	}
	k := fe.StandardKey() | 0b100100000011
	for f, c := range []orientation.Code{0, 5, 3, 6, 1, 7} {
		k &^= 7 << (faceShift + 3*f)
		k |= Key(c) << (faceShift + 3*f)
	}
	return append(keys, k)
}

// pointValue evaluates the reference shape functions of key at xi.
func pointValue(t *testing.T, fe *Element, key Key, xi []float64) *mat.Dense {
	V, err := fe.ShapeValuesAt(key, [][]float64{xi})
	require.NoError(t, err)
	return V
}

func TestShapeFunctionsAreDual(t *testing.T) {
	for _, dp := range [][2]int{{2, 0}, {2, 1}, {2, 2}, {3, 0}, {3, 1}} {
		fe, err := New(dp[0], dp[1])
		require.NoError(t, err)
		for _, key := range testKeys(fe) {
			cache := make(map[[3]float64]*mat.Dense)
			eval := func(xi []float64) *mat.Dense {
				var k [3]float64
				copy(k[:], xi)
				if V, ok := cache[k]; ok {
					return V
				}
				V := pointValue(t, fe, key, xi)
				cache[k] = V
				return V
			}
			for j := 0; j < fe.NDofs(); j++ {
				dofs, err := fe.ApplyFunctionals(key, func(xi, out []float64) {
					V := eval(xi)
					for c := range out {
						out[c] = V.At(c, j)
					}
				})
				require.NoError(t, err)
				for i, v := range dofs {
					want := 0.
					if i == j {
						want = 1
					}
					require.InDelta(t, want, v, 1e-9, "%s key %#x l_%d(phi_%d)", fe.Name(), uint64(key), i, j)
				}
			}
		}
	}
}

func TestInterpolationReproducesSpace(t *testing.T) {
	for _, dp := range [][2]int{{2, 1}, {3, 1}} {
		fe, err := New(dp[0], dp[1])
		require.NoError(t, err)
		// (1+y, 2x-z, x*y) lies in the degree one space.
		field := func(xi, out []float64) {
			out[0] = 1 + xi[1]
			out[1] = 2 * xi[0]
			if fe.Dim() == 3 {
				out[1] -= xi[2]
				out[2] = xi[0] * xi[1]
			}
		}
		for _, key := range testKeys(fe) {
			dofs, err := fe.ApplyFunctionals(key, field)
			require.NoError(t, err)
			xi := []float64{0.3, 0.7, 0.2}[:fe.Dim()]
			V := pointValue(t, fe, key, xi)
			want := make([]float64, fe.Dim())
			field(xi, want)
			for c := range want {
				got := 0.
				for j, u := range dofs {
					got += u * V.At(c, j)
				}
				assert.InDelta(t, want[c], got, 1e-10)
			}
		}
	}
}

func TestCellKeyFromMesh(t *testing.T) {
	m, err := mesh.NewMesh(3,
		[][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1}},
		[][]int{{0, 1, 2, 3, 4, 5, 6, 7}})
	require.NoError(t, err)
	fe, err := New(3, 1)
	require.NoError(t, err)
	key, err := fe.CellKey(m, 0)
	require.NoError(t, err)
	assert.Equal(t, fe.StandardKey(), key)
	for f := 0; f < 6; f++ {
		assert.Equal(t, orientation.Standard, key.FaceCode(f))
	}
	assert.False(t, key.EdgeReversed(3))

	fe2, err := New(2, 0)
	require.NoError(t, err)
	_, err = fe2.CellKey(m, 0)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestCellValues(t *testing.T) {
	m, err := mesh.NewMesh(2,
		[][]float64{{0, 0}, {2, 0}, {0, 0.5}, {2, 0.5}},
		[][]int{{0, 1, 2, 3}})
	require.NoError(t, err)
	fe, err := New(2, 1)
	require.NoError(t, err)
	cv := NewCellValues(fe, NewGauss(2, fe.Degree()+1))
	require.NoError(t, cv.Reinit(m, 0))
	var area float64
	for _, w := range cv.JxW {
		area += w
	}
	assert.InDelta(t, 1., area, 1e-14)

	// The physical field interpolated with covariant moments reproduces a
	// constant field: phi = J^-T phi_hat with J = diag(2, 0.5).
	dofs, err := fe.ApplyFunctionals(cv.Key, func(xi, out []float64) {
		out[0], out[1] = 3*2, -1*0.5
	})
	require.NoError(t, err)
	out := make([][]float64, cv.Q.Size())
	for q := range out {
		out[q] = make([]float64, 2)
	}
	require.NoError(t, cv.FunctionValues(dofs, out))
	for q := range out {
		assert.InDelta(t, 3., out[q][0], 1e-12)
		assert.InDelta(t, -1., out[q][1], 1e-12)
	}
	err = cv.FunctionValues(dofs[:3], out)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}
