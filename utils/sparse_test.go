package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRPattern(t *testing.T) {
	// [ 4 -1  0 ]
	// [-1  4 -1 ]
	// [ 0 -1  4 ]
	A := NewCSR(3, 3, []int{0, 2, 5, 7}, []int{0, 1, 0, 1, 2, 1, 2})
	assert.Equal(t, 7, A.NNZ())
	for i := 0; i < 3; i++ {
		require.NoError(t, A.AddAt(i, i, 4))
		if i > 0 {
			require.NoError(t, A.AddAt(i, i-1, -1))
			require.NoError(t, A.AddAt(i-1, i, -1))
		}
	}
	assert.Error(t, A.AddAt(0, 2, 1))
	assert.Equal(t, -1., A.At(1, 2))
	assert.Equal(t, 0., A.At(0, 2))
	assert.Equal(t, []float64{4, 4, 4}, A.Diagonal())

	y := make([]float64, 3)
	A.MulVec(y, []float64{1, 2, 3})
	assert.Equal(t, []float64{2, 4, 10}, y)

	cols, vals := A.Row(1)
	assert.Equal(t, []int{0, 1, 2}, cols)
	assert.Equal(t, []float64{-1, 4, -1}, vals)
}

func TestCSRReadOnly(t *testing.T) {
	C := NewCSR(2, 2, []int{0, 1, 2}, []int{0, 0})
	require.NoError(t, C.AddAt(0, 0, 1))
	require.NoError(t, C.AddAt(0, 0, 2))
	require.NoError(t, C.AddAt(1, 0, 5))
	assert.Equal(t, 3., C.At(0, 0))
	assert.Equal(t, 5., C.At(1, 0))
	assert.Equal(t, []float64{3, 0}, C.Diagonal())

	C.SetReadOnly("C")
	assert.PanicsWithError(t, `attempt to write to a read only matrix named: "C"`, func() { _ = C.AddAt(0, 0, 1) })
	assert.Equal(t, 3., C.At(0, 0))
	assert.True(t, HasNaN([]float64{1, math.NaN()}))
	assert.False(t, HasNaN(C.Data()))
}

func TestMemStats(t *testing.T) {
	m := ReadMemStats()
	assert.GreaterOrEqual(t, m.TotalAlloc, m.Alloc)
	assert.Contains(t, m.String(), "Sys = ")
}
