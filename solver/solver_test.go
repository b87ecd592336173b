package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/nedelec/dofs"
	"github.com/notargets/nedelec/utils"
)

type entry struct {
	i, j int
	v    float64
}

// matrix assembles the entries, duplicates accumulated, through a sparsity
// pattern the way the projection does.
func matrix(t *testing.T, n int, entries ...entry) utils.CSR {
	t.Helper()
	sp := dofs.NewSparsityPattern(n)
	for _, e := range entries {
		sp.Add(e.i, e.j)
	}
	A := sp.NewMatrix("A")
	for _, e := range entries {
		require.NoError(t, A.AddAt(e.i, e.j, e.v))
	}
	A.SetReadOnly()
	return A
}

// laplacian returns the 1D Dirichlet Laplacian stencil [-1 2 -1] of size n.
func laplacian(t *testing.T, n int) utils.CSR {
	var entries []entry
	for i := 0; i < n; i++ {
		entries = append(entries, entry{i, i, 2})
		if i > 0 {
			entries = append(entries, entry{i, i - 1, -1}, entry{i - 1, i, -1})
		}
	}
	return matrix(t, n, entries...)
}

func TestCGSolvesLaplacian(t *testing.T) {
	const n = 60
	A := laplacian(t, n)
	want := make([]float64, n)
	for i := range want {
		want[i] = float64(i%7) - 3
	}
	b := make([]float64, n)
	A.MulVec(b, want)

	P, err := NewSSOR(A, 1.2)
	require.NoError(t, err)
	var iters [2]int
	for i, pre := range []Preconditioner{nil, P} {
		x := make([]float64, n)
		res, err := NewCG(DefaultControl()).Solve(A, x, b, pre)
		require.NoError(t, err)
		assert.True(t, floats.EqualApprox(want, x, 1e-8))
		assert.LessOrEqual(t, res.Residual, 1e-12*res.InitialResidual)
		iters[i] = res.Iterations
	}
	assert.Less(t, iters[1], iters[0], "SSOR should reduce the iteration count")
}

func TestCGZeroRightHandSide(t *testing.T) {
	A := laplacian(t, 5)
	x := make([]float64, 5)
	res, err := NewCG(DefaultControl()).Solve(A, x, make([]float64, 5), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Iterations)
}

func TestCGNoConvergence(t *testing.T) {
	A := laplacian(t, 40)
	b := make([]float64, 40)
	b[0] = 1
	_, err := NewCG(NewReductionControl(2, 0, 1e-12)).Solve(A, make([]float64, 40), b, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConvergence))
	var nce *NoConvergenceError
	require.True(t, errors.As(err, &nce))
	assert.Equal(t, 2, nce.Iterations)
}

func TestCGIndefinite(t *testing.T) {
	D := matrix(t, 2, entry{0, 0, 1}, entry{1, 1, -1})
	_, err := NewCG(DefaultControl()).Solve(D, make([]float64, 2), []float64{0, 1}, nil)
	assert.True(t, errors.Is(err, ErrNoConvergence))
}

func TestCGDimensionCheck(t *testing.T) {
	_, err := NewCG(DefaultControl()).Solve(laplacian(t, 3), make([]float64, 2), make([]float64, 3), nil)
	assert.Error(t, err)
}

func TestSSORParameters(t *testing.T) {
	_, err := NewSSOR(laplacian(t, 3), 2)
	assert.Error(t, err)
	// zero diagonal
	D := matrix(t, 2, entry{0, 0, 1}, entry{0, 1, 1}, entry{1, 0, 1})
	_, err = NewSSOR(D, 1)
	assert.Error(t, err)

	// With omega = 1 on a diagonal matrix SSOR is the Jacobi inverse.
	J := matrix(t, 2, entry{0, 0, 1}, entry{0, 0, 1}, entry{1, 1, 4})
	P, err := NewSSOR(J, 1)
	require.NoError(t, err)
	dst := make([]float64, 2)
	P.Vmult(dst, []float64{2, 2})
	assert.Equal(t, []float64{1, 0.5}, dst)
}
