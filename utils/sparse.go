package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix with a fixed sparsity pattern.
// Values can be accumulated into existing entries only.
type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// NewCSR allocates a zero matrix over the pattern given by indptr and ind.
// Column indices must be sorted within each row.
func NewCSR(nr, nc int, indptr, ind []int) (R CSR) {
	R = CSR{
		sparse.NewCSR(nr, nc, indptr, ind, make([]float64, len(ind))),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Data() []float64 {
	return m.RawMatrix().Data
}

func (m CSR) NNZ() int { return m.M.NNZ() }

// Row returns the column indices and values of row i, aliasing storage.
func (m CSR) Row(i int) (cols []int, vals []float64) {
	raw := m.RawMatrix()
	lo, hi := raw.Indptr[i], raw.Indptr[i+1]
	return raw.Ind[lo:hi], raw.Data[lo:hi]
}

// AddAt accumulates val into entry (i, j), which must be in the pattern.
func (m CSR) AddAt(i, j int, val float64) (err error) {
	m.checkWritable()
	cols, vals := m.Row(i)
	k := sort.SearchInts(cols, j)
	if k == len(cols) || cols[k] != j {
		return fmt.Errorf("entry (%d, %d) is not in the sparsity pattern of %q", i, j, m.name)
	}
	vals[k] += val
	return
}

// MulVec sets dst = M x.
func (m CSR) MulVec(dst, x []float64) {
	nr, _ := m.Dims()
	for i := 0; i < nr; i++ {
		cols, vals := m.Row(i)
		var s float64
		for k, j := range cols {
			s += vals[k] * x[j]
		}
		dst[i] = s
	}
}

// Diagonal returns the diagonal entries.
func (m CSR) Diagonal() (d []float64) {
	nr, _ := m.Dims()
	d = make([]float64, nr)
	for i := range d {
		cols, vals := m.Row(i)
		if k := sort.SearchInts(cols, i); k < len(cols) && cols[k] == i {
			d[i] = vals[k]
		}
	}
	return
}

func (m *CSR) SetName(name string) { m.name = name }

func (m *CSR) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

func (m CSR) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}
