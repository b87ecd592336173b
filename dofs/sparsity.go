package dofs

import (
	"sort"

	"github.com/notargets/nedelec/utils"
)

// SparsityPattern collects the nonzero positions of a square matrix.
type SparsityPattern struct {
	n    int
	rows []map[int]struct{}
}

func NewSparsityPattern(n int) *SparsityPattern {
	sp := &SparsityPattern{n: n, rows: make([]map[int]struct{}, n)}
	for i := range sp.rows {
		sp.rows[i] = make(map[int]struct{})
	}
	return sp
}

func (sp *SparsityPattern) Add(i, j int) { sp.rows[i][j] = struct{}{} }

func (sp *SparsityPattern) Exists(i, j int) bool {
	_, ok := sp.rows[i][j]
	return ok
}

func (sp *SparsityPattern) NRows() int { return sp.n }

func (sp *SparsityPattern) NNZ() (nnz int) {
	for _, r := range sp.rows {
		nnz += len(r)
	}
	return
}

// Compress returns the CSR row pointers and sorted column indices.
func (sp *SparsityPattern) Compress() (indptr, ind []int) {
	indptr = make([]int, sp.n+1)
	ind = make([]int, 0, sp.NNZ())
	for i, r := range sp.rows {
		start := len(ind)
		for j := range r {
			ind = append(ind, j)
		}
		sort.Ints(ind[start:])
		indptr[i+1] = len(ind)
	}
	return
}

// NewMatrix allocates a zero CSR matrix with this pattern.
func (sp *SparsityPattern) NewMatrix(name string) (A utils.CSR) {
	indptr, ind := sp.Compress()
	A = utils.NewCSR(sp.n, sp.n, indptr, ind)
	A.SetName(name)
	return
}

// MakeSparsityPattern couples all DoFs of each cell, with constrained DoFs
// replaced by the DoFs they depend on. Constrained DoFs keep their
// diagonal.
func MakeSparsityPattern(h *DoFHandler, c *AffineConstraints) (sp *SparsityPattern) {
	sp = NewSparsityPattern(h.NDofs)
	var cols []int
	for k := range h.CellDofs {
		cols = cols[:0]
		for _, gi := range h.LocalDofIndices(k) {
			for _, e := range c.expand(gi) {
				cols = append(cols, e.Index)
			}
			if c.IsConstrained(gi) {
				sp.Add(gi, gi)
			}
		}
		for _, i := range cols {
			for _, j := range cols {
				sp.Add(i, j)
			}
		}
	}
	return
}
