package dofs

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/utils"
)

var ErrConstraintCycle = errors.New("constraint cycle")

// Entry is one term of a constraint line.
type Entry struct {
	Index  int
	Weight float64
}

// ConstraintLine expresses x[Index] = sum_k Weight_k x[Index_k] + Inhomogeneity.
type ConstraintLine struct {
	Index         int
	Entries       []Entry
	Inhomogeneity float64
}

// AffineConstraints is a set of linear constraints between DoFs. After
// Close no constrained DoF appears on the right hand side of a line.
type AffineConstraints struct {
	lines  map[int]*ConstraintLine
	closed bool
}

func NewAffineConstraints() *AffineConstraints {
	return &AffineConstraints{lines: make(map[int]*ConstraintLine)}
}

func (c *AffineConstraints) AddLine(i int) {
	c.checkOpen()
	if _, ok := c.lines[i]; !ok {
		c.lines[i] = &ConstraintLine{Index: i}
	}
}

func (c *AffineConstraints) AddEntry(i, j int, w float64) {
	c.AddLine(i)
	c.lines[i].Entries = append(c.lines[i].Entries, Entry{Index: j, Weight: w})
}

func (c *AffineConstraints) SetInhomogeneity(i int, v float64) {
	c.AddLine(i)
	c.lines[i].Inhomogeneity = v
}

func (c *AffineConstraints) IsConstrained(i int) bool {
	_, ok := c.lines[i]
	return ok
}

func (c *AffineConstraints) NConstraints() int { return len(c.lines) }

func (c *AffineConstraints) IsClosed() bool { return c.closed }

// Line returns the constraint on DoF i, or nil.
func (c *AffineConstraints) Line(i int) *ConstraintLine { return c.lines[i] }

func (c *AffineConstraints) checkOpen() {
	if c.closed {
		panic("constraints modified after Close")
	}
}

// Close resolves chains of constraints so that every line refers to
// unconstrained DoFs only and merges duplicate entries. It fails with
// ErrConstraintCycle if a DoF depends on itself.
func (c *AffineConstraints) Close() (err error) {
	if c.closed {
		return
	}
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[int]int, len(c.lines))
	var resolve func(i int, path []int) error
	resolve = func(i int, path []int) error {
		switch state[i] {
		case done:
			return nil
		case active:
			return fmt.Errorf("%w: %v", ErrConstraintCycle, append(path, i))
		}
		state[i] = active
		line := c.lines[i]
		acc := make(map[int]float64)
		inhom := line.Inhomogeneity
		for _, e := range line.Entries {
			dep, ok := c.lines[e.Index]
			if !ok {
				acc[e.Index] += e.Weight
				continue
			}
			if err := resolve(e.Index, append(path, i)); err != nil {
				return err
			}
			for _, de := range dep.Entries {
				acc[de.Index] += e.Weight * de.Weight
			}
			inhom += e.Weight * dep.Inhomogeneity
		}
		line.Entries = line.Entries[:0]
		for j, w := range acc {
			line.Entries = append(line.Entries, Entry{Index: j, Weight: w})
		}
		sort.Slice(line.Entries, func(a, b int) bool { return line.Entries[a].Index < line.Entries[b].Index })
		line.Inhomogeneity = inhom
		state[i] = done
		return nil
	}
	keys := make([]int, 0, len(c.lines))
	for i := range c.lines {
		keys = append(keys, i)
	}
	sort.Ints(keys)
	for _, i := range keys {
		if err = resolve(i, nil); err != nil {
			return
		}
	}
	c.closed = true
	return
}

// expand writes the unconstrained DoFs that DoF i resolves to.
func (c *AffineConstraints) expand(i int) []Entry {
	if line, ok := c.lines[i]; ok {
		return line.Entries
	}
	return []Entry{{Index: i, Weight: 1}}
}

// DistributeLocalToGlobal adds a cell matrix and vector into the global
// system, eliminating constrained DoFs. Constrained rows receive their
// local diagonal entry so the global matrix stays nonsingular.
func (c *AffineConstraints) DistributeLocalToGlobal(M *mat.Dense, b []float64, indices []int, A utils.CSR, rhs []float64) (err error) {
	if !c.closed {
		return fmt.Errorf("constraints must be closed before distribution")
	}
	n := len(indices)
	if r, cc := M.Dims(); r != n || cc != n || len(b) != n {
		return fmt.Errorf("local system is %dx%d with %d rhs entries for %d indices", r, cc, len(b), n)
	}
	expanded := make([][]Entry, n)
	for i, gi := range indices {
		expanded[i] = c.expand(gi)
	}
	for i, gi := range indices {
		bi := b[i]
		for j, gj := range indices {
			mij := M.At(i, j)
			if line, ok := c.lines[gj]; ok {
				bi -= mij * line.Inhomogeneity
			}
			for _, ei := range expanded[i] {
				for _, ej := range expanded[j] {
					if err = A.AddAt(ei.Index, ej.Index, ei.Weight*ej.Weight*mij); err != nil {
						return
					}
				}
			}
		}
		for _, ei := range expanded[i] {
			rhs[ei.Index] += ei.Weight * bi
		}
		if c.IsConstrained(gi) {
			if err = A.AddAt(gi, gi, M.At(i, i)); err != nil {
				return
			}
		}
	}
	return
}

// Distribute sets every constrained entry of x from its line.
func (c *AffineConstraints) Distribute(x []float64) {
	for i, line := range c.lines {
		v := line.Inhomogeneity
		for _, e := range line.Entries {
			v += e.Weight * x[e.Index]
		}
		x[i] = v
	}
}

// MakeHangingNodeConstraints adds the constraints of DoFs on hanging
// faces. Globally refined meshes are conforming, so nothing is added; a
// mesh with hanging faces is rejected.
func MakeHangingNodeConstraints(h *DoFHandler, c *AffineConstraints) error {
	if err := h.Mesh.CheckConforming(); err != nil {
		return fmt.Errorf("hanging node constraints: %w", err)
	}
	if h.Mesh.NumFaces == 0 {
		return fmt.Errorf("%w: mesh has no faces", mesh.ErrMeshTopology)
	}
	return nil
}
