package mesh

import (
	"fmt"
	"math"
)

// MergeTolerance is the distance below which two vertices are considered
// the same point when meshes are merged.
const MergeTolerance = 1.e-10

// Merge joins two meshes of the same dimension into one, identifying
// vertices of b that coincide with vertices of a within tol. The elements
// of a come first.
func Merge(a, b *Mesh, tol float64) (m *Mesh, err error) {
	if a.Dim != b.Dim {
		return nil, fmt.Errorf("cannot merge a %dD mesh with a %dD mesh", a.Dim, b.Dim)
	}
	vertices := make([][]float64, 0, a.NumVertices+b.NumVertices)
	vertices = append(vertices, a.Vertices...)
	bmap := make([]int, b.NumVertices)
	for j, vb := range b.Vertices {
		bmap[j] = -1
		for i, va := range a.Vertices {
			if distance(va, vb) < tol {
				bmap[j] = i
				break
			}
		}
		if bmap[j] < 0 {
			bmap[j] = len(vertices)
			vertices = append(vertices, vb)
		}
	}
	cells := make([][]int, 0, a.NumElements+b.NumElements)
	cells = append(cells, a.EtoV...)
	for _, c := range b.EtoV {
		nc := make([]int, len(c))
		for i, v := range c {
			nc[i] = bmap[v]
		}
		cells = append(cells, nc)
	}
	return NewMesh(a.Dim, vertices, cells)
}

func distance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// RefineGlobal splits every element into 2^dim children, times times.
// Children are numbered lexicographically within their parent and inherit
// the parent's reference frame.
func (m *Mesh) RefineGlobal(times int) (err error) {
	for ; times > 0; times-- {
		if err = m.refineOnce(); err != nil {
			return
		}
	}
	return
}

func (m *Mesh) refineOnce() error {
	var (
		d        = m.Dim
		nv       = 1 << d
		index    = make(map[[3]int64]int)
		vertices = make([][]float64, 0, m.NumVertices*nv)
		cells    = make([][]int, 0, m.NumElements*nv)
		xi       = make([]float64, d)
	)
	vertexID := func(x []float64) int {
		var key [3]int64
		for a, c := range x {
			key[a] = int64(math.Round(c * 1.e9))
		}
		if id, ok := index[key]; ok {
			return id
		}
		id := len(vertices)
		vertices = append(vertices, x)
		index[key] = id
		return id
	}
	for _, v := range m.Vertices {
		vertexID(append([]float64(nil), v...))
	}
	for k := 0; k < m.NumElements; k++ {
		for child := 0; child < nv; child++ {
			cell := make([]int, nv)
			for lv := 0; lv < nv; lv++ {
				for a := 0; a < d; a++ {
					xi[a] = 0.5 * float64((child>>a)&1+(lv>>a)&1)
				}
				x := make([]float64, d)
				m.MapToPhysical(k, xi, x)
				cell[lv] = vertexID(x)
			}
			cells = append(cells, cell)
		}
	}
	refined, err := NewMesh(d, vertices, cells)
	if err != nil {
		return err
	}
	*m = *refined
	return nil
}
