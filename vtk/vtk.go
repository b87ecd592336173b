package vtk

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/notargets/nedelec/mesh"
)

// VTK cell type identifiers
const (
	vtkQuad       = 9
	vtkHexahedron = 12
)

// corner order of a VTK quadrilateral and hexahedron in lexicographic
// sub-cell vertex numbering
var (
	quadCorners = []int{0, 1, 3, 2}
	hexCorners  = []int{0, 1, 3, 2, 4, 5, 7, 6}
)

// PatchPoints returns the (nsub+1)^dim reference points of one patch, the
// first axis running fastest.
func PatchPoints(dim, nsub int) (pts [][]float64) {
	if nsub < 1 {
		nsub = 1
	}
	n1 := nsub + 1
	np := 1
	for a := 0; a < dim; a++ {
		np *= n1
	}
	pts = make([][]float64, np)
	for i := range pts {
		pt := make([]float64, dim)
		rem := i
		for a := 0; a < dim; a++ {
			pt[a] = float64(rem%n1) / float64(nsub)
			rem /= n1
		}
		pts[i] = pt
	}
	return
}

// CellField evaluates a vector field with dim components on cell elem at
// the given reference points.
type CellField func(elem int, points [][]float64) ([][]float64, error)

// WritePatches writes a legacy ASCII unstructured grid in which every mesh
// cell is subdivided nsub times per direction and the field is sampled at
// the patch vertices.
func WritePatches(w io.Writer, m *mesh.Mesh, nsub int, name string, field CellField) (err error) {
	if nsub < 1 {
		nsub = 1
	}
	var (
		d       = m.Dim
		ref     = PatchPoints(d, nsub)
		np      = len(ref)
		n1      = nsub + 1
		nsubD   = 1
		corners = quadCorners
		ctype   = vtkQuad
		x       = make([]float64, d)
		bw      = bufio.NewWriter(w)
	)
	for a := 0; a < d; a++ {
		nsubD *= nsub
	}
	if d == 3 {
		corners, ctype = hexCorners, vtkHexahedron
	}
	values := make([][][]float64, m.NumElements)
	for k := 0; k < m.NumElements; k++ {
		if values[k], err = field(k, ref); err != nil {
			return fmt.Errorf("evaluating %s on cell %d: %w", name, k, err)
		}
		if len(values[k]) != np {
			return fmt.Errorf("field %s returned %d values on cell %d, want %d", name, len(values[k]), k, np)
		}
	}

	fmt.Fprintf(bw, "# vtk DataFile Version 3.0\n")
	fmt.Fprintf(bw, "%s\n", name)
	fmt.Fprintf(bw, "ASCII\nDATASET UNSTRUCTURED_GRID\n\n")
	fmt.Fprintf(bw, "POINTS %d double\n", m.NumElements*np)
	for k := 0; k < m.NumElements; k++ {
		for _, xi := range ref {
			m.MapToPhysical(k, xi, x)
			writeVector(bw, x)
		}
	}
	nCells := m.NumElements * nsubD
	fmt.Fprintf(bw, "\nCELLS %d %d\n", nCells, nCells*(len(corners)+1))
	for k := 0; k < m.NumElements; k++ {
		base := k * np
		for s := 0; s < nsubD; s++ {
			var origin, rem, stride = 0, s, 1
			for a := 0; a < d; a++ {
				origin += (rem % nsub) * stride
				rem /= nsub
				stride *= n1
			}
			fmt.Fprintf(bw, "%d", len(corners))
			for _, c := range corners {
				off, stride := 0, 1
				for a := 0; a < d; a++ {
					off += (c >> a & 1) * stride
					stride *= n1
				}
				fmt.Fprintf(bw, " %d", base+origin+off)
			}
			fmt.Fprintln(bw)
		}
	}
	fmt.Fprintf(bw, "\nCELL_TYPES %d\n", nCells)
	for i := 0; i < nCells; i++ {
		fmt.Fprintf(bw, "%d\n", ctype)
	}
	fmt.Fprintf(bw, "\nPOINT_DATA %d\n", m.NumElements*np)
	fmt.Fprintf(bw, "VECTORS %s double\n", name)
	for k := range values {
		for _, v := range values[k] {
			writeVector(bw, v)
		}
	}
	return bw.Flush()
}

// writeVector pads v to three components.
func writeVector(w io.Writer, v []float64) {
	var c [3]float64
	copy(c[:], v)
	fmt.Fprintf(w, "%s %s %s\n",
		strconv.FormatFloat(c[0], 'g', 16, 64),
		strconv.FormatFloat(c[1], 'g', 16, 64),
		strconv.FormatFloat(c[2], 'g', 16, 64))
}

// WritePatchesFile replaces filename with the output of WritePatches.
func WritePatchesFile(filename string, m *mesh.Mesh, nsub int, name string, field CellField) (err error) {
	var f *os.File
	if f, err = os.Create(filename); err != nil {
		return
	}
	if err = WritePatches(f, m, nsub, name, field); err != nil {
		f.Close()
		return
	}
	return f.Close()
}
