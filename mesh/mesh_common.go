package mesh

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/notargets/nedelec/orientation"
)

// ElementType represents different element types
type ElementType int

const (
	Line ElementType = iota
	Quad
	Hex
)

func (e ElementType) String() string {
	return [...]string{"Line", "Quad", "Hex"}[e]
}

var ErrMeshTopology = errors.New("mesh topology error")

// Face is a codimension-one entity: a line in 2D, a quadrilateral in 3D.
type Face struct {
	Vertices []int // Global vertices in the owner's lexicographic face order
	Element  int   // Owner element (first element that referenced the face)
	LocalID  int   // Local face ID within the owner
}

// Edge is a one-dimensional entity. Its direction runs V0 -> V1 as seen
// by the owner element.
type Edge struct {
	V0, V1  int
	Element int
	LocalID int
}

// Mesh is a conforming quadrilateral or hexahedral mesh. Element vertex
// lists are lexicographic: local vertex v sits at reference coordinate
// (v&1, v>>1&1, v>>2&1).
type Mesh struct {
	Dim int

	// Geometry
	Vertices [][]float64 // Vertex coordinates [nvertices][dim]

	// Element data
	EtoV        [][]int // Element to vertex connectivity [nelems][2^dim]
	ElementType ElementType

	// Connectivity (built during initialization)
	EToE [][]int // Element to neighbor element per local face, -1 on the boundary
	EToF [][]int // Element to neighbor local face, -1 on the boundary
	EToG [][]int // Element to global face ID
	EToL [][]int // Element to global edge ID

	Faces   []Face
	FaceMap map[string]int
	Edges   []Edge
	EdgeMap map[[2]int]int

	NumElements int
	NumVertices int
	NumFaces    int
	NumEdges    int
}

// NewMesh creates a mesh from explicit vertex and cell lists and builds
// connectivity.
func NewMesh(dim int, vertices [][]float64, cells [][]int) (m *Mesh, err error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("unsupported dimension %d", dim)
	}
	nv := 1 << dim
	m = &Mesh{
		Dim:         dim,
		ElementType: Quad,
		NumVertices: len(vertices),
		NumElements: len(cells),
	}
	if dim == 3 {
		m.ElementType = Hex
	}
	m.Vertices = make([][]float64, len(vertices))
	for i, v := range vertices {
		if len(v) != dim {
			return nil, fmt.Errorf("vertex %d has %d coordinates, want %d", i, len(v), dim)
		}
		m.Vertices[i] = append([]float64(nil), v...)
	}
	m.EtoV = make([][]int, len(cells))
	for k, c := range cells {
		if len(c) != nv {
			return nil, fmt.Errorf("cell %d has %d vertices, want %d", k, len(c), nv)
		}
		for _, v := range c {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("cell %d references vertex %d out of range", k, v)
			}
		}
		m.EtoV[k] = append([]int(nil), c...)
	}
	if err = m.BuildConnectivity(); err != nil {
		return nil, err
	}
	return
}

// NFaces returns the number of faces per element.
func (m *Mesh) NFaces() int { return 2 * m.Dim }

// NEdges returns the number of edges per element.
func (m *Mesh) NEdges() int {
	if m.Dim == 2 {
		return 4
	}
	return 12
}

// BuildConnectivity builds element-to-element, face and edge connectivity.
// Entities are owned by the lowest numbered element that touches them.
func (m *Mesh) BuildConnectivity() (err error) {
	nf, ne := m.NFaces(), m.NEdges()
	m.EToE = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.EToG = make([][]int, m.NumElements)
	m.EToL = make([][]int, m.NumElements)
	m.Faces = nil
	m.FaceMap = make(map[string]int)
	m.Edges = nil
	m.EdgeMap = make(map[[2]int]int)

	faceCount := make([]int, 0)
	for elemID := 0; elemID < m.NumElements; elemID++ {
		verts := m.EtoV[elemID]
		m.EToE[elemID] = make([]int, nf)
		m.EToF[elemID] = make([]int, nf)
		m.EToG[elemID] = make([]int, nf)
		m.EToL[elemID] = make([]int, ne)
		for i := range m.EToE[elemID] {
			m.EToE[elemID][i] = -1
			m.EToF[elemID][i] = -1
		}

		for localFaceID := 0; localFaceID < nf; localFaceID++ {
			fv := FaceVertices(m.Dim, localFaceID)
			faceVerts := make([]int, len(fv))
			for i, lv := range fv {
				faceVerts[i] = verts[lv]
			}
			key := faceKey(faceVerts)
			if faceID, exists := m.FaceMap[key]; exists {
				if faceCount[faceID] > 1 {
					return fmt.Errorf("%w: face %v shared by more than two elements", ErrMeshTopology, faceVerts)
				}
				face := m.Faces[faceID]
				m.EToE[elemID][localFaceID] = face.Element
				m.EToF[elemID][localFaceID] = face.LocalID
				m.EToE[face.Element][face.LocalID] = elemID
				m.EToF[face.Element][face.LocalID] = localFaceID
				m.EToG[elemID][localFaceID] = faceID
				faceCount[faceID]++
			} else {
				faceID := len(m.Faces)
				m.Faces = append(m.Faces, Face{
					Vertices: faceVerts,
					Element:  elemID,
					LocalID:  localFaceID,
				})
				faceCount = append(faceCount, 1)
				m.FaceMap[key] = faceID
				m.EToG[elemID][localFaceID] = faceID
			}
		}

		for localEdgeID := 0; localEdgeID < ne; localEdgeID++ {
			ev := EdgeVertices(m.Dim, localEdgeID)
			v0, v1 := verts[ev[0]], verts[ev[1]]
			key := [2]int{min(v0, v1), max(v0, v1)}
			if edgeID, exists := m.EdgeMap[key]; exists {
				m.EToL[elemID][localEdgeID] = edgeID
			} else {
				edgeID := len(m.Edges)
				m.Edges = append(m.Edges, Edge{V0: v0, V1: v1, Element: elemID, LocalID: localEdgeID})
				m.EdgeMap[key] = edgeID
				m.EToL[elemID][localEdgeID] = edgeID
			}
		}
	}
	m.NumFaces = len(m.Faces)
	m.NumEdges = len(m.Edges)
	return
}

func faceKey(verts []int) string {
	sorted := make([]int, len(verts))
	copy(sorted, verts)
	sort.Ints(sorted)
	return fmt.Sprintf("%v", sorted)
}

// FaceVertices returns the local vertices of local face f. Face 2k is the
// face at reference coordinate 0 along axis k, face 2k+1 the one at 1. The
// vertices are ordered lexicographically in the remaining axes, taken in
// ascending order.
func FaceVertices(dim, f int) []int {
	axis, side := f/2, f%2
	tang := tangentAxes(dim, axis)
	fv := make([]int, 1<<(dim-1))
	for i := range fv {
		v := side << axis
		for b, a := range tang {
			v |= (i >> b & 1) << a
		}
		fv[i] = v
	}
	return fv
}

// EdgeVertices returns the two local vertices of local edge l, in the
// direction of increasing reference coordinate. In 2D the edges are the
// faces. In 3D edges 0-3 run along x, 4-7 along y and 8-11 along z.
func EdgeVertices(dim, l int) [2]int {
	if dim == 2 {
		fv := FaceVertices(2, l)
		return [2]int{fv[0], fv[1]}
	}
	axis, j := l/4, l%4
	tang := tangentAxes(3, axis)
	v := (j&1)<<tang[0] | (j>>1&1)<<tang[1]
	return [2]int{v, v | 1<<axis}
}

// EdgeAxis returns the reference axis along which local edge l runs.
func EdgeAxis(dim, l int) int {
	if dim == 2 {
		return 1 - l/2
	}
	return l / 4
}

func tangentAxes(dim, axis int) []int {
	tang := make([]int, 0, dim-1)
	for a := 0; a < dim; a++ {
		if a != axis {
			tang = append(tang, a)
		}
	}
	return tang
}

// ReferenceVertex returns the reference coordinates of local vertex v.
func ReferenceVertex(dim, v int) []float64 {
	r := make([]float64, dim)
	for a := 0; a < dim; a++ {
		r[a] = float64(v >> a & 1)
	}
	return r
}

// NeighborFace returns the unique local face of elem that has a neighbor.
// It fails if there is none or more than one.
func (m *Mesh) NeighborFace(elem int) (face int, err error) {
	face = -1
	for f, nb := range m.EToE[elem] {
		if nb < 0 {
			continue
		}
		if face >= 0 {
			return -1, fmt.Errorf("%w: element %d has more than one neighbor face", ErrMeshTopology, elem)
		}
		face = f
	}
	if face < 0 {
		err = fmt.Errorf("%w: element %d has no neighbor", ErrMeshTopology, elem)
	}
	return
}

// InteriorFaces returns the global IDs of faces shared by two elements.
func (m *Mesh) InteriorFaces() (faces []int) {
	for k := 0; k < m.NumElements; k++ {
		for f, nb := range m.EToE[k] {
			if nb > k {
				faces = append(faces, m.EToG[k][f])
			}
		}
	}
	return
}

// EdgeOrientation reports whether local edge l of elem runs in the same
// direction as the global edge.
func (m *Mesh) EdgeOrientation(elem, l int) bool {
	ev := EdgeVertices(m.Dim, l)
	e := m.Edges[m.EToL[elem][l]]
	return m.EtoV[elem][ev[0]] == e.V0
}

// FaceVertexMap returns, for local face f of elem, the owner face vertex
// each local face vertex coincides with. The owner sees the identity.
func (m *Mesh) FaceVertexMap(elem, f int) (sigma [4]int, err error) {
	if m.Dim != 3 {
		return sigma, fmt.Errorf("face vertex maps are defined for hexahedra only")
	}
	face := m.Faces[m.EToG[elem][f]]
	fv := FaceVertices(3, f)
	for i, lv := range fv {
		gv := m.EtoV[elem][lv]
		sigma[i] = -1
		for j, ov := range face.Vertices {
			if ov == gv {
				sigma[i] = j
			}
		}
		if sigma[i] < 0 {
			return sigma, fmt.Errorf("%w: element %d face %d does not match its global face", ErrMeshTopology, elem, f)
		}
	}
	return
}

// FaceOrientation returns the combined orientation of local face f of elem
// relative to the face owner. In 2D only the line orientation is
// observable, encoded in the orientation bit.
func (m *Mesh) FaceOrientation(elem, f int) (code orientation.Code, err error) {
	if m.Dim == 2 {
		if m.EdgeOrientation(elem, f) {
			return orientation.Standard, nil
		}
		return 0, nil
	}
	var sigma [4]int
	if sigma, err = m.FaceVertexMap(elem, f); err != nil {
		return
	}
	var ok bool
	if code, ok = orientation.CodeFromFaceVertexMap(sigma); !ok {
		err = fmt.Errorf("%w: element %d face %d has vertex map %v which is not a symmetry of the square",
			ErrMeshTopology, elem, f, sigma)
	}
	return
}

// MapToPhysical evaluates the multilinear map of elem at reference point xi.
func (m *Mesh) MapToPhysical(elem int, xi []float64, x []float64) {
	for i := range x {
		x[i] = 0
	}
	for v, gv := range m.EtoV[elem] {
		w := 1.
		for a := 0; a < m.Dim; a++ {
			if v>>a&1 == 1 {
				w *= xi[a]
			} else {
				w *= 1 - xi[a]
			}
		}
		for i := 0; i < m.Dim; i++ {
			x[i] += w * m.Vertices[gv][i]
		}
	}
}

// Jacobian fills J[i*dim+a] = dx_i/dxi_a at reference point xi and returns
// its determinant.
func (m *Mesh) Jacobian(elem int, xi []float64, J []float64) (det float64) {
	d := m.Dim
	for i := range J[:d*d] {
		J[i] = 0
	}
	for v, gv := range m.EtoV[elem] {
		for a := 0; a < d; a++ {
			w := 1.
			for b := 0; b < d; b++ {
				bit := v >> b & 1
				switch {
				case b == a && bit == 1:
				case b == a:
					w = -w
				case bit == 1:
					w *= xi[b]
				default:
					w *= 1 - xi[b]
				}
			}
			for i := 0; i < d; i++ {
				J[i*d+a] += w * m.Vertices[gv][i]
			}
		}
	}
	if d == 2 {
		return J[0]*J[3] - J[1]*J[2]
	}
	return J[0]*(J[4]*J[8]-J[5]*J[7]) - J[1]*(J[3]*J[8]-J[5]*J[6]) + J[2]*(J[3]*J[7]-J[4]*J[6])
}

// BoundingBox returns the coordinate extents of the mesh.
func (m *Mesh) BoundingBox() (lo, hi []float64) {
	lo = make([]float64, m.Dim)
	hi = make([]float64, m.Dim)
	for a := range lo {
		lo[a], hi[a] = math.Inf(1), math.Inf(-1)
	}
	for _, v := range m.Vertices {
		for a, x := range v {
			lo[a] = math.Min(lo[a], x)
			hi[a] = math.Max(hi[a], x)
		}
	}
	return
}

// CheckConforming verifies that every face without a neighbor lies on the
// bounding box of the mesh. A boundary face strictly inside the box is a
// hanging face.
func (m *Mesh) CheckConforming() error {
	const tol = 1.e-10
	lo, hi := m.BoundingBox()
	for k := 0; k < m.NumElements; k++ {
		for f, nb := range m.EToE[k] {
			if nb >= 0 {
				continue
			}
			onBox := false
			for a := 0; a < m.Dim && !onBox; a++ {
				allLo, allHi := true, true
				for _, gv := range m.Faces[m.EToG[k][f]].Vertices {
					x := m.Vertices[gv][a]
					allLo = allLo && math.Abs(x-lo[a]) < tol
					allHi = allHi && math.Abs(x-hi[a]) < tol
				}
				onBox = allLo || allHi
			}
			if !onBox {
				return fmt.Errorf("%w: element %d face %d is a hanging face", ErrMeshTopology, k, f)
			}
		}
	}
	return nil
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics(w io.Writer) {
	fmt.Fprintf(w, "Mesh Statistics:\n")
	fmt.Fprintf(w, "  Dimension: %d\n", m.Dim)
	fmt.Fprintf(w, "  Vertices: %d\n", m.NumVertices)
	fmt.Fprintf(w, "  Elements: %d (%s)\n", m.NumElements, m.ElementType)
	fmt.Fprintf(w, "  Faces: %d\n", m.NumFaces)
	fmt.Fprintf(w, "  Edges: %d\n", m.NumEdges)

	boundaryFaces := 0
	for i := 0; i < m.NumElements; i++ {
		for _, neighbor := range m.EToE[i] {
			if neighbor < 0 {
				boundaryFaces++
			}
		}
	}
	fmt.Fprintf(w, "  Boundary faces: %d\n", boundaryFaces)
}
