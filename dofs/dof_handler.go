package dofs

import (
	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/nedelec"
)

// DoFHandler numbers the global degrees of freedom of an edge element
// space. Cells are visited in order; on each cell the DoFs of edges not yet
// seen are numbered first, then those of faces (3D), then the interior.
type DoFHandler struct {
	Mesh *mesh.Mesh
	FE   *nedelec.Element

	// CellDofs[k][i] is the global index of local DoF i on cell k.
	CellDofs [][]int
	NDofs    int
}

func NewDoFHandler(m *mesh.Mesh) *DoFHandler {
	return &DoFHandler{Mesh: m}
}

// DistributeDofs numbers the DoFs of fe over the mesh.
func (h *DoFHandler) DistributeDofs(fe *nedelec.Element) {
	var (
		m        = h.Mesh
		nLine    = fe.DofsPerLine()
		nQuad    = fe.DofsPerQuad()
		nInner   = fe.DofsPerInterior()
		edgeBase = make([]int, m.NumEdges)
		faceBase = make([]int, m.NumFaces)
		next     int
	)
	h.FE = fe
	for i := range edgeBase {
		edgeBase[i] = -1
	}
	for i := range faceBase {
		faceBase[i] = -1
	}
	h.CellDofs = make([][]int, m.NumElements)
	for k := 0; k < m.NumElements; k++ {
		local := make([]int, 0, fe.NDofs())
		for l := 0; l < fe.NEdges(); l++ {
			ge := m.EToL[k][l]
			if edgeBase[ge] < 0 {
				edgeBase[ge] = next
				next += nLine
			}
			for i := 0; i < nLine; i++ {
				local = append(local, edgeBase[ge]+i)
			}
		}
		if nQuad > 0 {
			for f := 0; f < fe.NFaces(); f++ {
				gf := m.EToG[k][f]
				if faceBase[gf] < 0 {
					faceBase[gf] = next
					next += nQuad
				}
				for i := 0; i < nQuad; i++ {
					local = append(local, faceBase[gf]+i)
				}
			}
		}
		for i := 0; i < nInner; i++ {
			local = append(local, next+i)
		}
		next += nInner
		h.CellDofs[k] = local
	}
	h.NDofs = next
}

// LocalDofIndices returns the global indices of the DoFs of cell k.
func (h *DoFHandler) LocalDofIndices(k int) []int { return h.CellDofs[k] }
