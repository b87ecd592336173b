package projection

import (
	"fmt"

	"github.com/notargets/nedelec/dofs"
	"github.com/notargets/nedelec/nedelec"
	"github.com/notargets/nedelec/vtk"
)

// ShapeSubdivisions is the patch resolution of shape function output.
const ShapeSubdivisions = 16

// WriteShapeFunctions writes one VTK file per global DoF of h, the field
// being the basis function of that DoF. File i is named prefix + i + ".vtk".
func WriteShapeFunctions(prefix string, fe *nedelec.Element, h *dofs.DoFHandler) (files []string, err error) {
	u := make([]float64, h.NDofs)
	for i := range u {
		u[i] = 1
		name := fmt.Sprintf("%s%d.vtk", prefix, i)
		if err = vtk.WritePatchesFile(name, h.Mesh, ShapeSubdivisions, "ShapeFunction", SolutionField(fe, h, u)); err != nil {
			return
		}
		u[i] = 0
		files = append(files, name)
	}
	return
}
