package nedelec

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/nedelec/mesh"
)

// CellValues holds the physical shape function values of one cell at the
// points of a quadrature rule, mapped with the covariant Piola transform
// phi = J^-T phi_hat.
type CellValues struct {
	FE *Element
	Q  *Quadrature

	Key Key
	// Values has row q*dim+c holding component c of every shape function at
	// quadrature point q.
	Values *mat.Dense
	JxW    []float64
	Points [][]float64

	jac, jinv *mat.Dense
}

func NewCellValues(fe *Element, q *Quadrature) *CellValues {
	d := fe.Dim()
	cv := &CellValues{
		FE:     fe,
		Q:      q,
		Values: mat.NewDense(q.Size()*d, fe.NDofs(), nil),
		JxW:    make([]float64, q.Size()),
		Points: make([][]float64, q.Size()),
		jac:    mat.NewDense(d, d, nil),
		jinv:   mat.NewDense(d, d, nil),
	}
	for i := range cv.Points {
		cv.Points[i] = make([]float64, d)
	}
	return cv
}

// Reinit evaluates the shape functions on elem.
func (cv *CellValues) Reinit(m *mesh.Mesh, elem int) (err error) {
	var (
		d = cv.FE.Dim()
		n = cv.FE.NDofs()
		J = cv.jac.RawMatrix().Data
	)
	if cv.Key, err = cv.FE.CellKey(m, elem); err != nil {
		return
	}
	ref, err := cv.FE.ShapeValues(cv.Key, cv.Q)
	if err != nil {
		return
	}
	for q, xi := range cv.Q.Points {
		det := m.Jacobian(elem, xi, J)
		if det <= 0 {
			return fmt.Errorf("%w: element %d has non-positive Jacobian %g", mesh.ErrMeshTopology, elem, det)
		}
		cv.JxW[q] = det * cv.Q.Weights[q]
		m.MapToPhysical(elem, xi, cv.Points[q])
		if err = cv.jinv.Inverse(cv.jac); err != nil {
			return fmt.Errorf("element %d: %w", elem, err)
		}
		for j := 0; j < n; j++ {
			for i := 0; i < d; i++ {
				var v float64
				for a := 0; a < d; a++ {
					v += cv.jinv.At(a, i) * ref.At(q*d+a, j)
				}
				cv.Values.Set(q*d+i, j, v)
			}
		}
	}
	return
}

// Value returns component c of shape function j at quadrature point q.
func (cv *CellValues) Value(j, q, c int) float64 {
	return cv.Values.At(q*cv.FE.Dim()+c, j)
}

// FunctionValues evaluates the field with local coefficients u at every
// quadrature point, out[q][c].
func (cv *CellValues) FunctionValues(u []float64, out [][]float64) error {
	d, n := cv.FE.Dim(), cv.FE.NDofs()
	if len(u) != n || len(out) != cv.Q.Size() {
		return fmt.Errorf("%w: %d coefficients for %d DoFs, %d output points for %d quadrature points",
			ErrDimensionMismatch, len(u), n, len(out), cv.Q.Size())
	}
	var uv mat.VecDense
	uv.MulVec(cv.Values, mat.NewVecDense(n, u))
	for q := range out {
		if len(out[q]) != d {
			return fmt.Errorf("%w: output point %d has %d components, want %d", ErrDimensionMismatch, q, len(out[q]), d)
		}
		for c := 0; c < d; c++ {
			out[q][c] = uv.AtVec(q*d + c)
		}
	}
	return nil
}
