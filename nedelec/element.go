package nedelec

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/orientation"
)

var ErrDimensionMismatch = errors.New("dimension mismatch")

// Key identifies how the edges and faces of one cell are oriented
// relative to their owners. Bit l is set when local edge l runs against
// the global edge. In 3D, bits 12+3f..14+3f hold the combined orientation
// code of local face f.
type Key uint64

const faceShift = 12

func (k Key) EdgeReversed(l int) bool { return k>>l&1 == 1 }

func (k Key) FaceCode(f int) orientation.Code {
	return orientation.Code(k >> (faceShift + 3*f) & 7)
}

// mode is the tensor Legendre field e_Comp * prod_a L_K[a](x_a).
type mode struct {
	Comp int
	K    [3]int
}

// functional is a DoF functional discretized as a sum over points of
// weight vectors dotted with the field.
type functional struct {
	points  [][]float64
	weights [][]float64
}

// Element is the first kind Nedelec element FE_Nedelec(p) on the
// reference square or cube. Component c of its space has degree p in
// x_c and p+1 in the other coordinates. DoF functionals are tangential
// moments against orthonormal Legendre polynomials, parametrized in the
// frame of the entity owner, so that shared DoFs need no sign change.
type Element struct {
	dim, degree int
	modes       []mode
	nLine       int
	nQuad       int
	nInterior   int

	gaussX, gaussW []float64

	interiorRows [][]float64

	mu     sync.Mutex
	coefs  map[Key]*mat.Dense
	values map[valuesKey]*mat.Dense
}

type valuesKey struct {
	key Key
	q   *Quadrature
}

// New returns FE_Nedelec(degree) in dim dimensions.
func New(dim, degree int) (e *Element, err error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: unsupported dimension %d", ErrDimensionMismatch, dim)
	}
	if degree < 0 {
		return nil, fmt.Errorf("invalid degree %d", degree)
	}
	p := degree
	e = &Element{
		dim:       dim,
		degree:    p,
		nLine:     p + 1,
		nInterior: dim * (p + 1) * pow(p, dim-1),
		coefs:     make(map[Key]*mat.Dense),
		values:    make(map[valuesKey]*mat.Dense),
	}
	if dim == 3 {
		e.nQuad = 2 * p * (p + 1)
	}
	for c := 0; c < dim; c++ {
		hi := [3]int{}
		for a := 0; a < dim; a++ {
			hi[a] = p + 2
		}
		hi[c] = p + 1
		forEachIndex(dim, hi, func(k [3]int) {
			e.modes = append(e.modes, mode{Comp: c, K: k})
		})
	}
	e.gaussX, e.gaussW = GaussLine(p + 2)
	for _, fn := range e.interiorFunctionals() {
		e.interiorRows = append(e.interiorRows, e.apply(fn))
	}
	return
}

func (e *Element) Name() string { return fmt.Sprintf("FE_Nedelec<%d>(%d)", e.dim, e.degree) }

func (e *Element) Dim() int { return e.dim }

// Degree returns the maximal polynomial degree of the space, p+1.
func (e *Element) Degree() int { return e.degree + 1 }

func (e *Element) DofsPerLine() int { return e.nLine }

// DofsPerQuad is the number of DoFs on each face of a hexahedron; zero in
// 2D, where faces are lines.
func (e *Element) DofsPerQuad() int { return e.nQuad }

func (e *Element) DofsPerInterior() int { return e.nInterior }

func (e *Element) NEdges() int {
	if e.dim == 2 {
		return 4
	}
	return 12
}

func (e *Element) NFaces() int { return 2 * e.dim }

// NDofs is the dimension of the local space, dim*(p+1)*(p+2)^(dim-1).
func (e *Element) NDofs() int { return len(e.modes) }

// StandardKey is the key of a cell that owns all its edges and faces.
func (e *Element) StandardKey() (k Key) {
	if e.dim == 3 {
		for f := 0; f < 6; f++ {
			k |= Key(orientation.Standard) << (faceShift + 3*f)
		}
	}
	return
}

// CellKey reads the orientation of every edge and face of elem.
func (e *Element) CellKey(m *mesh.Mesh, elem int) (k Key, err error) {
	if m.Dim != e.dim {
		return 0, fmt.Errorf("%w: %dD mesh with %s", ErrDimensionMismatch, m.Dim, e.Name())
	}
	for l := 0; l < m.NEdges(); l++ {
		if !m.EdgeOrientation(elem, l) {
			k |= 1 << l
		}
	}
	if e.dim == 3 {
		for f := 0; f < 6; f++ {
			var code orientation.Code
			if code, err = m.FaceOrientation(elem, f); err != nil {
				return
			}
			k |= Key(code) << (faceShift + 3*f)
		}
	}
	return
}

// Coefficients returns C with phi_i = sum_j C[j][i] psi_j, where psi_j are
// the Legendre modes, so that the DoF functionals of key satisfy
// l_i(phi_k) = delta_ik.
func (e *Element) Coefficients(key Key) (C *mat.Dense, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coefficients(key)
}

func (e *Element) coefficients(key Key) (C *mat.Dense, err error) {
	if C = e.coefs[key]; C != nil {
		return
	}
	n := e.NDofs()
	D := mat.NewDense(n, n, nil)
	fns, err := e.boundaryFunctionals(key)
	if err != nil {
		return nil, err
	}
	for i, fn := range fns {
		D.SetRow(i, e.apply(fn))
	}
	for i, row := range e.interiorRows {
		D.SetRow(len(fns)+i, row)
	}
	C = mat.NewDense(n, n, nil)
	if err = C.Inverse(D); err != nil {
		return nil, fmt.Errorf("%s: DoF matrix for key %#x is singular: %w", e.Name(), uint64(key), err)
	}
	e.coefs[key] = C
	return
}

// ModeValues returns Psi with Psi[q*dim+c][j] the c component of mode j
// at point q.
func (e *Element) ModeValues(points [][]float64) *mat.Dense {
	var (
		d   = e.dim
		n   = e.NDofs()
		Psi = mat.NewDense(len(points)*d, n, nil)
		L   = e.legendreTable()
	)
	for q, xi := range points {
		e.fillLegendre(xi, L)
		for j, md := range e.modes {
			Psi.Set(q*d+md.Comp, j, e.modeValue(md, L))
		}
	}
	return Psi
}

// ShapeValuesAt returns the reference shape functions of key at points,
// with row q*dim+c holding component c at point q.
func (e *Element) ShapeValuesAt(key Key, points [][]float64) (V *mat.Dense, err error) {
	C, err := e.Coefficients(key)
	if err != nil {
		return
	}
	Psi := e.ModeValues(points)
	r, _ := Psi.Dims()
	V = mat.NewDense(r, e.NDofs(), nil)
	V.Mul(Psi, C)
	return
}

// ShapeValues is ShapeValuesAt on the points of q, cached per key.
func (e *Element) ShapeValues(key Key, q *Quadrature) (V *mat.Dense, err error) {
	vk := valuesKey{key: key, q: q}
	e.mu.Lock()
	V = e.values[vk]
	e.mu.Unlock()
	if V != nil {
		return
	}
	if V, err = e.ShapeValuesAt(key, q.Points); err != nil {
		return
	}
	e.mu.Lock()
	e.values[vk] = V
	e.mu.Unlock()
	return
}

// ApplyFunctionals evaluates every DoF functional of key on the reference
// field u.
func (e *Element) ApplyFunctionals(key Key, u func(xi, out []float64)) (dofs []float64, err error) {
	fns, err := e.boundaryFunctionals(key)
	if err != nil {
		return
	}
	fns = append(fns, e.interiorFunctionals()...)
	dofs = make([]float64, len(fns))
	val := make([]float64, e.dim)
	for i, fn := range fns {
		for q, xi := range fn.points {
			u(xi, val)
			for c, w := range fn.weights[q] {
				dofs[i] += w * val[c]
			}
		}
	}
	return
}

func (e *Element) apply(fn functional) (row []float64) {
	row = make([]float64, e.NDofs())
	L := e.legendreTable()
	for q, xi := range fn.points {
		e.fillLegendre(xi, L)
		w := fn.weights[q]
		for j, md := range e.modes {
			if w[md.Comp] != 0 {
				row[j] += w[md.Comp] * e.modeValue(md, L)
			}
		}
	}
	return
}

func (e *Element) legendreTable() [][]float64 {
	L := make([][]float64, e.dim)
	for a := range L {
		L[a] = make([]float64, e.degree+2)
	}
	return L
}

func (e *Element) fillLegendre(xi []float64, L [][]float64) {
	for a := 0; a < e.dim; a++ {
		Legendre(xi[a], L[a])
	}
}

func (e *Element) modeValue(md mode, L [][]float64) float64 {
	v := 1.
	for a := 0; a < e.dim; a++ {
		v *= L[a][md.K[a]]
	}
	return v
}

// boundaryFunctionals returns the edge functionals followed, in 3D, by the
// face functionals.
func (e *Element) boundaryFunctionals(key Key) (fns []functional, err error) {
	var (
		d  = e.dim
		p  = e.degree
		nq = len(e.gaussX)
		Lk = make([]float64, p+1)
	)
	for l := 0; l < e.NEdges(); l++ {
		ev := mesh.EdgeVertices(d, l)
		if key.EdgeReversed(l) {
			ev[0], ev[1] = ev[1], ev[0]
		}
		P0, P1 := mesh.ReferenceVertex(d, ev[0]), mesh.ReferenceVertex(d, ev[1])
		t := sub(P1, P0)
		for k := 0; k <= p; k++ {
			fn := functional{}
			for q := 0; q < nq; q++ {
				s := e.gaussX[q]
				Legendre(s, Lk)
				fn.points = append(fn.points, axpy(s, t, P0))
				fn.weights = append(fn.weights, scale(e.gaussW[q]*Lk[k], t))
			}
			fns = append(fns, fn)
		}
	}
	if d == 2 || p == 0 {
		return
	}
	L1, L2 := make([]float64, p+1), make([]float64, p+1)
	for f := 0; f < 6; f++ {
		var sigma [4]int
		if sigma, err = orientation.FaceVertexMap(key.FaceCode(f)); err != nil {
			return nil, err
		}
		inv := orientation.InverseFaceVertexMap(sigma)
		fv := mesh.FaceVertices(3, f)
		P := make([][]float64, 3)
		for m := range P {
			P[m] = mesh.ReferenceVertex(3, fv[inv[m]])
		}
		t := [2][]float64{sub(P[1], P[0]), sub(P[2], P[0])}
		for dir := 0; dir < 2; dir++ {
			hi := [2]int{p + 1, p + 1}
			hi[1-dir] = p
			for i := 0; i < hi[0]; i++ {
				for j := 0; j < hi[1]; j++ {
					fn := functional{}
					for q1 := 0; q1 < nq; q1++ {
						s1 := e.gaussX[q1]
						Legendre(s1, L1)
						for q2 := 0; q2 < nq; q2++ {
							s2 := e.gaussX[q2]
							Legendre(s2, L2)
							xi := axpy(s2, t[1], axpy(s1, t[0], P[0]))
							w := e.gaussW[q1] * e.gaussW[q2] * L1[i] * L2[j]
							fn.points = append(fn.points, xi)
							fn.weights = append(fn.weights, scale(w, t[dir]))
						}
					}
					fns = append(fns, fn)
				}
			}
		}
	}
	return
}

// interiorFunctionals are the moments int u_c q with q of degree p in x_c
// and p-1 in the other coordinates.
func (e *Element) interiorFunctionals() (fns []functional) {
	var (
		d   = e.dim
		p   = e.degree
		qr  = NewGauss(d, p+2)
		L   = e.legendreTable()
		tab = make([][][]float64, qr.Size())
	)
	if p == 0 {
		return
	}
	for q, xi := range qr.Points {
		e.fillLegendre(xi, L)
		tab[q] = make([][]float64, d)
		for a := range L {
			tab[q][a] = append([]float64(nil), L[a]...)
		}
	}
	for c := 0; c < d; c++ {
		hi := [3]int{}
		for a := 0; a < d; a++ {
			hi[a] = p
		}
		hi[c] = p + 1
		forEachIndex(d, hi, func(k [3]int) {
			fn := functional{points: qr.Points}
			for q := range qr.Points {
				w := qr.Weights[q]
				for a := 0; a < d; a++ {
					w *= tab[q][a][k[a]]
				}
				wv := make([]float64, d)
				wv[c] = w
				fn.weights = append(fn.weights, wv)
			}
			fns = append(fns, fn)
		})
	}
	return
}

// forEachIndex visits the multi-indices 0 <= k[a] < hi[a], first axis
// fastest.
func forEachIndex(dim int, hi [3]int, f func(k [3]int)) {
	n := 1
	for a := 0; a < dim; a++ {
		n *= hi[a]
	}
	for i := 0; i < n; i++ {
		var k [3]int
		rem := i
		for a := 0; a < dim; a++ {
			k[a] = rem % hi[a]
			rem /= hi[a]
		}
		f(k)
	}
}

func pow(b, e int) int {
	r := 1
	for ; e > 0; e-- {
		r *= b
	}
	return r
}

func sub(a, b []float64) []float64 {
	r := make([]float64, len(a))
	for i := range a {
		r[i] = a[i] - b[i]
	}
	return r
}

func axpy(s float64, x, y []float64) []float64 {
	r := make([]float64, len(x))
	for i := range x {
		r[i] = s*x[i] + y[i]
	}
	return r
}

func scale(s float64, x []float64) []float64 {
	r := make([]float64, len(x))
	for i := range x {
		r[i] = s * x[i]
	}
	return r
}
