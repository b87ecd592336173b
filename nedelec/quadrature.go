package nedelec

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Legendre fills l[k] = L_k(s) for k = 0..len(l)-1, where L_k is the
// Legendre polynomial shifted to [0,1] and normalized so that
// int_0^1 L_j L_k ds = delta_jk.
func Legendre(s float64, l []float64) {
	if len(l) == 0 {
		return
	}
	x := 2*s - 1
	pm1, p := 0., 1.
	for k := range l {
		if k > 0 {
			kf := float64(k)
			pm1, p = p, ((2*kf-1)*x*p-(kf-1)*pm1)/kf
		}
		l[k] = p * math.Sqrt(2*float64(k)+1)
	}
}

// Quadrature is a tensor product Gauss-Legendre rule on [0,1]^dim.
type Quadrature struct {
	Dim     int
	Points  [][]float64
	Weights []float64
}

// GaussLine returns the n-point Gauss-Legendre rule on [0,1].
func GaussLine(n int) (x, w []float64) {
	x = make([]float64, n)
	w = make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, 0, 1)
	return
}

// NewGauss returns the n^dim point tensor Gauss rule, exact for
// polynomials of degree 2n-1 in each variable. The first axis runs
// fastest.
func NewGauss(dim, n int) *Quadrature {
	x1, w1 := GaussLine(n)
	np := 1
	for a := 0; a < dim; a++ {
		np *= n
	}
	q := &Quadrature{
		Dim:     dim,
		Points:  make([][]float64, np),
		Weights: make([]float64, np),
	}
	for i := 0; i < np; i++ {
		pt := make([]float64, dim)
		w, rem := 1., i
		for a := 0; a < dim; a++ {
			pt[a] = x1[rem%n]
			w *= w1[rem%n]
			rem /= n
		}
		q.Points[i], q.Weights[i] = pt, w
	}
	return q
}

func (q *Quadrature) Size() int { return len(q.Weights) }
