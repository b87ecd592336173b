package solver

import (
	"fmt"

	"github.com/notargets/nedelec/utils"
)

// SSOR is the symmetric successive over-relaxation preconditioner
// P = omega/(2-omega) (D/omega + L) (D/omega)^-1 (D/omega + U) for a
// symmetric matrix A = L + D + U.
type SSOR struct {
	A     utils.CSR
	Omega float64
	diag  []float64
}

// NewSSOR prepares the preconditioner. Omega must lie in (0, 2) and the
// diagonal of A must be nonzero.
func NewSSOR(A utils.CSR, omega float64) (P *SSOR, err error) {
	if omega <= 0 || omega >= 2 {
		return nil, fmt.Errorf("SSOR relaxation parameter %g is outside (0, 2)", omega)
	}
	P = &SSOR{A: A, Omega: omega, diag: A.Diagonal()}
	for i, d := range P.diag {
		if d == 0 {
			return nil, fmt.Errorf("SSOR: zero diagonal entry in row %d", i)
		}
	}
	return
}

// Vmult applies dst = P^-1 src with one forward and one backward sweep.
func (P *SSOR) Vmult(dst, src []float64) {
	var (
		n = len(src)
		w = P.Omega
	)
	// (D/w + L) y = src
	for i := 0; i < n; i++ {
		cols, vals := P.A.Row(i)
		s := src[i]
		for k, j := range cols {
			if j < i {
				s -= vals[k] * dst[j]
			}
		}
		dst[i] = s * w / P.diag[i]
	}
	// y <- (D/w) y
	for i := 0; i < n; i++ {
		dst[i] *= P.diag[i] / w
	}
	// (D/w + U) x = y
	for i := n - 1; i >= 0; i-- {
		cols, vals := P.A.Row(i)
		s := dst[i]
		for k, j := range cols {
			if j > i {
				s -= vals[k] * dst[j]
			}
		}
		dst[i] = s * w / P.diag[i]
	}
	scale := (2 - w) / w
	for i := range dst {
		dst[i] *= scale
	}
}
