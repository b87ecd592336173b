package solver

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/nedelec/utils"
)

var ErrNoConvergence = errors.New("iterative solver did not converge")

type NoConvergenceError struct {
	Iterations    int
	Residual      float64
	Target        float64
	InitialResNrm float64
}

func (e *NoConvergenceError) Error() string {
	return fmt.Sprintf("%v: residual %.3e after %d iterations, target %.3e (initial %.3e)",
		ErrNoConvergence, e.Residual, e.Iterations, e.Target, e.InitialResNrm)
}

func (e *NoConvergenceError) Is(target error) bool { return target == ErrNoConvergence }

// ReductionControl stops when the residual norm falls below
// max(Reduction*initial, Tolerance) and fails after MaxSteps iterations.
type ReductionControl struct {
	MaxSteps  int
	Tolerance float64
	Reduction float64
}

func NewReductionControl(maxSteps int, tol, reduction float64) ReductionControl {
	return ReductionControl{MaxSteps: maxSteps, Tolerance: tol, Reduction: reduction}
}

// DefaultControl is the control used for projections: a reduction of
// 1e-12 of the initial residual within one million steps.
func DefaultControl() ReductionControl { return NewReductionControl(1000000, 0, 1.e-12) }

func (rc ReductionControl) target(initial float64) float64 {
	return math.Max(rc.Reduction*initial, rc.Tolerance)
}

// Preconditioner applies dst = P^-1 src.
type Preconditioner interface {
	Vmult(dst, src []float64)
}

type Identity struct{}

func (Identity) Vmult(dst, src []float64) { copy(dst, src) }

// Result reports the final state of a solve.
type Result struct {
	Iterations      int
	InitialResidual float64
	Residual        float64
}

type CG struct {
	Control ReductionControl
	Logger  *zap.Logger
}

func NewCG(control ReductionControl) *CG {
	return &CG{Control: control, Logger: zap.NewNop()}
}

// Solve runs preconditioned conjugate gradients on the symmetric positive
// definite system A x = b, starting from the contents of x.
func (s *CG) Solve(A utils.CSR, x, b []float64, P Preconditioner) (res Result, err error) {
	n := len(b)
	if nr, nc := A.Dims(); nr != n || nc != n || len(x) != n {
		return res, fmt.Errorf("system is %dx%d with %d unknowns and %d right hand side entries", nr, nc, len(x), n)
	}
	if P == nil {
		P = Identity{}
	}
	var (
		r  = make([]float64, n)
		z  = make([]float64, n)
		p  = make([]float64, n)
		Ap = make([]float64, n)
	)
	A.MulVec(Ap, x)
	floats.SubTo(r, b, Ap)
	res.InitialResidual = floats.Norm(r, 2)
	res.Residual = res.InitialResidual
	target := s.Control.target(res.InitialResidual)
	if res.Residual <= target {
		return
	}
	P.Vmult(z, r)
	copy(p, z)
	rz := floats.Dot(r, z)
	for res.Iterations < s.Control.MaxSteps {
		res.Iterations++
		A.MulVec(Ap, p)
		pAp := floats.Dot(p, Ap)
		if pAp <= 0 || math.IsNaN(pAp) {
			return res, fmt.Errorf("%w: matrix is not positive definite (p.Ap = %g at step %d)",
				ErrNoConvergence, pAp, res.Iterations)
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)
		res.Residual = floats.Norm(r, 2)
		if res.Residual <= target {
			s.Logger.Debug("cg converged",
				zap.Int("iterations", res.Iterations),
				zap.Float64("residual", res.Residual),
				zap.Float64("initial", res.InitialResidual))
			return
		}
		P.Vmult(z, r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	err = &NoConvergenceError{
		Iterations:    res.Iterations,
		Residual:      res.Residual,
		Target:        target,
		InitialResNrm: res.InitialResidual,
	}
	return
}
