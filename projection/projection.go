package projection

import (
	"fmt"
	"math"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/nedelec/dofs"
	"github.com/notargets/nedelec/mesh"
	"github.com/notargets/nedelec/nedelec"
	"github.com/notargets/nedelec/solver"
	"github.com/notargets/nedelec/timer"
	"github.com/notargets/nedelec/utils"
	"github.com/notargets/nedelec/vtk"
)

// Result holds the metrics of one projection.
type Result struct {
	NCells     int
	NDofs      int
	L2Error    float64
	Iterations int
	CellErrors []float64
}

// Solver projects a vector field onto FE_Nedelec spaces in L2.
type Solver struct {
	Field   VectorFunction
	Control solver.ReductionControl
	Omega   float64
	Logger  *zap.Logger
	Timer   *timer.Output
	// OutputDir, when set, receives projection<dim>D_p<degree>_r<level>.vtk
	OutputDir string
	Level     int
}

type Option func(*Solver)

func WithLogger(l *zap.Logger) Option { return func(s *Solver) { s.Logger = l } }

func WithTimer(t *timer.Output) Option { return func(s *Solver) { s.Timer = t } }

func WithControl(c solver.ReductionControl) Option { return func(s *Solver) { s.Control = c } }

// WithOutput writes the projected field of the run at refinement level
// into dir.
func WithOutput(dir string, level int) Option {
	return func(s *Solver) { s.OutputDir, s.Level = dir, level }
}

func NewSolver(field VectorFunction, opts ...Option) *Solver {
	s := &Solver{
		Field:   field,
		Control: solver.DefaultControl(),
		Omega:   1.2,
		Logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run is the state of one projection on one mesh and degree.
type Run struct {
	Mesh        *mesh.Mesh
	FE          *nedelec.Element
	DoFs        *dofs.DoFHandler
	Constraints *dofs.AffineConstraints
	Matrix      utils.CSR
	RHS         []float64
	Solution    []float64
	CellErrors  []float64
	L2Error     float64
	Iterations  int

	s *Solver
}

// Run projects the field on m with FE_Nedelec(degree) and measures the L2
// error of the projection.
func (s *Solver) Run(m *mesh.Mesh, degree int) (res Result, err error) {
	if s.Field.NComponents() != m.Dim {
		return res, fmt.Errorf("%w: field has %d components on a %dD mesh", ErrDimensionMismatch, s.Field.NComponents(), m.Dim)
	}
	r := &Run{Mesh: m, s: s}
	if err = r.Setup(degree); err != nil {
		return
	}
	if err = r.Assemble(); err != nil {
		return
	}
	if err = r.Solve(); err != nil {
		return
	}
	if err = r.ComputeError(); err != nil {
		return
	}
	if s.OutputDir != "" {
		if err = r.OutputResults(filepath.Join(s.OutputDir,
			fmt.Sprintf("projection%dD_p%d_r%d.vtk", m.Dim, degree, s.Level))); err != nil {
			return
		}
	}
	res = Result{
		NCells:     m.NumElements,
		NDofs:      r.DoFs.NDofs,
		L2Error:    r.L2Error,
		Iterations: r.Iterations,
		CellErrors: r.CellErrors,
	}
	s.Logger.Info("projection",
		zap.String("fe", r.FE.Name()),
		zap.Int("cells", res.NCells),
		zap.Int("dofs", res.NDofs),
		zap.Int("cgIterations", res.Iterations),
		zap.Float64("L2", res.L2Error))
	return
}

func (r *Run) Setup(degree int) (err error) {
	defer r.s.Timer.Scope("Setup")()
	if r.FE, err = nedelec.New(r.Mesh.Dim, degree); err != nil {
		return
	}
	r.DoFs = dofs.NewDoFHandler(r.Mesh)
	r.DoFs.DistributeDofs(r.FE)
	r.Constraints = dofs.NewAffineConstraints()
	if err = dofs.MakeHangingNodeConstraints(r.DoFs, r.Constraints); err != nil {
		return
	}
	if err = r.Constraints.Close(); err != nil {
		return
	}
	r.Matrix = dofs.MakeSparsityPattern(r.DoFs, r.Constraints).NewMatrix("system_matrix")
	r.RHS = make([]float64, r.DoFs.NDofs)
	r.Solution = make([]float64, r.DoFs.NDofs)
	return
}

// Assemble builds the mass matrix and the load vector of the field.
func (r *Run) Assemble() (err error) {
	defer r.s.Timer.Scope("Assemble")()
	var (
		d    = r.Mesh.Dim
		n    = r.FE.NDofs()
		q    = nedelec.NewGauss(d, r.FE.Degree()+1)
		cv   = nedelec.NewCellValues(r.FE, q)
		nq   = q.Size()
		B    = mat.NewDense(nq*d, n, nil)
		g    = mat.NewVecDense(nq*d, nil)
		M    = mat.NewDense(n, n, nil)
		b    = mat.NewVecDense(n, nil)
		fval = make([][]float64, nq)
	)
	for i := range fval {
		fval[i] = make([]float64, d)
	}
	for k := 0; k < r.Mesh.NumElements; k++ {
		if err = cv.Reinit(r.Mesh, k); err != nil {
			return
		}
		if err = VectorValueList(r.s.Field, cv.Points, fval); err != nil {
			return
		}
		for iq := 0; iq < nq; iq++ {
			sq := math.Sqrt(cv.JxW[iq])
			for c := 0; c < d; c++ {
				row := B.RawRowView(iq*d + c)
				copy(row, cv.Values.RawRowView(iq*d+c))
				floats.Scale(sq, row)
				g.SetVec(iq*d+c, sq*fval[iq][c])
			}
		}
		M.Mul(B.T(), B)
		b.MulVec(B.T(), g)
		if err = r.Constraints.DistributeLocalToGlobal(M, b.RawVector().Data, r.DoFs.LocalDofIndices(k),
			r.Matrix, r.RHS); err != nil {
			return
		}
	}
	r.Matrix.SetReadOnly()
	return
}

// Solve runs CG with an SSOR preconditioner and distributes constraints.
func (r *Run) Solve() (err error) {
	defer r.s.Timer.Scope("Solve")()
	P, err := solver.NewSSOR(r.Matrix, r.s.Omega)
	if err != nil {
		return
	}
	cg := solver.NewCG(r.s.Control)
	cg.Logger = r.s.Logger
	res, err := cg.Solve(r.Matrix, r.Solution, r.RHS, P)
	r.Iterations = res.Iterations
	if err != nil {
		return fmt.Errorf("%s with %d DoFs: %w", r.FE.Name(), r.DoFs.NDofs, err)
	}
	r.Constraints.Distribute(r.Solution)
	if utils.HasNaN(r.Solution) {
		return fmt.Errorf("%s with %d DoFs: solution contains NaN", r.FE.Name(), r.DoFs.NDofs)
	}
	return
}

// ComputeError integrates |u_h - f|^2 per cell with a quadrature two
// orders finer than assembly.
func (r *Run) ComputeError() (err error) {
	defer r.s.Timer.Scope("Error")()
	var (
		d     = r.Mesh.Dim
		q     = nedelec.NewGauss(d, r.FE.Degree()+3)
		cv    = nedelec.NewCellValues(r.FE, q)
		nq    = q.Size()
		local = make([]float64, r.FE.NDofs())
		uh    = make([][]float64, nq)
		fval  = make([][]float64, nq)
		total float64
	)
	for i := range uh {
		uh[i] = make([]float64, d)
		fval[i] = make([]float64, d)
	}
	r.CellErrors = make([]float64, r.Mesh.NumElements)
	for k := 0; k < r.Mesh.NumElements; k++ {
		if err = cv.Reinit(r.Mesh, k); err != nil {
			return
		}
		for i, g := range r.DoFs.LocalDofIndices(k) {
			local[i] = r.Solution[g]
		}
		if err = cv.FunctionValues(local, uh); err != nil {
			return
		}
		if err = VectorValueList(r.s.Field, cv.Points, fval); err != nil {
			return
		}
		var e2 float64
		for iq := 0; iq < nq; iq++ {
			dist := floats.Distance(uh[iq], fval[iq], 2)
			e2 += cv.JxW[iq] * dist * dist
		}
		r.CellErrors[k] = math.Sqrt(e2)
		total += e2
	}
	r.L2Error = math.Sqrt(total)
	return
}

// OutputResults writes the projected field as VTK patches with
// fe.Degree()+2 subdivisions per cell.
func (r *Run) OutputResults(filename string) error {
	defer r.s.Timer.Scope("Output")()
	return vtk.WritePatchesFile(filename, r.Mesh, r.FE.Degree()+2, "MagneticVectorPotential", SolutionField(r.FE, r.DoFs, r.Solution))
}

// SolutionField evaluates the finite element field with global
// coefficients u on any cell at reference points. Cell values are rebuilt
// whenever a different points slice is passed.
func SolutionField(fe *nedelec.Element, h *dofs.DoFHandler, u []float64) vtk.CellField {
	var (
		q     *nedelec.Quadrature
		cv    *nedelec.CellValues
		local = make([]float64, fe.NDofs())
	)
	return func(elem int, points [][]float64) (values [][]float64, err error) {
		if q == nil || len(q.Points) != len(points) || len(points) > 0 && &q.Points[0] != &points[0] {
			q = &nedelec.Quadrature{Dim: fe.Dim(), Points: points, Weights: make([]float64, len(points))}
			cv = nedelec.NewCellValues(fe, q)
		}
		if err = cv.Reinit(h.Mesh, elem); err != nil {
			return
		}
		for i, g := range h.LocalDofIndices(elem) {
			local[i] = u[g]
		}
		values = make([][]float64, len(points))
		for i := range values {
			values[i] = make([]float64, fe.Dim())
		}
		err = cv.FunctionValues(local, values)
		return
	}
}
