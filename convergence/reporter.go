package convergence

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/nedelec/orientation"
	"github.com/notargets/nedelec/projection"
	"github.com/notargets/nedelec/timer"
	"github.com/notargets/nedelec/twocell"
	"github.com/notargets/nedelec/utils"
)

// Coarsest refinement level per degree 0..4, chosen so that every degree
// ends with a system of comparable size.
var startLevels = map[orientation.Dim][]int{
	orientation.Dim2: {4, 3, 3, 2, 1},
	orientation.Dim3: {2, 2, 1, 1, 0},
}

// DefaultStartLevel returns the coarsest refinement level used for degree p.
func DefaultStartLevel(dim orientation.Dim, p int) (int, error) {
	levels, ok := startLevels[dim]
	if !ok {
		return 0, fmt.Errorf("no start levels for %s", dim)
	}
	if p < 0 || p >= len(levels) {
		return 0, fmt.Errorf("no default start level for degree %d in %s, set one explicitly", p, dim)
	}
	return levels[p], nil
}

// Row is one projection of the table.
type Row struct {
	P, R, Level   int
	NCells, NDofs int
	L2            float64
	Iterations    int
}

// Fit is the least squares fit log e = Intercept + Order*log h, with
// h = ncells^(-1/dim).
type Fit struct {
	Order, Intercept, RSquared float64
}

// DegreeTable holds the runs of one degree.
type DegreeTable struct {
	Degree int
	Rows   []Row
	Table  *Table
	Fit    Fit
}

type Reporter struct {
	Dim  orientation.Dim
	Code orientation.Code
	// StartLevels overrides DefaultStartLevel per degree.
	StartLevels map[int]int
	// Levels is the number of refinement levels per degree.
	Levels int
	Jobs   int
	OutDir string
	XLSX   bool
	VTK    bool
	Stdout io.Writer
	Logger *zap.Logger
	Timer  *timer.Output
	Field  projection.VectorFunction
}

type Option func(*Reporter)

func WithStartLevels(levels map[int]int) Option { return func(r *Reporter) { r.StartLevels = levels } }

func WithLevels(n int) Option { return func(r *Reporter) { r.Levels = n } }

func WithJobs(n int) Option { return func(r *Reporter) { r.Jobs = n } }

// WithOutput sets the directory for tables and optional xlsx and VTK files.
func WithOutput(dir string, xlsx, vtk bool) Option {
	return func(r *Reporter) { r.OutDir, r.XLSX, r.VTK = dir, xlsx, vtk }
}

func WithStdout(w io.Writer) Option { return func(r *Reporter) { r.Stdout = w } }

func WithLogger(l *zap.Logger) Option { return func(r *Reporter) { r.Logger = l } }

func WithTimer(t *timer.Output) Option { return func(r *Reporter) { r.Timer = t } }

func WithField(f projection.VectorFunction) Option { return func(r *Reporter) { r.Field = f } }

func NewReporter(dim orientation.Dim, code orientation.Code, opts ...Option) (r *Reporter, err error) {
	if err = orientation.Validate(code, dim); err != nil {
		return
	}
	r = &Reporter{
		Dim:    dim,
		Code:   code,
		Levels: 3,
		Jobs:   1,
		OutDir: "Data",
		Logger: zap.NewNop(),
		Field:  projection.NewMagneticVectorPotential(int(dim)),
	}
	for _, o := range opts {
		o(r)
	}
	if r.Levels < 1 {
		return nil, fmt.Errorf("need at least one refinement level per degree, have %d", r.Levels)
	}
	if r.Jobs < 1 {
		r.Jobs = 1
	}
	return
}

func (r *Reporter) startLevel(p int) (int, error) {
	if l, ok := r.StartLevels[p]; ok {
		if l < 0 {
			return 0, fmt.Errorf("negative start level %d for degree %d", l, p)
		}
		return l, nil
	}
	return DefaultStartLevel(r.Dim, p)
}

// BuildTable runs the projection for every degree at Levels consecutive
// refinement levels and returns one table per degree, in the order given.
// Tables are saved to OutDir when it is set.
func (r *Reporter) BuildTable(ctx context.Context, degrees []int) (tables []DegreeTable, err error) {
	seen := make(map[int]bool, len(degrees))
	for _, p := range degrees {
		if seen[p] {
			return nil, fmt.Errorf("duplicate degree %d", p)
		}
		seen[p] = true
	}
	tables = make([]DegreeTable, len(degrees))
	for i, p := range degrees {
		if p < 0 {
			return nil, fmt.Errorf("negative degree %d", p)
		}
		tables[i] = DegreeTable{Degree: p, Rows: make([]Row, r.Levels)}
		var r0 int
		if r0, err = r.startLevel(p); err != nil {
			return nil, err
		}
		for j := range tables[i].Rows {
			tables[i].Rows[j] = Row{P: p, R: j, Level: r0 + j}
		}
	}
	if r.OutDir != "" {
		if err = os.MkdirAll(r.OutDir, 0o755); err != nil {
			return nil, err
		}
	}
	// timer sections are exclusive, so only sequential runs are timed
	tm := r.Timer
	if r.Jobs > 1 {
		tm = nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Jobs)
	for i := range tables {
		for j := range tables[i].Rows {
			row := &tables[i].Rows[j]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return r.run(row, tm)
			})
		}
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	for i := range tables {
		dt := &tables[i]
		if dt.Table, err = r.table(dt.Rows); err != nil {
			return nil, err
		}
		dt.Fit = r.fit(dt.Rows)
		r.Logger.Info("convergence",
			zap.Int("degree", dt.Degree),
			zap.Float64("order", dt.Fit.Order),
			zap.Float64("r2", dt.Fit.RSquared))
		if r.OutDir != "" {
			fname := filepath.Join(r.OutDir, fmt.Sprintf("main_table_p%d", dt.Degree))
			if err = dt.Table.Save(fname, r.Stdout); err != nil {
				return nil, err
			}
		}
	}
	if r.XLSX && r.OutDir != "" {
		if err = writeWorkbook(filepath.Join(r.OutDir, "main_tables.xlsx"), tables); err != nil {
			return nil, err
		}
	}
	return
}

func (r *Reporter) run(row *Row, tm *timer.Output) (err error) {
	stop := tm.Scope("Make mesh")
	tc, err := twocell.Build(r.Code, r.Dim, twocell.WithLogger(r.Logger))
	if err == nil {
		err = tc.Mesh.RefineGlobal(row.Level)
	}
	stop()
	if err != nil {
		return
	}
	opts := []projection.Option{projection.WithLogger(r.Logger), projection.WithTimer(tm)}
	if r.VTK && r.OutDir != "" {
		opts = append(opts, projection.WithOutput(r.OutDir, row.Level))
	}
	res, err := projection.NewSolver(r.Field, opts...).Run(tc.Mesh, row.P)
	if err != nil {
		return fmt.Errorf("degree %d level %d: %w", row.P, row.Level, err)
	}
	row.NCells, row.NDofs = res.NCells, res.NDofs
	row.L2, row.Iterations = res.L2Error, res.Iterations
	r.Logger.Debug("run finished",
		zap.Int("degree", row.P),
		zap.Int("level", row.Level),
		zap.Object("memory", utils.ReadMemStats()))
	return
}

func (r *Reporter) table(rows []Row) (t *Table, err error) {
	t = NewTable()
	for _, row := range rows {
		for _, kv := range []struct {
			key string
			v   interface{}
		}{
			{"p", row.P}, {"r", row.R}, {"ncells", row.NCells}, {"ndofs", row.NDofs}, {"L2", row.L2},
		} {
			if err = t.AddValue(kv.key, kv.v); err != nil {
				return
			}
		}
	}
	t.SetPrecision("L2", 2)
	t.SetScientific("L2", true)
	t.SetTexCaption("p", "p")
	t.SetTexCaption("r", "r")
	t.SetTexCaption("ncells", "nr. cells")
	t.SetTexCaption("ndofs", "nr. dofs")
	t.SetTexCaption("L2", "L2 norm")
	if err = t.SetColumnOrder("p", "r", "ncells", "ndofs", "L2"); err != nil {
		return
	}
	err = t.EvaluateConvergenceRates("L2", "ncells", int(r.Dim), "p")
	return
}

func (r *Reporter) fit(rows []Row) (f Fit) {
	var x, y []float64
	for _, row := range rows {
		if row.L2 <= 0 || row.NCells == 0 {
			continue
		}
		h := math.Pow(float64(row.NCells), -1/float64(r.Dim))
		x = append(x, math.Log(h))
		y = append(y, math.Log(row.L2))
	}
	if len(x) < 2 {
		return
	}
	f.Intercept, f.Order = stat.LinearRegression(x, y, nil, false)
	f.RSquared = stat.RSquared(x, y, nil, f.Intercept, f.Order)
	return
}

func writeWorkbook(path string, tables []DegreeTable) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	for i, dt := range tables {
		sheet := fmt.Sprintf("p%d", dt.Degree)
		if i == 0 {
			if err = f.SetSheetName("Sheet1", sheet); err != nil {
				return
			}
		} else if _, err = f.NewSheet(sheet); err != nil {
			return
		}
		if err = dt.Table.WriteXLSX(f, sheet); err != nil {
			return
		}
	}
	return f.SaveAs(path)
}
