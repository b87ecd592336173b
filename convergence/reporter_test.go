package convergence

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"github.com/notargets/nedelec/orientation"
	"github.com/notargets/nedelec/timer"
)

func TestDefaultStartLevel(t *testing.T) {
	for p, want := range []int{4, 3, 3, 2, 1} {
		got, err := DefaultStartLevel(orientation.Dim2, p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for p, want := range []int{2, 2, 1, 1, 0} {
		got, err := DefaultStartLevel(orientation.Dim3, p)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := DefaultStartLevel(orientation.Dim2, 5)
	assert.Error(t, err)
}

func TestNewReporterRejectsCode(t *testing.T) {
	_, err := NewReporter(orientation.Dim2, 4)
	assert.True(t, errors.Is(err, orientation.ErrInvalidOrientationCode))
	_, err = NewReporter(orientation.Dim3, 7, WithLevels(0))
	assert.Error(t, err)
}

func TestBuildTable2D(t *testing.T) {
	if testing.Short() {
		t.Skip("full degree sweep")
	}
	defer goleak.VerifyNone(t)
	var (
		dir    = t.TempDir()
		stdout bytes.Buffer
	)
	r, err := NewReporter(orientation.Dim2, 1, WithJobs(4), WithOutput(dir, true, false), WithStdout(&stdout))
	require.NoError(t, err)
	tables, err := r.BuildTable(context.Background(), []int{0, 1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, tables, 5)

	var nrows int
	for _, dt := range tables {
		nrows += dt.Table.NRows()
		r0, err := DefaultStartLevel(orientation.Dim2, dt.Degree)
		require.NoError(t, err)
		for j, row := range dt.Rows {
			assert.Equal(t, j, row.R)
			assert.Equal(t, r0+j, row.Level)
			assert.Equal(t, 2<<(2*row.Level), row.NCells)
			if j > 0 {
				assert.Greater(t, row.NDofs, dt.Rows[j-1].NDofs, "p=%d", dt.Degree)
				assert.Less(t, row.L2, dt.Rows[j-1].L2, "p=%d", dt.Degree)
			}
		}
		_, err = os.Stat(filepath.Join(dir, "main_table_p"+string(rune('0'+dt.Degree))+".tex"))
		assert.NoError(t, err)
	}
	assert.Equal(t, 15, nrows)

	p0 := tables[0]
	for i := 1; i < p0.Table.NRows(); i++ {
		rate, ok := p0.Table.Float(RateKey("L2"), i)
		require.True(t, ok)
		assert.InDelta(t, 2.0, rate, 0.2)
	}
	// superconvergent for the potential
	assert.InDelta(t, 2.0, p0.Fit.Order, 0.2)
	assert.Equal(t, 5, strings.Count(stdout.String(), banner))

	f, err := excelize.OpenFile(filepath.Join(dir, "main_tables.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"p0", "p1", "p2", "p3", "p4"}, f.GetSheetList())
	v, err := f.GetCellValue("p3", "C1")
	require.NoError(t, err)
	assert.Equal(t, "ncells", v)
}

type skewField struct{}

func (skewField) NComponents() int { return 2 }
func (skewField) VectorValue(p, v []float64) {
	v[0] = math.Sin(p[0] + 2*p[1])
	v[1] = math.Cos(p[0] * p[1])
}

func TestBuildTableLowestDegreeRate(t *testing.T) {
	r, err := NewReporter(orientation.Dim2, 0, WithField(skewField{}),
		WithStartLevels(map[int]int{0: 2}), WithLevels(3), WithOutput("", false, false))
	require.NoError(t, err)
	tables, err := r.BuildTable(context.Background(), []int{0})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	tb := tables[0].Table
	_, ok := tb.Float(RateKey("L2"), 0)
	assert.False(t, ok)
	for i := 1; i < tb.NRows(); i++ {
		rate, ok := tb.Float(RateKey("L2"), i)
		require.True(t, ok)
		assert.InDelta(t, 1.0, rate, 0.2, "row %d", i)
	}
	assert.InDelta(t, 1.0, tables[0].Fit.Order, 0.2)
}

func TestBuildTableDuplicateDegree(t *testing.T) {
	r, err := NewReporter(orientation.Dim2, 0, WithOutput(t.TempDir(), true, false))
	require.NoError(t, err)
	_, err = r.BuildTable(context.Background(), []int{1, 0, 1})
	assert.EqualError(t, err, "duplicate degree 1")
}

func TestBuildTableOverrides(t *testing.T) {
	defer goleak.VerifyNone(t)
	dir := t.TempDir()
	tm := timer.New()
	r, err := NewReporter(orientation.Dim3, 5,
		WithStartLevels(map[int]int{0: 0, 5: 0}), WithLevels(2),
		WithOutput(dir, false, true), WithTimer(tm))
	require.NoError(t, err)

	_, err = r.BuildTable(context.Background(), []int{6})
	assert.Error(t, err)

	tables, err := r.BuildTable(context.Background(), []int{0})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].Rows[0].NCells)
	assert.Equal(t, 16, tables[0].Rows[1].NCells)
	for _, name := range []string{"projection3D_p0_r0.vtk", "projection3D_p0_r1.vtk", "main_table_p0.txt"} {
		_, err = os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, calls := tm.Elapsed("Make mesh")
	assert.Equal(t, 2, calls)
	_, calls = tm.Elapsed("Solve")
	assert.Equal(t, 2, calls)
}

func TestBuildTableCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewReporter(orientation.Dim2, 0, WithOutput("", false, false), WithStartLevels(map[int]int{0: 0}))
	require.NoError(t, err)
	_, err = r.BuildTable(ctx, []int{0})
	assert.True(t, errors.Is(err, context.Canceled))
}
