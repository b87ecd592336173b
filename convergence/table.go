package convergence

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type entry struct {
	f     float64
	i     int
	isInt bool
	empty bool
}

type column struct {
	key        string
	entries    []entry
	precision  int
	scientific bool
	texCaption string
}

func (c *column) format(e entry) string {
	switch {
	case e.empty:
		return "-"
	case e.isInt:
		return strconv.Itoa(e.i)
	case c.scientific:
		return strconv.FormatFloat(e.f, 'e', c.precision, 64)
	default:
		return strconv.FormatFloat(e.f, 'f', c.precision, 64)
	}
}

// Table is a column oriented table of integers and reals. Columns are
// written in insertion order unless SetColumnOrder says otherwise; columns
// created by EvaluateConvergenceRates always follow the ordered ones.
type Table struct {
	columns map[string]*column
	keys    []string
	order   []string
	rates   []string
}

func NewTable() *Table {
	return &Table{columns: make(map[string]*column)}
}

func (t *Table) column(key string) *column {
	c, ok := t.columns[key]
	if !ok {
		c = &column{key: key, precision: 4, texCaption: key}
		t.columns[key] = c
		t.keys = append(t.keys, key)
	}
	return c
}

// AddValue appends an int or a float64 to the column named key.
func (t *Table) AddValue(key string, v interface{}) error {
	var e entry
	switch x := v.(type) {
	case int:
		e = entry{i: x, isInt: true}
	case int64:
		e = entry{i: int(x), isInt: true}
	case float64:
		e = entry{f: x}
	case float32:
		e = entry{f: float64(x)}
	default:
		return fmt.Errorf("column %q: unsupported value type %T", key, v)
	}
	c := t.column(key)
	c.entries = append(c.entries, e)
	return nil
}

func (t *Table) SetPrecision(key string, precision int) { t.column(key).precision = precision }

func (t *Table) SetScientific(key string, scientific bool) { t.column(key).scientific = scientific }

func (t *Table) SetTexCaption(key, caption string) { t.column(key).texCaption = caption }

// SetColumnOrder fixes the leading columns. Unknown keys are an error.
func (t *Table) SetColumnOrder(keys ...string) error {
	for _, k := range keys {
		if _, ok := t.columns[k]; !ok {
			return fmt.Errorf("column %q does not exist", k)
		}
	}
	t.order = append([]string(nil), keys...)
	return nil
}

// NRows is the length of the longest column.
func (t *Table) NRows() (n int) {
	for _, c := range t.columns {
		if len(c.entries) > n {
			n = len(c.entries)
		}
	}
	return
}

// Float returns row i of column key as a real, with ok false for missing
// or empty entries.
func (t *Table) Float(key string, i int) (v float64, ok bool) {
	c, found := t.columns[key]
	if !found || i < 0 || i >= len(c.entries) || c.entries[i].empty {
		return
	}
	e := c.entries[i]
	if e.isInt {
		return float64(e.i), true
	}
	return e.f, true
}

// Keys returns the column keys in output order.
func (t *Table) Keys() []string {
	var (
		keys = make([]string, 0, len(t.keys))
		seen = make(map[string]bool)
	)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range t.order {
		add(k)
	}
	isRate := make(map[string]bool)
	for _, k := range t.rates {
		isRate[k] = true
	}
	for _, k := range t.keys {
		if !isRate[k] {
			add(k)
		}
	}
	for _, k := range t.rates {
		add(k)
	}
	return keys
}

// RateKey names the column produced by EvaluateConvergenceRates.
func RateKey(dataKey string) string { return dataKey + " rate" }

// EvaluateConvergenceRates adds a column with
//
//	rate_i = dim * log2(e_{i-1}/e_i) / log2(n_i/n_{i-1})
//
// where e is dataKey and n is refKey. A row starts a new group, and gets no
// rate, when it is the first row or when its groupKey value differs from
// the previous row. An empty groupKey makes the whole table one group.
func (t *Table) EvaluateConvergenceRates(dataKey, refKey string, dim int, groupKey string) error {
	for _, k := range []string{dataKey, refKey} {
		if _, ok := t.columns[k]; !ok {
			return fmt.Errorf("column %q does not exist", k)
		}
	}
	if groupKey != "" {
		if _, ok := t.columns[groupKey]; !ok {
			return fmt.Errorf("column %q does not exist", groupKey)
		}
	}
	var (
		rk   = RateKey(dataKey)
		data = t.columns[dataKey]
		rc   = &column{key: rk, precision: data.precision, texCaption: rk}
	)
	for i := 0; i < t.NRows(); i++ {
		e, ok := t.Float(dataKey, i)
		n, okN := t.Float(refKey, i)
		ePrev, okP := t.Float(dataKey, i-1)
		nPrev, okNP := t.Float(refKey, i-1)
		newGroup := i == 0
		if !newGroup && groupKey != "" {
			g, _ := t.Float(groupKey, i)
			gPrev, _ := t.Float(groupKey, i-1)
			newGroup = g != gPrev
		}
		if newGroup || !(ok && okN && okP && okNP) || e == 0 || n == nPrev {
			rc.entries = append(rc.entries, entry{empty: true})
			continue
		}
		rate := float64(dim) * math.Log2(ePrev/e) / math.Log2(n/nPrev)
		rc.entries = append(rc.entries, entry{f: rate})
	}
	if _, exists := t.columns[rk]; !exists {
		t.keys = append(t.keys, rk)
		t.rates = append(t.rates, rk)
	}
	t.columns[rk] = rc
	return nil
}

func (t *Table) cells() (keys []string, rows [][]string) {
	keys = t.Keys()
	nr := t.NRows()
	rows = make([][]string, nr)
	for i := range rows {
		rows[i] = make([]string, len(keys))
		for j, k := range keys {
			c := t.columns[k]
			if i < len(c.entries) {
				rows[i][j] = c.format(c.entries[i])
			} else {
				rows[i][j] = "-"
			}
		}
	}
	return
}

// WriteText writes the table with a header line, columns right aligned.
func (t *Table) WriteText(w io.Writer) (err error) {
	keys, rows := t.cells()
	width := make([]int, len(keys))
	for j, k := range keys {
		width[j] = len(k)
		for _, row := range rows {
			if len(row[j]) > width[j] {
				width[j] = len(row[j])
			}
		}
	}
	line := func(fields []string) error {
		padded := make([]string, len(fields))
		for j, f := range fields {
			padded[j] = fmt.Sprintf("%*s", width[j], f)
		}
		_, err := fmt.Fprintln(w, strings.Join(padded, " "))
		return err
	}
	if err = line(keys); err != nil {
		return
	}
	for _, row := range rows {
		if err = line(row); err != nil {
			return
		}
	}
	return
}

// WriteTex writes a standalone LaTeX document holding the table.
func (t *Table) WriteTex(w io.Writer) (err error) {
	keys, rows := t.cells()
	captions := make([]string, len(keys))
	for j, k := range keys {
		captions[j] = t.columns[k].texCaption
	}
	var b strings.Builder
	b.WriteString("\\documentclass[10pt]{report}\n")
	b.WriteString("\\usepackage{float}\n\n\n")
	b.WriteString("\\begin{document}\n")
	b.WriteString("\\begin{table}[H]\n")
	b.WriteString("\\begin{center}\n")
	b.WriteString("\\begin{tabular}{|" + strings.Repeat("c|", len(keys)) + "} \\hline\n")
	b.WriteString(strings.Join(captions, " & ") + "\\\\ \\hline\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, " & ") + "\\\\ \n")
	}
	b.WriteString("\\hline\n")
	b.WriteString("\\end{tabular}\n")
	b.WriteString("\\end{center}\n")
	b.WriteString("\\end{table}\n")
	b.WriteString("\\end{document}\n")
	_, err = io.WriteString(w, b.String())
	return
}

// WriteXLSX writes the table into sheet of f, header in the first row.
// Numbers are stored as numbers, empty rates as blank cells.
func (t *Table) WriteXLSX(f *excelize.File, sheet string) (err error) {
	keys := t.Keys()
	for j, k := range keys {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err = f.SetCellValue(sheet, cell, k); err != nil {
			return
		}
	}
	for i := 0; i < t.NRows(); i++ {
		for j, k := range keys {
			c := t.columns[k]
			if i >= len(c.entries) || c.entries[i].empty {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			var v interface{} = c.entries[i].f
			if c.entries[i].isInt {
				v = c.entries[i].i
			}
			if err = f.SetCellValue(sheet, cell, v); err != nil {
				return
			}
		}
	}
	return
}

const banner = "------------------------------"

// Save echoes the table to stdout between banners and writes fname.txt and
// fname.tex.
func (t *Table) Save(fname string, stdout io.Writer) (err error) {
	if stdout != nil {
		fmt.Fprintln(stdout, banner)
		if err = t.WriteText(stdout); err != nil {
			return
		}
		fmt.Fprint(stdout, "\n\n")
	}
	for _, out := range []struct {
		ext   string
		write func(io.Writer) error
	}{{".txt", t.WriteText}, {".tex", t.WriteTex}} {
		if err = writeFile(fname+out.ext, out.write); err != nil {
			return
		}
	}
	return
}

func writeFile(name string, write func(io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
