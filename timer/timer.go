package timer

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type section struct {
	name    string
	calls   int
	elapsed time.Duration
	started time.Time
	active  bool
	order   int
}

// Output accumulates wall time per named section.
type Output struct {
	mu       sync.Mutex
	sections map[string]*section
	start    time.Time
	now      func() time.Time
	logger   *zap.Logger
}

func New() *Output {
	return &Output{sections: make(map[string]*section), start: time.Now(), now: time.Now, logger: zap.NewNop()}
}

// SetLogger sets where Scope reports sections it could not enter or leave.
func (t *Output) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	t.mu.Lock()
	t.logger = l
	t.mu.Unlock()
}

// Enter starts timing a section. Entering an active section is an error.
func (t *Output) Enter(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sections[name]
	if !ok {
		s = &section{name: name, order: len(t.sections)}
		t.sections[name] = s
	}
	if s.active {
		return fmt.Errorf("timer section %q is already active", name)
	}
	s.active, s.started = true, t.now()
	return nil
}

func (t *Output) Leave(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sections[name]
	if !ok || !s.active {
		return fmt.Errorf("timer section %q is not active", name)
	}
	s.elapsed += t.now().Sub(s.started)
	s.calls++
	s.active = false
	return nil
}

// Scope enters name and returns the function that leaves it, for use with
// defer. A nil Output times nothing. A section that is already active is
// logged and left untouched by the returned function.
func (t *Output) Scope(name string) func() {
	if t == nil {
		return func() {}
	}
	if err := t.Enter(name); err != nil {
		t.warn(name, err)
		return func() {}
	}
	return func() {
		if err := t.Leave(name); err != nil {
			t.warn(name, err)
		}
	}
}

func (t *Output) warn(name string, err error) {
	t.mu.Lock()
	l := t.logger
	t.mu.Unlock()
	l.Warn("timer scope", zap.String("section", name), zap.Error(err))
}

// Elapsed returns the accumulated time and call count of a section.
func (t *Output) Elapsed(name string) (d time.Duration, calls int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.sections[name]; ok {
		return s.elapsed, s.calls
	}
	return
}

// PrintSummary writes the sections in the order they were first entered.
func (t *Output) PrintSummary(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.now().Sub(t.start)
	list := make([]*section, 0, len(t.sections))
	for _, s := range t.sections {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].order < list[j].order })
	const rule = "+---------------------------------+-----------+------------+------------+\n"
	fmt.Fprint(w, rule)
	fmt.Fprintf(w, "| %-31s | %9s | %10s | %10s |\n", "Total wallclock time elapsed", "", fmtSeconds(total), "")
	fmt.Fprint(w, rule)
	fmt.Fprintf(w, "| %-31s | %9s | %10s | %10s |\n", "Section", "no. calls", "wall time", "% of total")
	fmt.Fprint(w, rule)
	for _, s := range list {
		pct := 0.
		if total > 0 {
			pct = 100 * s.elapsed.Seconds() / total.Seconds()
		}
		fmt.Fprintf(w, "| %-31s | %9d | %10s | %9.1f%% |\n", s.name, s.calls, fmtSeconds(s.elapsed), pct)
	}
	fmt.Fprint(w, rule)
}

func fmtSeconds(d time.Duration) string { return fmt.Sprintf("%.3gs", d.Seconds()) }
