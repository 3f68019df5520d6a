package present

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/property"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiCyan  = "\x1b[36m"
	ansiDim   = "\x1b[2m"
)

// Text writes a line-oriented account of what a graphical front end would
// show. Data updates are only counted unless Verbose is set.
type Text struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	verbose bool
	message string
	counts  map[int]int
	plots   int
}

// TextOption configures a Text presenter.
type TextOption func(*Text)

// WithVerbose prints every data update.
func WithVerbose(v bool) TextOption {
	return func(t *Text) {
		t.verbose = v
	}
}

// WithColor forces colored output on or off.
func WithColor(v bool) TextOption {
	return func(t *Text) {
		t.color = v
	}
}

// NewText creates a text presenter writing to w. Color is enabled when w is
// a terminal.
func NewText(w io.Writer, opts ...TextOption) *Text {
	t := &Text{w: w, counts: make(map[int]int)}
	if f, ok := w.(*os.File); ok {
		t.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Text) paint(code, s string) string {
	if !t.color {
		return s
	}
	return code + s + ansiReset
}

func (t *Text) printf(format string, args ...any) {
	fmt.Fprintf(t.w, format, args...)
}

func (t *Text) Arrange(cols, rows int, plots []grid.Point) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.plots = len(plots)
	t.counts = make(map[int]int)
	t.printf("%s %dx%d, %d %s\n", t.paint(ansiCyan, "layout"), cols, rows, len(plots), plural(len(plots), "plot"))
	for i, p := range plots {
		t.printf("  plot %d at (%d, %d) span (%d, %d)\n", i+1, p.X, p.Y, p.DX+1, p.DY+1)
	}
	return true
}

func (t *Text) Update(u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u.Kind == UpdateClear {
		t.counts[u.Plot] = 0
	} else {
		t.counts[u.Plot] += u.Points()
	}
	if !t.verbose {
		return
	}
	switch u.Kind {
	case UpdatePoint:
		t.printf("plot %d: (%g, %g)\n", u.Plot, u.X[0], u.Y[0])
	case UpdateCell:
		t.printf("plot %d: [%d, %d] = %g\n", u.Plot, u.Col, u.Row, u.Values[0])
	case UpdateRow:
		t.printf("plot %d: row %d, %d values\n", u.Plot, u.Row, len(u.Values))
	case UpdateClear:
		t.printf("plot %d: cleared\n", u.Plot)
	default:
		t.printf("plot %d: %s, %s values\n", u.Plot, u.Kind, humanize.Comma(int64(u.Points())))
	}
}

func (t *Text) Property(plot int, n property.Name, v property.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.verbose {
		t.printf("%s plot %d %s = %s\n", t.paint(ansiDim, "set"), plot, n, v)
	}
}

func (t *Text) ShowPlot(plot int, pt host.PlotType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("plot %d shows %s\n", plot, pt)
}

func (t *Text) Message(text string, append bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if append {
		t.message += text
	} else {
		t.message = text
	}
	t.printf("%s %s\n", t.paint(ansiBold, "msg"), t.message)
}

func (t *Text) State(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.verbose {
		t.printf("%s\n", t.paint(ansiDim, "state "+s))
	}
}

func (t *Text) Report(r Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("%s: %s\n", t.paint(ansiRed+ansiBold, r.Title), r.Message)
	if r.Traceback != "" && r.Traceback != r.Message {
		t.printf("%s\n", indent(r.Traceback))
	}
}

func (t *Text) Finished(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	code := ansiGreen
	if o.Failed {
		code = ansiRed
	}
	t.printf("%s after %s\n", t.paint(code+ansiBold, o.Status), o.Elapsed.Round(time.Millisecond))
	if o.Failed {
		t.printf("%s\n", o.Message)
		if o.Traceback != "" && o.Traceback != o.Message {
			t.printf("%s\n", indent(o.Traceback))
		}
	}
	for id := 1; id <= t.plots; id++ {
		if n := t.counts[id]; n > 0 {
			t.printf("  plot %d: %s values\n", id, humanize.Comma(int64(n)))
		}
	}
	if d := o.Data; d != nil {
		t.printf("  datafile %s (run %d): %s points, %s cells, %s\n",
			d.Path, d.Run, humanize.Comma(d.Points), humanize.Comma(d.Cells), humanize.Bytes(uint64(d.Bytes)))
	}
}

func plural(n int, s string) string {
	if n == 1 {
		return s
	}
	return s + "s"
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
