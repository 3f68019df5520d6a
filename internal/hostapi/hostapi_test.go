package hostapi

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dop251/goja"

	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/stdlib"
)

func newEnv(t *testing.T, m *host.Mock, opts ...Option) (*Env, *Flags) {
	t.Helper()
	prg, err := goja.Compile(stdlib.PreludeName, stdlib.Prelude, true)
	if err != nil {
		t.Fatalf("compile prelude: %v", err)
	}
	flags := &Flags{}
	env, err := Install(goja.New(), m, flags, prg, opts...)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	return env, flags
}

func eval(t *testing.T, env *Env, src string) goja.Value {
	t.Helper()
	v, err := env.Runtime().RunString(src)
	if err != nil {
		t.Fatalf("%s: %v", src, err)
	}
	return v
}

// errorOf runs stmt and returns "Name: message" of what it throws, or "".
func errorOf(t *testing.T, env *Env, stmt string) string {
	t.Helper()
	v := eval(t, env, "(function () { try { "+stmt+"; } catch (e) { return e.name + ': ' + e.message; } return ''; })()")
	return v.String()
}

func lastCall(t *testing.T, m *host.Mock) host.Call {
	t.Helper()
	calls := m.Calls()
	if len(calls) == 0 {
		t.Fatal("no calls recorded")
	}
	return calls[len(calls)-1]
}

func TestPlotDispatchTwoDimen(t *testing.T) {
	m := host.NewMock()
	env, flags := newEnv(t, m)
	eval(t, env, "exaplot.init(2)")
	flags.Running.Store(true)

	eval(t, env, "exaplot.plot(1, 3.0, 4.0)")
	c := lastCall(t, m)
	if c.Name != "plot2D" || c.ID != 1 || !c.Write || !reflect.DeepEqual(c.Args, []any{3.0, 4.0}) {
		t.Errorf("single point: got %+v", c)
	}

	eval(t, env, "exaplot.plot(1, [1.0, 2.0], [3.0, 4.0], {write: false})")
	c = lastCall(t, m)
	if c.Name != "plot2DVec" || c.Write || !reflect.DeepEqual(c.Args, []any{[]float64{1, 2}, []float64{3, 4}}) {
		t.Errorf("vector: got %+v", c)
	}

	eval(t, env, "exaplot.plot(1, new Float64Array([1, 2]), new Set([3, 4]))")
	c = lastCall(t, m)
	if c.Name != "plot2DVec" || !c.Write || !reflect.DeepEqual(c.Args, []any{[]float64{1, 2}, []float64{3, 4}}) {
		t.Errorf("iterable vector: got %+v", c)
	}

	eval(t, env, "exaplot.plot(2)")
	if c = lastCall(t, m); c.Name != "clear" || c.ID != 2 {
		t.Errorf("clear: got %+v", c)
	}

	eval(t, env, "exaplot.plots(2)(5, 6)")
	if c = lastCall(t, m); c.Name != "plot2D" || c.ID != 2 {
		t.Errorf("wrapper: got %+v", c)
	}
}

func TestPlotDispatchColorMap(t *testing.T) {
	m := host.NewMock()
	env, flags := newEnv(t, m)
	eval(t, env, "exaplot.plots(1).color_map.show()")
	flags.Running.Store(true)

	eval(t, env, "exaplot.plot(1, [[1, 2], [3, 4]])")
	c := lastCall(t, m)
	if c.Name != "plotCMFrame" || !reflect.DeepEqual(c.Args, []any{[][]float64{{1, 2}, {3, 4}}}) {
		t.Errorf("frame: got %+v", c)
	}
	eval(t, env, "exaplot.plot(1, 4, [1, 2, 3])")
	c = lastCall(t, m)
	if c.Name != "plotCMVec" || !reflect.DeepEqual(c.Args, []any{4, []float64{1, 2, 3}}) {
		t.Errorf("row: got %+v", c)
	}
	eval(t, env, "exaplot.plot(1, 1, 2, 0.5)")
	c = lastCall(t, m)
	if c.Name != "plotCM" || !reflect.DeepEqual(c.Args, []any{1, 2, 0.5}) {
		t.Errorf("cell: got %+v", c)
	}

	n := len(m.Calls())
	eval(t, env, "exaplot.plot(1, [])")
	if len(m.Calls()) != n {
		t.Error("empty frame should not reach the host")
	}
}

func TestPlotErrors(t *testing.T) {
	m := host.NewMock()
	env, flags := newEnv(t, m)
	flags.Running.Store(true)
	tests := []struct {
		stmt, want string
	}{
		{`exaplot.plot("1", 2, 3)`, "TypeError: plot() 'plot_id' argument must be type 'int'"},
		{`exaplot.plot(1, 2)`, "TypeError: plot() takes 2 positional arguments but 1 was given"},
		{`exaplot.plot(1, "a", 2)`, "TypeError: plot() 'x' argument must be type 'float', not 'str'"},
		{`exaplot.plot(1, [1, 2], [3])`, "ValueError: plot() 'x' and 'y' arguments must be the same length"},
		{`exaplot.plot(1, 1, 2, {wrte: false})`, "TypeError: 'wrte' is an invalid keyword argument for plot()"},
		{`exaplot.plot(0, 1, 2)`, "IndexError: invalid plot ID"},
		{`exaplot.plot(3, 1, 2)`, "IndexError: plot ID out of range"},
	}
	for _, tt := range tests {
		if got := errorOf(t, env, tt.stmt); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.stmt, got, tt.want)
		}
	}
}

func TestInitParams(t *testing.T) {
	m := host.NewMock()
	env, _ := newEnv(t, m)
	eval(t, env, `exaplot.init([[0, 0, 0, 0], [1, 0, 0, 0]], {
		name: "x",
		n: 3,
		f: 0.5,
		t: exaplot.RunParam(exaplot.RunParam.float, "Temperature", 2),
		c: new exaplot.RunParam(7, "Count"),
		s: new exaplot.RunParam(exaplot.RunParam.str),
	})`)

	want := []host.RunParam{
		{Identifier: "name", Type: host.ParamString, Value: "x", Display: "name"},
		{Identifier: "n", Type: host.ParamInt, Value: "3", Display: "n"},
		{Identifier: "f", Type: host.ParamFloat, Value: "0.5", Display: "f"},
		{Identifier: "t", Type: host.ParamFloat, Value: "2", Display: "Temperature"},
		{Identifier: "c", Type: host.ParamInt, Value: "7", Display: "Count"},
		{Identifier: "s", Type: host.ParamString, Value: "", Display: "s"},
	}
	if got := m.Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("params:\n got %+v\nwant %+v", got, want)
	}
	if got := env.Params(); !reflect.DeepEqual(got, want) {
		t.Errorf("env params:\n got %+v\nwant %+v", got, want)
	}
	wantPlots := []host.GridPoint{{X: 0}, {X: 1}}
	if got := m.Arrangement(); !reflect.DeepEqual(got, wantPlots) {
		t.Errorf("plots: got %+v, want %+v", got, wantPlots)
	}

	eval(t, env, `exaplot.init({only: "params"})`)
	if got := m.Arrangement(); !reflect.DeepEqual(got, []host.GridPoint{{}}) {
		t.Errorf("params-only init should declare one plot, got %+v", got)
	}
}

func TestInitErrors(t *testing.T) {
	m := host.NewMock()
	m.InitFunc = func(_ []host.RunParam, plots []host.GridPoint) error {
		_, _, err := grid.Validate(plots)
		return err
	}
	env, _ := newEnv(t, m)
	tests := []struct {
		stmt, want string
	}{
		{`exaplot.init("x")`, "TypeError: init() 'plots' argument must be either an 'int' or 'list' type"},
		{`exaplot.init(0)`, "ValueError: init() 'plots' argument must be an integer greater than zero"},
		{`exaplot.init([])`, "ValueError: init() plots list is missing entries"},
		{`exaplot.init(65)`, "ValueError: init() too many plots (max 64)"},
		{`exaplot.init([[0, 0, 0]])`, "TypeError: init() 'plots[0]' value must be type 'tuple[int, int, int, int]'"},
		{`exaplot.init([[0, 0, 0, "a"]])`, "TypeError: init() 'plots[0][3]' value must be type 'int'"},
		{`exaplot.init([[0, 0, -1, 0]])`, "ValueError: init() 'plots[0][2]' value is invalid: -1"},
		{`exaplot.init(1, {foo: null})`, "TypeError: init() invalid value for parameter 'foo'"},
		{`exaplot.init(1, {foo: exaplot.RunParam(exaplot.RunParam.int, "Foo", 1.5)})`, "TypeError: init() invalid value for parameter 'foo'"},
		{`exaplot.init([[0, 0, 0, 0], [2, 0, 0, 0]])`, "ValueError: init() invalid plot arrangement"},
	}
	for _, tt := range tests {
		if got := errorOf(t, env, tt.stmt); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.stmt, got, tt.want)
		}
	}
	if len(m.Calls()) != 0 {
		t.Errorf("rejected init reached the host: %+v", m.Calls())
	}
}

func TestCallPolicies(t *testing.T) {
	m := host.NewMock()
	env, flags := newEnv(t, m)

	if got := errorOf(t, env, "exaplot.plot(1, 1, 2)"); got != "SystemError: plot() can only be called while a script is running" {
		t.Errorf("plot outside run: %q", got)
	}
	flags.Running.Store(true)
	if got := errorOf(t, env, "exaplot.init(1)"); got != "SystemError: init() cannot be called while a script is running" {
		t.Errorf("init during run: %q", got)
	}
	if got := errorOf(t, env, "exaplot.datafile({})"); got != "SystemError: datafile() cannot be called while a script is running" {
		t.Errorf("datafile during run: %q", got)
	}
	flags.AppError.Store(true)
	if got := errorOf(t, env, "exaplot.msg('x')"); got != "SystemError: msg() cannot be called after an application error" {
		t.Errorf("msg after app error: %q", got)
	}
}

func TestStopAndBreakpoint(t *testing.T) {
	env, flags := newEnv(t, host.NewMock())
	if eval(t, env, "exaplot.stop()").ToBoolean() {
		t.Fatal("stop() should start false")
	}
	flags.Running.Store(true)
	flags.Stop.Store(true)

	_, err := env.Runtime().RunString("exaplot.breakpoint()")
	ex, ok := err.(*goja.Exception)
	if !ok {
		t.Fatalf("expected exception, got %v", err)
	}
	if !env.IsInterrupt(ex.Value()) {
		t.Errorf("breakpoint() threw %v, not Interrupt", ex.Value())
	}
	if !flags.StopObserved.Load() {
		t.Error("stop() during a run should be observed")
	}
	if env.IsInterrupt(eval(t, env, "new exaplot.ValueError('x')")) {
		t.Error("ValueError is not an Interrupt")
	}
}

func TestDatafile(t *testing.T) {
	m := host.NewMock()
	env, _ := newEnv(t, m)
	eval(t, env, `exaplot.datafile({enable: true, path: "out.db"})`)
	eval(t, env, `exaplot.datafile({prompt: true, path: function () { return "f.db"; }})`)

	cfgs := m.Datafiles()
	if len(cfgs) != 2 {
		t.Fatalf("expected 2 datafile calls, got %d", len(cfgs))
	}
	if cfgs[0].Enable == nil || !*cfgs[0].Enable || cfgs[0].Path != "out.db" || cfgs[0].Prompt != nil {
		t.Errorf("first config: %+v", cfgs[0])
	}
	if cfgs[1].Prompt == nil || !*cfgs[1].Prompt || cfgs[1].PathFunc == nil {
		t.Fatalf("second config: %+v", cfgs[1])
	}
	if p, err := cfgs[1].PathFunc(); err != nil || p != "f.db" {
		t.Errorf("PathFunc() = %q, %v", p, err)
	}

	tests := []struct {
		stmt, want string
	}{
		{`exaplot.datafile("x")`, "TypeError: datafile() takes 0 positional arguments but 1 was given"},
		{`exaplot.datafile({bogus: 1})`, "TypeError: 'bogus' is an invalid keyword argument for datafile()"},
		{`exaplot.datafile({path: 3})`, "TypeError: 'path' argument must be type 'string' or 'function'"},
		{`exaplot.datafile({enable: 1})`, "TypeError: datafile() 'enable' argument must be type 'bool', not 'int'"},
	}
	for _, tt := range tests {
		if got := errorOf(t, env, tt.stmt); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.stmt, got, tt.want)
		}
	}
}

func TestMsg(t *testing.T) {
	m := host.NewMock()
	env, _ := newEnv(t, m)
	eval(t, env, `exaplot.msg("a"); exaplot.msg("b", true); exaplot.msg("c", {append: true})`)
	var got [][]any
	for _, c := range m.Calls() {
		got = append(got, c.Args)
	}
	want := [][]any{{"a", false}, {"b", true}, {"c", true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if e := errorOf(t, env, "exaplot.msg(3)"); e != "TypeError: msg() 'text' argument must be type 'str', not 'int'" {
		t.Errorf("msg(3): %q", e)
	}
}

func TestPlotProperties(t *testing.T) {
	m := host.NewMock()
	env, _ := newEnv(t, m)
	got := eval(t, env, `
		var p = exaplot.plots(1);
		p.title = "Run A";
		p.min_size = [120, 80];
		p.two_dimen.line.type = "STEP-LEFT";
		p.color_map.data_size.x = 21;
		[p.title, p.min_size.w, p.min_size.h, p.two_dimen.line.type,
		 p.two_dimen.line.color, p.color_map.data_size.x, String(p.min_size)].join("|")
	`).String()
	want := "Run A|120|80|step-left|#0000ff|21|(120, 80)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	tests := []struct {
		stmt, want string
	}{
		{`_exaplot._set_plot_property(1, "nope", 1)`, "KeyError: Unknown property 'nope'"},
		{`exaplot.plots(1).title = 3`, "TypeError: title must be type 'str'"},
		{`exaplot.plots(1).min_size = [1]`, "TypeError: min_size value must be type 'tuple[int, int]'"},
		{`exaplot.plots(1).two_dimen.line.style = "wavy"`, "ValueError: invalid line style: wavy"},
		{`exaplot.plots(0).title`, "IndexError: invalid plot ID"},
		{`exaplot.plots(5).title`, "IndexError: plot ID out of range"},
		{`_exaplot._show_plot(1, 2)`, "SystemError: invalid plot type: 2"},
	}
	for _, tt := range tests {
		if got := errorOf(t, env, tt.stmt); got != tt.want {
			t.Errorf("%s:\n got %q\nwant %q", tt.stmt, got, tt.want)
		}
	}
}

func TestNamespaceFrozen(t *testing.T) {
	env, _ := newEnv(t, host.NewMock())
	if !eval(t, env, "Object.isFrozen(exaplot)").ToBoolean() {
		t.Error("exaplot namespace should be frozen")
	}
	if eval(t, env, "Object.keys(this).indexOf('_exaplot') >= 0").ToBoolean() {
		t.Error("natives should not be enumerable")
	}
}

func TestRequire(t *testing.T) {
	dir := t.TempDir()
	src := "var loads = (globalThis.loads || 0) + 1; globalThis.loads = loads;\n" +
		"module.exports.twice = function (x) { return 2 * x; };\n"
	if err := os.WriteFile(filepath.Join(dir, "helper.js"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	env, _ := newEnv(t, host.NewMock(), WithSearchPaths([]string{t.TempDir(), dir}))

	if got := eval(t, env, `require("helper").twice(4)`).ToInteger(); got != 8 {
		t.Errorf("twice(4) = %d", got)
	}
	if !eval(t, env, `require("helper") === require("helper.js") && globalThis.loads === 1`).ToBoolean() {
		t.Error("module should be evaluated once and cached")
	}
	if got := errorOf(t, env, `require("missing")`); !strings.Contains(got, "Cannot find module 'missing'") {
		t.Errorf("missing module: %q", got)
	}
}

func TestLoadScript(t *testing.T) {
	env, _ := newEnv(t, host.NewMock())
	path := "/scripts/test.js"

	m, err := env.LoadScript("__exa__", path, "function run(args) { return args.n * 2; }")
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if m.Entry == nil {
		t.Fatal("top-level run not found")
	}
	args := env.Runtime().NewObject()
	_ = args.Set("n", 21)
	if v, err := m.Entry(goja.Undefined(), args); err != nil || v.ToInteger() != 42 {
		t.Errorf("run = %v, %v", v, err)
	}

	m, err = env.LoadScript("__exa__", path, "module.exports.run = function () { return 5; };")
	if err != nil || m.Entry == nil {
		t.Fatalf("exported run: %v", err)
	}
	m, err = env.LoadScript("__exa__", path, "var x = 1;")
	if err != nil {
		t.Fatalf("script without run: %v", err)
	}
	if m.Entry != nil {
		t.Error("script without run should have no entry point")
	}

	_, err = env.LoadScript("__exa__", path, "var a = 1;\nvar b = ;\n")
	if _, ok := err.(*goja.CompilerSyntaxError); !ok {
		t.Fatalf("expected syntax error, got %T %v", err, err)
	}
	if msg := err.Error(); !strings.Contains(msg, path) || !strings.Contains(msg, "Line 2") {
		t.Errorf("syntax error should name file and line: %q", msg)
	}
}
