package exaplot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/host"
)

// setup initializes the runtime for one test and shuts it down afterwards.
func setup(t *testing.T) {
	t.Helper()
	t.Setenv(PathEnv, "")
	if err := Initialize(os.Args[0], "", nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() {
		if code := Shutdown(); code != 0 {
			t.Errorf("Shutdown() = %d", code)
		}
	})
}

func newCore(t *testing.T, m *host.Mock) *Core {
	t.Helper()
	c, err := NewCore(m)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func writeScript(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "script.js")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func load(t *testing.T, c *Core, src string) *ScriptModule {
	t.Helper()
	m, res := c.Load(writeScript(t, t.TempDir(), src))
	if !res.Ok() {
		t.Fatalf("Load: %v\n%s", res, res.Traceback)
	}
	return m
}

// runAsync starts a run and returns a channel receiving its result, after
// waiting for the script to start.
func runAsync(t *testing.T, c *Core, m *ScriptModule) <-chan Error {
	t.Helper()
	ch := make(chan Error, 1)
	go func() { ch <- m.Run(nil) }()
	deadline := time.Now().Add(5 * time.Second)
	for !c.Running() {
		if time.Now().After(deadline) {
			t.Fatal("script did not start")
		}
		time.Sleep(time.Millisecond)
	}
	return ch
}

func wait(t *testing.T, ch <-chan Error) Error {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
		return Error{}
	}
}

func TestEmptyScript(t *testing.T) {
	setup(t)
	c := newCore(t, host.NewMock())
	_, res := c.Load(writeScript(t, t.TempDir(), ""))
	if res.Kind != KindImport || res.Msg != "script file is empty" {
		t.Errorf("got %v", res)
	}
}

func TestMissingScript(t *testing.T) {
	setup(t)
	c := newCore(t, host.NewMock())
	if _, res := c.Load(filepath.Join(t.TempDir(), "nope.js")); res.Kind != KindImport {
		t.Errorf("got %v", res)
	}
}

func TestReloadAfterSyntaxError(t *testing.T) {
	setup(t)
	mock := host.NewMock()
	c := newCore(t, mock)
	path := writeScript(t, t.TempDir(), "function run() { exaplot.msg('first'); }\n")
	m, res := c.Load(path)
	if !res.Ok() {
		t.Fatalf("Load: %v", res)
	}

	if err := os.WriteFile(path, []byte("function run() {\n  var = 1;\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res = m.Reload()
	if res.Kind != KindImport {
		t.Fatalf("expected IMPORT, got %v", res)
	}
	if !strings.Contains(res.Traceback, path) || !strings.Contains(res.Traceback, "Line 2") {
		t.Errorf("traceback should name file and line:\n%s", res.Traceback)
	}

	// The previous module survives a failed reload.
	if res := m.Run(nil); !res.Ok() {
		t.Fatalf("Run after failed reload: %v", res)
	}
	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Args[0] != "first" {
		t.Errorf("calls: %+v", calls)
	}
}

func TestReloadReevaluates(t *testing.T) {
	setup(t)
	mock := host.NewMock()
	c := newCore(t, mock)
	path := writeScript(t, t.TempDir(), "exaplot.init({a: 1});\nfunction run() {}\n")
	m, res := c.Load(path)
	if !res.Ok() {
		t.Fatalf("Load: %v", res)
	}
	if err := os.WriteFile(path, []byte("exaplot.init({b: 'x', c: 2.5});\nfunction run() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := m.Reload(); !res.Ok() {
		t.Fatalf("Reload: %v", res)
	}
	params := m.Params()
	if len(params) != 2 || params[0].Identifier != "b" || params[1].Type != host.ParamFloat {
		t.Errorf("params after reload: %+v", params)
	}
}

func TestRunArguments(t *testing.T) {
	setup(t)
	mock := host.NewMock()
	c := newCore(t, mock)
	m := load(t, c, `
		exaplot.init({n: 1, x: 0.5, s: "a", e: "b"});
		function run(args) { exaplot.msg(JSON.stringify(args)); }
	`)
	params := m.Params()
	if len(params) != 4 {
		t.Fatalf("params: %+v", params)
	}
	params[0].Value = "3"
	params[1].Value = "2.5"
	params[2].Value = "hello"
	params[3].Value = ""
	if res := m.Run(params); !res.Ok() {
		t.Fatalf("Run: %v", res)
	}
	calls := mock.Calls()
	last := calls[len(calls)-1]
	if got, want := last.Args[0], `{"n":3,"x":2.5,"s":"hello","e":null}`; got != want {
		t.Errorf("args: got %v, want %v", got, want)
	}
}

func TestBadArgumentAbortsBeforeInvocation(t *testing.T) {
	setup(t)
	mock := host.NewMock()
	c := newCore(t, mock)
	m := load(t, c, `
		exaplot.init({a: 1, n: 2, b: 3});
		function run(args) { exaplot.msg("called"); }
	`)
	params := m.Params()
	params[0].Value = "1"
	params[1].Value = "abc"
	params[2].Value = "x"
	res := m.Run(params)
	if res.Kind != KindArgument || res.Msg != "invalid value for parameter 'n': invalid literal for int: 'abc'" {
		t.Errorf("got %v", res)
	}
	for _, call := range mock.Calls() {
		if call.Name == "msg" {
			t.Error("run() was invoked despite a bad argument")
		}
	}
}

func TestCheckArgs(t *testing.T) {
	args := []host.RunParam{
		{Identifier: "s", Type: host.ParamString, Value: "x"},
		{Identifier: "n", Type: host.ParamInt, Value: " 12 "},
		{Identifier: "f", Type: host.ParamFloat, Value: ""},
	}
	if res := CheckArgs(args); !res.Ok() {
		t.Errorf("expected valid arguments, got %v", res)
	}
	args[2].Value = "1.5e"
	res := CheckArgs(args)
	if res.Kind != KindArgument || res.Msg != "invalid value for parameter 'f': invalid literal for float: '1.5e'" {
		t.Errorf("got %v", res)
	}
}

func TestInterruptedRun(t *testing.T) {
	setup(t)
	c := newCore(t, host.NewMock())

	t.Run("stop polled", func(t *testing.T) {
		m := load(t, c, "function run() { while (!exaplot.stop()) {} }")
		ch := runAsync(t, c, m)
		c.RequestStop()
		if res := wait(t, ch); res.Kind != KindInterrupt {
			t.Errorf("expected INTERRUPT, got %v", res)
		}
	})
	t.Run("breakpoint", func(t *testing.T) {
		m := load(t, c, "function run() { for (;;) { exaplot.breakpoint(); } }")
		ch := runAsync(t, c, m)
		c.RequestStop()
		if res := wait(t, ch); res.Kind != KindInterrupt {
			t.Errorf("expected INTERRUPT, got %v", res)
		}
	})
	t.Run("terminated", func(t *testing.T) {
		m := load(t, c, "function run() { for (;;) {} }")
		ch := runAsync(t, c, m)
		c.Terminate()
		if res := wait(t, ch); res.Kind != KindInterrupt {
			t.Errorf("expected INTERRUPT, got %v", res)
		}
		// The instance remains usable.
		m = load(t, c, "function run() {}")
		if res := m.Run(nil); !res.Ok() {
			t.Errorf("run after terminate: %v", res)
		}
	})
}

func TestRuntimeError(t *testing.T) {
	setup(t)
	c := newCore(t, host.NewMock())
	m := load(t, c, "function run() {\n  throw new exaplot.ValueError('boom');\n}\n")
	res := m.Run(nil)
	if res.Kind != KindRuntime || res.Msg != "ValueError: boom" {
		t.Fatalf("got %v", res)
	}
	if !strings.Contains(res.Traceback, m.Path()) {
		t.Errorf("traceback should name the script:\n%s", res.Traceback)
	}
}

func TestAppErrorFailsHostCalls(t *testing.T) {
	setup(t)
	mock := host.NewMock()
	c := newCore(t, mock)
	m := load(t, c, `
		function run() {
			while (!exaplot.stop()) {}
			exaplot.msg("after");
		}
	`)
	ch := runAsync(t, c, m)
	c.SetAppError()
	c.RequestStop()
	res := wait(t, ch)
	if res.Kind != KindRuntime || !strings.Contains(res.Msg, "SystemError") {
		t.Errorf("got %v", res)
	}
}

func TestMissingRunFunction(t *testing.T) {
	setup(t)
	c := newCore(t, host.NewMock())
	m := load(t, c, "var x = 1;")
	if res := m.Run(nil); res.Kind != KindRuntime {
		t.Errorf("got %v", res)
	}
}

func TestPlotDispatchThroughCore(t *testing.T) {
	setup(t)
	mock := host.NewMock()
	c := newCore(t, mock)
	m := load(t, c, `
		exaplot.init(2);
		function run() {
			exaplot.plot(1, 3.0, 4.0);
			exaplot.plot(1, [1.0, 2.0], [3.0, 4.0]);
			exaplot.plot(2);
		}
	`)
	if res := m.Run(nil); !res.Ok() {
		t.Fatalf("Run: %v", res)
	}
	var names []string
	for _, call := range mock.Calls() {
		names = append(names, call.Name)
	}
	if got, want := strings.Join(names, ","), "init,plot2D,plot2DVec,clear"; got != want {
		t.Errorf("calls: got %s, want %s", got, want)
	}
}

func TestRequireFromPrefix(t *testing.T) {
	prefix := t.TempDir()
	lib := filepath.Join(prefix, "lib")
	if err := os.MkdirAll(filepath.Join(lib, "ext"), 0o755); err != nil {
		t.Fatal(err)
	}
	helper := "module.exports.label = function () { return 'from-ext'; };\n"
	if err := os.WriteFile(filepath.Join(lib, "ext", "helper.js"), []byte(helper), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnv, "")
	if err := Initialize(os.Args[0], prefix, nil); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer Shutdown()

	want := []string{lib, filepath.Join(lib, "ext"), filepath.Join(lib, "site-scripts")}
	if got := SearchPaths(); strings.Join(got, ":") != strings.Join(want, ":") {
		t.Errorf("search paths: %v", got)
	}

	mock := host.NewMock()
	c, err := NewCore(mock)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	m, res := c.Load(writeScript(t, t.TempDir(), `
		var helper = require("helper");
		function run() { exaplot.msg(helper.label()); }
	`))
	if !res.Ok() {
		t.Fatalf("Load: %v", res)
	}
	if res := m.Run(nil); !res.Ok() {
		t.Fatalf("Run: %v", res)
	}
	if calls := mock.Calls(); len(calls) != 1 || calls[0].Args[0] != "from-ext" {
		t.Errorf("calls: %+v", calls)
	}
}

func TestSearchPathEnv(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	t.Setenv(PathEnv, a+string(os.PathListSeparator)+b)
	if err := Initialize(os.Args[0], t.TempDir(), []string{"extra"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer Shutdown()
	got := SearchPaths()
	if len(got) != 3 || got[0] != a || got[1] != b || got[2] != "extra" {
		t.Errorf("search paths: %v", got)
	}
}

func TestInitializeFatal(t *testing.T) {
	t.Setenv(PathEnv, "")
	var fatal *FatalInitError

	err := Initialize(os.Args[0], filepath.Join(t.TempDir(), "missing"), nil)
	if !errors.As(err, &fatal) {
		t.Errorf("missing prefix: expected FatalInitError, got %v", err)
	}

	prefix := t.TempDir()
	if err := os.MkdirAll(filepath.Join(prefix, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "lib", "exaplot.js"), []byte("(function ("), 0o644); err != nil {
		t.Fatal(err)
	}
	err = Initialize(os.Args[0], prefix, nil)
	if !errors.As(err, &fatal) || fatal.Func != "compilePrelude" {
		t.Errorf("bad prelude: expected compilePrelude failure, got %v", err)
	}
	if Shutdown() != 1 {
		t.Error("Shutdown without Initialize should fail")
	}
}

func TestLifecycle(t *testing.T) {
	t.Setenv(PathEnv, "")
	if _, err := NewCore(host.NewMock()); err == nil {
		t.Fatal("NewCore before Initialize should fail")
	}
	if err := Initialize(os.Args[0], "", nil); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(os.Args[0], "", nil); err == nil {
		t.Error("second Initialize should fail")
	}

	a, err := NewCore(host.NewMock())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCore(host.NewMock())
	if err != nil {
		t.Fatal(err)
	}
	if a.ID() == b.ID() {
		t.Error("instances should have distinct identities")
	}
	if b.Primary() {
		t.Error("only the first instance of the process is primary")
	}
	if Instances() != 2 {
		t.Errorf("Instances() = %d", Instances())
	}
	if Shutdown() != 1 {
		t.Error("Shutdown with live instances should fail")
	}

	a.Close()
	a.Close()
	b.Close()
	if _, res := a.Load(os.Args[0]); res.Kind != KindSystem {
		t.Errorf("load on closed instance: %v", res)
	}
	if Shutdown() != 0 {
		t.Error("Shutdown after closing every instance should succeed")
	}
}
