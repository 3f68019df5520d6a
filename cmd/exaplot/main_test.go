package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nickandperla.net/exaplot/internal/config"
	"nickandperla.net/exaplot/internal/host"
)

const testScript = `
exaplot.init(1, {n: 2, label: exaplot.RunParam("sweep", "Label")});
function run(args) {
	for (var i = 0; i < args.n; i++) {
		exaplot.plot(1, i, i * 2);
	}
	exaplot.msg(args.label + " x" + args.n);
}
`

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.FileEnv, "")
	t.Setenv(config.PathEnv, "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runCLI(t *testing.T, stdin string, argv ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(argv, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunScript(t *testing.T) {
	dir := setupCLI(t)
	script := filepath.Join(dir, "sweep.js")
	writeFile(t, script, testScript)
	db := filepath.Join(dir, "out-{timestamp}.db")

	code, out, errOut := runCLI(t, "", "-db", db, "-args", "n=3 label='fine sweep'", script)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d\nstdout: %s\nstderr: %s", code, out, errOut)
	}
	for _, want := range []string{"msg fine sweep x3", "Completed after", "plot 1: 3 values", "3 points"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "out-*.db"))
	if len(matches) != 1 {
		t.Errorf("expected one datafile, got %v", matches)
	}
}

func TestNoDatafile(t *testing.T) {
	dir := setupCLI(t)
	script := filepath.Join(dir, "sweep.js")
	writeFile(t, script, testScript)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if code, out, _ := runCLI(t, "", "-no-datafile", script); code != 0 || strings.Contains(out, "datafile") {
		t.Errorf("expected run without datafile, got %d:\n%s", code, out)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.db")); len(matches) != 0 {
		t.Errorf("expected no datafile, got %v", matches)
	}
}

func TestExitStatus(t *testing.T) {
	dir := setupCLI(t)
	bad := filepath.Join(dir, "bad.js")
	writeFile(t, bad, "function run() { throw new exaplot.ValueError('boom'); }\n")
	empty := filepath.Join(dir, "empty.js")
	writeFile(t, empty, "")
	stopped := filepath.Join(dir, "stopped.js")
	writeFile(t, stopped, "function run() { throw new exaplot.Interrupt(); }\n")

	tests := []struct {
		name string
		argv []string
		code int
		want string
	}{
		{"run failure", []string{"-no-datafile", bad}, 1, "Run failed"},
		{"load failure", []string{empty}, 1, "Load failed: script file is empty"},
		{"interrupted", []string{"-no-datafile", stopped}, 0, "Interrupted"},
		{"no script", nil, 2, ""},
		{"bad args", []string{"-args", "missing=1", bad}, 2, ""},
		{"help", []string{"-h"}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, "", tt.argv...)
			if code != tt.code {
				t.Errorf("expected exit %d, got %d\nstdout: %s\nstderr: %s", tt.code, code, out, errOut)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.want, out)
			}
		})
	}
}

func TestParamsFlag(t *testing.T) {
	dir := setupCLI(t)
	script := filepath.Join(dir, "sweep.js")
	writeFile(t, script, testScript)

	code, out, _ := runCLI(t, "", "-params", script)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.Fields(lines[len(lines)-1])
	if len(last) != 4 || last[0] != "label" || last[1] != "str" || last[2] != "sweep" || last[3] != "Label" {
		t.Errorf("unexpected params listing:\n%s", out)
	}
	if strings.Contains(out, "Completed") {
		t.Error("-params must not run the script")
	}
}

func TestConsole(t *testing.T) {
	dir := setupCLI(t)
	script := filepath.Join(dir, "sweep.js")
	writeFile(t, script, testScript)

	input := "params\nrun n=4\nplot 1\nplot 9\nbogus\nrun nope=1\nreload\nquit\nrun\n"
	code, out, errOut := runCLI(t, input, "-i", "-no-datafile", script)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d\n%s", code, errOut)
	}
	for _, want := range []string{
		"loaded " + script,
		"NAME",
		"msg sweep x4",
		`plot 1 "": two_dimen, 4 points`,
		"Error: plot ID out of range",
		`unknown command "bogus"`,
		`Error: unknown parameter "nope"`,
		"reloaded " + script,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "Completed after"); n != 1 {
		t.Errorf("expected exactly one run before quit, got %d", n)
	}
}

func TestBindArgs(t *testing.T) {
	params := []host.RunParam{
		{Identifier: "a", Type: host.ParamInt, Value: "1"},
		{Identifier: "b", Type: host.ParamString, Value: "x"},
	}
	got, err := bindArgs(params, []string{"b=hello world", "a=7"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "7" || got[1] != "hello world" {
		t.Errorf("unexpected args: %q", got)
	}
	if got, _ := bindArgs(params, nil); got[0] != "1" || got[1] != "x" {
		t.Errorf("expected defaults, got %q", got)
	}
	if _, err := bindArgs(params, []string{"a"}); err == nil {
		t.Error("expected error for a word without '='")
	}

	words, err := splitArgs(`a=1 b='two words' c="x y"`)
	if err != nil || len(words) != 3 || words[1] != "b=two words" {
		t.Errorf("unexpected split: %q %v", words, err)
	}
	if _, err := splitArgs(`a='open`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.js")
	writeFile(t, path, "1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 4)
	errc := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		errc <- watch(ctx, path, 20*time.Millisecond, logger, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register, then touch an unrelated file and
	// the script.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.js"), "x")
	writeFile(t, path, "2")
	writeFile(t, path, "3")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
	select {
	case <-changed:
		t.Error("expected writes to be debounced into one notification")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("watch returned %v", err)
	}
}
