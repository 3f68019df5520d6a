// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/datafile"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/present"
	"nickandperla.net/exaplot/pkg/exaplot"
)

// State is the Run Coordinator state.
type State int32

const (
	Idle State = iota
	DatafileInit
	Running
	Completing
)

var stateNames = []string{"idle", "datafile-init", "running", "completing"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Outcome statuses.
const (
	StatusCompleted     = "Completed"
	StatusInterrupted   = "Interrupted"
	StatusFailed        = "Run failed"
	StatusDatafileError = "Datafile error"
)

// timestampLayout expands {timestamp} in datafile paths.
const timestampLayout = "20060102-150405"

// Result is the outcome of one run.
type Result struct {
	Err     exaplot.Error
	Status  string
	Elapsed time.Duration
	Data    *datafile.Summary
}

// Ok reports whether the run completed or was interrupted.
func (r Result) Ok() bool { return r.Err.Ok() || r.Err.Interrupted() }

// State returns the coordinator state.
func (a *App) State() State { return State(a.state.Load()) }

func (a *App) setState(s State) {
	a.state.Store(int32(s))
	a.post(func() { a.presenter.State(s.String()) })
}

// Script returns the loaded script, or nil.
func (a *App) Script() *exaplot.ScriptModule {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.script
}

// Params returns the run parameters of the loaded script.
func (a *App) Params() []host.RunParam {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.script == nil {
		return nil
	}
	return a.script.Params()
}

// Load loads the script at path, reloading it when it is already the loaded
// script. Datafile preferences start from the defaults and are restored when
// the load fails.
func (a *App) Load(path string) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.mu.Lock()
	prev := a.datafile
	a.datafile = a.defaults
	a.mu.Unlock()
	// A failed load keeps the previous module, so it keeps its layout too.
	before := a.layout()

	var res exaplot.Error
	if a.script != nil && a.script.Path() == path {
		res = a.script.Reload()
	} else {
		var m *exaplot.ScriptModule
		if m, res = a.core.Load(path); res.Ok() {
			a.script = m
		}
	}
	if !res.Ok() {
		a.mu.Lock()
		a.datafile = prev
		a.mu.Unlock()
		a.restoreLayout(before)
		a.call(func() {
			a.presenter.Report(present.Report{Title: "Load failed", Message: res.Msg, Traceback: res.Traceback})
		})
		return res.Err()
	}
	return nil
}

// RequestStop asks the running script to stop at its next stop() check.
func (a *App) RequestStop() {
	a.logger.Info("stop requested")
	a.core.RequestStop()
}

// ForceQuit aborts a script that ignores stop requests.
func (a *App) ForceQuit() {
	a.core.Terminate()
}

// Run runs the loaded script with one argument string per declared
// parameter, in declaration order. Passing the wrong number of arguments
// is a programming error and panics.
func (a *App) Run(args []string) Result {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	start := a.now()
	if a.script == nil {
		return a.finish(start, Result{Err: exaplot.Error{Kind: exaplot.KindRuntime, Msg: "no script loaded"}})
	}
	params := a.script.Params()
	if len(args) != len(params) {
		panic(fmt.Sprintf("app: %d run arguments for %d parameters", len(args), len(params)))
	}
	runArgs := make([]host.RunParam, len(params))
	for i, p := range params {
		p.Value = args[i]
		runArgs[i] = p
	}
	logger := a.logger.With("script", a.script.Path())
	if bad := exaplot.CheckArgs(runArgs); !bad.Ok() {
		logger.Warn("run rejected", "err", bad.Msg)
		return a.finish(start, Result{Err: bad})
	}

	a.setState(DatafileInit)
	opened, err := a.openDatafile(start)
	if err != nil {
		logger.Error("datafile init failed", "err", err)
		a.setState(Idle)
		return a.finish(start, Result{
			Err:    exaplot.Error{Kind: exaplot.KindSystem, Msg: err.Error()},
			Status: StatusDatafileError,
		})
	}

	a.setState(Running)
	res := Result{Err: a.script.Run(runArgs)}

	a.setState(Completing)
	if opened {
		a.recording.Store(false)
		r := a.request(dfOp{kind: opClose})
		sum := r.summary
		res.Data = &sum
		failure := r.writeErr
		if failure == nil && r.err != nil {
			failure = errors.Wrap(r.err, "datafile")
		}
		if failure != nil && res.Ok() {
			res.Err = exaplot.Error{Kind: exaplot.KindSystem, Msg: failure.Error()}
			res.Status = StatusDatafileError
		}
	}
	a.setState(Idle)

	logger.Info("run finished", "kind", res.Err.Kind, "elapsed", a.now().Sub(start))
	return a.finish(start, res)
}

// openDatafile resolves the destination and opens the sink. It reports
// false when the run is not persisted.
func (a *App) openDatafile(now time.Time) (bool, error) {
	path, err := a.resolveDatafile(now)
	if err != nil || path == "" {
		return false, err
	}
	a.mu.Lock()
	plots := len(a.plots)
	a.mu.Unlock()

	if r := a.request(dfOp{kind: opOpen, path: path, plots: plots}); r.err != nil {
		return false, r.err
	}
	a.recording.Store(true)
	a.logger.Info("datafile opened", "path", path, "plots", plots)
	return true, nil
}

// resolveDatafile picks the datafile path: the script's path callable or
// string, then the prompt, then the configured default.
func (a *App) resolveDatafile(now time.Time) (string, error) {
	a.mu.Lock()
	s := a.datafile
	def := a.defaults.path
	a.mu.Unlock()
	if !s.enabled {
		return "", nil
	}

	path := s.path
	if s.pathFunc != nil {
		p, err := s.pathFunc()
		if err != nil {
			return "", err
		}
		path = p
	}
	if path == "" {
		path = def
	}
	path = expandPath(path, now)

	if s.prompt && a.prompter != nil {
		var err error
		if path, err = a.prompter.PromptPath(path); err != nil {
			return "", errors.Wrap(err, "datafile prompt")
		}
		if path == "" {
			a.logger.Info("datafile declined, running without it")
			return "", nil
		}
		path = expandPath(path, now)
	}
	if path == "" {
		return "", errors.New("datafile path is not set")
	}
	return path, nil
}

func expandPath(p string, now time.Time) string {
	return strings.ReplaceAll(p, "{timestamp}", now.Format(timestampLayout))
}

// finish fills in the status and reports the outcome to the presenter.
func (a *App) finish(start time.Time, res Result) Result {
	res.Elapsed = a.now().Sub(start)
	switch {
	case res.Status != "":
	case res.Err.Ok():
		res.Status = StatusCompleted
	case res.Err.Interrupted():
		res.Status = StatusInterrupted
	default:
		res.Status = StatusFailed
	}
	o := present.Outcome{
		Status:  res.Status,
		Failed:  !res.Ok(),
		Elapsed: res.Elapsed,
		Data:    res.Data,
	}
	if o.Failed {
		o.Message = res.Err.Error()
		o.Traceback = res.Err.Traceback
	}
	a.call(func() { a.presenter.Finished(o) })
	return res
}
