// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package hostapi binds the host Interface into a goja runtime.
//
// Install places the native entry points on a hidden _exaplot global and
// runs the prelude, which builds the script-facing exaplot namespace on top
// of them. Every native validates its arguments through the bridge package
// before delegating to the host Interface. Host errors are raised in the
// script as instances of the prelude's error classes.
//
// An Env must only be used from the goroutine that owns its runtime.
package hostapi

import (
	"log/slog"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/bridge"
	"nickandperla.net/exaplot/internal/host"
)

// NativeGlobal is the name of the global holding the native entry points.
const NativeGlobal = "_exaplot"

// Flags are the run-state bits read by every native. Stop and AppError are
// set from outside the runtime's goroutine.
type Flags struct {
	Stop     atomic.Bool
	AppError atomic.Bool
	Running  atomic.Bool
	// StopObserved is set when stop() returns true during a run.
	StopObserved atomic.Bool
}

// Option configures an Env.
type Option func(*Env)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Env) {
		e.logger = l
	}
}

// WithSearchPaths sets the directories require() resolves against.
func WithSearchPaths(paths []string) Option {
	return func(e *Env) {
		e.searchPaths = append([]string(nil), paths...)
	}
}

// WithDispatcher sets how callbacks captured from the script, such as a
// datafile path function, are run when the host invokes them. The default
// runs them on the calling goroutine.
func WithDispatcher(d func(func())) Option {
	return func(e *Env) {
		e.dispatch = d
	}
}

// Env is one runtime with the host API installed.
type Env struct {
	vm     *goja.Runtime
	iface  host.Interface
	flags  *Flags
	native *goja.Object

	classes   map[bridge.Class]*goja.Object
	interrupt *goja.Object
	runParam  *goja.Object
	types     [3]*goja.Symbol

	params      []host.RunParam
	searchPaths []string
	modules     map[string]*goja.Object
	require     goja.Value
	dispatch    func(func())
	logger      *slog.Logger
}

// Install creates the natives, runs prelude with them and returns the
// resulting Env. prelude must evaluate to a function taking the natives
// object and the global object.
func Install(vm *goja.Runtime, iface host.Interface, flags *Flags, prelude *goja.Program, opts ...Option) (*Env, error) {
	e := &Env{
		vm:       vm,
		iface:    iface,
		flags:    flags,
		classes:  make(map[bridge.Class]*goja.Object),
		modules:  make(map[string]*goja.Object),
		dispatch: func(f func()) { f() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.native = vm.NewObject()
	natives := map[string]func(goja.FunctionCall) goja.Value{
		"init":               e.init,
		"stop":               e.stop,
		"msg":                e.msg,
		"datafile":           e.datafile,
		"plot":               e.plot,
		"_set_plot_property": e.setPlotProperty,
		"_get_plot_property": e.getPlotProperty,
		"_show_plot":         e.showPlot,
	}
	for name, fn := range natives {
		if err := e.native.Set(name, fn); err != nil {
			return nil, errors.Wrapf(err, "install %s", name)
		}
	}

	types := vm.NewObject()
	for i, name := range []string{"str", "int", "float"} {
		e.types[i] = goja.NewSymbol("RunParam." + name)
		if err := types.Set(name, e.types[i]); err != nil {
			return nil, errors.Wrap(err, "install parameter types")
		}
	}
	if err := e.native.Set("types", types); err != nil {
		return nil, errors.Wrap(err, "install parameter types")
	}

	global := vm.GlobalObject()
	if err := global.DefineDataProperty(NativeGlobal, e.native, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		return nil, errors.Wrap(err, "install natives")
	}
	e.require = vm.ToValue(e.requireModule)
	if err := vm.Set("require", e.require); err != nil {
		return nil, errors.Wrap(err, "install require")
	}

	if err := e.runPrelude(prelude); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Env) runPrelude(prelude *goja.Program) error {
	v, err := e.vm.RunProgram(prelude)
	if err != nil {
		return errors.Wrap(err, "prelude")
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return errors.New("prelude: does not evaluate to a function")
	}
	if _, err := fn(goja.Undefined(), e.native, e.vm.GlobalObject()); err != nil {
		return errors.Wrap(err, "prelude")
	}

	classes := e.native.Get("classes")
	if classes == nil || goja.IsUndefined(classes) {
		return errors.New("prelude: error classes not registered")
	}
	obj := classes.ToObject(e.vm)
	for c := bridge.ClassType; c <= bridge.ClassSystem; c++ {
		ctor, ok := obj.Get(c.String()).(*goja.Object)
		if !ok {
			return errors.Errorf("prelude: missing error class %s", c)
		}
		e.classes[c] = ctor
	}
	if e.interrupt, ok = obj.Get("Interrupt").(*goja.Object); !ok {
		return errors.New("prelude: missing Interrupt class")
	}
	if e.runParam, ok = e.native.Get("RunParam").(*goja.Object); !ok {
		return errors.New("prelude: missing RunParam")
	}
	return nil
}

// Runtime returns the underlying runtime.
func (e *Env) Runtime() *goja.Runtime { return e.vm }

// Params returns the parameters declared by the last successful init().
func (e *Env) Params() []host.RunParam {
	return append([]host.RunParam(nil), e.params...)
}

// SetParams replaces the declared parameters, restoring them after a failed
// load.
func (e *Env) SetParams(p []host.RunParam) {
	e.params = append([]host.RunParam(nil), p...)
}

// IsInterrupt reports whether v is an instance of the Interrupt class.
func (e *Env) IsInterrupt(v goja.Value) bool {
	if v == nil || e.interrupt == nil {
		return false
	}
	if _, ok := v.(*goja.Object); !ok {
		return false
	}
	return e.vm.InstanceOf(v, e.interrupt)
}

// ErrorValue converts err into the script value it is raised as.
func (e *Env) ErrorValue(err error) goja.Value {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value()
	}
	ctor := e.classes[bridge.ClassOf(err)]
	if ctor == nil {
		return e.vm.NewGoError(err)
	}
	obj, nerr := e.vm.New(ctor, e.vm.ToValue(err.Error()))
	if nerr != nil {
		return e.vm.NewGoError(err)
	}
	return obj
}

// throw raises err in the script. It does not return.
func (e *Env) throw(err error) {
	panic(e.ErrorValue(err))
}

type policy int

const (
	anyTime policy = iota
	notRunning
	runOnly
)

// check enforces the call-eligibility policy of a native.
func (e *Env) check(name string, p policy) {
	if e.flags.AppError.Load() {
		e.throw(bridge.SystemErrorf("%s() cannot be called after an application error", name))
	}
	running := e.flags.Running.Load()
	switch {
	case p == notRunning && running:
		e.throw(bridge.SystemErrorf("%s() cannot be called while a script is running", name))
	case p == runOnly && !running:
		e.throw(bridge.SystemErrorf("%s() can only be called while a script is running", name))
	}
}
