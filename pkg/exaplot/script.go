// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package exaplot

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/hostapi"
)

// moduleID is the module id every user script is evaluated under.
const moduleID = "__exa__"

// ScriptModule is a loaded script bound to one Core.
type ScriptModule struct {
	core *Core
	path string

	// Owned by the interpreter goroutine.
	mod *hostapi.Module

	pmu    sync.Mutex
	params []host.RunParam
}

// Path returns the script file path.
func (m *ScriptModule) Path() string { return m.path }

// Params returns the run parameters the script declared with init().
func (m *ScriptModule) Params() []host.RunParam {
	m.pmu.Lock()
	defer m.pmu.Unlock()
	return append([]host.RunParam(nil), m.params...)
}

// Reload re-reads and re-evaluates the script from scratch. Nothing carries
// over from the previous evaluation, except that a failed reload leaves the
// previous module in place.
func (m *ScriptModule) Reload() Error {
	if m.core.closed() {
		return Error{Kind: KindReload, Msg: ErrClosed.Error()}
	}
	return m.load()
}

func (m *ScriptModule) load() Error {
	c := m.core
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := os.ReadFile(m.path)
	if err != nil {
		return Error{Kind: KindImport, Msg: err.Error()}
	}
	if len(src) == 0 {
		return Error{Kind: KindImport, Msg: "script file is empty"}
	}

	res := c.exec(func() Error {
		c.vm.ClearInterrupt()
		prev := c.env.Params()
		c.env.SetParams(nil)
		mod, err := c.env.LoadScript(moduleID, m.path, string(src))
		if err != nil {
			c.env.SetParams(prev)
			return c.classify(KindImport, err)
		}
		m.mod = mod
		m.pmu.Lock()
		m.params = c.env.Params()
		m.pmu.Unlock()
		return None
	})
	if res.Ok() {
		c.logger.Info("script loaded", "script", m.path, "params", len(m.Params()))
	} else {
		c.logger.Warn("script load failed", "script", m.path, "kind", res.Kind, "err", res.Msg)
	}
	return res
}

// Run invokes the script's run function with args converted to their
// declared types. Conversion stops at the first failure and the function is
// not called.
func (m *ScriptModule) Run(args []host.RunParam) Error {
	c := m.core
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exec(func() Error {
		if m.mod == nil || m.mod.Entry == nil {
			return Error{Kind: KindRuntime, Msg: "script does not define a 'run' function"}
		}
		kwargs := c.vm.NewObject()
		for _, p := range args {
			v, err := decodeArg(p)
			if err != nil {
				return argError(p, err)
			}
			val := goja.Null()
			if v != nil {
				val = c.vm.ToValue(v)
			}
			if err := kwargs.Set(p.Identifier, val); err != nil {
				return Error{Kind: KindSystem, Msg: err.Error()}
			}
		}

		c.flags.Stop.Store(false)
		c.flags.AppError.Store(false)
		c.flags.StopObserved.Store(false)
		c.vm.ClearInterrupt()
		c.flags.Running.Store(true)
		defer c.flags.Running.Store(false)

		c.logger.Info("run started", "script", m.path)
		_, err := m.mod.Entry(goja.Undefined(), kwargs)
		if err != nil {
			return c.classify(KindRuntime, err)
		}
		if c.flags.StopObserved.Load() {
			return Error{Kind: KindInterrupt, Msg: "Interrupted"}
		}
		return None
	})
}

// CheckArgs reports the first argument Run would reject, without running
// anything.
func CheckArgs(args []host.RunParam) Error {
	for _, p := range args {
		if _, err := decodeArg(p); err != nil {
			return argError(p, err)
		}
	}
	return None
}

func argError(p host.RunParam, err error) Error {
	return Error{
		Kind: KindArgument,
		Msg:  "invalid value for parameter '" + p.Identifier + "': " + err.Error(),
	}
}

// decodeArg decodes a string-encoded parameter. An empty value is nil.
func decodeArg(p host.RunParam) (any, error) {
	if p.Value == "" {
		return nil, nil
	}
	switch p.Type {
	case host.ParamInt:
		i, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64)
		if err != nil {
			return nil, errors.Errorf("invalid literal for int: '%s'", p.Value)
		}
		return i, nil
	case host.ParamFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if err != nil {
			return nil, errors.Errorf("invalid literal for float: '%s'", p.Value)
		}
		return f, nil
	default:
		return p.Value, nil
	}
}

// classify turns a runtime failure into an Error of kind, unless it is an
// interrupt.
func (c *Core) classify(kind Kind, err error) Error {
	var (
		syntax      *goja.CompilerSyntaxError
		exception   *goja.Exception
		interrupted *goja.InterruptedError
	)
	switch {
	case errors.As(err, &interrupted):
		return Error{Kind: KindInterrupt, Msg: "Interrupted"}
	case errors.As(err, &exception):
		if c.env.IsInterrupt(exception.Value()) {
			return Error{Kind: KindInterrupt, Msg: "Interrupted"}
		}
		return Error{Kind: kind, Msg: exception.Value().String(), Traceback: exception.String()}
	case errors.As(err, &syntax):
		msg := syntax.Error()
		return Error{Kind: kind, Msg: msg, Traceback: msg}
	}
	return Error{Kind: kind, Msg: err.Error()}
}
