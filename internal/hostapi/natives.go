// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package hostapi

import (
	"strconv"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/bridge"
	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/property"
)

// maxPlots bounds the number of plots init() accepts.
const maxPlots = 64

func plural(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

// splitOptions separates a trailing options object from the positional
// arguments.
func splitOptions(args []goja.Value) ([]bridge.Value, bridge.Value) {
	vals := make([]bridge.Value, len(args))
	for i, a := range args {
		vals[i] = bridge.Classify(a)
	}
	if n := len(vals); n > 0 && vals[n-1].Kind() == bridge.KindObject {
		return vals[:n-1], vals[n-1]
	}
	return vals, bridge.Classify(nil)
}

// checkKeywords rejects option keys outside allowed.
func checkKeywords(call string, opts bridge.Value, allowed ...string) error {
	for _, k := range opts.Keys() {
		ok := false
		for _, a := range allowed {
			if k == a {
				ok = true
				break
			}
		}
		if !ok {
			return bridge.TypeErrorf("'%s' is an invalid keyword argument for %s()", k, call)
		}
	}
	return nil
}

func (e *Env) init(call goja.FunctionCall) goja.Value {
	e.check("init", notRunning)
	if len(call.Arguments) > 2 {
		e.throw(bridge.TypeErrorf("init() takes at most 2 arguments (%d given)", len(call.Arguments)))
	}
	plotsArg := bridge.Classify(call.Argument(0))
	paramsArg := bridge.Classify(call.Argument(1))
	if len(call.Arguments) == 1 && plotsArg.Kind() == bridge.KindObject {
		plotsArg, paramsArg = bridge.Classify(nil), plotsArg
	}

	plots, err := convertPlots(plotsArg)
	if err != nil {
		e.throw(err)
	}
	params, err := e.convertParams(paramsArg)
	if err != nil {
		e.throw(err)
	}

	if err := e.iface.Init(params, plots); err != nil {
		if errors.Is(err, grid.ErrInvalid) {
			e.throw(bridge.ValueErrorf("init() invalid plot arrangement"))
		}
		e.throw(err)
	}
	e.params = params
	e.logger.Debug("init", "params", len(params), "plots", len(plots))
	return goja.Undefined()
}

func convertPlots(v bridge.Value) ([]host.GridPoint, error) {
	switch v.Kind() {
	case bridge.KindUndefined, bridge.KindNull:
		return []host.GridPoint{{}}, nil
	case bridge.KindInt, bridge.KindFloat:
		if !v.IsIntegral() {
			break
		}
		n := v.Raw().ToInteger()
		if n <= 0 {
			return nil, bridge.ValueErrorf("init() 'plots' argument must be an integer greater than zero")
		}
		if n > maxPlots {
			return nil, bridge.ValueErrorf("init() too many plots (max %d)", maxPlots)
		}
		plots := make([]host.GridPoint, n)
		for i := range plots {
			plots[i] = host.GridPoint{X: i}
		}
		return plots, nil
	case bridge.KindList:
		n := v.Len()
		if n == 0 {
			return nil, bridge.ValueErrorf("init() plots list is missing entries")
		}
		if n > maxPlots {
			return nil, bridge.ValueErrorf("init() too many plots (max %d)", maxPlots)
		}
		plots := make([]host.GridPoint, n)
		for i := range plots {
			entry := v.Index(i)
			if entry.Kind() != bridge.KindList || entry.Len() != 4 {
				return nil, bridge.TypeErrorf("init() 'plots[%d]' value must be type 'tuple[int, int, int, int]'", i)
			}
			var p [4]int
			for j := range p {
				c := entry.Index(j)
				if !c.IsIntegral() {
					return nil, bridge.TypeErrorf("init() 'plots[%d][%d]' value must be type 'int'", i, j)
				}
				x := c.Raw().ToInteger()
				if x < 0 {
					return nil, bridge.ValueErrorf("init() 'plots[%d][%d]' value is invalid: %d", i, j, x)
				}
				if x > grid.MaxDim {
					return nil, bridge.OverflowErrorf("init() 'plots[%d][%d]' value must not exceed %d", i, j, grid.MaxDim)
				}
				p[j] = int(x)
			}
			plots[i] = host.GridPoint{X: p[0], DX: p[1], Y: p[2], DY: p[3]}
		}
		return plots, nil
	}
	return nil, bridge.TypeErrorf("init() 'plots' argument must be either an 'int' or 'list' type")
}

// convertParams reads the parameter map in declaration order.
func (e *Env) convertParams(v bridge.Value) ([]host.RunParam, error) {
	if v.Absent() {
		return nil, nil
	}
	if v.Kind() != bridge.KindObject {
		return nil, bridge.TypeErrorf("init() 'params' argument must be type 'object'")
	}
	var params []host.RunParam
	for _, id := range v.Keys() {
		p, ok := e.convertParam(id, v.Get(id))
		if !ok {
			return nil, bridge.TypeErrorf("init() invalid value for parameter '%s'", id)
		}
		params = append(params, p)
	}
	return params, nil
}

func (e *Env) convertParam(id string, v bridge.Value) (host.RunParam, bool) {
	p := host.RunParam{Identifier: id, Display: id}
	if v.Kind() == bridge.KindObject && e.vm.InstanceOf(v.Raw(), e.runParam) {
		decl := v.Object()
		value := bridge.Classify(decl.Get("value"))
		display := bridge.Classify(decl.Get("display"))
		switch display.Kind() {
		case bridge.KindUndefined, bridge.KindNull:
		case bridge.KindString:
			p.Display = display.Raw().String()
		default:
			return p, false
		}
		if t, ok := e.paramType(value); ok {
			p.Type = t
			fallback := bridge.Classify(decl.Get("fallback"))
			if fallback.Absent() {
				return p, true
			}
			s, ok := encodeParam(t, fallback)
			p.Value = s
			return p, ok
		}
		t, s, ok := inferParam(value)
		p.Type, p.Value = t, s
		return p, ok
	}
	t, s, ok := inferParam(v)
	p.Type, p.Value = t, s
	return p, ok
}

func (e *Env) paramType(v bridge.Value) (host.ParamType, bool) {
	if v.Kind() != bridge.KindSymbol {
		return 0, false
	}
	for i, sym := range e.types {
		if v.Raw().SameAs(sym) {
			return host.ParamType(i), true
		}
	}
	return 0, false
}

func inferParam(v bridge.Value) (host.ParamType, string, bool) {
	switch {
	case v.Kind() == bridge.KindString:
		return host.ParamString, v.Raw().String(), true
	case v.IsIntegral():
		return host.ParamInt, strconv.FormatInt(v.Raw().ToInteger(), 10), true
	case v.IsNumber():
		return host.ParamFloat, formatFloat(v.Raw().ToFloat()), true
	}
	return 0, "", false
}

func encodeParam(t host.ParamType, v bridge.Value) (string, bool) {
	switch t {
	case host.ParamString:
		if v.Kind() == bridge.KindString {
			return v.Raw().String(), true
		}
	case host.ParamInt:
		if v.IsIntegral() {
			return strconv.FormatInt(v.Raw().ToInteger(), 10), true
		}
	case host.ParamFloat:
		if v.IsNumber() {
			return formatFloat(v.Raw().ToFloat()), true
		}
	}
	return "", false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (e *Env) stop(call goja.FunctionCall) goja.Value {
	e.check("stop", anyTime)
	if n := len(call.Arguments); n > 0 {
		e.throw(bridge.TypeErrorf("stop() takes 0 positional arguments but %d %s given", n, plural(n)))
	}
	stop := e.flags.Stop.Load()
	if stop && e.flags.Running.Load() {
		e.flags.StopObserved.Store(true)
	}
	return e.vm.ToValue(stop)
}

func (e *Env) msg(call goja.FunctionCall) goja.Value {
	e.check("msg", anyTime)
	if n := len(call.Arguments); n == 0 || n > 2 {
		e.throw(bridge.TypeErrorf("msg() takes from 1 to 2 positional arguments but %d %s given", n, plural(n)))
	}
	text, err := bridge.String(bridge.Arg{Call: "msg", Name: "text", Pos: 1}, bridge.Classify(call.Argument(0)))
	if err != nil {
		e.throw(err)
	}
	appendArg := bridge.Classify(call.Argument(1))
	if appendArg.Kind() == bridge.KindObject {
		if err := checkKeywords("msg", appendArg, "append"); err != nil {
			e.throw(err)
		}
		appendArg = appendArg.Get("append")
	}
	var appendText bool
	if !appendArg.Absent() {
		if appendText, err = bridge.Bool(bridge.Arg{Call: "msg", Name: "append", Pos: 2}, appendArg); err != nil {
			e.throw(err)
		}
	}
	if err := e.iface.Msg(text, appendText); err != nil {
		e.throw(err)
	}
	return goja.Undefined()
}

func (e *Env) datafile(call goja.FunctionCall) goja.Value {
	e.check("datafile", notRunning)
	pos, opts := splitOptions(call.Arguments)
	if n := len(pos); n > 0 {
		e.throw(bridge.TypeErrorf("datafile() takes 0 positional arguments but %d %s given", n, plural(n)))
	}
	if err := checkKeywords("datafile", opts, "enable", "path", "prompt"); err != nil {
		e.throw(err)
	}

	var cfg host.DatafileConfig
	for _, name := range []string{"enable", "prompt"} {
		v := opts.Get(name)
		if v.Absent() {
			continue
		}
		b, err := bridge.Bool(bridge.Arg{Call: "datafile", Name: name}, v)
		if err != nil {
			e.throw(err)
		}
		if name == "enable" {
			cfg.Enable = &b
		} else {
			cfg.Prompt = &b
		}
	}

	path := opts.Get("path")
	switch path.Kind() {
	case bridge.KindUndefined, bridge.KindNull:
	case bridge.KindString:
		cfg.Path = path.Raw().String()
	case bridge.KindFunction:
		fn, _ := goja.AssertFunction(path.Raw())
		cfg.PathFunc = e.pathFunc(fn)
	default:
		e.throw(bridge.TypeErrorf("'path' argument must be type 'string' or 'function'"))
	}

	if err := e.iface.Datafile(cfg); err != nil {
		e.throw(err)
	}
	return goja.Undefined()
}

// pathFunc adapts a script callback returning a file path. The returned
// function must not be called from the runtime's own goroutine.
func (e *Env) pathFunc(fn goja.Callable) func() (string, error) {
	return func() (path string, err error) {
		ran := false
		e.dispatch(func() {
			ran = true
			var v goja.Value
			v, err = fn(goja.Undefined())
			if err != nil {
				err = errors.Wrap(err, "datafile() 'path' callable failed")
				return
			}
			r := bridge.Classify(v)
			switch r.Kind() {
			case bridge.KindUndefined, bridge.KindNull:
			case bridge.KindString:
				path = r.Raw().String()
			default:
				err = bridge.TypeErrorf("datafile() 'path' callable must return type 'str', not '%s'", r.Kind())
			}
		})
		if !ran {
			return "", errors.New("datafile() 'path' callable could not be run")
		}
		return path, err
	}
}

func (e *Env) plotID(call string, v bridge.Value) int {
	if !v.IsIntegral() {
		e.throw(bridge.TypeErrorf("%s() 'plot_id' argument must be type 'int'", call))
	}
	return int(v.Raw().ToInteger())
}

func (e *Env) plot(call goja.FunctionCall) goja.Value {
	e.check("plot", runOnly)
	if len(call.Arguments) == 0 {
		e.throw(bridge.TypeErrorf("plot() missing required argument 'plot_id'"))
	}
	args, opts := splitOptions(call.Arguments)
	if len(args) == 0 {
		e.throw(bridge.TypeErrorf("plot() missing required argument 'plot_id'"))
	}
	if err := checkKeywords("plot", opts, "write"); err != nil {
		e.throw(err)
	}
	write := true
	if w := opts.Get("write"); !w.Absent() {
		var err error
		if write, err = bridge.Bool(bridge.Arg{Call: "plot", Name: "write"}, w); err != nil {
			e.throw(err)
		}
	}

	id := e.plotID("plot", args[0])
	data := args[1:]
	var err error
	if len(data) == 0 {
		err = e.iface.Clear(id)
	} else {
		err = e.plotData(id, data, write)
	}
	if err != nil {
		e.throw(err)
	}
	return goja.Undefined()
}

// plotData picks one of the five plotting forms from the plot's variant and
// the shape of data.
func (e *Env) plotData(id int, data []bridge.Value, write bool) error {
	t, err := e.iface.CurrentPlotType(id)
	if err != nil {
		return err
	}
	arg := func(name string, pos int) bridge.Arg {
		return bridge.Arg{Call: "plot", Name: name, Pos: pos}
	}

	switch t {
	case host.TwoDimen:
		if len(data) != 2 {
			return bridge.TypeErrorf("plot() takes 2 positional arguments but %d %s given", len(data), plural(len(data)))
		}
		if data[0].Kind() == bridge.KindList {
			x, err := bridge.Floats(arg("x", 2), data[0])
			if err != nil {
				return err
			}
			y, err := bridge.Floats(arg("y", 3), data[1])
			if err != nil {
				return err
			}
			if len(x) != len(y) {
				return bridge.ValueErrorf("plot() 'x' and 'y' arguments must be the same length")
			}
			return e.iface.Plot2DVec(id, x, y, write)
		}
		x, err := bridge.Float(arg("x", 2), data[0])
		if err != nil {
			return err
		}
		y, err := bridge.Float(arg("y", 3), data[1])
		if err != nil {
			return err
		}
		return e.iface.Plot2D(id, x, y, write)

	case host.ColorMap:
		switch len(data) {
		case 1:
			frame, err := bridge.Frame(arg("frame", 2), data[0])
			if err != nil || frame == nil {
				return err
			}
			return e.iface.PlotCMFrame(id, frame, write)
		case 2:
			y, err := bridge.Int(arg("row", 2), data[0])
			if err != nil {
				return err
			}
			values, err := bridge.Floats(arg("values", 3), data[1])
			if err != nil {
				return err
			}
			return e.iface.PlotCMVec(id, int(y), values, write)
		case 3:
			x, err := bridge.Int(arg("col", 2), data[0])
			if err != nil {
				return err
			}
			y, err := bridge.Int(arg("row", 3), data[1])
			if err != nil {
				return err
			}
			value, err := bridge.Float(arg("value", 4), data[2])
			if err != nil {
				return err
			}
			return e.iface.PlotCM(id, int(x), int(y), value, write)
		}
		return bridge.TypeErrorf("plot() takes from 1 to 3 positional arguments but %d were given", len(data))
	}
	return bridge.SystemErrorf("invalid plot type: %d", t)
}

func (e *Env) propertyArgs(call string, args goja.FunctionCall, want int) (int, property.Name) {
	if n := len(args.Arguments); n != want {
		e.throw(bridge.TypeErrorf("%s() takes %d positional arguments but %d %s given", call, want, n, plural(n)))
	}
	id := e.plotID(call, bridge.Classify(args.Argument(0)))
	s, err := bridge.String(bridge.Arg{Call: call, Name: "property", Pos: 2}, bridge.Classify(args.Argument(1)))
	if err != nil {
		e.throw(err)
	}
	n, ok := property.Lookup(s)
	if !ok {
		e.throw(bridge.KeyErrorf("Unknown property '%s'", s))
	}
	return id, n
}

func (e *Env) setPlotProperty(call goja.FunctionCall) goja.Value {
	e.check("_set_plot_property", anyTime)
	id, n := e.propertyArgs("_set_plot_property", call, 3)
	v, err := property.Convert(n, bridge.Classify(call.Argument(2)))
	if err != nil {
		e.throw(err)
	}
	if err := e.iface.SetPlotProperty(id, n, v); err != nil {
		e.throw(err)
	}
	return goja.Undefined()
}

func (e *Env) getPlotProperty(call goja.FunctionCall) goja.Value {
	e.check("_get_plot_property", anyTime)
	id, n := e.propertyArgs("_get_plot_property", call, 2)
	v, err := e.iface.GetPlotProperty(id, n)
	if err != nil {
		e.throw(err)
	}
	switch v.Kind() {
	case property.KindString:
		return e.vm.ToValue(v.Str())
	case property.KindInt:
		return e.vm.ToValue(v.Int())
	case property.KindReal:
		return e.vm.ToValue(v.Real())
	case property.KindBool:
		return e.vm.ToValue(v.Bool())
	}
	e.throw(bridge.SystemErrorf("property %s has no value", n))
	return nil
}

func (e *Env) showPlot(call goja.FunctionCall) goja.Value {
	e.check("_show_plot", anyTime)
	if n := len(call.Arguments); n != 2 {
		e.throw(bridge.TypeErrorf("_show_plot() takes 2 positional arguments but %d %s given", n, plural(n)))
	}
	id := e.plotID("_show_plot", bridge.Classify(call.Argument(0)))
	t, err := bridge.Int(bridge.Arg{Call: "_show_plot", Name: "plot_type", Pos: 2}, bridge.Classify(call.Argument(1)))
	if err != nil {
		e.throw(err)
	}
	if err := e.iface.ShowPlot(id, host.PlotType(t)); err != nil {
		e.throw(err)
	}
	return goja.Undefined()
}
