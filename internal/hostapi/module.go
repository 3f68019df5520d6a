// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package hostapi

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
)

// The module header shares the first line with the source so positions in
// compile errors and stack traces match the file.
const (
	moduleHeader = "(function (exports, require, module, __filename, __dirname) {"
	moduleFooter = "\n})"

	// scriptTail hands a top-level run function back to the loader.
	scriptTail = "\n;return typeof run === \"function\" ? run : undefined;"
)

// Module is the result of evaluating one CommonJS-style module.
type Module struct {
	ID     string
	Path   string
	Object *goja.Object
	// Entry is the run function declared at top level or exported, or nil.
	Entry goja.Callable
}

// Exports returns module.exports.
func (m *Module) Exports() goja.Value {
	return m.Object.Get("exports")
}

// LoadScript compiles and evaluates a user script as module id. It reports
// compile failures as *goja.CompilerSyntaxError and evaluation failures as
// *goja.Exception or *goja.InterruptedError.
func (e *Env) LoadScript(id, path, src string) (*Module, error) {
	m, ret, err := e.evalModule(id, path, src, scriptTail)
	if err != nil {
		return nil, err
	}
	if exports, ok := m.Exports().(*goja.Object); ok {
		if run, ok := goja.AssertFunction(exports.Get("run")); ok {
			m.Entry = run
			return m, nil
		}
	}
	if run, ok := goja.AssertFunction(ret); ok {
		m.Entry = run
	}
	return m, nil
}

func (e *Env) evalModule(id, path, src, tail string) (*Module, goja.Value, error) {
	prg, err := goja.Compile(path, moduleHeader+src+tail+moduleFooter, false)
	if err != nil {
		return nil, nil, err
	}
	v, err := e.vm.RunProgram(prg)
	if err != nil {
		return nil, nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, nil, errors.Errorf("%s: module wrapper is not a function", path)
	}

	obj := e.vm.NewObject()
	exports := e.vm.NewObject()
	for k, v := range map[string]any{"id": id, "filename": path, "exports": exports} {
		if err := obj.Set(k, v); err != nil {
			return nil, nil, err
		}
	}
	m := &Module{ID: id, Path: path, Object: obj}
	// Required modules are cached before evaluation so cycles terminate.
	cached := id == path
	if cached {
		e.modules[path] = obj
	}
	ret, err := fn(goja.Undefined(), exports, e.require, obj, e.vm.ToValue(path), e.vm.ToValue(filepath.Dir(path)))
	if err != nil {
		if cached {
			delete(e.modules, path)
		}
		return nil, nil, err
	}
	return m, ret, nil
}

// resolve finds name in the search paths, adding ".js" when missing.
func (e *Env) resolve(name string) (string, bool) {
	if !strings.HasSuffix(name, ".js") {
		name += ".js"
	}
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err == nil
	}
	for _, dir := range e.searchPaths {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
	}
	return "", false
}

// requireModule implements require(name). Each module is evaluated once per
// runtime; later calls return the cached module.exports.
func (e *Env) requireModule(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if _, ok := arg.Export().(string); !ok {
		panic(e.vm.NewTypeError("require() 'name' argument must be type 'str'"))
	}
	name := arg.String()
	path, ok := e.resolve(name)
	if !ok {
		panic(e.vm.NewGoError(errors.Errorf("Cannot find module '%s'", name)))
	}
	if obj, ok := e.modules[path]; ok {
		return obj.Get("exports")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		panic(e.vm.NewGoError(errors.Wrapf(err, "require %s", name)))
	}
	m, _, err := e.evalModule(path, path, string(src), "")
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			panic(ex.Value())
		}
		panic(e.vm.NewGoError(err))
	}
	e.logger.Debug("module loaded", "module", name, "path", path)
	return m.Exports()
}
