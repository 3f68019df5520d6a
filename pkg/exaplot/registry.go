// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package exaplot embeds a JavaScript runtime that runs plotting scripts.
//
// The process-wide runtime is set up once with Initialize and torn down with
// Shutdown after every Core has been closed. Each Core is one isolated
// interpreter instance bound to a host.Interface; all of its runtime work
// happens on a goroutine it owns.
package exaplot

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"nickandperla.net/exaplot/internal/stdlib"
)

// PathEnv names the environment variable that replaces the default search
// paths. Entries are separated by os.PathListSeparator.
const PathEnv = "EXAPLOT_PATH"

// preludeFile overrides the embedded prelude when found in the library
// directory.
const preludeFile = "exaplot.js"

// registry is the process-wide runtime state.
type registry struct {
	mu          sync.Mutex
	initialized bool
	libDir      string
	searchPaths []string
	prelude     *goja.Program
	instances   map[uuid.UUID]*Core
	// hadPrimary is set once the first instance of the process exists.
	hadPrimary bool
}

var rt = registry{instances: make(map[uuid.UUID]*Core)}

// Initialize configures the process-wide runtime. executable is the path of
// the running binary; prefix is the installation root, or empty to derive
// it from executable; searchPaths are appended to the module search paths.
// It must be called once before any Core is created. Failures are returned
// as *FatalInitError.
func Initialize(executable, prefix string, searchPaths []string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.initialized {
		return &FatalInitError{Func: "Initialize", Msg: "runtime already initialized"}
	}

	var libDir string
	if prefix == "" {
		libDir = filepath.Join(filepath.Dir(executable), "..", "lib", "exaplot")
		if fi, err := os.Stat(libDir); err != nil || !fi.IsDir() {
			libDir = ""
		}
	} else {
		fi, err := os.Stat(prefix)
		if err != nil {
			return &FatalInitError{Func: "Initialize", Msg: fmt.Sprintf("prefix %s: %v", prefix, err)}
		}
		if !fi.IsDir() {
			return &FatalInitError{Func: "Initialize", Msg: fmt.Sprintf("prefix %s is not a directory", prefix)}
		}
		libDir = filepath.Join(prefix, "lib")
	}

	var paths []string
	if env := os.Getenv(PathEnv); env != "" {
		for _, p := range filepath.SplitList(env) {
			if p != "" {
				paths = append(paths, p)
			}
		}
	} else if libDir != "" {
		paths = append(paths,
			libDir,
			filepath.Join(libDir, "ext"),
			filepath.Join(libDir, "site-scripts"),
		)
	}
	paths = append(paths, searchPaths...)

	name, src := stdlib.PreludeName, stdlib.Prelude
	if libDir != "" {
		p := filepath.Join(libDir, preludeFile)
		if b, err := os.ReadFile(p); err == nil {
			name, src = p, string(b)
		} else if !os.IsNotExist(err) {
			return &FatalInitError{Func: "readPrelude", Msg: err.Error()}
		}
	}
	prelude, err := goja.Compile(name, src, true)
	if err != nil {
		return &FatalInitError{Func: "compilePrelude", Msg: err.Error()}
	}

	rt.initialized = true
	rt.libDir = libDir
	rt.searchPaths = paths
	rt.prelude = prelude
	return nil
}

// Shutdown tears down the process-wide runtime. It returns 0 on success and
// 1 when the runtime is not initialized or instances are still alive.
func Shutdown() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.initialized || len(rt.instances) > 0 {
		return 1
	}
	rt.initialized = false
	rt.libDir = ""
	rt.searchPaths = nil
	rt.prelude = nil
	return 0
}

// SearchPaths returns the module search paths of the initialized runtime.
func SearchPaths() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.searchPaths...)
}

// Instances returns the number of live cores.
func Instances() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.instances)
}

// register adds c and returns the shared prelude and search paths.
func (r *registry) register(c *Core) (*goja.Program, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil, nil, errNotInitialized
	}
	c.primary = !r.hadPrimary
	r.hadPrimary = true
	r.instances[c.id] = c
	return r.prelude, append([]string(nil), r.searchPaths...), nil
}

func (r *registry) unregister(c *Core) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, c.id)
}
