// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package exaplot

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/hostapi"
)

var (
	errNotInitialized = errors.New("exaplot: runtime not initialized")
	// ErrClosed is returned for work submitted to a closed Core.
	ErrClosed = errors.New("exaplot: interpreter instance is closed")
)

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) {
		c.logger = l
	}
}

// WithSearchPaths appends directories to the runtime search paths for this
// instance only.
func WithSearchPaths(paths ...string) Option {
	return func(c *Core) {
		c.extraPaths = append(c.extraPaths, paths...)
	}
}

// Core is one interpreter instance. Its goja runtime is touched only by the
// goroutine started in NewCore; every other method marshals onto it.
type Core struct {
	id      uuid.UUID
	primary bool
	iface   host.Interface
	logger  *slog.Logger

	extraPaths []string

	flags hostapi.Flags
	calls chan func()
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	// mu serializes loads and runs; only one may be in progress.
	mu sync.Mutex

	// Owned by the interpreter goroutine after NewCore returns.
	vm  *goja.Runtime
	env *hostapi.Env
}

// NewCore creates an interpreter instance bound to iface. The runtime must
// have been initialized.
func NewCore(iface host.Interface, opts ...Option) (*Core, error) {
	c := &Core{
		id:     uuid.New(),
		iface:  iface,
		logger: slog.Default(),
		calls:  make(chan func()),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("instance", c.id.String())

	prelude, paths, err := rt.register(c)
	if err != nil {
		return nil, err
	}
	paths = append(paths, c.extraPaths...)

	go c.loop()

	var installErr error
	if err := c.do(func() {
		c.vm = goja.New()
		c.env, installErr = hostapi.Install(c.vm, iface, &c.flags, prelude,
			hostapi.WithLogger(c.logger),
			hostapi.WithSearchPaths(paths),
			hostapi.WithDispatcher(c.dispatch),
		)
	}); err != nil {
		installErr = err
	}
	if installErr != nil {
		c.Close()
		return nil, errors.Wrap(installErr, "exaplot: create instance")
	}
	c.logger.Debug("instance created", "primary", c.primary)
	return c, nil
}

func (c *Core) loop() {
	defer close(c.done)
	for {
		select {
		case f := <-c.calls:
			f()
		case <-c.quit:
			return
		}
	}
}

// do runs f on the interpreter goroutine and waits for it. It must not be
// called from that goroutine.
func (c *Core) do(f func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		f()
	}
	select {
	case c.calls <- call:
	case <-c.quit:
		return ErrClosed
	}
	<-finished
	return nil
}

func (c *Core) dispatch(f func()) {
	if err := c.do(f); err != nil {
		c.logger.Warn("callback dropped", "err", err)
	}
}

// exec runs f on the interpreter goroutine, turning an escaped panic into a
// SYSTEM error.
func (c *Core) exec(f func() Error) (res Error) {
	err := c.do(func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("panic in interpreter", "panic", r)
				res = Error{
					Kind:      KindSystem,
					Msg:       fmt.Sprintf("internal error: %v", r),
					Traceback: string(debug.Stack()),
				}
			}
		}()
		res = f()
	})
	if err != nil {
		return Error{Kind: KindSystem, Msg: err.Error()}
	}
	return res
}

// ID returns the instance identity.
func (c *Core) ID() uuid.UUID { return c.id }

// Primary reports whether this was the first instance of the process.
func (c *Core) Primary() bool { return c.primary }

// Load reads, compiles and evaluates the script at path.
func (c *Core) Load(path string) (*ScriptModule, Error) {
	m := &ScriptModule{core: c, path: path}
	if err := m.load(); !err.Ok() {
		return nil, err
	}
	return m, None
}

// RequestStop asks the running script to stop. Scripts observe it through
// stop().
func (c *Core) RequestStop() {
	c.flags.Stop.Store(true)
}

// StopRequested reports whether a stop has been requested.
func (c *Core) StopRequested() bool { return c.flags.Stop.Load() }

// SetAppError latches the application-error flag. Every host call made by
// the script fails until the next run starts.
func (c *Core) SetAppError() {
	c.flags.AppError.Store(true)
}

// Running reports whether a script is running.
func (c *Core) Running() bool { return c.flags.Running.Load() }

// Terminate aborts the running script at its next instruction. The run
// reports INTERRUPT. Host calls in progress are not unwound, so this is a
// last resort for a script that ignores stop().
func (c *Core) Terminate() {
	if c.flags.Running.Load() && c.vm != nil {
		c.logger.Warn("terminating script")
		c.vm.Interrupt("terminated")
	}
}

// Close terminates any running script, stops the interpreter goroutine and
// unregisters the instance. It is safe to call more than once.
func (c *Core) Close() error {
	c.once.Do(func() {
		if c.vm != nil {
			c.vm.Interrupt("closed")
		}
		c.mu.Lock()
		close(c.quit)
		<-c.done
		c.mu.Unlock()
		rt.unregister(c)
		c.logger.Debug("instance closed")
	})
	return nil
}

// closed reports whether Close has been called.
func (c *Core) closed() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}
