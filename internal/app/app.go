// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package app is the embedding application of one document: it implements
// the host interface for its interpreter instance, keeps plot state, drives
// presentation and persistence, and sequences runs.
package app

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/datafile"
	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/present"
	"nickandperla.net/exaplot/pkg/exaplot"
)

// errClosed is returned by host calls made after Close.
var errClosed = errors.New("application is closed")

// Prompter asks the user where to write run data. Returning an empty path
// runs without a datafile.
type Prompter interface {
	PromptPath(def string) (string, error)
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithPresenter sets the presentation sink. The default records calls and
// shows nothing.
func WithPresenter(p present.Presenter) Option {
	return func(a *App) {
		a.presenter = p
	}
}

// WithSink sets the datafile sink. The default keeps data in memory.
func WithSink(s datafile.Sink) Option {
	return func(a *App) {
		a.sink = s
	}
}

// WithPrompter enables prompting for datafile paths.
func WithPrompter(p Prompter) Option {
	return func(a *App) {
		a.prompter = p
	}
}

// WithDatafile sets whether runs are persisted by default and the default
// destination. pattern may contain {timestamp}.
func WithDatafile(enabled bool, pattern string) Option {
	return func(a *App) {
		a.defaults = datafileSettings{enabled: enabled, path: pattern}
	}
}

// WithCoreOptions passes options to the interpreter instance.
func WithCoreOptions(opts ...exaplot.Option) Option {
	return func(a *App) {
		a.coreOpts = append(a.coreOpts, opts...)
	}
}

// datafileSettings is the effective datafile configuration.
type datafileSettings struct {
	enabled  bool
	prompt   bool
	path     string
	pathFunc func() (string, error)
}

// App implements host.Interface for one interpreter instance.
type App struct {
	logger    *slog.Logger
	presenter present.Presenter
	sink      datafile.Sink
	prompter  Prompter
	coreOpts  []exaplot.Option
	now       func() time.Time

	core *exaplot.Core

	ui        chan func()
	dfc       chan dfOp
	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	state     atomic.Int32
	recording atomic.Bool

	// runMu serializes Load and Run.
	runMu  sync.Mutex
	script *exaplot.ScriptModule

	// mu guards the plot descriptors and datafile settings.
	mu       sync.Mutex
	grid     *grid.Grid
	plots    []*plot
	datafile datafileSettings
	defaults datafileSettings
}

var _ host.Interface = (*App)(nil)

// New creates an application with its own interpreter instance. The
// exaplot runtime must be initialized.
func New(opts ...Option) (*App, error) {
	a := &App{
		logger:    slog.Default(),
		presenter: present.NewRecorder(),
		sink:      datafile.NewMemory(),
		now:       time.Now,
		ui:        make(chan func(), 256),
		dfc:       make(chan dfOp, 256),
		quit:      make(chan struct{}),
		grid:      grid.New(),
	}
	a.plots = []*plot{newPlot(1, grid.Point{})}
	for _, opt := range opts {
		opt(a)
	}
	a.datafile = a.defaults

	a.wg.Add(2)
	go a.uiLoop()
	go a.datafileLoop()

	core, err := exaplot.NewCore(a, append([]exaplot.Option{exaplot.WithLogger(a.logger)}, a.coreOpts...)...)
	if err != nil {
		close(a.quit)
		a.wg.Wait()
		return nil, err
	}
	a.core = core
	a.logger = a.logger.With("instance", core.ID().String())
	return a, nil
}

// Core returns the interpreter instance.
func (a *App) Core() *exaplot.Core { return a.core }

func (a *App) uiLoop() {
	defer a.wg.Done()
	for {
		select {
		case f := <-a.ui:
			f()
		case <-a.quit:
			return
		}
	}
}

// post queues f on the UI goroutine. Calls run in the order posted.
func (a *App) post(f func()) bool {
	select {
	case a.ui <- f:
		return true
	case <-a.quit:
		return false
	}
}

// call runs f on the UI goroutine and waits for it.
func (a *App) call(f func()) bool {
	done := make(chan struct{})
	if !a.post(func() {
		defer close(done)
		f()
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-a.quit:
		return false
	}
}

// Plot returns a snapshot of the plot with the 1-based id.
func (a *App) Plot(id int) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.plotUnlocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	return p.snapshot(), nil
}

// Plots returns the number of plots in the current arrangement.
func (a *App) Plots() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.plots)
}

// PlotAt returns the id of the plot covering grid cell (col, row), or 0.
func (a *App) PlotAt(col, row int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grid.ID(col, row) + 1
}

// Close terminates any running script, waits for the run to wind down and
// stops the application's goroutines.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.core.Close()
		a.runMu.Lock()
		close(a.quit)
		a.wg.Wait()
		a.runMu.Unlock()
		a.logger.Debug("application closed")
	})
	return nil
}
