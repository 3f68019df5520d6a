package app

import (
	"github.com/pkg/errors"

	"nickandperla.net/exaplot/internal/bridge"
	"nickandperla.net/exaplot/internal/datafile"
	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/present"
	"nickandperla.net/exaplot/internal/property"
)

// The host.Interface methods below run on the interpreter goroutine. Plot
// state changes synchronously; presentation and persistence are queued.

// plotUnlocked resolves a 1-based plot id (caller must hold mu).
func (a *App) plotUnlocked(id int) (*plot, error) {
	if id == 0 {
		return nil, bridge.IndexErrorf("invalid plot ID")
	}
	if id < 0 || id > len(a.plots) {
		return nil, bridge.IndexErrorf("plot ID out of range")
	}
	return a.plots[id-1], nil
}

// Init validates and applies the arrangement on the UI goroutine and waits
// for the answer.
func (a *App) Init(params []host.RunParam, plots []host.GridPoint) error {
	var err error
	if !a.call(func() {
		cols, rows, verr := grid.Validate(plots)
		if verr != nil {
			err = verr
			return
		}
		if !a.presenter.Arrange(cols, rows, plots) {
			err = errors.Wrap(grid.ErrInvalid, "arrangement rejected by presenter")
			return
		}
		g := grid.New()
		if err = g.SetArrangement(plots); err != nil {
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.grid = g
		a.plots = make([]*plot, len(plots))
		for i, p := range plots {
			a.plots[i] = newPlot(i+1, p)
		}
	}) {
		return errClosed
	}
	if err != nil {
		a.logger.Debug("arrangement rejected", "err", err)
		return err
	}
	a.logger.Debug("arrangement applied", "plots", len(plots), "params", len(params))
	return nil
}

// layout is the grid and plot set installed by the last successful init.
type layout struct {
	grid  *grid.Grid
	plots []*plot
}

func (a *App) layout() layout {
	a.mu.Lock()
	defer a.mu.Unlock()
	return layout{grid: a.grid, plots: a.plots}
}

// restoreLayout reinstates l when an init since it was taken replaced the
// arrangement, and shows it again.
func (a *App) restoreLayout(l layout) {
	a.call(func() {
		a.mu.Lock()
		changed := a.grid != l.grid
		a.grid, a.plots = l.grid, l.plots
		a.mu.Unlock()
		if !changed {
			return
		}
		a.presenter.Arrange(l.grid.Cols(), l.grid.Rows(), l.grid.Points())
		for _, p := range l.plots {
			if p.typ != host.TwoDimen {
				a.presenter.ShowPlot(p.id, p.typ)
			}
		}
	})
}

func (a *App) Msg(text string, append bool) error {
	if !a.post(func() { a.presenter.Message(text, append) }) {
		return errClosed
	}
	return nil
}

// Datafile records the script's datafile preferences. Unset fields keep
// their current value.
func (a *App) Datafile(cfg host.DatafileConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cfg.Enable != nil {
		a.datafile.enabled = *cfg.Enable
	}
	if cfg.Prompt != nil {
		a.datafile.prompt = *cfg.Prompt
	}
	switch {
	case cfg.PathFunc != nil:
		a.datafile.path, a.datafile.pathFunc = "", cfg.PathFunc
	case cfg.Path != "":
		a.datafile.path, a.datafile.pathFunc = cfg.Path, nil
	}
	return nil
}

// update applies fn to plot id under mu and, when it succeeds, queues the
// presentation update and the datafile write.
func (a *App) update(id int, u present.Update, write bool, fn func(p *plot) ([]datafile.Cell, error)) error {
	a.mu.Lock()
	p, err := a.plotUnlocked(id)
	var cells []datafile.Cell
	if err == nil {
		cells, err = fn(p)
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}

	u.Plot = id
	if !a.post(func() { a.presenter.Update(u) }) {
		return errClosed
	}
	if write && u.Kind != present.UpdateClear {
		op := dfOp{kind: opWrite, plot: id - 1, x: u.X, y: u.Y, cells: cells}
		if cells != nil {
			op.kind = opWriteCM
		}
		a.persist(op)
	}
	return nil
}

func (a *App) Plot2D(id int, x, y float64, write bool) error {
	u := present.Update{Kind: present.UpdatePoint, X: []float64{x}, Y: []float64{y}}
	return a.update(id, u, write, func(p *plot) ([]datafile.Cell, error) {
		p.points = append(p.points, [2]float64{x, y})
		return nil, nil
	})
}

func (a *App) Plot2DVec(id int, x, y []float64, write bool) error {
	if len(x) != len(y) {
		return bridge.ValueErrorf("plot() 'x' and 'y' arguments must be the same length")
	}
	u := present.Update{Kind: present.UpdateVec, X: x, Y: y}
	return a.update(id, u, write, func(p *plot) ([]datafile.Cell, error) {
		for i := range x {
			p.points = append(p.points, [2]float64{x[i], y[i]})
		}
		return nil, nil
	})
}

func (a *App) PlotCM(id, x, y int, value float64, write bool) error {
	u := present.Update{Kind: present.UpdateCell, Col: x, Row: y, Values: []float64{value}}
	return a.update(id, u, write, func(p *plot) ([]datafile.Cell, error) {
		sz := p.dataSize()
		if x < 0 || x >= sz.X {
			return nil, bridge.ValueErrorf("plot() 'col' argument out of bounds")
		}
		if y < 0 || y >= sz.Y {
			return nil, bridge.ValueErrorf("plot() 'row' argument out of bounds")
		}
		p.setCell(x, y, value)
		return []datafile.Cell{{X: x, Y: y, Value: value}}, nil
	})
}

func (a *App) PlotCMVec(id, y int, values []float64, write bool) error {
	u := present.Update{Kind: present.UpdateRow, Row: y, Values: values}
	return a.update(id, u, write, func(p *plot) ([]datafile.Cell, error) {
		sz := p.dataSize()
		if y < 0 || y >= sz.Y {
			return nil, bridge.ValueErrorf("plot() 'row' argument out of bounds")
		}
		if len(values) > sz.X {
			return nil, bridge.ValueErrorf("plot() 'values' argument contains too many values")
		}
		cells := make([]datafile.Cell, len(values))
		for x, v := range values {
			p.setCell(x, y, v)
			cells[x] = datafile.Cell{X: x, Y: y, Value: v}
		}
		return cells, nil
	})
}

func (a *App) PlotCMFrame(id int, frame [][]float64, write bool) error {
	u := present.Update{Kind: present.UpdateFrame, Frame: frame}
	return a.update(id, u, write, func(p *plot) ([]datafile.Cell, error) {
		sz := p.dataSize()
		if len(frame) > sz.Y {
			return nil, bridge.ValueErrorf("plot() 'frame' argument contains too many rows")
		}
		n := 0
		for y, row := range frame {
			if len(row) > sz.X {
				return nil, bridge.ValueErrorf("plot() frame[%d] contains too many values", y)
			}
			n += len(row)
		}
		cells := make([]datafile.Cell, 0, n)
		for y, row := range frame {
			for x, v := range row {
				p.setCell(x, y, v)
				cells = append(cells, datafile.Cell{X: x, Y: y, Value: v})
			}
		}
		return cells, nil
	})
}

// Clear drops a plot's data. Clearing an empty plot changes nothing.
func (a *App) Clear(id int) error {
	return a.update(id, present.Update{Kind: present.UpdateClear}, false, func(p *plot) ([]datafile.Cell, error) {
		p.clear()
		return nil, nil
	})
}

// SetPlotProperty changes one display property. Changing the color-map data
// size discards the plot's color-map data.
func (a *App) SetPlotProperty(id int, n property.Name, v property.Value) error {
	a.mu.Lock()
	p, err := a.plotUnlocked(id)
	if err == nil {
		before := p.dataSize()
		if err = p.attrs.Set(n, v); err == nil && p.dataSize() != before {
			p.resetCells()
		}
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.post(func() { a.presenter.Property(id, n, v) })
	return nil
}

func (a *App) GetPlotProperty(id int, n property.Name) (property.Value, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.plotUnlocked(id)
	if err != nil {
		return property.Value{}, err
	}
	return p.attrs.Get(n)
}

func (a *App) ShowPlot(id int, t host.PlotType) error {
	if t != host.TwoDimen && t != host.ColorMap {
		return bridge.SystemErrorf("invalid plot type %d", int(t))
	}
	a.mu.Lock()
	p, err := a.plotUnlocked(id)
	if err == nil {
		p.typ = t
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.post(func() { a.presenter.ShowPlot(id, t) })
	return nil
}

func (a *App) CurrentPlotType(id int) (host.PlotType, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.plotUnlocked(id)
	if err != nil {
		return 0, err
	}
	return p.typ, nil
}
