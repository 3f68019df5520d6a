package host

import (
	"sync"

	"nickandperla.net/exaplot/internal/bridge"
	"nickandperla.net/exaplot/internal/property"
)

// Call is one recorded Interface call.
type Call struct {
	Name  string
	ID    int
	Args  []any
	Write bool
}

// Mock is an Interface for testing. It records every call and keeps
// per-plot attributes and variants so property and dispatch paths can be
// exercised without an application.
type Mock struct {
	mu       sync.Mutex
	calls    []Call
	params   []RunParam
	plots    []GridPoint
	attrs    []property.Attributes
	types    []PlotType
	datafile []DatafileConfig

	// InitFunc, when set, decides whether an arrangement is accepted.
	InitFunc func(params []RunParam, plots []GridPoint) error
}

// NewMock creates a mock holding a single plot.
func NewMock() *Mock {
	m := &Mock{}
	m.resize(1)
	return m
}

func (m *Mock) resize(n int) {
	m.attrs = make([]property.Attributes, n)
	m.types = make([]PlotType, n)
	for i := range m.attrs {
		m.attrs[i] = property.Defaults()
	}
}

func (m *Mock) record(c Call) {
	m.calls = append(m.calls, c)
}

func (m *Mock) index(id int) (int, error) {
	if id == 0 {
		return 0, bridge.IndexErrorf("invalid plot ID")
	}
	if id < 0 || id > len(m.attrs) {
		return 0, bridge.IndexErrorf("plot ID out of range")
	}
	return id - 1, nil
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Params returns the parameters declared by the last Init.
func (m *Mock) Params() []RunParam {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunParam(nil), m.params...)
}

// Arrangement returns the plots declared by the last Init.
func (m *Mock) Arrangement() []GridPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GridPoint(nil), m.plots...)
}

// Datafiles returns every datafile configuration received.
func (m *Mock) Datafiles() []DatafileConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DatafileConfig(nil), m.datafile...)
}

func (m *Mock) Init(params []RunParam, plots []GridPoint) error {
	if m.InitFunc != nil {
		if err := m.InitFunc(params, plots); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append([]RunParam(nil), params...)
	m.plots = append([]GridPoint(nil), plots...)
	m.resize(len(plots))
	m.record(Call{Name: "init", Args: []any{params, plots}})
	return nil
}

func (m *Mock) Msg(text string, append bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Name: "msg", Args: []any{text, append}})
	return nil
}

func (m *Mock) Datafile(cfg DatafileConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datafile = append(m.datafile, cfg)
	m.record(Call{Name: "datafile", Args: []any{cfg}})
	return nil
}

func (m *Mock) plotCall(name string, id int, write bool, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.index(id); err != nil {
		return err
	}
	m.record(Call{Name: name, ID: id, Args: args, Write: write})
	return nil
}

func (m *Mock) Plot2D(id int, x, y float64, write bool) error {
	return m.plotCall("plot2D", id, write, x, y)
}

func (m *Mock) Plot2DVec(id int, x, y []float64, write bool) error {
	return m.plotCall("plot2DVec", id, write, x, y)
}

func (m *Mock) PlotCM(id, x, y int, value float64, write bool) error {
	return m.plotCall("plotCM", id, write, x, y, value)
}

func (m *Mock) PlotCMVec(id, y int, values []float64, write bool) error {
	return m.plotCall("plotCMVec", id, write, y, values)
}

func (m *Mock) PlotCMFrame(id int, frame [][]float64, write bool) error {
	return m.plotCall("plotCMFrame", id, write, frame)
}

func (m *Mock) Clear(id int) error {
	return m.plotCall("clear", id, false)
}

func (m *Mock) SetPlotProperty(id int, p property.Name, v property.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return err
	}
	if err := m.attrs[i].Set(p, v); err != nil {
		return err
	}
	m.record(Call{Name: "setPlotProperty", ID: id, Args: []any{p, v}})
	return nil
}

func (m *Mock) GetPlotProperty(id int, p property.Name) (property.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return property.Value{}, err
	}
	return m.attrs[i].Get(p)
}

func (m *Mock) ShowPlot(id int, t PlotType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return err
	}
	if t != TwoDimen && t != ColorMap {
		return bridge.SystemErrorf("invalid plot type: %d", t)
	}
	m.types[i] = t
	m.record(Call{Name: "showPlot", ID: id, Args: []any{t}})
	return nil
}

func (m *Mock) CurrentPlotType(id int) (PlotType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.index(id)
	if err != nil {
		return 0, err
	}
	return m.types[i], nil
}

var _ Interface = (*Mock)(nil)
