package datafile

import (
	"sync"

	"github.com/pkg/errors"
)

// Memory is an in-memory sink for testing.
type Memory struct {
	mu       sync.RWMutex
	open     bool
	path     string
	plots    int
	run      int64
	points   map[int][][2]float64
	cells    map[int][]Cell
	writeErr error
	opened   []string
	closes   int
}

// NewMemory creates a new in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		points: make(map[int][][2]float64),
		cells:  make(map[int][]Cell),
	}
}

// SetWriteError makes every later write fail with err, or succeed again
// when err is nil.
func (m *Memory) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Open starts a new run, discarding the data of the previous one.
func (m *Memory) Open(path string, plots int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return errors.New("datafile is already open")
	}
	m.open = true
	m.path = path
	m.plots = plots
	m.run++
	m.points = make(map[int][][2]float64)
	m.cells = make(map[int][]Cell)
	m.opened = append(m.opened, path)
	return nil
}

// Write2D records points.
func (m *Memory) Write2D(plot int, x, y []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(plot); err != nil {
		return err
	}
	for i := range x {
		m.points[plot] = append(m.points[plot], [2]float64{x[i], y[i]})
	}
	return nil
}

// WriteCM records color-map cells.
func (m *Memory) WriteCM(plot int, cells []Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writable(plot); err != nil {
		return err
	}
	m.cells[plot] = append(m.cells[plot], cells...)
	return nil
}

func (m *Memory) writable(plot int) error {
	if !m.open {
		return ErrNotOpen
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	return checkPlot(plot, m.plots)
}

// Flush is a no-op for the memory sink.
func (m *Memory) Flush() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return ErrNotOpen
	}
	return nil
}

// Close ends the run. The recorded data stays readable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	m.open = false
	m.closes++
	return nil
}

// Summary reports the counts of the current or last run.
func (m *Memory) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Summary{Path: m.path, Run: m.run}
	for _, p := range m.points {
		s.Points += int64(len(p))
	}
	for _, c := range m.cells {
		s.Cells += int64(len(c))
	}
	return s
}

// Points returns the points written to plot during the last run.
func (m *Memory) Points(plot int) [][2]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][2]float64(nil), m.points[plot]...)
}

// Cells returns the cells written to plot during the last run.
func (m *Memory) Cells(plot int) []Cell {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Cell(nil), m.cells[plot]...)
}

// Opened returns the paths of every run opened so far.
func (m *Memory) Opened() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.opened...)
}

// Closes returns how many runs were closed.
func (m *Memory) Closes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closes
}

// IsOpen reports whether a run is open.
func (m *Memory) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}
