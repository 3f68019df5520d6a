// Package datafile persists plot data written during a run.
package datafile

import "github.com/pkg/errors"

// ErrNotOpen is returned for writes to a sink with no open run.
var ErrNotOpen = errors.New("datafile is not open")

// Cell is one color-map value.
type Cell struct {
	X, Y  int
	Value float64
}

// Summary describes what a sink recorded for the current or last run.
type Summary struct {
	Path   string
	Run    int64
	Points int64 // 2D points
	Cells  int64 // color-map cells
	Bytes  int64 // size on disk, when known
}

// Sink is the interface for run data persistence. A sink is opened once per
// run with the number of plots and closed when the run completes. Plot
// indices are 0-based.
type Sink interface {
	Open(path string, plots int) error
	Write2D(plot int, x, y []float64) error
	WriteCM(plot int, cells []Cell) error
	// Flush forces buffered writes out.
	Flush() error
	Close() error
	Summary() Summary
}

func checkPlot(plot, plots int) error {
	if plot < 0 || plot >= plots {
		return errors.Errorf("datafile: plot index %d out of range [0, %d)", plot, plots)
	}
	return nil
}
