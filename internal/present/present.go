// Package present defines what the application shows: the plot layout, plot
// updates, status messages and run outcomes.
package present

import (
	"time"

	"nickandperla.net/exaplot/internal/datafile"
	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/host"
	"nickandperla.net/exaplot/internal/property"
)

// UpdateKind names the shape of a plot update.
type UpdateKind int

const (
	UpdatePoint UpdateKind = iota // one 2D point
	UpdateVec                     // several 2D points
	UpdateCell                    // one color-map cell
	UpdateRow                     // one color-map row
	UpdateFrame                   // a whole color-map frame
	UpdateClear
)

var updateKinds = []string{"point", "vec", "cell", "row", "frame", "clear"}

func (k UpdateKind) String() string {
	if k < 0 || int(k) >= len(updateKinds) {
		return "unknown"
	}
	return updateKinds[k]
}

// Update is one change to a plot's data. Only the fields of its Kind are set.
type Update struct {
	Plot int
	Kind UpdateKind

	X, Y []float64 // UpdatePoint, UpdateVec

	Col, Row int       // UpdateCell (Col, Row), UpdateRow (Row)
	Values   []float64 // UpdateCell (one value), UpdateRow
	Frame    [][]float64
}

// Points returns the number of 2D points or color-map cells the update
// carries.
func (u Update) Points() int {
	switch u.Kind {
	case UpdatePoint, UpdateVec:
		return len(u.X)
	case UpdateCell, UpdateRow:
		return len(u.Values)
	case UpdateFrame:
		n := 0
		for _, r := range u.Frame {
			n += len(r)
		}
		return n
	}
	return 0
}

// Report is a titled failure shown to the user.
type Report struct {
	Title     string
	Message   string
	Traceback string
}

// Outcome is the final status of a run.
type Outcome struct {
	Status    string // "Completed", "Interrupted" or a failure title
	Failed    bool
	Message   string
	Traceback string
	Elapsed   time.Duration
	Data      *datafile.Summary // nil when nothing was persisted
}

// Presenter receives presentation notifications. Calls arrive on a single
// goroutine in the order they were issued.
type Presenter interface {
	// Arrange shows a validated arrangement and reports whether the
	// presentation can hold it.
	Arrange(cols, rows int, plots []grid.Point) bool
	Update(u Update)
	Property(plot int, n property.Name, v property.Value)
	ShowPlot(plot int, t host.PlotType)
	Message(text string, append bool)
	State(s string)
	Report(r Report)
	Finished(o Outcome)
}
