// Package host defines the capability set an embedding application provides
// to scripts.
package host

import (
	"nickandperla.net/exaplot/internal/grid"
	"nickandperla.net/exaplot/internal/property"
)

// ParamType is the declared type of a run parameter.
type ParamType int

const (
	ParamString ParamType = iota
	ParamInt
	ParamFloat
)

func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	default:
		return "str"
	}
}

// RunParam is one named script input. Value is string-encoded; an empty
// Value reaches the script as null.
type RunParam struct {
	Identifier string
	Type       ParamType
	Value      string
	Display    string
}

// GridPoint is one plot rectangle of an arrangement.
type GridPoint = grid.Point

// PlotType is the active variant of a plot.
type PlotType int

const (
	TwoDimen PlotType = 0
	ColorMap PlotType = 1
)

func (t PlotType) String() string {
	switch t {
	case TwoDimen:
		return "two_dimen"
	case ColorMap:
		return "color_map"
	default:
		return "invalid"
	}
}

// DatafileConfig is what a script asked for with datafile(). Nil pointers
// leave the application's setting unchanged.
type DatafileConfig struct {
	Enable *bool
	Prompt *bool
	// Path is a fixed destination. PathFunc, when set, is called at run start
	// instead and may be nil.
	Path     string
	PathFunc func() (string, error)
}

// Interface is implemented by the embedding application. Methods are called
// on the interpreter's goroutine while a script is loading or running.
// Returned errors are raised in the script; use the bridge error
// constructors to pick the script-visible class.
type Interface interface {
	// Init declares run parameters and applies a plot arrangement. It must not
	// return until the arrangement has been validated.
	Init(params []RunParam, plots []GridPoint) error
	Msg(text string, append bool) error
	Datafile(cfg DatafileConfig) error

	Plot2D(id int, x, y float64, write bool) error
	Plot2DVec(id int, x, y []float64, write bool) error
	PlotCM(id, x, y int, value float64, write bool) error
	PlotCMVec(id, y int, values []float64, write bool) error
	PlotCMFrame(id int, frame [][]float64, write bool) error
	Clear(id int) error

	SetPlotProperty(id int, p property.Name, v property.Value) error
	GetPlotProperty(id int, p property.Name) (property.Value, error)
	ShowPlot(id int, t PlotType) error
	CurrentPlotType(id int) (PlotType, error)
}
