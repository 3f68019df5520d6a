// Package property defines the closed set of plot display properties.
package property

import (
	"sort"
	"strconv"
)

// Name identifies one plot property.
type Name int

const (
	Title Name = iota
	XAxis
	YAxis
	MinSizeW
	MinSizeH
	TwoDimenXRangeMin
	TwoDimenXRangeMax
	TwoDimenYRangeMin
	TwoDimenYRangeMax
	TwoDimenLineType
	TwoDimenLineColor
	TwoDimenLineStyle
	TwoDimenPointsShape
	TwoDimenPointsColor
	TwoDimenPointsSize
	TwoDimenAutorescaleAxes
	ColorMapXRangeMin
	ColorMapXRangeMax
	ColorMapYRangeMin
	ColorMapYRangeMax
	ColorMapZRangeMin
	ColorMapZRangeMax
	ColorMapDataSizeX
	ColorMapDataSizeY
	ColorMapColorMin
	ColorMapColorMax
	ColorMapAutorescaleAxes
	ColorMapAutorescaleData

	numNames
)

// Kind is the value type a property accepts.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindReal
	KindBool
)

// TypeName is the name used in type error messages.
func (k Kind) TypeName() string {
	switch k {
	case KindString:
		return "str"
	case KindInt:
		return "int"
	case KindReal:
		return "numbers.Real"
	default:
		return "bool"
	}
}

type nameInfo struct {
	name string
	kind Kind
}

var names = [numNames]nameInfo{
	Title:                   {"title", KindString},
	XAxis:                   {"x_axis", KindString},
	YAxis:                   {"y_axis", KindString},
	MinSizeW:                {"min_size.w", KindInt},
	MinSizeH:                {"min_size.h", KindInt},
	TwoDimenXRangeMin:       {"two_dimen.x_range.min", KindReal},
	TwoDimenXRangeMax:       {"two_dimen.x_range.max", KindReal},
	TwoDimenYRangeMin:       {"two_dimen.y_range.min", KindReal},
	TwoDimenYRangeMax:       {"two_dimen.y_range.max", KindReal},
	TwoDimenLineType:        {"two_dimen.line.type", KindString},
	TwoDimenLineColor:       {"two_dimen.line.color", KindString},
	TwoDimenLineStyle:       {"two_dimen.line.style", KindString},
	TwoDimenPointsShape:     {"two_dimen.points.shape", KindString},
	TwoDimenPointsColor:     {"two_dimen.points.color", KindString},
	TwoDimenPointsSize:      {"two_dimen.points.size", KindReal},
	TwoDimenAutorescaleAxes: {"two_dimen.autorescale_axes", KindBool},
	ColorMapXRangeMin:       {"color_map.x_range.min", KindReal},
	ColorMapXRangeMax:       {"color_map.x_range.max", KindReal},
	ColorMapYRangeMin:       {"color_map.y_range.min", KindReal},
	ColorMapYRangeMax:       {"color_map.y_range.max", KindReal},
	ColorMapZRangeMin:       {"color_map.z_range.min", KindReal},
	ColorMapZRangeMax:       {"color_map.z_range.max", KindReal},
	ColorMapDataSizeX:       {"color_map.data_size.x", KindInt},
	ColorMapDataSizeY:       {"color_map.data_size.y", KindInt},
	ColorMapColorMin:        {"color_map.color.min", KindString},
	ColorMapColorMax:        {"color_map.color.max", KindString},
	ColorMapAutorescaleAxes: {"color_map.autorescale_axes", KindBool},
	ColorMapAutorescaleData: {"color_map.autorescale_data", KindBool},
}

var byName = func() map[string]Name {
	m := make(map[string]Name, numNames)
	for n := Name(0); n < numNames; n++ {
		m[names[n].name] = n
	}
	return m
}()

// Lookup resolves a property name. Names are case-sensitive.
func Lookup(s string) (Name, bool) {
	n, ok := byName[s]
	return n, ok
}

// Names returns every property name in sorted order.
func Names() []string {
	out := make([]string, 0, numNames)
	for n := Name(0); n < numNames; n++ {
		out = append(out, names[n].name)
	}
	sort.Strings(out)
	return out
}

func (n Name) String() string {
	if n < 0 || n >= numNames {
		return "invalid"
	}
	return names[n].name
}

// Kind returns the value type the property accepts.
func (n Name) Kind() Kind { return names[n].kind }

// Value is a tagged property value.
type Value struct {
	kind Kind
	s    string
	i    int
	f    float64
	b    bool
}

func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(i int) Value { return Value{kind: KindInt, i: i} }
func Real(f float64) Value { return Value{kind: KindReal, f: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) Str() string { return v.s }
func (v Value) Int() int { return v.i }
func (v Value) Real() float64 { return v.f }
func (v Value) Bool() bool { return v.b }
func (v Value) Equal(o Value) bool { return v == o }

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.Itoa(v.i)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return strconv.FormatBool(v.b)
	}
}
