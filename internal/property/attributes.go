package property

import (
	"image/color"
	"math"

	"golang.org/x/image/colornames"

	"nickandperla.net/exaplot/internal/bridge"
)

// Range is an axis interval.
type Range struct {
	Min, Max float64
}

// Size is a pair of positive dimensions.
type Size struct {
	X, Y int
}

// TwoDimen holds the 2D series display settings.
type TwoDimen struct {
	XRange, YRange Range
	Line           struct {
		Type  LineType
		Color color.RGBA
		Style LineStyle
	}
	Points struct {
		Shape Shape
		Color color.RGBA
		Size  float64
	}
	AutorescaleAxes bool
}

// ColorMap holds the color-map grid display settings.
type ColorMap struct {
	XRange, YRange, ZRange Range
	DataSize               Size
	Color                  struct {
		Min, Max color.RGBA
	}
	AutorescaleAxes bool
	AutorescaleData bool
}

// Attributes is the property bag of one plot.
type Attributes struct {
	Title    string
	XAxis    string
	YAxis    string
	MinSize  Size
	TwoDimen TwoDimen
	ColorMap ColorMap
}

// Defaults returns the attributes a freshly arranged plot starts with.
func Defaults() Attributes {
	a := Attributes{MinSize: Size{X: 400, Y: 300}}
	a.TwoDimen.XRange = Range{-10, 10}
	a.TwoDimen.YRange = Range{-10, 10}
	a.TwoDimen.Line.Type = LineLine
	a.TwoDimen.Line.Color = colornames.Blue
	a.TwoDimen.Line.Style = StyleSolid
	a.TwoDimen.Points.Shape = ShapeNone
	a.TwoDimen.Points.Color = colornames.Blue
	a.TwoDimen.Points.Size = 6
	a.ColorMap.XRange = Range{-10, 10}
	a.ColorMap.YRange = Range{-10, 10}
	a.ColorMap.ZRange = Range{0, 1}
	a.ColorMap.DataSize = Size{X: 100, Y: 100}
	a.ColorMap.Color.Min = colornames.Black
	a.ColorMap.Color.Max = colornames.White
	return a
}

// Convert checks a script value against the type a property accepts.
func Convert(n Name, v bridge.Value) (Value, error) {
	if n < 0 || n >= numNames {
		return Value{}, bridge.KeyErrorf("invalid property '%s'", n)
	}
	switch n.Kind() {
	case KindString:
		if v.Kind() != bridge.KindString {
			return Value{}, bridge.TypeErrorf("%s must be type 'str'", n)
		}
		return String(v.Raw().String()), nil
	case KindInt:
		if !v.IsIntegral() {
			return Value{}, bridge.TypeErrorf("%s must be type 'int'", n)
		}
		i := v.Raw().ToInteger()
		if i <= 0 {
			return Value{}, bridge.ValueErrorf("%s must be greater than zero", n)
		}
		if i > math.MaxInt32 {
			return Value{}, bridge.OverflowErrorf("Value must not exceed %d", math.MaxInt32)
		}
		return Int(int(i)), nil
	case KindReal:
		if !v.IsNumber() {
			return Value{}, bridge.TypeErrorf("%s must be type 'numbers.Real'", n)
		}
		f := v.Raw().ToFloat()
		if n == TwoDimenPointsSize && f < 0 {
			return Value{}, bridge.ValueErrorf("%s must be positive", n)
		}
		return Real(f), nil
	default:
		if v.Kind() != bridge.KindBool {
			return Value{}, bridge.TypeErrorf("%s must be type 'bool'", n)
		}
		return Bool(v.Raw().ToBoolean()), nil
	}
}

func parseColorValue(v Value) (color.RGBA, error) {
	c, ok := ParseColor(v.s)
	if !ok {
		return c, bridge.ValueErrorf("invalid color: %s", v.s)
	}
	return c, nil
}

// Set validates and stores one property. A failed Set leaves a unchanged.
func (a *Attributes) Set(n Name, v Value) error {
	if n < 0 || n >= numNames {
		return bridge.KeyErrorf("invalid property '%s'", n)
	}
	if v.kind != n.Kind() {
		return bridge.TypeErrorf("%s must be type '%s'", n, n.Kind().TypeName())
	}
	var err error
	switch n {
	case Title:
		a.Title = v.s
	case XAxis:
		a.XAxis = v.s
	case YAxis:
		a.YAxis = v.s
	case MinSizeW:
		a.MinSize.X = v.i
	case MinSizeH:
		a.MinSize.Y = v.i
	case TwoDimenXRangeMin:
		a.TwoDimen.XRange.Min = v.f
	case TwoDimenXRangeMax:
		a.TwoDimen.XRange.Max = v.f
	case TwoDimenYRangeMin:
		a.TwoDimen.YRange.Min = v.f
	case TwoDimenYRangeMax:
		a.TwoDimen.YRange.Max = v.f
	case TwoDimenLineType:
		t, ok := ParseLineType(v.s)
		if !ok {
			return bridge.ValueErrorf("invalid line type: %s", v.s)
		}
		a.TwoDimen.Line.Type = t
	case TwoDimenLineColor:
		var c color.RGBA
		if c, err = parseColorValue(v); err == nil {
			a.TwoDimen.Line.Color = c
		}
	case TwoDimenLineStyle:
		s, ok := ParseLineStyle(v.s)
		if !ok {
			return bridge.ValueErrorf("invalid line style: %s", v.s)
		}
		a.TwoDimen.Line.Style = s
	case TwoDimenPointsShape:
		s, ok := ParseShape(v.s)
		if !ok {
			return bridge.ValueErrorf("invalid shape: %s", v.s)
		}
		a.TwoDimen.Points.Shape = s
	case TwoDimenPointsColor:
		var c color.RGBA
		if c, err = parseColorValue(v); err == nil {
			a.TwoDimen.Points.Color = c
		}
	case TwoDimenPointsSize:
		a.TwoDimen.Points.Size = v.f
	case TwoDimenAutorescaleAxes:
		a.TwoDimen.AutorescaleAxes = v.b
	case ColorMapXRangeMin:
		a.ColorMap.XRange.Min = v.f
	case ColorMapXRangeMax:
		a.ColorMap.XRange.Max = v.f
	case ColorMapYRangeMin:
		a.ColorMap.YRange.Min = v.f
	case ColorMapYRangeMax:
		a.ColorMap.YRange.Max = v.f
	case ColorMapZRangeMin:
		a.ColorMap.ZRange.Min = v.f
	case ColorMapZRangeMax:
		a.ColorMap.ZRange.Max = v.f
	case ColorMapDataSizeX:
		a.ColorMap.DataSize.X = v.i
	case ColorMapDataSizeY:
		a.ColorMap.DataSize.Y = v.i
	case ColorMapColorMin:
		var c color.RGBA
		if c, err = parseColorValue(v); err == nil {
			a.ColorMap.Color.Min = c
		}
	case ColorMapColorMax:
		var c color.RGBA
		if c, err = parseColorValue(v); err == nil {
			a.ColorMap.Color.Max = c
		}
	case ColorMapAutorescaleAxes:
		a.ColorMap.AutorescaleAxes = v.b
	case ColorMapAutorescaleData:
		a.ColorMap.AutorescaleData = v.b
	default:
		return bridge.KeyErrorf("invalid property '%s'", n)
	}
	return err
}

// Get reads one property. Enumerations read back in canonical form and
// colors as #rrggbb.
func (a *Attributes) Get(n Name) (Value, error) {
	switch n {
	case Title:
		return String(a.Title), nil
	case XAxis:
		return String(a.XAxis), nil
	case YAxis:
		return String(a.YAxis), nil
	case MinSizeW:
		return Int(a.MinSize.X), nil
	case MinSizeH:
		return Int(a.MinSize.Y), nil
	case TwoDimenXRangeMin:
		return Real(a.TwoDimen.XRange.Min), nil
	case TwoDimenXRangeMax:
		return Real(a.TwoDimen.XRange.Max), nil
	case TwoDimenYRangeMin:
		return Real(a.TwoDimen.YRange.Min), nil
	case TwoDimenYRangeMax:
		return Real(a.TwoDimen.YRange.Max), nil
	case TwoDimenLineType:
		return String(a.TwoDimen.Line.Type.String()), nil
	case TwoDimenLineColor:
		return String(FormatColor(a.TwoDimen.Line.Color)), nil
	case TwoDimenLineStyle:
		return String(a.TwoDimen.Line.Style.String()), nil
	case TwoDimenPointsShape:
		return String(a.TwoDimen.Points.Shape.String()), nil
	case TwoDimenPointsColor:
		return String(FormatColor(a.TwoDimen.Points.Color)), nil
	case TwoDimenPointsSize:
		return Real(a.TwoDimen.Points.Size), nil
	case TwoDimenAutorescaleAxes:
		return Bool(a.TwoDimen.AutorescaleAxes), nil
	case ColorMapXRangeMin:
		return Real(a.ColorMap.XRange.Min), nil
	case ColorMapXRangeMax:
		return Real(a.ColorMap.XRange.Max), nil
	case ColorMapYRangeMin:
		return Real(a.ColorMap.YRange.Min), nil
	case ColorMapYRangeMax:
		return Real(a.ColorMap.YRange.Max), nil
	case ColorMapZRangeMin:
		return Real(a.ColorMap.ZRange.Min), nil
	case ColorMapZRangeMax:
		return Real(a.ColorMap.ZRange.Max), nil
	case ColorMapDataSizeX:
		return Int(a.ColorMap.DataSize.X), nil
	case ColorMapDataSizeY:
		return Int(a.ColorMap.DataSize.Y), nil
	case ColorMapColorMin:
		return String(FormatColor(a.ColorMap.Color.Min)), nil
	case ColorMapColorMax:
		return String(FormatColor(a.ColorMap.Color.Max)), nil
	case ColorMapAutorescaleAxes:
		return Bool(a.ColorMap.AutorescaleAxes), nil
	case ColorMapAutorescaleData:
		return Bool(a.ColorMap.AutorescaleData), nil
	}
	return Value{}, bridge.KeyErrorf("invalid property '%s'", n)
}
