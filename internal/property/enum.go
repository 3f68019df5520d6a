package property

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// LineType is how consecutive 2D points are joined.
type LineType int

const (
	LineNone LineType = iota
	LineLine
	LineStepLeft
	LineStepRight
	LineStepCenter
	LineImpulse
)

var lineTypes = []string{"none", "line", "step-left", "step-right", "step-center", "impulse"}

func (t LineType) String() string { return lineTypes[t] }

// LineStyle is the pen used for 2D lines.
type LineStyle int

const (
	StyleSolid LineStyle = iota
	StyleDashed
	StyleDotted
	StyleDashDotted
	StyleDashDoubleDotted
)

var lineStyles = []string{"solid", "dashed", "dotted", "dash-dotted", "dash-double-dotted"}

func (s LineStyle) String() string { return lineStyles[s] }

// Shape is the marker drawn at each 2D point.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeDot
	ShapeCross
	ShapePlus
	ShapeCircle
	ShapeDisc
	ShapeSquare
	ShapeDiamond
	ShapeStar
	ShapeTriangle
	ShapeTriangleInverted
	ShapeCrossSquare
	ShapePlusSquare
	ShapeCrossCircle
	ShapePlusCircle
	ShapePeace
)

var shapes = []string{
	"none", "dot", "cross", "plus", "circle", "disc", "square", "diamond", "star",
	"triangle", "triangle-inverted", "cross-square", "plus-square", "cross-circle",
	"plus-circle", "peace",
}

func (s Shape) String() string { return shapes[s] }

func matchEnum(vocab []string, s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, v := range vocab {
		if v == s {
			return i, true
		}
	}
	return 0, false
}

// ParseLineType matches a line type case-insensitively.
func ParseLineType(s string) (LineType, bool) {
	i, ok := matchEnum(lineTypes, s)
	return LineType(i), ok
}

// ParseLineStyle matches a line style case-insensitively.
func ParseLineStyle(s string) (LineStyle, bool) {
	i, ok := matchEnum(lineStyles, s)
	return LineStyle(i), ok
}

// ParseShape matches a point shape case-insensitively.
func ParseShape(s string) (Shape, bool) {
	i, ok := matchEnum(shapes, s)
	return Shape(i), ok
}

// ParseColor accepts an SVG color keyword or #rgb / #rrggbb.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		switch len(hex) {
		case 3:
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		case 6:
		default:
			return color.RGBA{}, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, false
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
	}
	c, ok := colornames.Map[strings.ToLower(s)]
	return c, ok
}

// FormatColor renders a color as #rrggbb.
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
