package render

import (
	"image"
	"image/color"
	"unicode/utf8"
)

type Op int

const (
	OpFill Op = iota + 1
	OpText
	OpLine
	OpImage
)

func (o Op) String() string {
	switch o {
	case OpFill:
		return "fill"
	case OpText:
		return "text"
	case OpLine:
		return "line"
	case OpImage:
		return "image"
	default:
		return "unknown"
	}
}

// Command is one recorded primitive. Only the fields relevant to Op are set.
type Command struct {
	Op    Op
	Color color.Color
	Text  string
	X, Y  float64
	X1    float64
	Y1    float64
	Style TextStyle
	Line  LineStyle
	Image image.Image
	Rect  image.Rectangle
	Scale ScaleMode
}

// RecordingDrawer records primitives instead of drawing them. Text is
// measured as a monospace font whose glyphs are half the text size wide.
type RecordingDrawer struct {
	Width, Height int
	Commands      []Command
}

func NewRecordingDrawer(width, height int) *RecordingDrawer {
	return &RecordingDrawer{Width: width, Height: height}
}

func (d *RecordingDrawer) Size() (int, int) { return d.Width, d.Height }

func (d *RecordingDrawer) FillBackground(c color.Color) {
	d.Commands = append(d.Commands, Command{Op: OpFill, Color: c, Rect: image.Rect(0, 0, d.Width, d.Height)})
}

func (d *RecordingDrawer) MeasureText(text string, style TextStyle) TextMetrics {
	size := style.Size
	if size <= 0 {
		size = defaultTextSize
	}
	return TextMetrics{
		Width:   float64(utf8.RuneCountInString(text)) * size / 2,
		Ascent:  size * 0.8,
		Descent: size * 0.2,
	}
}

func (d *RecordingDrawer) DrawText(text string, x, y float64, style TextStyle) TextMetrics {
	d.Commands = append(d.Commands, Command{Op: OpText, Color: style.Color, Text: text, X: x, Y: y, Style: style})
	return d.MeasureText(text, style)
}

func (d *RecordingDrawer) DrawLine(x0, y0, x1, y1 float64, style LineStyle) {
	d.Commands = append(d.Commands, Command{Op: OpLine, Color: style.Color, X: x0, Y: y0, X1: x1, Y1: y1, Line: style})
}

func (d *RecordingDrawer) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode) {
	d.Commands = append(d.Commands, Command{Op: OpImage, Image: img, Rect: rect, Scale: mode})
}

// Ops returns the recorded primitive kinds in order.
func (d *RecordingDrawer) Ops() []Op {
	ops := make([]Op, len(d.Commands))
	for i, c := range d.Commands {
		ops[i] = c.Op
	}
	return ops
}

func (d *RecordingDrawer) Reset() { d.Commands = d.Commands[:0] }
