package render

import (
	"context"
	"image"
	"image/color"

	"github.com/rook-computer/watchface/internal/state"
)

type Renderer interface {
	Start(ctx context.Context) error
	Stop() error
	SetScreen(screen Screen)
	RedrawWithState(snap state.State)
}

type Screen interface {
	Draw(d Drawer, s state.State)
}

type NoopRenderer struct{}

func (n *NoopRenderer) Start(ctx context.Context) error  { return nil }
func (n *NoopRenderer) Stop() error                      { return nil }
func (n *NoopRenderer) SetScreen(screen Screen)          {}
func (n *NoopRenderer) RedrawWithState(snap state.State) {}

// Drawer is an abstraction the renderer provides to screens to draw primitives
// without exposing low-level framebuffer details.
type Drawer interface {
	// Size returns the logical canvas size (in pixels) that screens draw into.
	Size() (width int, height int)

	FillBackground(c color.Color)

	// MeasureText and DrawText take the baseline as y. Align controls how x
	// is interpreted.
	MeasureText(text string, style TextStyle) TextMetrics
	DrawText(text string, x, y float64, style TextStyle) TextMetrics

	DrawLine(x0, y0, x1, y1 float64, style LineStyle)

	DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode)
}

type TextAlign int

const (
	TextAlignLeft TextAlign = iota
	TextAlignCenter
	TextAlignRight
)

func (a TextAlign) String() string {
	switch a {
	case TextAlignCenter:
		return "center"
	case TextAlignRight:
		return "right"
	default:
		return "left"
	}
}

// TextStyle describes how to render text.
type TextStyle struct {
	Color color.Color
	Size  float64 // pixel size; 0 means renderer default
	Align TextAlign
	Bold  bool
	// AntiAlias false renders glyphs with hard edges.
	AntiAlias bool
}

type TextMetrics struct {
	Width   float64
	Ascent  float64
	Descent float64
}

type LineStyle struct {
	Color     color.Color
	Width     float64
	AntiAlias bool
}

type ScaleMode int

const (
	ScaleModeStretch ScaleMode = iota
	ScaleModeFit
)
