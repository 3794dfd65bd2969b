// Package layout resolves watch face geometry from the configured dimensions.
package layout

import (
	"image"
	"math"

	"github.com/rook-computer/watchface/internal/config"
)

// Face is the geometry of one layout pass. It changes only when the screen
// shape or size changes.
type Face struct {
	Width, Height    int
	CenterX, CenterY float64

	Round        bool
	XOffset      float64
	ClockOffset  float64
	DateOffset   float64
	TextSize     float64
	DateTextSize float64
	TempSize     float64
	TempPadding  float64
	// IconWidth includes one TempPadding.
	IconWidth      float64
	SeparatorWidth float64
}

// Resolve computes the geometry for a canvas of width x height. Round screens
// use the round text size and x offset.
func Resolve(cfg config.LayoutConfig, width, height int, round bool) Face {
	f := Face{
		Width:          width,
		Height:         height,
		CenterX:        float64(width / 2),
		CenterY:        float64(height / 2),
		Round:          round,
		XOffset:        cfg.XOffset,
		ClockOffset:    cfg.ClockOffset,
		DateOffset:     cfg.DateOffset,
		TextSize:       cfg.TextSize,
		DateTextSize:   cfg.DateTextSize,
		TempSize:       cfg.TempSize,
		TempPadding:    math.Trunc(cfg.TempPadding),
		SeparatorWidth: cfg.SeparatorWidth,
	}
	if round {
		f.XOffset = cfg.XOffsetRound
		f.TextSize = cfg.TextSizeRound
	}
	f.IconWidth = cfg.IconWidth + f.TempPadding
	return f
}

// SeparatorHalfLength is half the separator line, a tenth of the width.
func (f Face) SeparatorHalfLength() float64 {
	return float64(f.Width / 10)
}

// IconRect is the square left of center, just below the separator.
func (f Face) IconRect() image.Rectangle {
	return Normalize(image.Rect(
		int(f.CenterX-f.IconWidth),
		int(f.CenterY+f.DateOffset),
		int(f.CenterX),
		int(f.CenterY+f.DateOffset+f.IconWidth),
	))
}

// Normalize ensures Min is <= Max on both axes.
func Normalize(rect image.Rectangle) image.Rectangle {
	if rect.Min.X > rect.Max.X {
		rect.Min.X, rect.Max.X = rect.Max.X, rect.Min.X
	}
	if rect.Min.Y > rect.Max.Y {
		rect.Min.Y, rect.Max.Y = rect.Max.Y, rect.Min.Y
	}
	return rect
}

// FitCentered returns the largest rectangle with the aspect ratio of
// srcW x srcH that fits into rect, centered in it.
func FitCentered(rect image.Rectangle, srcW, srcH int) image.Rectangle {
	rect = Normalize(rect)
	if srcW <= 0 || srcH <= 0 || rect.Empty() {
		return image.Rectangle{}
	}
	scale := math.Min(float64(rect.Dx())/float64(srcW), float64(rect.Dy())/float64(srcH))
	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	x := rect.Min.X + (rect.Dx()-w)/2
	y := rect.Min.Y + (rect.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}
