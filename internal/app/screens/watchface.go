package screens

import (
	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/config"
	"github.com/rook-computer/watchface/internal/render"
	"github.com/rook-computer/watchface/internal/render/layout"
	"github.com/rook-computer/watchface/internal/state"
)

// WatchFaceScreen draws time, date and weather. Geometry is resolved on the
// first draw after ApplyInsets and reused until the next one.
type WatchFaceScreen struct {
	Layout  config.LayoutConfig
	Palette render.Palette
	Formats clock.Formats

	round      bool
	dirty      bool
	face       layout.Face
	colonWidth float64
}

const colon = ":"

func NewWatchFaceScreen(cfg config.LayoutConfig, palette render.Palette, formats clock.Formats, round bool) *WatchFaceScreen {
	return &WatchFaceScreen{Layout: cfg, Palette: palette, Formats: formats, round: round, dirty: true}
}

// ApplyInsets starts a new layout pass for a round or rectangular screen.
func (s *WatchFaceScreen) ApplyInsets(round bool) {
	s.round = round
	s.dirty = true
}

func (s *WatchFaceScreen) Round() bool { return s.round }

// Face returns the geometry of the last layout pass.
func (s *WatchFaceScreen) Face() layout.Face { return s.face }

func (s *WatchFaceScreen) resolve(d render.Drawer) {
	width, height := d.Size()
	if !s.dirty && s.face.Width == width && s.face.Height == height {
		return
	}
	s.face = layout.Resolve(s.Layout, width, height, s.round)
	s.colonWidth = d.MeasureText(colon, render.TextStyle{Size: s.face.TextSize}).Width
	s.dirty = false
}

func (s *WatchFaceScreen) Draw(d render.Drawer, st state.State) {
	s.resolve(d)
	f := s.face
	aa := st.Mode.AntiAlias

	background, text := s.Palette.Background, s.Palette.Text
	if st.Mode.Ambient {
		background, text = s.Palette.AmbientBackground, s.Palette.AmbientText
	}
	d.FillBackground(background)

	clockY := f.CenterY - f.ClockOffset
	clockStyle := render.TextStyle{Color: text, Size: f.TextSize, AntiAlias: aa}

	hourStyle := clockStyle
	hourStyle.Align = render.TextAlignRight
	d.DrawText(st.Clock.HourString(), f.CenterX-s.colonWidth, clockY, hourStyle)

	colonStyle := clockStyle
	colonStyle.Align = render.TextAlignCenter
	d.DrawText(colon, f.CenterX, clockY, colonStyle)

	d.DrawText(st.Clock.MinuteString(), f.CenterX+s.colonWidth, clockY, clockStyle)

	d.DrawText(s.Formats.DateString(st.Clock), f.CenterX, f.CenterY-f.DateOffset, render.TextStyle{
		Color:     text,
		Size:      f.DateTextSize,
		Align:     render.TextAlignCenter,
		AntiAlias: aa,
	})

	half := f.SeparatorHalfLength()
	d.DrawLine(f.CenterX-half, f.CenterY, f.CenterX+half, f.CenterY, render.LineStyle{
		Color:     text,
		Width:     f.SeparatorWidth,
		AntiAlias: aa,
	})

	maxStyle := render.TextStyle{Color: text, Size: f.TempSize, Bold: true, AntiAlias: aa}
	minStyle := render.TextStyle{Color: text, Size: f.TempSize, AntiAlias: aa}
	maxWidth := d.MeasureText(st.Weather.MaxTemp, maxStyle).Width

	if st.Weather.Icon != nil && !st.Mode.Ambient {
		d.DrawImageInRect(st.Weather.Icon, f.IconRect(), render.ScaleModeStretch)
	}

	tempY := f.CenterY + f.ClockOffset
	d.DrawText(st.Weather.MaxTemp, f.CenterX+f.TempPadding, tempY, maxStyle)
	d.DrawText(st.Weather.MinTemp, f.CenterX+maxWidth+2*f.TempPadding, tempY, minStyle)
}
