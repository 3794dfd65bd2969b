package web

import (
	"io"

	"github.com/rook-computer/watchface/internal/buttons"
	"github.com/rook-computer/watchface/internal/clock"
	"github.com/rook-computer/watchface/internal/companion"
	"github.com/rook-computer/watchface/internal/state"
)

// Status is a point-in-time view of the face.
type Status struct {
	State         state.State
	TimerRunning  bool
	Round         bool
	SyncConnected bool
	TimeZone      string
}

// Host accepts the display and input callbacks the API exposes.
type Host interface {
	SetVisible(visible bool)
	SetAmbient(ambient bool)
	SetLowBitAmbient(lowBit bool)
	ApplyInsets(round bool)
	Tap(tapType buttons.TapType, x, y int)
	Status() Status
}

// WeatherSink receives data items as if they came from the companion channel.
type WeatherSink interface {
	HandleEvent(ev companion.DataEvent)
}

// FrameSource encodes the latest rendered frame.
type FrameSource interface {
	WritePNG(w io.Writer) error
}

type APIV1Deps struct {
	Host    Host
	Weather WeatherSink
	Frames  FrameSource
	Formats clock.Formats
	// WeatherPath is the data item path injected weather is delivered on.
	WeatherPath string
	// PairingURL is encoded in the pairing QR code. Empty disables it.
	PairingURL string
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Formats.DateLayout == "" {
		out.Formats = clock.DefaultFormats()
	}
	if out.WeatherPath == "" {
		out.WeatherPath = "/weather"
	}
	return out
}
