package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"sync/atomic"

	fb "github.com/gonutz/framebuffer"

	"github.com/rook-computer/watchface/internal/state"
)

// FBRenderer renders to the Linux framebuffer using an offscreen logical canvas.
type FBRenderer struct {
	Device string
	Width  int
	Height int
	Fonts  *Fonts
	Logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}
	Debug bool

	mu      sync.Mutex
	fbDev   *fb.Device
	canvas  *Canvas
	current Screen
	running atomic.Bool
	frames  uint64
}

func NewFBRenderer(device string, width, height int) *FBRenderer {
	return &FBRenderer{Device: device, Width: width, Height: height}
}

func (r *FBRenderer) Start(ctx context.Context) error {
	dev, err := fb.Open(r.Device)
	if err != nil {
		return fmt.Errorf("open framebuffer %s: %w", r.Device, err)
	}
	r.mu.Lock()
	r.fbDev = dev
	fonts := r.Fonts
	if fonts == nil {
		fonts = NewFonts()
		fonts.Logger = r.Logger
	}
	r.canvas = NewCanvas(r.Width, r.Height, fonts)
	r.mu.Unlock()

	if r.Logger != nil {
		bounds := dev.Bounds()
		r.Logger.Infof("fb", "framebuffer open, bounds=%dx%d canvas=%dx%d", bounds.Dx(), bounds.Dy(), r.Width, r.Height)
	}
	r.running.Store(true)
	return nil
}

func (r *FBRenderer) Stop() error {
	r.running.Store(false)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fbDev != nil {
		r.fbDev.Close()
		r.fbDev = nil
	}
	return nil
}

// SetScreen sets the current logical screen to be drawn.
func (r *FBRenderer) SetScreen(screen Screen) {
	r.mu.Lock()
	r.current = screen
	r.mu.Unlock()
}

// RedrawWithState draws the current screen and pushes the frame out.
func (r *FBRenderer) RedrawWithState(snap state.State) {
	if !r.running.Load() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.canvas == nil {
		return
	}
	r.current.Draw(r.canvas, snap)
	blitToFB(r.fbDev, r.canvas.Image())
	r.frames++
	if r.Debug && r.Logger != nil {
		r.Logger.Infof("fb", "frame %d drawn, ambient=%t", r.frames, snap.Mode.Ambient)
	}
}

// WritePNG encodes the frame last pushed to the framebuffer.
func (r *FBRenderer) WritePNG(w io.Writer) error {
	r.mu.Lock()
	if r.canvas == nil || r.frames == 0 {
		r.mu.Unlock()
		return ErrNoFrame
	}
	frame := cloneRGBA(r.canvas.Image())
	r.mu.Unlock()
	return png.Encode(w, frame)
}

// blitToFB copies the canvas to the framebuffer with nearest-neighbor scaling.
func blitToFB(dev *fb.Device, canvas *image.RGBA) {
	if dev == nil {
		return
	}
	bounds := dev.Bounds()
	fbWidth, fbHeight := bounds.Dx(), bounds.Dy()
	cw, ch := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	for y := 0; y < fbHeight; y++ {
		sy := (y * ch) / fbHeight
		for x := 0; x < fbWidth; x++ {
			sx := (x * cw) / fbWidth
			pixel := canvas.RGBAAt(sx, sy)
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
}
