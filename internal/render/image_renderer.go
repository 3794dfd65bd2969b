package render

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/rook-computer/watchface/internal/state"
)

// ImageRenderer draws frames offscreen and keeps the latest one for the
// simulator and the HTTP API.
type ImageRenderer struct {
	Width  int
	Height int
	Fonts  *Fonts
	// OnFrame, when set, is called with a copy of each finished frame.
	OnFrame func(frame *image.RGBA)

	mu      sync.Mutex
	canvas  *Canvas
	current Screen
	latest  *image.RGBA
	frames  uint64
}

func NewImageRenderer(width, height int) *ImageRenderer {
	return &ImageRenderer{Width: width, Height: height}
}

func (r *ImageRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canvas == nil {
		r.canvas = NewCanvas(r.Width, r.Height, r.Fonts)
	}
	return nil
}

func (r *ImageRenderer) Stop() error { return nil }

func (r *ImageRenderer) SetScreen(screen Screen) {
	r.mu.Lock()
	r.current = screen
	r.mu.Unlock()
}

func (r *ImageRenderer) RedrawWithState(snap state.State) {
	r.mu.Lock()
	if r.canvas == nil || r.current == nil {
		r.mu.Unlock()
		return
	}
	r.current.Draw(r.canvas, snap)
	frame := cloneRGBA(r.canvas.Image())
	r.latest = frame
	r.frames++
	onFrame := r.OnFrame
	r.mu.Unlock()

	if onFrame != nil {
		onFrame(cloneRGBA(frame))
	}
}

// Frame returns the latest frame, or nil before the first redraw.
func (r *ImageRenderer) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

func (r *ImageRenderer) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

var ErrNoFrame = errors.New("no frame rendered yet")

// WritePNG encodes the latest frame.
func (r *ImageRenderer) WritePNG(w io.Writer) error {
	frame := r.Frame()
	if frame == nil {
		return ErrNoFrame
	}
	return png.Encode(w, frame)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
