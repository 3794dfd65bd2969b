package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/raster"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/rook-computer/watchface/internal/render/layout"
)

// alphaThreshold is the coverage at or above which a pixel is painted when
// anti-aliasing is off.
const alphaThreshold = 0x8000

// Canvas is a Drawer over an offscreen RGBA image.
type Canvas struct {
	img   *image.RGBA
	fonts *Fonts
	mask  *image.Alpha
}

func NewCanvas(width, height int, fonts *Fonts) *Canvas {
	if fonts == nil {
		fonts = NewFonts()
	}
	bounds := image.Rect(0, 0, width, height)
	return &Canvas{img: image.NewRGBA(bounds), fonts: fonts, mask: image.NewAlpha(bounds)}
}

// Image returns the backing image. It is reused between frames.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) FillBackground(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: col}, image.Point{}, draw.Src)
}

func (c *Canvas) MeasureText(text string, style TextStyle) TextMetrics {
	face := c.fonts.Face(style.Size, style.Bold)
	metrics := face.Metrics()
	return TextMetrics{
		Width:   fixedToFloat(font.MeasureString(face, text)),
		Ascent:  fixedToFloat(metrics.Ascent),
		Descent: fixedToFloat(metrics.Descent),
	}
}

func (c *Canvas) DrawText(text string, x, y float64, style TextStyle) TextMetrics {
	m := c.MeasureText(text, style)
	switch style.Align {
	case TextAlignCenter:
		x -= m.Width / 2
	case TextAlignRight:
		x -= m.Width
	}

	col := style.Color
	if col == nil {
		col = White
	}
	face := c.fonts.Face(style.Size, style.Bold)
	dot := fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)}

	if style.AntiAlias {
		d := &font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face, Dot: dot}
		d.DrawString(text)
		return m
	}

	// Hard edges: render coverage into the scratch mask, threshold it, then
	// composite through it.
	bounds, _ := font.BoundString(face, text)
	area := image.Rect(
		(dot.X+bounds.Min.X).Floor(), (dot.Y+bounds.Min.Y).Floor(),
		(dot.X+bounds.Max.X).Ceil(), (dot.Y+bounds.Max.Y).Ceil(),
	).Inset(-2).Intersect(c.mask.Bounds())
	if area.Empty() {
		return m
	}
	d := &font.Drawer{Dst: c.mask, Src: image.Opaque, Face: face, Dot: dot}
	d.DrawString(text)
	for py := area.Min.Y; py < area.Max.Y; py++ {
		for px := area.Min.X; px < area.Max.X; px++ {
			i := c.mask.PixOffset(px, py)
			if uint32(c.mask.Pix[i])<<8 >= alphaThreshold {
				c.mask.Pix[i] = 0xFF
			} else {
				c.mask.Pix[i] = 0
			}
		}
	}
	draw.DrawMask(c.img, area, image.NewUniform(col), image.Point{}, c.mask, area.Min, draw.Over)
	draw.Draw(c.mask, area, image.Transparent, image.Point{}, draw.Src)
	return m
}

// DrawLine strokes a straight line. Integer coordinates address pixel centers.
func (c *Canvas) DrawLine(x0, y0, x1, y1 float64, style LineStyle) {
	width := style.Width
	if width <= 0 {
		width = 1
	}
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	// offset along the line normal
	nx, ny := -dy/length*width/2, dx/length*width/2
	x0, y0, x1, y1 = x0+0.5, y0+0.5, x1+0.5, y1+0.5

	w, h := c.Size()
	r := raster.NewRasterizer(w, h)
	r.UseNonZeroWinding = true
	r.Start(point(x0+nx, y0+ny))
	r.Add1(point(x1+nx, y1+ny))
	r.Add1(point(x1-nx, y1-ny))
	r.Add1(point(x0-nx, y0-ny))
	r.Add1(point(x0+nx, y0+ny))

	col := style.Color
	if col == nil {
		col = White
	}
	if style.AntiAlias {
		p := raster.NewRGBAPainter(c.img)
		p.SetColor(col)
		r.Rasterize(p)
		return
	}
	r.Rasterize(&thresholdPainter{img: c.img, color: col})
}

func (c *Canvas) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode) {
	if img == nil {
		return
	}
	rect = layout.Normalize(rect)
	if mode == ScaleModeFit {
		rect = layout.FitCentered(rect, img.Bounds().Dx(), img.Bounds().Dy())
	}
	if rect.Empty() {
		return
	}
	xdraw.ApproxBiLinear.Scale(c.img, rect, img, img.Bounds(), xdraw.Over, nil)
}

// thresholdPainter paints spans with enough coverage in a solid color.
type thresholdPainter struct {
	img   *image.RGBA
	color color.Color
}

func (p *thresholdPainter) Paint(spans []raster.Span, done bool) {
	col := color.RGBAModel.Convert(p.color).(color.RGBA)
	b := p.img.Bounds()
	for _, s := range spans {
		if s.Alpha < alphaThreshold || s.Y < b.Min.Y || s.Y >= b.Max.Y {
			continue
		}
		x0, x1 := max(s.X0, b.Min.X), min(s.X1, b.Max.X)
		for x := x0; x < x1; x++ {
			p.img.SetRGBA(x, s.Y, col)
		}
	}
}

func point(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)}
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
