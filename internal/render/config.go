package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/rook-computer/watchface/internal/config"
)

// Palette holds the colors a frame is drawn with.
type Palette struct {
	Background        color.RGBA
	Text              color.RGBA
	AmbientBackground color.RGBA
	AmbientText       color.RGBA
}

var (
	Black = color.RGBA{A: 0xFF}
	White = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// DefaultPalette is the Sunshine blue theme.
var DefaultPalette = Palette{
	Background:        color.RGBA{R: 0x03, G: 0xA9, B: 0xF4, A: 0xFF}, // #03a9f4
	Text:              White,
	AmbientBackground: Black,
	AmbientText:       White,
}

func PaletteFromTheme(theme config.ThemeConfig) (Palette, error) {
	p := DefaultPalette
	var err error
	if p.Background, err = ParseHexColor(theme.Background); err != nil {
		return Palette{}, fmt.Errorf("theme background: %w", err)
	}
	if p.Text, err = ParseHexColor(theme.Text); err != nil {
		return Palette{}, fmt.Errorf("theme text: %w", err)
	}
	return p, nil
}

// ParseHexColor parses #rgb, #rgba, #rrggbb or #rrggbbaa, the forms the
// config validator accepts. Colors without alpha are opaque.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 || len(hex) == 4 {
		short := hex
		hex = ""
		for i := 0; i < len(short); i++ {
			hex += string([]byte{short[i], short[i]})
		}
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
