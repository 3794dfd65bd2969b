package render

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"github.com/rook-computer/watchface/internal/assets"
)

const defaultTextSize = 16

// Fonts hands out cached faces for the regular and bold weights. A weight
// that does not parse falls back to the other weight, then to basicfont.
type Fonts struct {
	Logger interface {
		Errorf(string, string, ...interface{})
	}

	regular, bold *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

func NewFonts() *Fonts {
	return LoadFonts(assets.FontRegular, assets.FontBold)
}

func LoadFonts(regular, bold []byte) *Fonts {
	f := &Fonts{faces: map[faceKey]font.Face{}}
	f.regular = parseFont(regular)
	f.bold = parseFont(bold)
	return f
}

func parseFont(data []byte) *opentype.Font {
	if len(data) == 0 {
		return nil
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil
	}
	return otf
}

// Face returns a face whose size is in pixels.
func (f *Fonts) Face(size float64, bold bool) font.Face {
	if size <= 0 {
		size = defaultTextSize
	}
	key := faceKey{size: size, bold: bold}

	f.mu.Lock()
	defer f.mu.Unlock()
	if face, ok := f.faces[key]; ok {
		return face
	}

	otf := f.regular
	if (bold && f.bold != nil) || otf == nil {
		otf = f.bold
	}

	var face font.Face = basicfont.Face7x13
	if otf == nil {
		f.errorf("no usable font, using basicfont")
	} else if created, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull}); err != nil {
		f.errorf("font face create failed, using basicfont: %v", err)
	} else {
		face = created
	}
	f.faces[key] = face
	return face
}

func (f *Fonts) errorf(format string, args ...interface{}) {
	if f.Logger != nil {
		f.Logger.Errorf("render", format, args...)
	}
}
