package weather

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// IconDecoder turns icon bytes into an image.
type IconDecoder interface {
	Decode(ctx context.Context, raw []byte) (image.Image, error)
}

// ImageDecoder decodes any format registered with the image package: PNG,
// JPEG, GIF, BMP and WebP.
type ImageDecoder struct{}

func (ImageDecoder) Decode(ctx context.Context, raw []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode icon (%d bytes): %w", len(raw), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}
