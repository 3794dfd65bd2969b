package render

import (
	"errors"
	"image"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSizePx = 256

// GenerateQRCodeImage returns a QR code image for the given payload.
func GenerateQRCodeImage(payload string, sizePx int) (image.Image, error) {
	qrCode, err := newQRCode(payload)
	if err != nil {
		return nil, err
	}
	return qrCode.Image(qrSize(sizePx)), nil
}

// GenerateQRCodePNG is GenerateQRCodeImage encoded as PNG.
func GenerateQRCodePNG(payload string, sizePx int) ([]byte, error) {
	qrCode, err := newQRCode(payload)
	if err != nil {
		return nil, err
	}
	return qrCode.PNG(qrSize(sizePx))
}

func newQRCode(payload string) (*qrcode.QRCode, error) {
	if payload == "" {
		return nil, errors.New("empty QR payload")
	}
	return qrcode.New(payload, qrcode.Medium)
}

func qrSize(sizePx int) int {
	if sizePx <= 0 {
		return defaultQRCodeSizePx
	}
	return sizePx
}
