// Package screen renders decoded display dumps into standard image
// formats.
package screen

import (
	"bytes"
	"errors"
	"image"
	"image/png"
)

var (
	ErrInvalidDimensions = errors.New("screen: width and height must be positive")
	ErrPixelCount        = errors.New("screen: pixel buffer does not match dimensions")
)

// RGB565 expands packed 16-bit pixels into a standard RGBA image. Each
// word holds 5 bits of red, 6 of green and 5 of blue; channels scale to
// the full 8-bit range.
func RGB565(width, height int, pixels []uint16) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if len(pixels) != width*height {
		return nil, ErrPixelCount
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	dst := img.Pix
	for i, px := range pixels {
		r := uint32(px>>11) & 0x1f
		g := uint32(px>>5) & 0x3f
		b := uint32(px) & 0x1f
		dst[i*4] = uint8(r * 255 / 31)
		dst[i*4+1] = uint8(g * 255 / 63)
		dst[i*4+2] = uint8(b * 255 / 31)
		dst[i*4+3] = 0xff
	}
	return img, nil
}

// EncodePNG renders packed RGB565 pixels straight to PNG bytes.
func EncodePNG(width, height int, pixels []uint16) ([]byte, error) {
	img, err := RGB565(width, height, pixels)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
