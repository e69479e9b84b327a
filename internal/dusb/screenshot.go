package dusb

import "encoding/binary"

// Screen contents payload sizes observed per model family. The size alone
// identifies the pixel packing; the device sends no format tag.
const (
	screenMonoSize = 768    // 96x64, 1 bit per pixel
	screenGraySize = 38400  // 320x240, 4 bits per pixel
	screenRGBSize  = 153600 // 320x240, 16 bits per pixel
)

// RGBPixelCount is the pixel buffer length of a color screen dump.
const RGBPixelCount = 76800

// ScreenFormat names a screen pixel packing.
type ScreenFormat uint8

const (
	FormatMonochrome ScreenFormat = iota
	FormatGrayscale
	FormatRGB
)

var screenFormatNames = map[ScreenFormat]string{
	FormatMonochrome: "monochrome",
	FormatGrayscale:  "grayscale",
	FormatRGB:        "rgb565",
}

func (f ScreenFormat) String() string {
	if name, ok := screenFormatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Screenshot is a decoded ScreenContents payload. Color dumps are unpacked
// into RGB565 words; monochrome and grayscale packings are recognized but
// kept as raw bytes.
type Screenshot struct {
	Format ScreenFormat
	Pixels []uint16 // FormatRGB, little-endian words off the wire
	Raw    []byte   // FormatMonochrome, FormatGrayscale
}

func decodeScreenshot(payload []byte) (*Screenshot, error) {
	switch len(payload) {
	case screenMonoSize:
		return &Screenshot{Format: FormatMonochrome, Raw: append([]byte(nil), payload...)}, nil
	case screenGraySize:
		return &Screenshot{Format: FormatGrayscale, Raw: append([]byte(nil), payload...)}, nil
	case screenRGBSize:
		pixels := make([]uint16, RGBPixelCount)
		for i := range pixels {
			pixels[i] = binary.LittleEndian.Uint16(payload[i*2 : i*2+2])
		}
		return &Screenshot{Format: FormatRGB, Pixels: pixels}, nil
	default:
		return nil, UnknownScreenFormatError{Size: len(payload)}
	}
}

func (s *Screenshot) appendBytes(dst []byte) []byte {
	if s.Format == FormatRGB {
		for _, px := range s.Pixels {
			dst = binary.LittleEndian.AppendUint16(dst, px)
		}
		return dst
	}
	return append(dst, s.Raw...)
}
