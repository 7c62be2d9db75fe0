// Package qoi implements the QOI ("Quite OK Image") format, encoding and
// decoding losslessly to and from NRGBA pixels.
package qoi

// Chunk opcodes.  The two-bit tags occupy the top of the byte; opRGB and
// opRGBA are full-byte codes carved out of the opRun range.
const (
	opIndex = byte(0b00000000)
	opDiff  = byte(0b01000000)
	opLuma  = byte(0b10000000)
	opRun   = byte(0b11000000)
	opRGB   = byte(0b11111110)
	opRGBA  = byte(0b11111111)

	tagMask = byte(0b11000000)
)

// Magic identifies a QOI stream.
const Magic = "qoif"

// headerSize is magic + width + height + channels + colorspace.
const headerSize = 14

// endMarker terminates every QOI stream.
var endMarker = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

// Header is the decoded QOI file header.
type Header struct {
	Width      uint32
	Height     uint32
	Channels   uint8 // 3 = RGB, 4 = RGBA
	Colorspace uint8 // 0 = sRGB with linear alpha, 1 = all linear
}

// hashIndex is the running-index position for a pixel, per the QOI spec.
func hashIndex(r, g, b, a byte) int {
	return int(r*3+g*5+b*7+a*11) % 64
}
