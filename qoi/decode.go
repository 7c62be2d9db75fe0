package qoi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

var (
	// ErrBadMagic marks a stream that is not QOI at all.
	ErrBadMagic = errors.New("qoi: bad magic")
	// ErrTruncated marks a stream that ends before all pixels are produced.
	ErrTruncated = errors.New("qoi: truncated stream")
)

// DecodeHeader reads and validates only the 14-byte header.
func DecodeHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, ErrTruncated
	}
	return parseHeader(raw[:])
}

func parseHeader(raw []byte) (Header, error) {
	if string(raw[:4]) != Magic {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Width:      binary.BigEndian.Uint32(raw[4:8]),
		Height:     binary.BigEndian.Uint32(raw[8:12]),
		Channels:   raw[12],
		Colorspace: raw[13],
	}
	if h.Width == 0 || h.Height == 0 {
		return Header{}, fmt.Errorf("qoi: zero dimension %dx%d", h.Width, h.Height)
	}
	if h.Channels != 3 && h.Channels != 4 {
		return Header{}, fmt.Errorf("qoi: invalid channel count %d", h.Channels)
	}
	if h.Colorspace > 1 {
		return Header{}, fmt.Errorf("qoi: invalid colorspace %d", h.Colorspace)
	}
	return h, nil
}

// DecodeWithHeader decodes a full QOI stream, returning the pixels and the
// validated header.
func DecodeWithHeader(r io.Reader) (*image.NRGBA, Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Header{}, err
	}
	if len(data) < headerSize+len(endMarker) {
		return nil, Header{}, ErrTruncated
	}
	h, err := parseHeader(data[:headerSize])
	if err != nil {
		return nil, Header{}, err
	}
	total := uint64(h.Width) * uint64(h.Height)
	if total > 1<<32 {
		return nil, Header{}, fmt.Errorf("qoi: image %dx%d too large", h.Width, h.Height)
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	pix := img.Pix

	var index [64][4]byte
	prev := [4]byte{0, 0, 0, 255}
	p := headerSize
	end := len(data) - len(endMarker)
	out := 0
	need := int(total) * 4

	for out < need {
		if p >= end {
			return nil, Header{}, ErrTruncated
		}
		b1 := data[p]
		p++
		switch {
		case b1 == opRGB:
			if p+3 > end {
				return nil, Header{}, ErrTruncated
			}
			prev[0], prev[1], prev[2] = data[p], data[p+1], data[p+2]
			p += 3
		case b1 == opRGBA:
			if p+4 > end {
				return nil, Header{}, ErrTruncated
			}
			prev = [4]byte{data[p], data[p+1], data[p+2], data[p+3]}
			p += 4
		case b1&tagMask == opIndex:
			prev = index[b1&0x3f]
		case b1&tagMask == opDiff:
			prev[0] += b1>>4&0x03 - 2
			prev[1] += b1>>2&0x03 - 2
			prev[2] += b1&0x03 - 2
		case b1&tagMask == opLuma:
			if p >= end {
				return nil, Header{}, ErrTruncated
			}
			b2 := data[p]
			p++
			dg := b1&0x3f - 32
			prev[0] += dg + b2>>4&0x0f - 8
			prev[1] += dg
			prev[2] += dg + b2&0x0f - 8
		default: // opRun
			run := int(b1&0x3f) + 1
			if out+run*4 > need {
				return nil, Header{}, ErrTruncated
			}
			for i := 0; i < run; i++ {
				copy(pix[out:out+4], prev[:])
				out += 4
			}
			continue
		}
		index[hashIndex(prev[0], prev[1], prev[2], prev[3])] = prev
		copy(pix[out:out+4], prev[:])
		out += 4
	}

	if !equalBytes(data[end:], endMarker[:]) {
		return nil, Header{}, ErrTruncated
	}
	return img, h, nil
}

// Decode decodes a QOI stream into an NRGBA image.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := DecodeWithHeader(r)
	return img, err
}

// DecodeConfig returns the dimensions and color model without decoding pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
