package core

import (
	"image"
	"image/color"
	"math"

	rmerrors "github.com/rastermill/rastermill/errors"
)

// PixelBuffer is the canonical in-memory raster representation.  Samples are
// stored row-major, channel-interleaved; 16-bit samples are big-endian (the
// stdlib image convention).  The fields are unexported so that the length
// invariant len(pix) == width*height*channels*bytesPerSample holds on every
// observable buffer: shape changes go through the constructors, which
// reallocate and update all fields together.
type PixelBuffer struct {
	width  int
	height int
	layout ChannelLayout
	depth  BitDepth
	pix    []byte
}

// CheckDimensions validates a prospective buffer shape without allocating.
// It fails with a dimension-overflow error when the total byte size would not
// fit the buffer size type.
func CheckDimensions(w, h int, layout ChannelLayout, depth BitDepth) error {
	if w <= 0 {
		return rmerrors.InvalidConfig("width", "must be positive")
	}
	if h <= 0 {
		return rmerrors.InvalidConfig("height", "must be positive")
	}
	if layout.Channels() == 0 {
		return rmerrors.InvalidConfig("layout", "unknown channel layout")
	}
	per := uint64(layout.Channels() * depth.BytesPerSample())
	if uint64(w) > math.MaxInt/uint64(h) || uint64(w)*uint64(h) > math.MaxInt/per {
		return rmerrors.Newf(rmerrors.KindDimensionOverflow, "%dx%d %s/%d-bit exceeds addressable buffer size", w, h, layout, depth)
	}
	return nil
}

// NewPixelBuffer allocates a zeroed buffer of the given shape.
func NewPixelBuffer(w, h int, layout ChannelLayout, depth BitDepth) (*PixelBuffer, error) {
	if err := CheckDimensions(w, h, layout, depth); err != nil {
		return nil, err
	}
	return &PixelBuffer{
		width:  w,
		height: h,
		layout: layout,
		depth:  depth,
		pix:    make([]byte, w*h*layout.Channels()*depth.BytesPerSample()),
	}, nil
}

// NewPixelBufferWithPix wraps an existing sample slice.  The buffer takes
// ownership of pix; the caller must not retain it.
func NewPixelBufferWithPix(w, h int, layout ChannelLayout, depth BitDepth, pix []byte) (*PixelBuffer, error) {
	if err := CheckDimensions(w, h, layout, depth); err != nil {
		return nil, err
	}
	want := w * h * layout.Channels() * depth.BytesPerSample()
	if len(pix) != want {
		return nil, rmerrors.Newf(rmerrors.KindDecodeFailure, "sample buffer length %d does not match %dx%d %s/%d-bit (want %d)",
			len(pix), w, h, layout, depth, want)
	}
	return &PixelBuffer{width: w, height: h, layout: layout, depth: depth, pix: pix}, nil
}

func (b *PixelBuffer) Width() int            { return b.width }
func (b *PixelBuffer) Height() int           { return b.height }
func (b *PixelBuffer) Layout() ChannelLayout { return b.layout }
func (b *PixelBuffer) Depth() BitDepth       { return b.depth }

// Stride returns the byte length of one row.
func (b *PixelBuffer) Stride() int {
	return b.width * b.layout.Channels() * b.depth.BytesPerSample()
}

// Pix exposes the sample storage.  Callers may mutate sample values in place
// but must never change the slice length; shape changes require a new buffer.
func (b *PixelBuffer) Pix() []byte { return b.pix }

// Clone returns a deep copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]byte, len(b.pix))
	copy(pix, b.pix)
	return &PixelBuffer{width: b.width, height: b.height, layout: b.layout, depth: b.depth, pix: pix}
}

// Widen8To16 maps an 8-bit sample onto the 16-bit scale (v*257, exact).
func Widen8To16(v uint8) uint16 { return uint16(v) * 257 }

// Narrow16To8 maps a 16-bit sample onto the 8-bit scale with rounding:
// (v*255 + 32767) / 65535.  This is the exact inverse of Widen8To16 for every
// 8-bit value, so widen-then-narrow is lossless; narrowing arbitrary 16-bit
// data rounds to nearest rather than truncating.
func Narrow16To8(v uint16) uint8 {
	return uint8((uint32(v)*255 + 32767) / 65535)
}

// OpaqueAlpha reports whether the buffer carries no alpha information: either
// the layout has no alpha channel, or every alpha sample is at full opacity.
func (b *PixelBuffer) OpaqueAlpha() bool {
	if !b.layout.HasAlpha() {
		return true
	}
	c := b.layout.Channels()
	bps := b.depth.BytesPerSample()
	px := c * bps
	aOff := (c - 1) * bps
	for off := aOff; off < len(b.pix); off += px {
		if bps == 2 {
			if b.pix[off] != 0xff || b.pix[off+1] != 0xff {
				return false
			}
		} else if b.pix[off] != 0xff {
			return false
		}
	}
	return true
}

// pixel16 reads pixel i (row-major index) normalized to 16-bit RGBA.
// Gray layouts replicate the gray sample into r, g and b.
func (b *PixelBuffer) pixel16(i int) (r, g, bl, a uint16) {
	c := b.layout.Channels()
	bps := b.depth.BytesPerSample()
	off := i * c * bps
	sample := func(k int) uint16 {
		if bps == 2 {
			return uint16(b.pix[off+2*k])<<8 | uint16(b.pix[off+2*k+1])
		}
		return Widen8To16(b.pix[off+k])
	}
	switch b.layout {
	case LayoutGray:
		v := sample(0)
		return v, v, v, 0xffff
	case LayoutGrayAlpha:
		v := sample(0)
		return v, v, v, sample(1)
	case LayoutRGB:
		return sample(0), sample(1), sample(2), 0xffff
	default: // LayoutRGBA
		return sample(0), sample(1), sample(2), sample(3)
	}
}

// setPixel16 writes pixel i from normalized 16-bit RGBA, collapsing to the
// buffer's layout and depth.  RGB→gray uses the stdlib luminance weights.
func (b *PixelBuffer) setPixel16(i int, r, g, bl, a uint16) {
	c := b.layout.Channels()
	bps := b.depth.BytesPerSample()
	off := i * c * bps
	put := func(k int, v uint16) {
		if bps == 2 {
			b.pix[off+2*k] = byte(v >> 8)
			b.pix[off+2*k+1] = byte(v)
			return
		}
		b.pix[off+k] = Narrow16To8(v)
	}
	switch b.layout {
	case LayoutGray:
		put(0, luminance16(r, g, bl))
	case LayoutGrayAlpha:
		put(0, luminance16(r, g, bl))
		put(1, a)
	case LayoutRGB:
		put(0, r)
		put(1, g)
		put(2, bl)
	default: // LayoutRGBA
		put(0, r)
		put(1, g)
		put(2, bl)
		put(3, a)
	}
}

// luminance16 matches color.GrayModel's weighting on the 16-bit scale.
func luminance16(r, g, b uint16) uint16 {
	return uint16((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// Convert returns a buffer with the target layout and depth.  When the shape
// already matches it returns the receiver unchanged.  Narrowing 16→8 rounds
// (see Narrow16To8); dropping an alpha channel discards the alpha samples, so
// callers that must not lose coverage information check OpaqueAlpha first.
func (b *PixelBuffer) Convert(layout ChannelLayout, depth BitDepth) (*PixelBuffer, error) {
	if layout == b.layout && depth == b.depth {
		return b, nil
	}
	out, err := NewPixelBuffer(b.width, b.height, layout, depth)
	if err != nil {
		return nil, err
	}
	n := b.width * b.height
	for i := 0; i < n; i++ {
		r, g, bl, a := b.pixel16(i)
		out.setPixel16(i, r, g, bl, a)
	}
	return out, nil
}

// FromImage normalizes any stdlib image into a canonical PixelBuffer.
// Premultiplied sources are un-premultiplied, YCbCr/CMYK become RGB, palettes
// are expanded; indexed or backend-specific representations never survive.
func FromImage(img image.Image) (*PixelBuffer, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch src := img.(type) {
	case *image.Gray:
		return copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), w, h, LayoutGray, Depth8)
	case *image.Gray16:
		return copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), w, h, LayoutGray, Depth16)
	case *image.NRGBA:
		return copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), w, h, LayoutRGBA, Depth8)
	case *image.NRGBA64:
		return copyRows(src.Pix, src.Stride, src.PixOffset(bounds.Min.X, bounds.Min.Y), w, h, LayoutRGBA, Depth16)
	case *image.RGBA:
		if src.Opaque() {
			return fromAt(img, w, h, LayoutRGB, Depth8)
		}
		return fromAt(img, w, h, LayoutRGBA, Depth8)
	case *image.RGBA64:
		if src.Opaque() {
			return fromAt(img, w, h, LayoutRGB, Depth16)
		}
		return fromAt(img, w, h, LayoutRGBA, Depth16)
	case *image.YCbCr:
		return fromAt(img, w, h, LayoutRGB, Depth8)
	case *image.CMYK:
		return fromAt(img, w, h, LayoutRGB, Depth8)
	case *image.Paletted:
		if src.Opaque() {
			return fromAt(img, w, h, LayoutRGB, Depth8)
		}
		return fromAt(img, w, h, LayoutRGBA, Depth8)
	}

	// Unknown image type: go through the color interface at the precision the
	// color model suggests.
	depth := Depth8
	switch img.ColorModel() {
	case color.Gray16Model, color.NRGBA64Model, color.RGBA64Model:
		depth = Depth16
	}
	return fromAt(img, w, h, LayoutRGBA, depth)
}

// copyRows builds a buffer by direct row copies from a stdlib pixel slice
// whose sample layout already matches the target shape.
func copyRows(srcPix []byte, stride, base int, w, h int, layout ChannelLayout, depth BitDepth) (*PixelBuffer, error) {
	out, err := NewPixelBuffer(w, h, layout, depth)
	if err != nil {
		return nil, err
	}
	rowLen := out.Stride()
	for y := 0; y < h; y++ {
		srcOff := base + y*stride
		copy(out.pix[y*rowLen:(y+1)*rowLen], srcPix[srcOff:srcOff+rowLen])
	}
	return out, nil
}

// fromAt builds a buffer through the color.Color interface.
func fromAt(img image.Image, w, h int, layout ChannelLayout, depth BitDepth) (*PixelBuffer, error) {
	out, err := NewPixelBuffer(w, h, layout, depth)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			out.setPixel16(i, c.R, c.G, c.B, c.A)
			i++
		}
	}
	return out, nil
}

// ToImage exposes the buffer as a stdlib image for codec backends.  The
// returned image shares no storage with the buffer.
func (b *PixelBuffer) ToImage() image.Image {
	rect := image.Rect(0, 0, b.width, b.height)
	switch {
	case b.layout == LayoutGray && b.depth == Depth8:
		img := image.NewGray(rect)
		copyOut(img.Pix, img.Stride, b)
		return img
	case b.layout == LayoutGray && b.depth == Depth16:
		img := image.NewGray16(rect)
		copyOut(img.Pix, img.Stride, b)
		return img
	case b.layout == LayoutRGBA && b.depth == Depth8:
		img := image.NewNRGBA(rect)
		copyOut(img.Pix, img.Stride, b)
		return img
	case b.layout == LayoutRGBA && b.depth == Depth16:
		img := image.NewNRGBA64(rect)
		copyOut(img.Pix, img.Stride, b)
		return img
	case b.depth == Depth16:
		// GrayAlpha16 / RGB16 expand into NRGBA64.
		img := image.NewNRGBA64(rect)
		n := b.width * b.height
		for i := 0; i < n; i++ {
			r, g, bl, a := b.pixel16(i)
			img.Pix[i*8+0] = byte(r >> 8)
			img.Pix[i*8+1] = byte(r)
			img.Pix[i*8+2] = byte(g >> 8)
			img.Pix[i*8+3] = byte(g)
			img.Pix[i*8+4] = byte(bl >> 8)
			img.Pix[i*8+5] = byte(bl)
			img.Pix[i*8+6] = byte(a >> 8)
			img.Pix[i*8+7] = byte(a)
		}
		return img
	default:
		// GrayAlpha8 / RGB8 expand into NRGBA.
		img := image.NewNRGBA(rect)
		n := b.width * b.height
		for i := 0; i < n; i++ {
			r, g, bl, a := b.pixel16(i)
			img.Pix[i*4+0] = Narrow16To8(r)
			img.Pix[i*4+1] = Narrow16To8(g)
			img.Pix[i*4+2] = Narrow16To8(bl)
			img.Pix[i*4+3] = Narrow16To8(a)
		}
		return img
	}
}

func copyOut(dst []byte, stride int, b *PixelBuffer) {
	rowLen := b.Stride()
	for y := 0; y < b.height; y++ {
		copy(dst[y*stride:y*stride+rowLen], b.pix[y*rowLen:(y+1)*rowLen])
	}
}
