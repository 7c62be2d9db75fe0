package core

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatQOI     Format = "qoi"
	FormatAVIF    Format = "avif"
	FormatUnknown Format = "unknown"
)

// ChannelLayout is the arrangement of color/alpha channels per pixel.
type ChannelLayout string

const (
	LayoutGray      ChannelLayout = "gray"
	LayoutGrayAlpha ChannelLayout = "gray_alpha"
	LayoutRGB       ChannelLayout = "rgb"
	LayoutRGBA      ChannelLayout = "rgba"
)

// Channels returns the number of samples per pixel.
func (l ChannelLayout) Channels() int {
	switch l {
	case LayoutGray:
		return 1
	case LayoutGrayAlpha:
		return 2
	case LayoutRGB:
		return 3
	case LayoutRGBA:
		return 4
	}
	return 0
}

// HasAlpha reports whether the layout carries an alpha channel.
func (l ChannelLayout) HasAlpha() bool {
	return l == LayoutGrayAlpha || l == LayoutRGBA
}

// HasColor reports whether the layout carries chroma information.
func (l ChannelLayout) HasColor() bool {
	return l == LayoutRGB || l == LayoutRGBA
}

// BitDepth is the per-channel sample depth.
type BitDepth int

const (
	Depth8  BitDepth = 8
	Depth16 BitDepth = 16
)

// BytesPerSample returns the storage size of one sample.
func (d BitDepth) BytesPerSample() int {
	if d == Depth16 {
		return 2
	}
	return 1
}
