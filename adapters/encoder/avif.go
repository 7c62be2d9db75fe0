//go:build avif

package encoder

import (
	"bytes"
	"context"

	"github.com/gen2brain/avif"

	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// AVIF encodes AVIF images.  Compiled in only with the avif build tag.
type AVIF struct{}

// NewAVIF returns an initialised AVIF encoder.
func NewAVIF() *AVIF { return &AVIF{} }

func (a *AVIF) CanEncode(format core.Format) bool { return format == core.FormatAVIF }

func (a *AVIF) Layouts() []core.ChannelLayout {
	return []core.ChannelLayout{core.LayoutRGB, core.LayoutRGBA}
}

func (a *AVIF) Depths() []core.BitDepth { return []core.BitDepth{core.Depth8} }

func (a *AVIF) SupportsMetadata() bool { return false }

func (a *AVIF) Encode(ctx context.Context, frame *core.Frame, opts config.Encode) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Encode("avif", err)
	}
	img := frame.Buffer.ToImage()
	quality := opts.Quality
	if opts.Lossless {
		quality = 100
	}
	aopts := avif.Options{
		Quality:      quality,
		QualityAlpha: quality,
		Speed:        10 - opts.Effort,
	}
	var buf bytes.Buffer
	if err := avif.Encode(&buf, img, aopts); err != nil {
		return nil, rmerrors.Encode("avif", err)
	}
	return buf.Bytes(), nil
}
