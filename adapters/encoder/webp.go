package encoder

import (
	"bytes"
	"context"

	"github.com/chai2010/webp"

	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// WebP encodes lossy or lossless WebP.
type WebP struct{}

// NewWebP returns an initialised WebP encoder.
func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanEncode(format core.Format) bool { return format == core.FormatWebP }

func (w *WebP) Layouts() []core.ChannelLayout {
	return []core.ChannelLayout{core.LayoutRGB, core.LayoutRGBA}
}

func (w *WebP) Depths() []core.BitDepth { return []core.BitDepth{core.Depth8} }

func (w *WebP) SupportsMetadata() bool { return false }

func (w *WebP) Encode(ctx context.Context, frame *core.Frame, opts config.Encode) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Encode("webp", err)
	}
	img := frame.Buffer.ToImage()
	var buf bytes.Buffer
	wopts := &webp.Options{
		Lossless: opts.Lossless,
		Quality:  float32(opts.Quality),
		Exact:    true,
	}
	if err := webp.Encode(&buf, img, wopts); err != nil {
		return nil, rmerrors.Encode("webp", err)
	}
	return buf.Bytes(), nil
}
