package encoder

import (
	"bytes"
	"context"

	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
	"github.com/rastermill/rastermill/qoi"
)

// QOI encodes QOI images.  The format is always lossless, so quality and
// effort knobs are ignored.
type QOI struct{}

// NewQOI returns an initialised QOI encoder.
func NewQOI() *QOI { return &QOI{} }

func (q *QOI) CanEncode(format core.Format) bool { return format == core.FormatQOI }

func (q *QOI) Layouts() []core.ChannelLayout {
	return []core.ChannelLayout{core.LayoutRGB, core.LayoutRGBA}
}

func (q *QOI) Depths() []core.BitDepth { return []core.BitDepth{core.Depth8} }

func (q *QOI) SupportsMetadata() bool { return false }

func (q *QOI) Encode(ctx context.Context, frame *core.Frame, _ config.Encode) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Encode("qoi", err)
	}
	img := frame.Buffer.ToImage()
	var buf bytes.Buffer
	if err := qoi.Encode(&buf, img); err != nil {
		return nil, rmerrors.Encode("qoi", err)
	}
	return buf.Bytes(), nil
}
