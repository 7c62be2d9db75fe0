package decoder

import (
	"context"
	"io"

	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
	"github.com/rastermill/rastermill/qoi"
)

// QOI decodes QOI images.
type QOI struct{}

// NewQOI returns an initialised QOI decoder.
func NewQOI() *QOI { return &QOI{} }

func (q *QOI) CanDecode(format core.Format) bool {
	return format == core.FormatQOI || format == core.FormatUnknown
}

func (q *QOI) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Decode("qoi", err)
	}
	img, hdr, err := qoi.DecodeWithHeader(r)
	if err != nil {
		return nil, rmerrors.Decode("qoi", err)
	}
	if err := core.CheckDimensions(int(hdr.Width), int(hdr.Height), core.LayoutRGBA, core.Depth8); err != nil {
		return nil, err
	}
	buf, err := core.FromImage(img)
	if err != nil {
		return nil, err
	}
	// A 3-channel header promises opacity, so the alpha plane carries nothing.
	if hdr.Channels == 3 && buf.Layout() != core.LayoutRGB {
		buf, err = buf.Convert(core.LayoutRGB, core.Depth8)
		if err != nil {
			return nil, err
		}
	}
	return &core.Frame{Buffer: buf}, nil
}
