//go:build avif

package decoder

import (
	"bytes"
	"context"
	"io"

	"github.com/gen2brain/avif"

	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// AVIF decodes AVIF images.  The backend is compiled in only when the avif
// build tag is set; without it the format is reported as unsupported.
type AVIF struct{}

// NewAVIF returns an initialised AVIF decoder.
func NewAVIF() *AVIF { return &AVIF{} }

func (a *AVIF) CanDecode(format core.Format) bool {
	return format == core.FormatAVIF || format == core.FormatUnknown
}

func (a *AVIF) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Decode("avif", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rmerrors.Decode("avif", err)
	}

	if cfg, err := avif.DecodeConfig(bytes.NewReader(data)); err == nil {
		if err := core.CheckDimensions(cfg.Width, cfg.Height, core.LayoutRGBA, core.Depth8); err != nil {
			return nil, err
		}
	}

	img, err := avif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rmerrors.Decode("avif", err)
	}
	buf, err := core.FromImage(img)
	if err != nil {
		return nil, err
	}
	return &core.Frame{Buffer: buf}, nil
}
