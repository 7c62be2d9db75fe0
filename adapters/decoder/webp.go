package decoder

import (
	"bytes"
	"context"
	"io"

	"github.com/chai2010/webp"

	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// WebP decodes both lossy and lossless WebP images.
type WebP struct{}

// NewWebP returns an initialised WebP decoder.
func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP || format == core.FormatUnknown
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Decode("webp", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rmerrors.Decode("webp", err)
	}

	if width, height, _, err := webp.GetInfo(data); err == nil {
		if err := core.CheckDimensions(width, height, core.LayoutRGBA, core.Depth8); err != nil {
			return nil, err
		}
	}

	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rmerrors.Decode("webp", err)
	}
	buf, err := core.FromImage(img)
	if err != nil {
		return nil, err
	}
	return &core.Frame{Buffer: buf}, nil
}
