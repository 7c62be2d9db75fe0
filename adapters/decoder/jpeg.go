// Package decoder provides format-specific image decoders.
package decoder

import (
	"bytes"
	"context"
	"image/jpeg"
	"io"

	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// JPEG decodes JPEG images using the standard library, extracting EXIF and
// ICC metadata from the marker segments on a best-effort basis.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG || format == core.FormatUnknown
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Decode("jpeg", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rmerrors.Decode("jpeg", err)
	}

	if cfg, err := jpeg.DecodeConfig(bytes.NewReader(data)); err == nil {
		if err := core.CheckDimensions(cfg.Width, cfg.Height, core.LayoutRGB, core.Depth8); err != nil {
			return nil, err
		}
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rmerrors.Decode("jpeg", err)
	}
	buf, err := core.FromImage(img)
	if err != nil {
		return nil, err
	}

	frame := &core.Frame{Buffer: buf}
	exifRaw, icc := scanJPEGSegments(data)
	if len(exifRaw) > 0 || len(icc) > 0 {
		frame.Meta = &core.Metadata{EXIFRaw: exifRaw, ICC: icc}
		parseEXIF(frame, "jpeg", data)
	}
	return frame, nil
}

// scanJPEGSegments walks the marker segments before SOS and extracts the raw
// EXIF (APP1) payload and the reassembled ICC profile (APP2 chunks).
func scanJPEGSegments(data []byte) (exifRaw, icc []byte) {
	const (
		markerSOI  = 0xd8
		markerSOS  = 0xda
		markerAPP1 = 0xe1
		markerAPP2 = 0xe2
	)
	p := 2 // skip SOI
	for p+4 <= len(data) {
		if data[p] != 0xff {
			return
		}
		marker := data[p+1]
		if marker == markerSOS {
			return
		}
		if marker == 0xff || marker == markerSOI {
			p++
			continue
		}
		segLen := int(data[p+2])<<8 | int(data[p+3])
		if segLen < 2 || p+2+segLen > len(data) {
			return
		}
		payload := data[p+4 : p+2+segLen]
		switch marker {
		case markerAPP1:
			if len(payload) > 6 && bytes.HasPrefix(payload, []byte("Exif\x00\x00")) {
				exifRaw = append([]byte(nil), payload[6:]...)
			}
		case markerAPP2:
			// "ICC_PROFILE\0" + chunk seq + chunk count, then profile bytes.
			if len(payload) > 14 && bytes.HasPrefix(payload, []byte("ICC_PROFILE\x00")) {
				icc = append(icc, payload[14:]...)
			}
		}
		p += 2 + segLen
	}
	return
}
