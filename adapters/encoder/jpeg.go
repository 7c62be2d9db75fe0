// Package encoder provides format-specific image encoders.
package encoder

import (
	"bytes"
	"context"
	"image/jpeg"

	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// maxEXIFPayload is the largest EXIF blob a single APP1 segment can carry:
// the 16-bit segment length covers itself plus the "Exif\0\0" signature.
const maxEXIFPayload = 65533 - 6

// iccChunkSize is the profile bytes per APP2 segment, leaving room for the
// "ICC_PROFILE\0" signature and the sequence/count pair.
const iccChunkSize = 65533 - 14

// JPEG encodes baseline JPEG using the standard library and splices EXIF and
// ICC metadata segments into the output stream.
type JPEG struct{}

// NewJPEG returns an initialised JPEG encoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanEncode(format core.Format) bool { return format == core.FormatJPEG }

func (j *JPEG) Layouts() []core.ChannelLayout {
	return []core.ChannelLayout{core.LayoutGray, core.LayoutRGB}
}

func (j *JPEG) Depths() []core.BitDepth { return []core.BitDepth{core.Depth8} }

func (j *JPEG) SupportsMetadata() bool { return true }

func (j *JPEG) Encode(ctx context.Context, frame *core.Frame, opts config.Encode) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Encode("jpeg", err)
	}
	if opts.Progressive {
		frame.Warn("encode", "jpeg", "progressive encoding unavailable, writing baseline")
	}

	img := frame.Buffer.ToImage()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, rmerrors.Encode("jpeg", err)
	}
	out := buf.Bytes()

	if meta := frame.Meta; !meta.Empty() {
		segs, err := buildJPEGMetaSegments(meta)
		if err != nil {
			return nil, err
		}
		if len(segs) > 0 {
			// Metadata segments go right after SOI.
			spliced := make([]byte, 0, len(out)+len(segs))
			spliced = append(spliced, out[:2]...)
			spliced = append(spliced, segs...)
			spliced = append(spliced, out[2:]...)
			out = spliced
		}
	}
	return out, nil
}

func buildJPEGMetaSegments(meta *core.Metadata) ([]byte, error) {
	var segs []byte
	if len(meta.EXIFRaw) > 0 {
		if len(meta.EXIFRaw) > maxEXIFPayload {
			return nil, rmerrors.Newf(rmerrors.KindEncodeFailure,
				"jpeg: exif payload of %d bytes exceeds a single APP1 segment", len(meta.EXIFRaw))
		}
		segs = appendSegment(segs, 0xe1, append([]byte("Exif\x00\x00"), meta.EXIFRaw...))
	}
	if len(meta.ICC) > 0 {
		chunks := (len(meta.ICC) + iccChunkSize - 1) / iccChunkSize
		if chunks > 255 {
			return nil, rmerrors.Newf(rmerrors.KindEncodeFailure,
				"jpeg: icc profile of %d bytes exceeds 255 APP2 segments", len(meta.ICC))
		}
		for i := 0; i < chunks; i++ {
			lo := i * iccChunkSize
			hi := lo + iccChunkSize
			if hi > len(meta.ICC) {
				hi = len(meta.ICC)
			}
			payload := append([]byte("ICC_PROFILE\x00"), byte(i+1), byte(chunks))
			payload = append(payload, meta.ICC[lo:hi]...)
			segs = appendSegment(segs, 0xe2, payload)
		}
	}
	return segs, nil
}

func appendSegment(dst []byte, marker byte, payload []byte) []byte {
	segLen := len(payload) + 2
	dst = append(dst, 0xff, marker, byte(segLen>>8), byte(segLen))
	return append(dst, payload...)
}
