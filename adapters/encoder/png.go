package encoder

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image/png"

	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// PNG encodes PNG using the standard library, inserting eXIf and iCCP chunks
// after IHDR.  The Effort knob selects the compression level.
type PNG struct{}

// NewPNG returns an initialised PNG encoder.
func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Layouts() []core.ChannelLayout {
	return []core.ChannelLayout{core.LayoutGray, core.LayoutGrayAlpha, core.LayoutRGB, core.LayoutRGBA}
}

func (p *PNG) Depths() []core.BitDepth { return []core.BitDepth{core.Depth8, core.Depth16} }

func (p *PNG) SupportsMetadata() bool { return true }

func (p *PNG) Encode(ctx context.Context, frame *core.Frame, opts config.Encode) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Encode("png", err)
	}
	img := frame.Buffer.ToImage()
	enc := &png.Encoder{CompressionLevel: compressionLevel(opts.Effort)}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, rmerrors.Encode("png", err)
	}
	out := buf.Bytes()

	if meta := frame.Meta; !meta.Empty() {
		chunks := buildPNGMetaChunks(meta)
		if len(chunks) > 0 {
			// Signature (8) plus the fixed-size IHDR chunk (25).
			const ihdrEnd = 33
			spliced := make([]byte, 0, len(out)+len(chunks))
			spliced = append(spliced, out[:ihdrEnd]...)
			spliced = append(spliced, chunks...)
			spliced = append(spliced, out[ihdrEnd:]...)
			out = spliced
		}
	}
	return out, nil
}

func compressionLevel(effort int) png.CompressionLevel {
	switch {
	case effort <= 3:
		return png.BestSpeed
	case effort <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func buildPNGMetaChunks(meta *core.Metadata) []byte {
	var out []byte
	if len(meta.ICC) > 0 {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		zw.Write(meta.ICC)
		zw.Close()
		payload := append([]byte("ICC Profile\x00\x00"), z.Bytes()...)
		out = appendChunk(out, "iCCP", payload)
	}
	if len(meta.EXIFRaw) > 0 {
		out = appendChunk(out, "eXIf", meta.EXIFRaw)
	}
	return out
}

func appendChunk(dst []byte, ctype string, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, ctype...)
	dst = append(dst, payload...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(ctype))
	crc.Write(payload)
	return binary.BigEndian.AppendUint32(dst, crc.Sum32())
}
