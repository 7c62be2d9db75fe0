package decoder

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"image/png"
	"io"

	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// PNG decodes PNG images using the standard library, picking up the eXIf and
// iCCP ancillary chunks the stdlib decoder ignores.
type PNG struct{}

// NewPNG returns an initialised PNG decoder.
func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG || format == core.FormatUnknown
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, rmerrors.Decode("png", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, rmerrors.Decode("png", err)
	}

	if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
		if err := core.CheckDimensions(cfg.Width, cfg.Height, core.LayoutRGBA, core.Depth16); err != nil {
			return nil, err
		}
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rmerrors.Decode("png", err)
	}
	buf, err := core.FromImage(img)
	if err != nil {
		return nil, err
	}

	frame := &core.Frame{Buffer: buf}
	exifRaw, icc, warn := scanPNGChunks(data)
	for _, msg := range warn {
		frame.Warn("decode", "png", msg)
	}
	if len(exifRaw) > 0 || len(icc) > 0 {
		frame.Meta = &core.Metadata{EXIFRaw: exifRaw, ICC: icc}
		if len(exifRaw) > 0 {
			parseEXIF(frame, "png", exifRaw)
		}
	}
	return frame, nil
}

// scanPNGChunks walks the chunk list for eXIf (raw TIFF payload) and iCCP
// (deflated ICC profile after a latin-1 name and a compression method byte).
func scanPNGChunks(data []byte) (exifRaw, icc []byte, warnings []string) {
	const sigLen = 8
	p := sigLen
	for p+8 <= len(data) {
		clen := int(binary.BigEndian.Uint32(data[p : p+4]))
		ctype := string(data[p+4 : p+8])
		body := p + 8
		if clen < 0 || body+clen+4 > len(data) {
			return
		}
		payload := data[body : body+clen]
		switch ctype {
		case "eXIf":
			exifRaw = append([]byte(nil), payload...)
		case "iCCP":
			nul := bytes.IndexByte(payload, 0)
			if nul < 0 || nul+2 > len(payload) || payload[nul+1] != 0 {
				warnings = append(warnings, "iCCP: malformed chunk header")
				break
			}
			zr, err := zlib.NewReader(bytes.NewReader(payload[nul+2:]))
			if err != nil {
				warnings = append(warnings, "iCCP: "+err.Error())
				break
			}
			profile, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				warnings = append(warnings, "iCCP: "+err.Error())
				break
			}
			icc = profile
		case "IDAT", "IEND":
			// Ancillary metadata chunks precede the image data.
			return
		}
		p = body + clen + 4 // skip payload and CRC
	}
	return
}
