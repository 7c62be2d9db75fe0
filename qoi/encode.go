package qoi

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
)

// Encode writes img to w in QOI format.  The header declares 3 channels when
// every pixel is fully opaque and 4 otherwise; the chunk stream itself is
// identical either way.
func Encode(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return errors.New("qoi: empty image")
	}

	nrgba := toNRGBA(img)

	channels := uint8(3)
	if !nrgba.Opaque() {
		channels = 4
	}

	out := make([]byte, 0, headerSize+width*height/2)
	out = append(out, Magic...)
	out = binary.BigEndian.AppendUint32(out, uint32(width))
	out = binary.BigEndian.AppendUint32(out, uint32(height))
	out = append(out, channels, 0)

	var index [64][4]byte
	prev := [4]byte{0, 0, 0, 255}
	run := 0

	pix := nrgba.Pix
	nb := nrgba.Bounds()
	for y := 0; y < height; y++ {
		row := nrgba.PixOffset(nb.Min.X, nb.Min.Y+y)
		for x := 0; x < width; x++ {
			off := row + x*4
			curr := [4]byte{pix[off], pix[off+1], pix[off+2], pix[off+3]}

			if curr == prev {
				run++
				if run == 62 {
					out = append(out, opRun|byte(run-1))
					run = 0
				}
				continue
			}
			if run > 0 {
				out = append(out, opRun|byte(run-1))
				run = 0
			}

			h := hashIndex(curr[0], curr[1], curr[2], curr[3])
			switch {
			case index[h] == curr:
				out = append(out, opIndex|byte(h))
			case curr[3] != prev[3]:
				out = append(out, opRGBA, curr[0], curr[1], curr[2], curr[3])
			default:
				// Wrapping channel deltas against the previous pixel.
				dr := int(int8(curr[0] - prev[0]))
				dg := int(int8(curr[1] - prev[1]))
				db := int(int8(curr[2] - prev[2]))
				drDg := dr - dg
				dbDg := db - dg
				switch {
				case dr >= -2 && dr <= 1 && dg >= -2 && dg <= 1 && db >= -2 && db <= 1:
					out = append(out, opDiff|byte(dr+2)<<4|byte(dg+2)<<2|byte(db+2))
				case dg >= -32 && dg <= 31 && drDg >= -8 && drDg <= 7 && dbDg >= -8 && dbDg <= 7:
					out = append(out, opLuma|byte(dg+32), byte(drDg+8)<<4|byte(dbDg+8))
				default:
					out = append(out, opRGB, curr[0], curr[1], curr[2])
				}
			}
			index[h] = curr
			prev = curr
		}
	}
	if run > 0 {
		out = append(out, opRun|byte(run-1))
	}
	out = append(out, endMarker[:]...)

	_, err := w.Write(out)
	return err
}

func toNRGBA(img image.Image) *image.NRGBA {
	if src, ok := img.(*image.NRGBA); ok {
		return src
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.Pix[i] = c.R
			dst.Pix[i+1] = c.G
			dst.Pix[i+2] = c.B
			dst.Pix[i+3] = c.A
			i += 4
		}
	}
	return dst
}
