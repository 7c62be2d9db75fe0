package pipeline

import (
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// Reorient returns a buffer with the given EXIF orientation applied, so the
// pixels read top-left first.  Orientations 5 through 8 swap the axes.
// Orientation 1 (or 0, unset) returns the buffer unchanged.
func Reorient(buf *core.PixelBuffer, orientation int) (*core.PixelBuffer, error) {
	if orientation <= 1 {
		return buf, nil
	}
	if orientation > 8 {
		return nil, rmerrors.Newf(rmerrors.KindUnsupportedOperation, "orientation tag %d out of range", orientation)
	}

	srcW, srcH := buf.Width(), buf.Height()
	dstW, dstH := srcW, srcH
	if orientation >= 5 {
		dstW, dstH = srcH, srcW
	}
	out, err := core.NewPixelBuffer(dstW, dstH, buf.Layout(), buf.Depth())
	if err != nil {
		return nil, err
	}

	px := buf.Layout().Channels() * buf.Depth().BytesPerSample()
	src, dst := buf.Pix(), out.Pix()
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			var sx, sy int
			switch orientation {
			case 2: // mirror horizontal
				sx, sy = srcW-1-x, y
			case 3: // rotate 180
				sx, sy = srcW-1-x, srcH-1-y
			case 4: // mirror vertical
				sx, sy = x, srcH-1-y
			case 5: // transpose
				sx, sy = y, x
			case 6: // rotate 90 CW
				sx, sy = y, srcH-1-x
			case 7: // transverse
				sx, sy = srcW-1-y, srcH-1-x
			default: // 8, rotate 270 CW
				sx, sy = srcW-1-y, x
			}
			so := (sy*srcW + sx) * px
			do := (y*dstW + x) * px
			copy(dst[do:do+px], src[so:so+px])
		}
	}
	return out, nil
}
