// Package utils holds small stateless helpers shared across the module.
package utils

const (
	formatJPEG    = "jpeg"
	formatPNG     = "png"
	formatWebP    = "webp"
	formatQOI     = "qoi"
	formatAVIF    = "avif"
	formatUnknown = "unknown"
)

// DetectFormat sniffs the leading magic bytes of data and returns the image
// format name, or "unknown" when nothing matches.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return formatUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return formatJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return formatPNG
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return formatWebP
	}
	// QOI: "qoif"
	if data[0] == 'q' && data[1] == 'o' && data[2] == 'i' && data[3] == 'f' {
		return formatQOI
	}
	// AVIF: ISO BMFF ftyp box with an avif/avis brand.
	if len(data) >= 12 &&
		data[4] == 'f' && data[5] == 't' && data[6] == 'y' && data[7] == 'p' {
		brand := string(data[8:12])
		if brand == "avif" || brand == "avis" {
			return formatAVIF
		}
	}
	return formatUnknown
}

// ScaleDimensions computes output (w, h) preserving aspect ratio.
// Pass 0 for either axis to calculate it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return srcW, srcH
	}
	if targetW == 0 {
		ratio := float64(targetH) / float64(srcH)
		return clampDim(int(float64(srcW)*ratio + 0.5)), targetH
	}
	if targetH == 0 {
		ratio := float64(targetW) / float64(srcW)
		return targetW, clampDim(int(float64(srcH)*ratio + 0.5))
	}
	return targetW, targetH
}

// FitDimensions computes the largest size within (boxW, boxH) that preserves
// the source aspect ratio.
func FitDimensions(srcW, srcH, boxW, boxH int) (int, int) {
	rw := float64(boxW) / float64(srcW)
	rh := float64(boxH) / float64(srcH)
	r := rw
	if rh < rw {
		r = rh
	}
	return clampDim(int(float64(srcW)*r + 0.5)), clampDim(int(float64(srcH)*r + 0.5))
}

func clampDim(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// CloneBytes returns a copy of b.
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
