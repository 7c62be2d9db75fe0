package decoder

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/rastermill/rastermill/core"
)

// exifWalker collects every walked field into a flat name→value map.
type exifWalker struct {
	tags map[string]string
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.tags[string(name)] = strings.Trim(tag.String(), `"`)
	return nil
}

// parseEXIF fills frame.Meta.EXIF and Orientation from an EXIF-bearing stream
// (a whole JPEG file or a raw TIFF payload).  Parsing is best effort: a
// malformed block degrades to a warning, never a decode failure.
func parseEXIF(frame *core.Frame, backend string, data []byte) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		frame.Warn("decode", backend, "exif: "+err.Error())
		return
	}
	w := &exifWalker{tags: make(map[string]string)}
	if err := x.Walk(w); err != nil {
		frame.Warn("decode", backend, "exif: "+err.Error())
		return
	}
	if frame.Meta == nil {
		frame.Meta = &core.Metadata{}
	}
	frame.Meta.EXIF = w.tags

	if tag, err := x.Get(exif.Orientation); err == nil {
		if o, err := tag.Int(0); err == nil && o >= 1 && o <= 8 {
			frame.Meta.Orientation = o
		}
	}
}
