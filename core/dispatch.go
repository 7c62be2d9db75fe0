package core

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/rastermill/rastermill/config"
	rmerrors "github.com/rastermill/rastermill/errors"
	"github.com/rastermill/rastermill/utils"
)

// Dispatcher routes decode and encode calls to registered backends and owns
// the conversion glue at each boundary.  Backend-specific pixel expectations
// and error types stop here: frames handed to an encoder already conform to
// its declared capabilities, and errors leaving the dispatcher belong to the
// closed taxonomy.
type Dispatcher struct {
	reg Registry
	log *zap.Logger
}

// NewDispatcher creates a Dispatcher.  A nil logger disables logging.
func NewDispatcher(reg Registry, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{reg: reg, log: log}
}

// Decode identifies the input format by magic-byte sniffing, falling back to
// the caller's hint, then invokes the matching backend decoder.  The returned
// frame always uses one of the canonical channel layouts.
func (d *Dispatcher) Decode(ctx context.Context, data []byte, hint Format) (*Frame, error) {
	if len(data) == 0 {
		return nil, rmerrors.New(rmerrors.KindDecodeFailure, "empty input")
	}
	format := Format(utils.DetectFormat(data))
	if format == FormatUnknown && hint != "" && hint != FormatUnknown {
		format = hint
	}
	if format == FormatUnknown {
		return nil, rmerrors.UnsupportedFormat("input matches no known magic bytes and no format hint was given")
	}
	dec, ok := d.reg.DecoderFor(format)
	if !ok || !dec.CanDecode(format) {
		return nil, rmerrors.UnsupportedFormat(string(format))
	}
	frame, err := dec.Decode(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, normalizeErr(err, string(format), rmerrors.KindDecodeFailure)
	}
	frame.Format = format
	for _, w := range frame.Warnings {
		d.log.Warn("decode warning",
			zap.String("stage", w.Stage),
			zap.String("backend", w.Backend),
			zap.String("message", w.Message),
		)
	}
	return frame, nil
}

// Encode selects the backend encoder for target, performs whatever
// layout/depth downgrade the backend requires -- explicitly, reporting each
// one as a warning on the side channel -- and produces the encoded bytes.
// Combinations the backend cannot express without losing data fail instead of
// degrading silently.
func (d *Dispatcher) Encode(ctx context.Context, frame *Frame, target Format, opts config.Encode) ([]byte, []Warning, error) {
	enc, ok := d.reg.EncoderFor(target)
	if !ok || !enc.CanEncode(target) {
		return nil, nil, rmerrors.UnsupportedFormat(string(target))
	}
	backend := string(target)
	var warnings []Warning

	buf := frame.Buffer
	layout, note, err := pickLayout(buf, enc.Layouts(), backend)
	if err != nil {
		return nil, nil, err
	}
	if note != "" {
		warnings = append(warnings, Warning{Stage: "encode", Backend: backend, Message: note})
	}

	depth := buf.Depth()
	if !depthAccepted(enc.Depths(), depth) {
		if depth == Depth16 && depthAccepted(enc.Depths(), Depth8) {
			depth = Depth8
			warnings = append(warnings, Warning{
				Stage:   "encode",
				Backend: backend,
				Message: "precision: 16-bit samples rounded to 8-bit for this backend",
			})
		} else if depth == Depth8 && depthAccepted(enc.Depths(), Depth16) {
			depth = Depth16
		} else {
			return nil, nil, rmerrors.Newf(rmerrors.KindEncodeFailure, "%s: no usable bit depth", backend)
		}
	}

	buf, err = buf.Convert(layout, depth)
	if err != nil {
		return nil, nil, err
	}

	meta := frame.Meta
	switch {
	case opts.StripMetadata:
		meta = nil
	case opts.EmbedMetadata && !meta.Empty() && !enc.SupportsMetadata():
		return nil, nil, &rmerrors.Error{
			Kind:    rmerrors.KindMetadataUnsupported,
			Backend: backend,
			Detail:  "target format has no metadata container",
		}
	case !opts.EmbedMetadata:
		meta = nil
	}

	ef := &Frame{Buffer: buf, Meta: meta, Format: frame.Format}
	out, err := enc.Encode(ctx, ef, opts)
	if err != nil {
		return nil, nil, normalizeErr(err, backend, rmerrors.KindEncodeFailure)
	}
	warnings = append(warnings, ef.Warnings...)
	for _, w := range warnings {
		d.log.Warn("encode warning",
			zap.String("backend", w.Backend),
			zap.String("message", w.Message),
		)
	}
	return out, warnings, nil
}

// pickLayout chooses the channel layout a frame will be converted to for a
// backend.  Lossless widenings (gray→rgb, adding an alpha channel) are free;
// an alpha channel is dropped only when every sample is fully opaque, with a
// warning note; anything else fails.
func pickLayout(buf *PixelBuffer, accepted []ChannelLayout, backend string) (ChannelLayout, string, error) {
	have := buf.Layout()
	ok := func(l ChannelLayout) bool {
		for _, a := range accepted {
			if a == l {
				return true
			}
		}
		return false
	}
	if ok(have) {
		return have, "", nil
	}

	var widen []ChannelLayout
	switch have {
	case LayoutGray:
		widen = []ChannelLayout{LayoutGrayAlpha, LayoutRGB, LayoutRGBA}
	case LayoutGrayAlpha:
		widen = []ChannelLayout{LayoutRGBA}
	case LayoutRGB:
		widen = []ChannelLayout{LayoutRGBA}
	}
	for _, l := range widen {
		if ok(l) {
			return l, "", nil
		}
	}

	if have.HasAlpha() {
		if !buf.OpaqueAlpha() {
			return "", "", &rmerrors.Error{
				Kind:    rmerrors.KindUnsupportedChannelLayout,
				Backend: backend,
				Detail:  string(have) + " carries a non-opaque alpha channel the target format cannot express",
			}
		}
		var drop []ChannelLayout
		if have == LayoutGrayAlpha {
			drop = []ChannelLayout{LayoutGray, LayoutRGB}
		} else {
			drop = []ChannelLayout{LayoutRGB}
		}
		for _, l := range drop {
			if ok(l) {
				return l, "fully opaque alpha channel dropped for " + backend, nil
			}
		}
	}

	return "", "", &rmerrors.Error{
		Kind:    rmerrors.KindUnsupportedChannelLayout,
		Backend: backend,
		Detail:  "no lossless conversion from " + string(have),
	}
}

func depthAccepted(depths []BitDepth, d BitDepth) bool {
	for _, v := range depths {
		if v == d {
			return true
		}
	}
	return false
}

// normalizeErr guarantees that only taxonomy errors cross the dispatch
// boundary: already-normalized errors pass through, anything else is wrapped
// with the backend name.
func normalizeErr(err error, backend string, kind rmerrors.Kind) error {
	if rmerrors.KindOf(err) != "" {
		return err
	}
	return &rmerrors.Error{Kind: kind, Backend: backend, Err: err}
}
