package core

import (
	"context"
	"testing"

	"github.com/rastermill/rastermill/config"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// stubEncoder records the frame it receives and declares fixed capabilities.
type stubEncoder struct {
	layouts []ChannelLayout
	depths  []BitDepth
	meta    bool

	got *Frame
}

func (s *stubEncoder) CanEncode(Format) bool      { return true }
func (s *stubEncoder) Layouts() []ChannelLayout   { return s.layouts }
func (s *stubEncoder) Depths() []BitDepth         { return s.depths }
func (s *stubEncoder) SupportsMetadata() bool     { return s.meta }
func (s *stubEncoder) Encode(_ context.Context, f *Frame, _ config.Encode) ([]byte, error) {
	s.got = f
	return []byte("ok"), nil
}

func newDispatchFixture(t *testing.T, enc *stubEncoder) *Dispatcher {
	t.Helper()
	reg := NewRegistry()
	reg.RegisterEncoder(FormatPNG, enc)
	return NewDispatcher(reg, nil)
}

func rgbaBuffer(t *testing.T, alpha byte) *PixelBuffer {
	t.Helper()
	buf, err := NewPixelBuffer(4, 4, LayoutRGBA, Depth8)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	pix := buf.Pix()
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = byte(i), byte(i*2), byte(i*3), alpha
	}
	return buf
}

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestDecode_EmptyInput(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	_, err := d.Decode(context.Background(), nil, "")
	if rmerrors.KindOf(err) != rmerrors.KindDecodeFailure {
		t.Fatalf("got %v, want decode failure", err)
	}
}

func TestDecode_UnknownFormatNoHint(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	_, err := d.Decode(context.Background(), []byte("definitely not an image"), "")
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedFormat {
		t.Fatalf("got %v, want unsupported format", err)
	}
}

func TestDecode_HintWithoutBackend(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	_, err := d.Decode(context.Background(), []byte("headless raster bytes"), FormatQOI)
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedFormat {
		t.Fatalf("got %v, want unsupported format", err)
	}
}

func TestEncode_OpaqueAlphaDropped(t *testing.T) {
	enc := &stubEncoder{layouts: []ChannelLayout{LayoutRGB}, depths: []BitDepth{Depth8}}
	d := newDispatchFixture(t, enc)

	frame := &Frame{Buffer: rgbaBuffer(t, 0xff)}
	_, warnings, err := d.Encode(context.Background(), frame, FormatPNG, config.Encode{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.got.Buffer.Layout() != LayoutRGB {
		t.Errorf("layout: got %s, want rgb", enc.got.Buffer.Layout())
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings: got %d, want 1 (alpha drop note)", len(warnings))
	}
}

func TestEncode_NonOpaqueAlphaFails(t *testing.T) {
	enc := &stubEncoder{layouts: []ChannelLayout{LayoutRGB}, depths: []BitDepth{Depth8}}
	d := newDispatchFixture(t, enc)

	frame := &Frame{Buffer: rgbaBuffer(t, 0x80)}
	_, _, err := d.Encode(context.Background(), frame, FormatPNG, config.Encode{})
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedChannelLayout {
		t.Fatalf("got %v, want unsupported channel layout", err)
	}
}

func TestEncode_LosslessWidening(t *testing.T) {
	enc := &stubEncoder{layouts: []ChannelLayout{LayoutRGBA}, depths: []BitDepth{Depth8}}
	d := newDispatchFixture(t, enc)

	buf, err := NewPixelBuffer(4, 4, LayoutRGB, Depth8)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	_, warnings, err := d.Encode(context.Background(), &Frame{Buffer: buf}, FormatPNG, config.Encode{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.got.Buffer.Layout() != LayoutRGBA {
		t.Errorf("layout: got %s, want rgba", enc.got.Buffer.Layout())
	}
	if len(warnings) != 0 {
		t.Errorf("lossless widening must not warn, got %v", warnings)
	}
}

func TestEncode_DepthNarrowingWarns(t *testing.T) {
	enc := &stubEncoder{layouts: []ChannelLayout{LayoutRGBA}, depths: []BitDepth{Depth8}}
	d := newDispatchFixture(t, enc)

	buf, err := NewPixelBuffer(4, 4, LayoutRGBA, Depth16)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	_, warnings, err := d.Encode(context.Background(), &Frame{Buffer: buf}, FormatPNG, config.Encode{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.got.Buffer.Depth() != Depth8 {
		t.Errorf("depth: got %d, want 8", enc.got.Buffer.Depth())
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings: got %d, want 1 (precision note)", len(warnings))
	}
}

func TestEncode_MetadataGating(t *testing.T) {
	meta := &Metadata{EXIFRaw: []byte{1, 2, 3}}

	// Embed against a container-less format fails.
	enc := &stubEncoder{layouts: []ChannelLayout{LayoutRGBA}, depths: []BitDepth{Depth8}, meta: false}
	d := newDispatchFixture(t, enc)
	frame := &Frame{Buffer: rgbaBuffer(t, 0xff), Meta: meta}
	_, _, err := d.Encode(context.Background(), frame, FormatPNG, config.Encode{EmbedMetadata: true})
	if rmerrors.KindOf(err) != rmerrors.KindMetadataUnsupported {
		t.Fatalf("got %v, want metadata unsupported", err)
	}

	// Strip wins over embed.
	enc = &stubEncoder{layouts: []ChannelLayout{LayoutRGBA}, depths: []BitDepth{Depth8}, meta: true}
	d = newDispatchFixture(t, enc)
	frame = &Frame{Buffer: rgbaBuffer(t, 0xff), Meta: meta}
	_, _, err = d.Encode(context.Background(), frame, FormatPNG, config.Encode{EmbedMetadata: true, StripMetadata: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.got.Meta != nil {
		t.Error("strip did not remove metadata from the encoder frame")
	}

	// Default (no embed) drops metadata silently.
	enc = &stubEncoder{layouts: []ChannelLayout{LayoutRGBA}, depths: []BitDepth{Depth8}, meta: true}
	d = newDispatchFixture(t, enc)
	frame = &Frame{Buffer: rgbaBuffer(t, 0xff), Meta: meta}
	_, _, err = d.Encode(context.Background(), frame, FormatPNG, config.Encode{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if enc.got.Meta != nil {
		t.Error("metadata leaked into the encoder without embed")
	}
}

func TestEncode_NoEncoderRegistered(t *testing.T) {
	d := NewDispatcher(NewRegistry(), nil)
	buf, _ := NewPixelBuffer(2, 2, LayoutRGB, Depth8)
	_, _, err := d.Encode(context.Background(), &Frame{Buffer: buf}, FormatWebP, config.Encode{})
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedFormat {
		t.Fatalf("got %v, want unsupported format", err)
	}
}

var _ Encoder = (*stubEncoder)(nil)
