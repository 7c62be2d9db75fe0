package rastermill_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	rastermill "github.com/rastermill/rastermill"
	"github.com/rastermill/rastermill/adapters/encoder"
	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
	"github.com/rastermill/rastermill/hooks"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newTestPNG(t *testing.T, w, h int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 5), G: uint8(y * 3), B: uint8(x * y), A: alpha,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func newOptimizer(t *testing.T) *rastermill.Optimizer {
	t.Helper()
	return rastermill.New(rastermill.Options{})
}

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestOptimize_ResizeToWebP(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 80, 60, 255)

	result, err := opt.Optimize(context.Background(), raw, rastermill.Request{
		Target: rastermill.WebP,
		Encode: config.Encode{Quality: 80},
		Resize: &config.Resize{Width: 40},
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result.Width != 40 || result.Height != 30 {
		t.Errorf("got %dx%d, want 40x30", result.Width, result.Height)
	}
	if result.Format != rastermill.WebP {
		t.Errorf("format: got %s, want webp", result.Format)
	}
	if len(result.Data) == 0 {
		t.Error("encoded data is empty")
	}
}

func TestOptimize_DefaultTargetKeepsSourceFormat(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 20, 20, 255)

	result, err := opt.Optimize(context.Background(), raw, rastermill.Request{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result.Format != rastermill.PNG {
		t.Errorf("format: got %s, want png", result.Format)
	}
	if !bytes.HasPrefix(result.Data, []byte{0x89, 'P', 'N', 'G'}) {
		t.Error("output does not start with a png signature")
	}
}

func TestOptimize_QOIRoundTrip(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 25, 25, 255)

	toQOI, err := opt.Optimize(context.Background(), raw, rastermill.Request{Target: rastermill.QOI})
	if err != nil {
		t.Fatalf("to qoi: %v", err)
	}
	back, err := opt.Optimize(context.Background(), toQOI.Data, rastermill.Request{Target: rastermill.PNG})
	if err != nil {
		t.Fatalf("back to png: %v", err)
	}
	if back.Width != 25 || back.Height != 25 {
		t.Errorf("shape: got %dx%d, want 25x25", back.Width, back.Height)
	}
}

func TestOptimize_TruncatedInput(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 30, 30, 255)

	_, err := opt.Optimize(context.Background(), raw[:len(raw)/2], rastermill.Request{})
	if rmerrors.KindOf(err) != rmerrors.KindDecodeFailure {
		t.Fatalf("got %v, want decode failure", err)
	}
}

func TestOptimize_UnknownInput(t *testing.T) {
	opt := newOptimizer(t)
	_, err := opt.Optimize(context.Background(), []byte("these bytes are no raster"), rastermill.Request{})
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedFormat {
		t.Fatalf("got %v, want unsupported format", err)
	}
}

func TestOptimize_OpaqueAlphaToJPEG(t *testing.T) {
	opt := newOptimizer(t)
	// WebP always decodes with an explicit alpha plane, here fully opaque.
	webpRes, err := opt.Optimize(context.Background(), newTestPNG(t, 16, 16, 255), rastermill.Request{
		Target: rastermill.WebP,
		Encode: config.Encode{Lossless: true},
	})
	if err != nil {
		t.Fatalf("build webp source: %v", err)
	}

	result, err := opt.Optimize(context.Background(), webpRes.Data, rastermill.Request{Target: rastermill.JPEG})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Stage == "encode" {
			found = true
		}
	}
	if !found {
		t.Error("alpha drop produced no warning")
	}
}

func TestOptimize_TranslucentAlphaToJPEG(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 16, 16, 120)

	_, err := opt.Optimize(context.Background(), raw, rastermill.Request{Target: rastermill.JPEG})
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedChannelLayout {
		t.Fatalf("got %v, want unsupported channel layout", err)
	}
}

func TestOptimize_EmbedMetadataIntoQOI(t *testing.T) {
	// Build a PNG carrying an eXIf chunk, then ask for QOI with embedding on.
	buf, err := core.NewPixelBuffer(8, 8, core.LayoutRGB, core.Depth8)
	if err != nil {
		t.Fatalf("NewPixelBuffer: %v", err)
	}
	frame := &core.Frame{Buffer: buf, Meta: &core.Metadata{EXIFRaw: []byte{1, 2, 3, 4}}}
	src, err := encoder.NewPNG().Encode(context.Background(), frame, config.Encode{EmbedMetadata: true})
	if err != nil {
		t.Fatalf("build source png: %v", err)
	}

	opt := newOptimizer(t)
	_, err = opt.Optimize(context.Background(), src, rastermill.Request{
		Target: rastermill.QOI,
		Encode: config.Encode{EmbedMetadata: true},
	})
	if rmerrors.KindOf(err) != rmerrors.KindMetadataUnsupported {
		t.Fatalf("got %v, want metadata unsupported", err)
	}

	// Stripping makes the same request succeed.
	result, err := opt.Optimize(context.Background(), src, rastermill.Request{
		Target: rastermill.QOI,
		Encode: config.Encode{StripMetadata: true},
	})
	if err != nil {
		t.Fatalf("with strip: %v", err)
	}
	if len(result.Data) == 0 {
		t.Error("encoded data is empty")
	}
}

func TestOptimize_InvalidConfigBeforeDecode(t *testing.T) {
	opt := newOptimizer(t)
	// Garbage input, but the config error must win: validation runs first.
	_, err := opt.Optimize(context.Background(), []byte("garbage"), rastermill.Request{
		Resize: &config.Resize{Width: 100, Scale: 2},
	})
	if rmerrors.KindOf(err) != rmerrors.KindConfigConflict {
		t.Fatalf("got %v, want config conflict", err)
	}
}

func TestOptimize_QuantizePNG(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 40, 40, 255)

	result, err := opt.Optimize(context.Background(), raw, rastermill.Request{
		Target:   rastermill.PNG,
		Quantize: &config.Quantize{Colors: 16},
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	seen := make(map[color.Color]struct{})
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			seen[img.At(x, y)] = struct{}{}
		}
	}
	if len(seen) > 16 {
		t.Errorf("distinct colors: got %d, want <= 16", len(seen))
	}
}

func TestOptimize_AVIFWithoutBackend(t *testing.T) {
	opt := newOptimizer(t)
	raw := newTestPNG(t, 10, 10, 255)
	_, err := opt.Optimize(context.Background(), raw, rastermill.Request{Target: rastermill.AVIF})
	if rmerrors.KindOf(err) != rmerrors.KindUnsupportedFormat {
		t.Skipf("avif backend compiled in: %v", err)
	}
}

func TestBatch(t *testing.T) {
	opt := newOptimizer(t)
	inputs := [][]byte{
		newTestPNG(t, 20, 20, 255),
		[]byte("broken"),
		newTestPNG(t, 10, 10, 255),
	}
	results, errs := opt.Batch(context.Background(), inputs, rastermill.Request{
		Target: rastermill.QOI,
	})
	if len(results) != 3 || len(errs) != 3 {
		t.Fatalf("got %d results / %d errs, want 3 / 3", len(results), len(errs))
	}
	if errs[0] != nil || errs[2] != nil {
		t.Errorf("valid inputs failed: %v, %v", errs[0], errs[2])
	}
	if errs[1] == nil {
		t.Error("broken input did not fail")
	}
	if results[0] == nil || results[0].Width != 20 {
		t.Error("first result missing or wrong shape")
	}
}

func TestHooks_ObserveOperations(t *testing.T) {
	metrics := hooks.NewInMemoryMetrics()
	opt := rastermill.New(rastermill.Options{Hooks: []rastermill.Hook{metrics}})
	raw := newTestPNG(t, 30, 30, 255)

	_, err := opt.Optimize(context.Background(), raw, rastermill.Request{
		Resize: &config.Resize{Width: 15},
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	snap := metrics.Snapshot()
	if snap.OpCalls["resize"] != 1 {
		t.Errorf("resize calls: got %d, want 1", snap.OpCalls["resize"])
	}
}
