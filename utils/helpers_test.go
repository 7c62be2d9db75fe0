package utils

import "testing"

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"qoi", []byte("qoif\x00\x00\x00\x10"), "qoi"},
		{"avif", []byte("\x00\x00\x00\x20ftypavif"), "avif"},
		{"avis", []byte("\x00\x00\x00\x20ftypavis"), "avif"},
		{"heic", []byte("\x00\x00\x00\x20ftypheic"), "unknown"},
		{"short", []byte{0xFF, 0xD8}, "unknown"},
		{"garbage", []byte("not an image at all"), "unknown"},
	}
	for _, tc := range cases {
		if got := DetectFormat(tc.data); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestScaleDimensions(t *testing.T) {
	cases := []struct {
		srcW, srcH, tw, th, wantW, wantH int
	}{
		{800, 600, 400, 0, 400, 300},
		{800, 600, 0, 300, 400, 300},
		{800, 600, 400, 200, 400, 200},
		{800, 600, 0, 0, 800, 600},
		{1000, 1, 10, 0, 10, 1}, // derived axis clamps to 1
	}
	for _, tc := range cases {
		w, h := ScaleDimensions(tc.srcW, tc.srcH, tc.tw, tc.th)
		if w != tc.wantW || h != tc.wantH {
			t.Errorf("%dx%d → (%d,%d): got %dx%d, want %dx%d",
				tc.srcW, tc.srcH, tc.tw, tc.th, w, h, tc.wantW, tc.wantH)
		}
	}
}

func TestFitDimensions(t *testing.T) {
	w, h := FitDimensions(800, 600, 400, 400)
	if w != 400 || h != 300 {
		t.Errorf("landscape fit: got %dx%d, want 400x300", w, h)
	}
	w, h = FitDimensions(600, 800, 400, 400)
	if w != 300 || h != 400 {
		t.Errorf("portrait fit: got %dx%d, want 300x400", w, h)
	}
}
