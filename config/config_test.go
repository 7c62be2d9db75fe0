package config

import (
	"testing"

	rmerrors "github.com/rastermill/rastermill/errors"
)

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestNewEncode_Defaults(t *testing.T) {
	c, err := NewEncode(Encode{})
	if err != nil {
		t.Fatalf("NewEncode: %v", err)
	}
	if c.Quality != 85 {
		t.Errorf("quality: got %d, want 85", c.Quality)
	}
	if c.Effort != 4 {
		t.Errorf("effort: got %d, want 4", c.Effort)
	}
}

func TestNewEncode_Invalid(t *testing.T) {
	cases := []Encode{
		{Quality: 101},
		{Quality: -1},
		{Effort: 10},
	}
	for _, c := range cases {
		if _, err := NewEncode(c); rmerrors.KindOf(err) != rmerrors.KindInvalidConfig {
			t.Errorf("%+v: got %v, want invalid config", c, err)
		}
	}
}

func TestNewResize_SizeAndScaleConflict(t *testing.T) {
	_, err := NewResize(Resize{Width: 100, Scale: 0.5})
	if rmerrors.KindOf(err) != rmerrors.KindConfigConflict {
		t.Fatalf("got %v, want config conflict", err)
	}
}

func TestNewResize_NeitherSizeNorScale(t *testing.T) {
	_, err := NewResize(Resize{})
	if rmerrors.KindOf(err) != rmerrors.KindInvalidConfig {
		t.Fatalf("got %v, want invalid config", err)
	}
}

func TestNewResize_DefaultFilter(t *testing.T) {
	c, err := NewResize(Resize{Width: 100})
	if err != nil {
		t.Fatalf("NewResize: %v", err)
	}
	if c.Filter != FilterLanczos3 {
		t.Errorf("filter: got %q, want lanczos3", c.Filter)
	}
}

func TestNewResize_UnknownFilter(t *testing.T) {
	_, err := NewResize(Resize{Width: 100, Filter: "bicubic"})
	if rmerrors.KindOf(err) != rmerrors.KindInvalidConfig {
		t.Fatalf("got %v, want invalid config", err)
	}
}

func TestNewQuantize_Bounds(t *testing.T) {
	c, err := NewQuantize(Quantize{})
	if err != nil {
		t.Fatalf("NewQuantize: %v", err)
	}
	if c.Colors != 256 {
		t.Errorf("colors: got %d, want default 256", c.Colors)
	}
	if _, err := NewQuantize(Quantize{Colors: 1}); rmerrors.KindOf(err) != rmerrors.KindInvalidConfig {
		t.Errorf("colors=1: got %v, want invalid config", err)
	}
	if _, err := NewQuantize(Quantize{Colors: 257}); rmerrors.KindOf(err) != rmerrors.KindInvalidConfig {
		t.Errorf("colors=257: got %v, want invalid config", err)
	}
	if _, err := NewQuantize(Quantize{Colors: 16, Dithering: 1.5}); rmerrors.KindOf(err) != rmerrors.KindInvalidConfig {
		t.Errorf("dithering=1.5: got %v, want invalid config", err)
	}
}
