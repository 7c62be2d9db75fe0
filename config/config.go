// Package config holds the validated, immutable tunables for codecs and
// operations.  Every variant is validated once at construction; dispatch code
// downstream trusts the values and never re-checks ranges, which is the seam
// that keeps out-of-range parameters away from backend codec contracts.
package config

import (
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	rmerrors "github.com/rastermill/rastermill/errors"
)

var validate = validator.New()

// Filter selects the resampling kernel for Resize.
type Filter string

const (
	FilterNearest    Filter = "nearest"
	FilterBilinear   Filter = "bilinear"
	FilterCatmullRom Filter = "catmullrom"
	FilterLanczos3   Filter = "lanczos3"
)

// Encode carries format-agnostic encoding parameters.  Zero values receive
// defaults at construction, so Encode{} is a valid starting point.
type Encode struct {
	// Quality in [0,100]; 0 becomes the default at construction.
	Quality int `default:"85" validate:"gte=0,lte=100"`
	// Effort in [0,9] trades encode speed for output size where the backend
	// has such a knob (PNG compression level, AVIF speed).
	Effort int `default:"4" validate:"gte=0,lte=9"`
	// Lossless requests lossless mode on backends that offer one (WebP, PNG).
	Lossless bool
	// Progressive requests progressive/interlaced output; advisory, honored
	// only by backends that can express it.
	Progressive bool
	// EmbedMetadata writes EXIF/ICC into the output container.  Requesting it
	// against a container-less format is an error; requesting it when the
	// frame carries no metadata is a no-op.
	EmbedMetadata bool
	// StripMetadata discards all metadata regardless of EmbedMetadata.
	StripMetadata bool
}

// NewEncode applies defaults and validates c, returning an immutable copy.
func NewEncode(c Encode) (Encode, error) {
	if err := build(&c); err != nil {
		return Encode{}, err
	}
	return c, nil
}

// Resize configures the resize operation.  Exactly one of an absolute size
// (Width and/or Height) or a Scale factor must be given.
type Resize struct {
	// Width/Height in pixels; 0 on one axis derives it from the aspect ratio.
	Width  int `validate:"gte=0"`
	Height int `validate:"gte=0"`
	// Scale is a uniform factor applied to both axes; exclusive with
	// Width/Height.
	Scale float64 `validate:"gte=0"`
	// Filter defaults to Lanczos3.
	Filter Filter `default:"lanczos3" validate:"oneof=nearest bilinear catmullrom lanczos3"`
	// KeepAspect fits the image inside Width x Height preserving aspect ratio
	// instead of stretching to the exact box.
	KeepAspect bool
}

// NewResize applies defaults and validates c.
func NewResize(c Resize) (Resize, error) {
	if err := build(&c); err != nil {
		return Resize{}, err
	}
	hasSize := c.Width > 0 || c.Height > 0
	hasScale := c.Scale > 0
	switch {
	case hasSize && hasScale:
		return Resize{}, rmerrors.ConfigConflict("resize: absolute size and scale factor are mutually exclusive")
	case !hasSize && !hasScale:
		return Resize{}, rmerrors.InvalidConfig("resize", "either an absolute size or a scale factor is required")
	}
	return c, nil
}

// Quantize configures palette quantization.
type Quantize struct {
	// Colors is the maximum palette size, in [2,256].
	Colors int `default:"256" validate:"gte=2,lte=256"`
	// Dithering in [0,1] scales Floyd-Steinberg error diffusion; 0 disables.
	Dithering float64 `validate:"gte=0,lte=1"`
}

// NewQuantize applies defaults and validates c.
func NewQuantize(c Quantize) (Quantize, error) {
	if err := build(&c); err != nil {
		return Quantize{}, err
	}
	return c, nil
}

// build fills default-tagged zero fields and runs tag validation, mapping the
// first violation into the invalid-config error shape.
func build(c interface{}) error {
	if err := defaults.Set(c); err != nil {
		return rmerrors.InvalidConfig("defaults", err.Error())
	}
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			reason := "must satisfy " + fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return rmerrors.InvalidConfig(strings.ToLower(fe.Field()), reason)
		}
		return rmerrors.InvalidConfig("config", err.Error())
	}
	return nil
}
