package core

import (
	"context"
	"io"
	"time"

	"github.com/rastermill/rastermill/config"
)

// Decoder converts raw bytes into a canonical Frame.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// CanDecode reports whether this decoder handles the given format.
	CanDecode(format Format) bool
	// Decode reads from r and returns a decoded Frame whose buffer uses one
	// of the four canonical channel layouts.  Metadata extraction is
	// best-effort; parse failures surface as frame warnings, never errors.
	Decode(ctx context.Context, r io.Reader) (*Frame, error)
}

// Encoder serialises a Frame to bytes in a target format.  Layouts, Depths
// and SupportsMetadata declare what the backend accepts; encoder dispatch
// performs the conversions, so Encode is only ever called with a conforming
// frame and never re-checks.
// Implementations live in adapters/encoder/.
type Encoder interface {
	CanEncode(format Format) bool
	// Layouts lists the channel layouts the backend can express.
	Layouts() []ChannelLayout
	// Depths lists the accepted per-channel bit depths.
	Depths() []BitDepth
	// SupportsMetadata reports whether the target container can carry
	// EXIF/ICC blocks.
	SupportsMetadata() bool
	Encode(ctx context.Context, frame *Frame, opts config.Encode) ([]byte, error)
}

// Operation is a pure transform over a PixelBuffer: same input buffer and
// config always yield bit-identical output, with no state carried between
// invocations.  Operations take exclusive ownership of the buffer for the
// duration of Apply and return either the same buffer mutated or a
// replacement.
type Operation interface {
	Name() string
	// Rank fixes the operation's position in a pipeline regardless of the
	// order the caller submitted it; lower runs earlier.
	Rank() int
	Apply(ctx context.Context, buf *PixelBuffer) (*PixelBuffer, error)
}

// Hook is an optional observer invoked around pipeline operations.
type Hook interface {
	BeforeOp(ctx context.Context, name string, buf *PixelBuffer)
	AfterOp(ctx context.Context, name string, buf *PixelBuffer, d time.Duration, err error)
}

// Registry maps Format values to Decoder/Encoder implementations.  The set of
// registered backends is fixed at build time: a format whose backend was not
// compiled in is indistinguishable from one that never existed.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}
