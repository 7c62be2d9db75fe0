// Package rastermill is an image optimization core: decode, transform, and
// re-encode rasters across interchangeable codec backends.  The primary entry
// point is Optimizer.
package rastermill

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rastermill/rastermill/adapters/decoder"
	"github.com/rastermill/rastermill/adapters/encoder"
	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	"github.com/rastermill/rastermill/pipeline"
)

// Aliases so common integrations avoid importing core directly.
type (
	Format  = core.Format
	Hook    = core.Hook
	Warning = core.Warning
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
	QOI  = core.FormatQOI
	AVIF = core.FormatAVIF
)

// Options configures an Optimizer.
type Options struct {
	// Logger receives structured diagnostics; nil disables logging.
	Logger *zap.Logger
	// Hooks observe every pipeline operation.
	Hooks []core.Hook
}

// Optimizer is the primary entry point.  It is safe for concurrent use: each
// call operates on its own frame and the registry is fixed after New.
type Optimizer struct {
	reg   *core.DefaultRegistry
	disp  *core.Dispatcher
	log   *zap.Logger
	hooks []core.Hook
}

// New creates a fully wired Optimizer with the built-in JPEG, PNG, WebP and
// QOI codecs registered.  AVIF joins the set when compiled in.
func New(opts Options) *Optimizer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterDecoder(core.FormatQOI, decoder.NewQOI())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG())
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP())
	reg.RegisterEncoder(core.FormatQOI, encoder.NewQOI())
	registerAVIF(reg)

	return &Optimizer{
		reg:   reg,
		disp:  core.NewDispatcher(reg, log),
		log:   log,
		hooks: opts.Hooks,
	}
}

// RegisterDecoder registers a custom decoder for the given format.
func (o *Optimizer) RegisterDecoder(f core.Format, d core.Decoder) { o.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (o *Optimizer) RegisterEncoder(f core.Format, e core.Encoder) { o.reg.RegisterEncoder(f, e) }

// Request describes one optimization: which transforms to run and how to
// re-encode.  Nil operation configs mean "skip that operation"; the zero
// Encode value encodes with defaults.
type Request struct {
	// Hint names the input format when magic-byte sniffing cannot, e.g. for
	// headless streams.  Ignored when sniffing succeeds.
	Hint core.Format
	// Target is the output format; zero keeps the source format.
	Target core.Format
	// Encode holds the re-encoding parameters.
	Encode config.Encode
	// Resize, when non-nil, resamples before any palette work.
	Resize *config.Resize
	// Quantize, when non-nil, reduces the image to a limited palette.
	Quantize *config.Quantize
	// AutoOrient bakes the EXIF orientation into the pixels first.
	AutoOrient bool
}

// Result is one optimized output with the warnings accumulated along the way.
type Result struct {
	Data     []byte
	Format   core.Format
	Width    int
	Height   int
	Layout   core.ChannelLayout
	Warnings []core.Warning
}

// Optimize decodes data, runs the requested operations and re-encodes.  All
// configuration is validated up front, before any pixel work happens.
func (o *Optimizer) Optimize(ctx context.Context, data []byte, req Request) (*Result, error) {
	encCfg, err := config.NewEncode(req.Encode)
	if err != nil {
		return nil, err
	}
	var ops []core.Operation
	if req.Resize != nil {
		rc, err := config.NewResize(*req.Resize)
		if err != nil {
			return nil, err
		}
		ops = append(ops, pipeline.NewResize(rc))
	}
	if req.Quantize != nil {
		qc, err := config.NewQuantize(*req.Quantize)
		if err != nil {
			return nil, err
		}
		ops = append(ops, pipeline.NewQuantize(qc))
	}

	frame, err := o.disp.Decode(ctx, data, req.Hint)
	if err != nil {
		return nil, err
	}

	popts := []pipeline.Option{pipeline.WithLogger(o.log)}
	if len(o.hooks) > 0 {
		popts = append(popts, pipeline.WithHooks(o.hooks...))
	}
	if req.AutoOrient {
		popts = append(popts, pipeline.WithAutoOrient())
	}
	if err := pipeline.New(ops, popts...).Run(ctx, frame); err != nil {
		return nil, err
	}

	target := req.Target
	if target == "" || target == core.FormatUnknown {
		target = frame.Format
	}
	out, encWarnings, err := o.disp.Encode(ctx, frame, target, encCfg)
	if err != nil {
		return nil, err
	}

	warnings := append(append([]core.Warning(nil), frame.Warnings...), encWarnings...)
	return &Result{
		Data:     out,
		Format:   target,
		Width:    frame.Buffer.Width(),
		Height:   frame.Buffer.Height(),
		Layout:   frame.Buffer.Layout(),
		Warnings: warnings,
	}, nil
}

// Batch optimizes multiple inputs concurrently with the same request (fan-out
// / fan-in).  Results and errors are index-aligned with inputs.
func (o *Optimizer) Batch(ctx context.Context, inputs [][]byte, req Request) ([]*Result, []error) {
	results := make([]*Result, len(inputs))
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup

	for i, data := range inputs {
		wg.Add(1)
		go func(idx int, d []byte) {
			defer wg.Done()
			r, e := o.Optimize(ctx, d, req)
			results[idx] = r
			errs[idx] = e
		}(i, data)
	}
	wg.Wait()
	return results, errs
}
