// Package pipeline composes pixel operations into a deterministic sequence.
package pipeline

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rastermill/rastermill/core"
)

// Pipeline runs an ordered set of operations over a frame's pixel buffer.
// Submission order does not matter: operations execute by ascending Rank, so
// equivalent requests produce bit-identical output regardless of how the
// caller assembled them.
type Pipeline struct {
	ops        []core.Operation
	hooks      []core.Hook
	log        *zap.Logger
	autoOrient bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHooks attaches observers invoked around every operation.
func WithHooks(hooks ...core.Hook) Option {
	return func(p *Pipeline) { p.hooks = append(p.hooks, hooks...) }
}

// WithLogger sets the pipeline logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithAutoOrient applies the frame's EXIF orientation to the pixels before
// any operation runs, then resets the tag so it is not applied twice.
func WithAutoOrient() Option {
	return func(p *Pipeline) { p.autoOrient = true }
}

// New builds a pipeline from ops.  The ops are re-sequenced by Rank with a
// stable sort, so equal-rank operations keep their submission order.
func New(ops []core.Operation, opts ...Option) *Pipeline {
	p := &Pipeline{ops: append([]core.Operation(nil), ops...), log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	sort.SliceStable(p.ops, func(i, j int) bool { return p.ops[i].Rank() < p.ops[j].Rank() })
	return p
}

// Run executes the pipeline against frame, replacing frame.Buffer with the
// transformed pixels.  The first failing operation aborts the run; the frame
// keeps the last successfully produced buffer.
func (p *Pipeline) Run(ctx context.Context, frame *core.Frame) error {
	if p.autoOrient && frame.Meta != nil && frame.Meta.Orientation > 1 {
		buf, err := Reorient(frame.Buffer, frame.Meta.Orientation)
		if err != nil {
			return err
		}
		frame.Buffer = buf
		frame.Meta.Orientation = 0
	}

	for _, op := range p.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, h := range p.hooks {
			h.BeforeOp(ctx, op.Name(), frame.Buffer)
		}
		start := time.Now()
		out, err := op.Apply(ctx, frame.Buffer)
		elapsed := time.Since(start)
		for _, h := range p.hooks {
			h.AfterOp(ctx, op.Name(), out, elapsed, err)
		}
		if err != nil {
			p.log.Error("operation failed",
				zap.String("op", op.Name()),
				zap.Error(err),
			)
			return err
		}
		if out.Depth() != frame.Buffer.Depth() && out.Depth() == core.Depth8 {
			frame.Warn("pipeline", op.Name(), "precision: 16-bit samples rounded to 8-bit")
		}
		p.log.Debug("operation applied",
			zap.String("op", op.Name()),
			zap.Int("width", out.Width()),
			zap.Int("height", out.Height()),
			zap.Duration("elapsed", elapsed),
		)
		frame.Buffer = out
	}
	return nil
}
