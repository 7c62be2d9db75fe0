// Package hooks provides production-ready Hook implementations.
package hooks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rastermill/rastermill/core"
)

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline operation.
type LoggingHook struct {
	log *zap.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(log *zap.Logger) *LoggingHook {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingHook{log: log}
}

func (h *LoggingHook) BeforeOp(_ context.Context, name string, buf *core.PixelBuffer) {
	h.log.Debug("pipeline.op.start",
		zap.String("op", name),
		zap.Int("width", buf.Width()),
		zap.Int("height", buf.Height()),
		zap.String("layout", string(buf.Layout())),
	)
}

func (h *LoggingHook) AfterOp(_ context.Context, name string, buf *core.PixelBuffer, d time.Duration, err error) {
	if err != nil {
		h.log.Error("pipeline.op.error",
			zap.String("op", name),
			zap.Int64("duration_ms", d.Milliseconds()),
			zap.Error(err),
		)
		return
	}
	h.log.Debug("pipeline.op.done",
		zap.String("op", name),
		zap.Int64("duration_ms", d.Milliseconds()),
		zap.Int("width", buf.Width()),
		zap.Int("height", buf.Height()),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates per-operation counters; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	opDurationsMs map[string]int64 // cumulative ms per operation
	opCalls       map[string]int64
	opErrors      map[string]int64

	totalPixels int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		opDurationsMs: make(map[string]int64),
		opCalls:       make(map[string]int64),
		opErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) BeforeOp(_ context.Context, _ string, _ *core.PixelBuffer) {}

func (m *InMemoryMetrics) AfterOp(_ context.Context, name string, buf *core.PixelBuffer, d time.Duration, err error) {
	m.mu.Lock()
	m.opDurationsMs[name] += d.Milliseconds()
	m.opCalls[name]++
	if err != nil {
		m.opErrors[name]++
	}
	m.mu.Unlock()
	if err == nil && buf != nil {
		atomic.AddInt64(&m.totalPixels, int64(buf.Width())*int64(buf.Height()))
	}
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	OpDurationsMs map[string]int64
	OpCalls       map[string]int64
	OpErrors      map[string]int64
	TotalPixels   int64
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		OpDurationsMs: make(map[string]int64, len(m.opDurationsMs)),
		OpCalls:       make(map[string]int64, len(m.opCalls)),
		OpErrors:      make(map[string]int64, len(m.opErrors)),
		TotalPixels:   atomic.LoadInt64(&m.totalPixels),
	}
	for k, v := range m.opDurationsMs {
		snap.OpDurationsMs[k] = v
	}
	for k, v := range m.opCalls {
		snap.OpCalls[k] = v
	}
	for k, v := range m.opErrors {
		snap.OpErrors[k] = v
	}
	return snap
}
