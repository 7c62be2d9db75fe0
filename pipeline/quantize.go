package pipeline

import (
	"context"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/rastermill/rastermill/config"
	"github.com/rastermill/rastermill/core"
	rmerrors "github.com/rastermill/rastermill/errors"
)

// QuantizeOp reduces the buffer to a limited palette via median cut.  Nearest
// palette entries are picked in Lab space so perceptually close colors merge
// first; optional Floyd-Steinberg dithering diffuses the residual error.
//
// The operation is deterministic: the same buffer and config always produce
// the same palette and the same output pixels.
type QuantizeOp struct {
	cfg config.Quantize
}

// NewQuantize wraps a validated quantize config into an operation.
func NewQuantize(cfg config.Quantize) *QuantizeOp { return &QuantizeOp{cfg: cfg} }

func (q *QuantizeOp) Name() string { return "quantize" }

// Rank places quantize after resize.
func (q *QuantizeOp) Rank() int { return 20 }

func (q *QuantizeOp) Apply(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !buf.Layout().HasColor() {
		return nil, rmerrors.Newf(rmerrors.KindUnsupportedOperation,
			"quantize requires a color layout, got %s", buf.Layout())
	}
	if buf.Depth() == core.Depth16 {
		narrowed, err := buf.Convert(buf.Layout(), core.Depth8)
		if err != nil {
			return nil, err
		}
		buf = narrowed
	}

	colors := collectColors(buf)
	palette := buildPalette(colors, q.cfg.Colors)
	if q.cfg.Dithering > 0 {
		ditherToPalette(buf, palette, q.cfg.Dithering)
	} else {
		mapToPalette(buf, palette)
	}
	return buf, nil
}

type rgba [4]byte

// weighted is a color with its pixel count.
type weighted struct {
	c rgba
	n int
}

func lessRGBA(a, b rgba) bool {
	for k := 0; k < 4; k++ {
		if a[k] != b[k] {
			return a[k] < b[k]
		}
	}
	return false
}

// collectColors histograms the buffer into a sorted unique-color list.  The
// lexicographic order anchors every later tie-break, which is what makes the
// whole quantization deterministic.
func collectColors(buf *core.PixelBuffer) []weighted {
	pix := buf.Pix()
	c := buf.Layout().Channels()
	counts := make(map[rgba]int)
	for off := 0; off < len(pix); off += c {
		var key rgba
		key[3] = 0xff
		copy(key[:c], pix[off:off+c])
		counts[key]++
	}
	out := make([]weighted, 0, len(counts))
	for k, n := range counts {
		out = append(out, weighted{c: k, n: n})
	}
	sort.Slice(out, func(i, j int) bool { return lessRGBA(out[i].c, out[j].c) })
	return out
}

// buildPalette runs median cut down to at most n entries.  When the image
// already has n or fewer distinct colors the palette is exactly those colors,
// so quantizing an already-quantized image is a no-op.
func buildPalette(colors []weighted, n int) []rgba {
	if len(colors) <= n {
		out := make([]rgba, len(colors))
		for i, w := range colors {
			out[i] = w.c
		}
		return out
	}

	boxes := [][]weighted{colors}
	for len(boxes) < n {
		bi, ch := widestBox(boxes)
		if bi < 0 {
			break
		}
		lo, hi := splitBox(boxes[bi], ch)
		boxes[bi] = lo
		boxes = append(boxes, hi)
	}

	out := make([]rgba, len(boxes))
	for i, box := range boxes {
		out[i] = averageColor(box)
	}
	sort.Slice(out, func(i, j int) bool { return lessRGBA(out[i], out[j]) })
	return out
}

// widestBox finds the box and channel with the largest value range.  Boxes of
// a single color cannot split further.
func widestBox(boxes [][]weighted) (int, int) {
	best, bestCh, bestRange := -1, 0, 0
	for i, box := range boxes {
		if len(box) < 2 {
			continue
		}
		var min, max rgba
		for k := range min {
			min[k] = 0xff
		}
		for _, w := range box {
			for k := 0; k < 4; k++ {
				if w.c[k] < min[k] {
					min[k] = w.c[k]
				}
				if w.c[k] > max[k] {
					max[k] = w.c[k]
				}
			}
		}
		for k := 0; k < 4; k++ {
			if r := int(max[k]) - int(min[k]); r > bestRange {
				best, bestCh, bestRange = i, k, r
			}
		}
	}
	return best, bestCh
}

// splitBox cuts a box at its weighted median along channel ch.
func splitBox(box []weighted, ch int) ([]weighted, []weighted) {
	sort.SliceStable(box, func(i, j int) bool {
		if box[i].c[ch] != box[j].c[ch] {
			return box[i].c[ch] < box[j].c[ch]
		}
		return lessRGBA(box[i].c, box[j].c)
	})
	total := 0
	for _, w := range box {
		total += w.n
	}
	acc := 0
	cut := len(box) - 1
	for i, w := range box {
		acc += w.n
		if acc*2 >= total {
			cut = i + 1
			break
		}
	}
	if cut >= len(box) {
		cut = len(box) - 1
	}
	if cut < 1 {
		cut = 1
	}
	return box[:cut], box[cut:]
}

func averageColor(box []weighted) rgba {
	var sum [4]uint64
	var total uint64
	for _, w := range box {
		n := uint64(w.n)
		total += n
		for k := 0; k < 4; k++ {
			sum[k] += uint64(w.c[k]) * n
		}
	}
	var out rgba
	for k := 0; k < 4; k++ {
		out[k] = byte((sum[k] + total/2) / total)
	}
	return out
}

// paletteLab caches the Lab coordinates of each palette entry.
type paletteLab struct {
	entries []rgba
	l, a, b []float64
}

func newPaletteLab(palette []rgba) *paletteLab {
	p := &paletteLab{
		entries: palette,
		l:       make([]float64, len(palette)),
		a:       make([]float64, len(palette)),
		b:       make([]float64, len(palette)),
	}
	for i, e := range palette {
		c := colorful.Color{R: float64(e[0]) / 255, G: float64(e[1]) / 255, B: float64(e[2]) / 255}
		p.l[i], p.a[i], p.b[i] = c.Lab()
	}
	return p
}

// nearest returns the palette index perceptually closest to c: Lab distance
// plus an alpha term scaled onto a comparable range.
func (p *paletteLab) nearest(c rgba) int {
	cc := colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
	l, a, b := cc.Lab()
	best, bestD := 0, 0.0
	for i := range p.entries {
		dl := l - p.l[i]
		da := a - p.a[i]
		db := b - p.b[i]
		dal := (float64(c[3]) - float64(p.entries[i][3])) / 255
		d := dl*dl + da*da + db*db + dal*dal
		if i == 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// mapToPalette replaces every pixel with its nearest palette entry, memoizing
// per distinct source color.
func mapToPalette(buf *core.PixelBuffer, palette []rgba) {
	pl := newPaletteLab(palette)
	cache := make(map[rgba]rgba)
	pix := buf.Pix()
	c := buf.Layout().Channels()
	for off := 0; off < len(pix); off += c {
		var key rgba
		key[3] = 0xff
		copy(key[:c], pix[off:off+c])
		mapped, ok := cache[key]
		if !ok {
			mapped = palette[pl.nearest(key)]
			cache[key] = mapped
		}
		copy(pix[off:off+c], mapped[:c])
	}
}

// ditherToPalette maps pixels with Floyd-Steinberg error diffusion.  The
// residual error is scaled by strength before spreading, so strength 1 is
// classic Floyd-Steinberg and values below soften the pattern.  Matching runs
// on the error-adjusted values in RGBA space, since the diffused error lives
// there.
func ditherToPalette(buf *core.PixelBuffer, palette []rgba, strength float64) {
	w, h := buf.Width(), buf.Height()
	c := buf.Layout().Channels()
	pix := buf.Pix()

	cur := make([][4]float64, w)
	next := make([][4]float64, w)

	for y := 0; y < h; y++ {
		for i := range next {
			next[i] = [4]float64{}
		}
		for x := 0; x < w; x++ {
			off := (y*w + x) * c
			var want [4]float64
			want[3] = 255
			for k := 0; k < c; k++ {
				want[k] = clamp255(float64(pix[off+k]) + cur[x][k])
			}
			idx := nearestRGBA(palette, want)
			entry := palette[idx]
			copy(pix[off:off+c], entry[:c])

			for k := 0; k < 4; k++ {
				err := (want[k] - float64(entry[k])) * strength
				if x+1 < w {
					cur[x+1][k] += err * 7 / 16
				}
				if x > 0 {
					next[x-1][k] += err * 3 / 16
				}
				next[x][k] += err * 5 / 16
				if x+1 < w {
					next[x+1][k] += err * 1 / 16
				}
			}
		}
		cur, next = next, cur
	}
}

func nearestRGBA(palette []rgba, want [4]float64) int {
	best, bestD := 0, 0.0
	for i, e := range palette {
		var d float64
		for k := 0; k < 4; k++ {
			dv := want[k] - float64(e[k])
			d += dv * dv
		}
		if i == 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
