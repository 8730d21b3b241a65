package outline

import (
	"math"
	"sort"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// SizeCount is one histogram bucket.
type SizeCount struct {
	Size  float64
	Lines int
	Chars int
}

// Histogram accumulates character counts per font-size bucket. It lives for
// exactly one document run.
type Histogram struct {
	resolution       float64
	minSize, maxSize float64
	buckets          map[int64]*SizeCount
}

// NewHistogram returns an empty histogram using the size settings of cfg.
func NewHistogram(cfg Config) *Histogram {
	return &Histogram{
		resolution: cfg.SizeResolution,
		minSize:    cfg.MinFontSize,
		maxSize:    cfg.MaxFontSize,
		buckets:    make(map[int64]*SizeCount),
	}
}

// Key returns the bucket key for size.
func (h *Histogram) Key(size float64) int64 {
	return int64(math.Round(size / h.resolution))
}

// Bucket rounds size to the histogram resolution.
func (h *Histogram) Bucket(size float64) float64 {
	return h.size(h.Key(size))
}

// size converts a bucket key back to points. Dividing by the inverse keeps
// keys like 135 at exactly 13.5.
func (h *Histogram) size(k int64) float64 {
	return float64(k) / (1 / h.resolution)
}

// InRange reports whether size takes part in profiling.
func (h *Histogram) InRange(size float64) bool {
	return size >= h.minSize && size <= h.maxSize
}

// Add folds a line into the histogram. Noise lines and sizes out of range
// are ignored.
func (h *Histogram) Add(l doctree.Line) {
	if l.Noise || !h.InRange(l.FontSize) {
		return
	}
	chars := l.Chars()
	if chars == 0 {
		return
	}
	k := h.Key(l.FontSize)
	b, ok := h.buckets[k]
	if !ok {
		b = &SizeCount{Size: h.size(k)}
		h.buckets[k] = b
	}
	b.Lines++
	b.Chars += chars
}

// Sizes returns all buckets, largest size first.
func (h *Histogram) Sizes() []SizeCount {
	out := make([]SizeCount, 0, len(h.buckets))
	for _, b := range h.buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Size > out[j].Size })
	return out
}

// Baseline returns the body text size: the bucket with the most characters,
// the smaller size winning ties. It is 0 for an empty histogram.
func (h *Histogram) Baseline() float64 {
	var best *SizeCount
	for _, b := range h.buckets {
		if best == nil || b.Chars > best.Chars || (b.Chars == best.Chars && b.Size < best.Size) {
			best = b
		}
	}
	if best == nil {
		return 0
	}
	return best.Size
}

// Above returns the buckets strictly larger than size, largest first.
func (h *Histogram) Above(size float64) []SizeCount {
	limit := h.Key(size)
	var out []SizeCount
	for _, b := range h.Sizes() {
		if h.Key(b.Size) > limit {
			out = append(out, b)
		}
	}
	return out
}

// ProfileFonts builds the size histogram over every non-noise line.
func ProfileFonts(pages []PageLines, cfg Config) *Histogram {
	h := NewHistogram(cfg)
	for _, p := range pages {
		for _, l := range p.Lines {
			h.Add(l)
		}
	}
	return h
}
