// Package outline detects a document title and a three-level heading outline
// from positioned, font-annotated text fragments.
package outline

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds every tolerance the engine uses. The zero value is not useful;
// start from DefaultConfig.
type Config struct {
	// LineBandRatio is the vertical-center tolerance for grouping fragments
	// into one line, as a fraction of the smaller font size.
	// Default: 0.4
	LineBandRatio float64

	// SpaceGapFactor is the horizontal gap, in multiples of the average
	// character width, above which fragments are joined with a space.
	// Default: 0.3
	SpaceGapFactor float64

	// MarginBand is the fraction of the page height at the top and at the
	// bottom inside which repeated lines may be treated as noise.
	// Default: 0.12
	MarginBand float64

	// PositionBucket is the vertical bucket size in points used when
	// matching repeated lines across pages.
	// Default: 10
	PositionBucket float64

	// NoiseMinFraction is the fraction of pages a repeated line must appear
	// on to be noise.
	// Default: 0.30
	NoiseMinFraction float64

	// NoiseMinPages is the minimum number of pages a repeated line must
	// appear on. Documents shorter than this are not filtered at all.
	// Default: 3
	NoiseMinPages int

	// SizeResolution is the bucket width in points for font sizes.
	// Default: 0.1
	SizeResolution float64

	// MinFontSize and MaxFontSize bound the sizes that take part in
	// profiling and classification.
	// Default: 6 and 80
	MinFontSize float64
	MaxFontSize float64

	// MergeEpsilonPoints and MergeEpsilonRatio define the merge epsilon of
	// the level classifier: max(points, ratio*larger size).
	// Default: 0.5 and 0.05
	MergeEpsilonPoints float64
	MergeEpsilonRatio  float64

	// MinHeadingRunes is the minimum heading length in runes.
	// Default: 2
	MinHeadingRunes int

	// Dedupe drops repeated (level, text, page) headings.
	// Default: true
	Dedupe bool

	// Workers bounds the page worker pool.
	// Default: min(NumCPU, 8)
	Workers int

	// Deadline is the per-document processing budget.
	// Default: 10s
	Deadline time.Duration

	// MaxPages is the largest page count a source may report.
	// Default: 50
	MaxPages int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		LineBandRatio:      0.4,
		SpaceGapFactor:     0.3,
		MarginBand:         0.12,
		PositionBucket:     10,
		NoiseMinFraction:   0.30,
		NoiseMinPages:      3,
		SizeResolution:     0.1,
		MinFontSize:        6,
		MaxFontSize:        80,
		MergeEpsilonPoints: 0.5,
		MergeEpsilonRatio:  0.05,
		MinHeadingRunes:    2,
		Dedupe:             true,
		Workers:            DefaultWorkers(),
		Deadline:           10 * time.Second,
		MaxPages:           50,
	}
}

// DefaultWorkers is the worker pool size used when none is configured.
func DefaultWorkers() int {
	return min(runtime.NumCPU(), 8)
}

// Validate reports the first setting that cannot produce a sensible run.
func (c Config) Validate() error {
	switch {
	case c.LineBandRatio <= 0:
		return fmt.Errorf("line band ratio must be positive, got %v", c.LineBandRatio)
	case c.SpaceGapFactor < 0:
		return fmt.Errorf("space gap factor must not be negative, got %v", c.SpaceGapFactor)
	case c.MarginBand < 0 || c.MarginBand >= 0.5:
		return fmt.Errorf("margin band must be in [0, 0.5), got %v", c.MarginBand)
	case c.PositionBucket <= 0:
		return fmt.Errorf("position bucket must be positive, got %v", c.PositionBucket)
	case c.NoiseMinFraction < 0 || c.NoiseMinFraction > 1:
		return fmt.Errorf("noise min fraction must be in [0, 1], got %v", c.NoiseMinFraction)
	case c.SizeResolution <= 0:
		return fmt.Errorf("size resolution must be positive, got %v", c.SizeResolution)
	case c.MaxFontSize <= c.MinFontSize:
		return fmt.Errorf("max font size %v must exceed min font size %v", c.MaxFontSize, c.MinFontSize)
	case c.MergeEpsilonPoints < 0 || c.MergeEpsilonRatio < 0:
		return fmt.Errorf("merge epsilon must not be negative")
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.Deadline <= 0:
		return fmt.Errorf("deadline must be positive, got %s", c.Deadline)
	case c.MaxPages <= 0:
		return fmt.Errorf("max pages must be positive, got %d", c.MaxPages)
	}
	return nil
}

// mergeEpsilon is the largest size difference tolerated inside one cluster
// whose representative is size.
func (c Config) mergeEpsilon(size float64) float64 {
	return max(c.MergeEpsilonPoints, c.MergeEpsilonRatio*size)
}
