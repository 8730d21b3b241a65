package outline

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// defaultPageHeight is used when a source could not report a page height
// (US Letter).
const defaultPageHeight = 792.0

type marginBand int

const (
	bandNone marginBand = iota
	bandTop
	bandBottom
)

type noiseKey struct {
	band marginBand
	text string
}

type lineRef struct {
	page, line int
	pos        float64 // distance from the page edge of the band
}

// MarkNoise flags lines that repeat near the top or bottom margin on enough
// pages to be running headers, footers or page stamps. It returns the number
// of lines marked. Documents shorter than NoiseMinPages are left untouched.
func MarkNoise(pages []PageLines, cfg Config) int {
	if len(pages) < cfg.NoiseMinPages || cfg.NoiseMinPages <= 0 {
		return 0
	}
	threshold := max(cfg.NoiseMinPages, int(math.Ceil(cfg.NoiseMinFraction*float64(len(pages)))))

	groups := make(map[noiseKey][]lineRef)
	var keys []noiseKey
	for pi, p := range pages {
		height := p.Height
		if height <= 0 {
			height = defaultPageHeight
		}
		for li, l := range p.Lines {
			band, pos := classifyBand(l.BBox.Y0, l.BBox.Y1, height, cfg.MarginBand)
			if band == bandNone {
				continue
			}
			text := NoiseText(l.Text)
			if text == "" {
				continue
			}
			k := noiseKey{band: band, text: text}
			if _, ok := groups[k]; !ok {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], lineRef{page: pi, line: li, pos: pos})
		}
	}

	marked := 0
	for _, k := range keys {
		for _, cluster := range positionClusters(groups[k], cfg.PositionBucket) {
			if distinctPages(cluster) < threshold {
				continue
			}
			for _, ref := range cluster {
				l := &pages[ref.page].Lines[ref.line]
				if !l.Noise {
					l.Noise = true
					marked++
				}
			}
		}
	}
	return marked
}

// classifyBand reports which margin band a vertical extent lies in and its
// distance from that band's page edge.
func classifyBand(y0, y1, height, frac float64) (marginBand, float64) {
	limit := frac * height
	switch {
	case y1 <= limit:
		return bandTop, (y0 + y1) / 2
	case y0 >= height-limit:
		return bandBottom, height - (y0+y1)/2
	}
	return bandNone, 0
}

// positionClusters splits refs into runs whose positions lie within bucket
// points of their neighbours.
func positionClusters(refs []lineRef, bucket float64) [][]lineRef {
	sorted := make([]lineRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].pos < sorted[j].pos })

	var clusters [][]lineRef
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].pos-sorted[i-1].pos > bucket {
			clusters = append(clusters, sorted[start:i])
			start = i
		}
	}
	return clusters
}

func distinctPages(refs []lineRef) int {
	seen := make(map[int]struct{}, len(refs))
	for _, r := range refs {
		seen[r.page] = struct{}{}
	}
	return len(seen)
}

// NoiseText normalises line text for repeat detection: NFC, lower case,
// every digit run replaced by '#', whitespace collapsed.
func NoiseText(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	var sb strings.Builder
	inDigits := false
	for _, r := range s {
		if unicode.IsDigit(r) {
			if !inDigits {
				sb.WriteByte('#')
			}
			inDigits = true
			continue
		}
		inDigits = false
		sb.WriteRune(r)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
