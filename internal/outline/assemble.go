package outline

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// PageLines is the assembled form of one page. Empty marks a page that had
// no usable fragments.
type PageLines struct {
	Page   int
	Width  float64
	Height float64
	Lines  []doctree.Line
	Empty  bool
}

// AssembleLines groups the fragments of one page into lines. Lines are
// returned top to bottom.
func AssembleLines(p doctree.Page, cfg Config) PageLines {
	out := PageLines{Page: p.Index, Width: p.Width, Height: p.Height}

	frags := make([]doctree.Fragment, 0, len(p.Fragments))
	for _, f := range p.Fragments {
		if strings.TrimSpace(f.Text) == "" || f.FontSize <= 0 {
			continue
		}
		f.Page = p.Index
		frags = append(frags, f)
	}
	if len(frags) == 0 {
		out.Empty = true
		return out
	}

	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].BBox.CenterY() < frags[j].BBox.CenterY()
	})

	var groups [][]doctree.Fragment
	var current []doctree.Fragment
	var anchor, minSize float64
	for _, f := range frags {
		if len(current) > 0 {
			band := cfg.LineBandRatio * math.Min(f.FontSize, minSize)
			if math.Abs(f.BBox.CenterY()-anchor) <= band {
				current = append(current, f)
				minSize = math.Min(minSize, f.FontSize)
				continue
			}
			groups = append(groups, current)
		}
		current = []doctree.Fragment{f}
		anchor = f.BBox.CenterY()
		minSize = f.FontSize
	}
	groups = append(groups, current)

	for _, g := range groups {
		line := buildLine(g, cfg)
		if line.Text == "" {
			continue
		}
		out.Lines = append(out.Lines, line)
	}
	out.Empty = len(out.Lines) == 0
	return out
}

func buildLine(frags []doctree.Fragment, cfg Config) doctree.Line {
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].BBox.X0 < frags[j].BBox.X0
	})

	var sb strings.Builder
	bbox := frags[0].BBox
	dominant, best := 0, -1
	for i, f := range frags {
		if i > 0 {
			prev := frags[i-1]
			gap := f.BBox.X0 - prev.BBox.X1
			width := (charWidth(prev) + charWidth(f)) / 2
			if gap > cfg.SpaceGapFactor*width &&
				!strings.HasSuffix(prev.Text, " ") && !strings.HasPrefix(f.Text, " ") {
				sb.WriteByte(' ')
			}
			bbox = bbox.Union(f.BBox)
		}
		sb.WriteString(f.Text)

		if n := nonSpaceRunes(f.Text); n > best {
			dominant, best = i, n
		}
	}

	d := frags[dominant]
	return doctree.Line{
		Fragments: frags,
		Text:      cleanText(sb.String()),
		FontSize:  d.FontSize,
		IsBold:    d.IsBold,
		IsItalic:  d.IsItalic,
		Page:      d.Page,
		BBox:      bbox,
	}
}

// charWidth estimates the average glyph width of a fragment.
func charWidth(f doctree.Fragment) float64 {
	n := utf8.RuneCountInString(f.Text)
	w := f.BBox.Width()
	if n == 0 || w <= 0 {
		return f.FontSize * 0.5
	}
	return w / float64(n)
}

func nonSpaceRunes(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// cleanText NFC-normalises s, collapses whitespace runs and trims it.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
