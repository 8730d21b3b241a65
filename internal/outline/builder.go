package outline

import (
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// BuildOutline walks pages in order and emits every ranked, non-noise line
// that the title did not consume. Headings come out in page-then-appearance
// order and carry a monotonically increasing Order index.
func BuildOutline(pages []PageLines, c *Classification, title Title, cfg Config) doctree.Outline {
	o := doctree.Outline{Title: title.Text, Headings: []doctree.Heading{}}

	type dedupeKey struct {
		level doctree.Level
		text  string
		page  int
	}
	seen := make(map[dedupeKey]bool)

	order := 0
	for _, p := range pages {
		for i, l := range p.Lines {
			if p.Page == 0 && title.Consumed[i] {
				continue
			}
			level := c.Level(l)
			if level.Depth() == 0 {
				continue
			}
			if !headingText(l.Text, cfg.MinHeadingRunes) {
				continue
			}
			if cfg.Dedupe {
				k := dedupeKey{level: level, text: l.Text, page: p.Page}
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			o.Headings = append(o.Headings, doctree.Heading{
				Text:     l.Text,
				Level:    level,
				Page:     p.Page,
				Order:    order,
				FontSize: l.FontSize,
			})
			order++
		}
	}
	return o
}

// headingText rejects fragments too short to be headings and lines made of
// punctuation only.
func headingText(s string, minRunes int) bool {
	if utf8.RuneCountInString(s) < minRunes {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
