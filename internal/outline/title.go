package outline

import (
	"sort"
	"strings"
)

// Title is the resolved document title and the page-0 lines it consumed.
type Title struct {
	Text     string
	FontSize float64
	// Consumed holds indexes into the page-0 line slice.
	Consumed map[int]bool
}

// ResolveTitle picks the title from page 0. Candidates are lines in the
// title tier, or, when the document has none, lines at the rank-1
// representative size, bold lines first. Vertically adjacent candidates of
// the same size are merged and the topmost group wins.
func ResolveTitle(pages []PageLines, c *Classification) Title {
	t := Title{Consumed: make(map[int]bool)}
	if len(pages) == 0 || pages[0].Page != 0 || len(c.Clusters) == 0 {
		return t
	}
	page := pages[0]

	var cands []int
	if c.TitleTier {
		for i, l := range page.Lines {
			if r, ok := c.Rank(l.FontSize); ok && !l.Noise && r == RankTitle {
				cands = append(cands, i)
			}
		}
	} else {
		h1, ok := c.Cluster(1)
		if !ok {
			return t
		}
		rep := c.hist.Key(h1.Representative)
		bold := false
		for i, l := range page.Lines {
			if l.Noise || !c.hist.InRange(l.FontSize) || c.hist.Key(l.FontSize) != rep {
				continue
			}
			cands = append(cands, i)
			bold = bold || l.IsBold
		}
		// A size shared by title and H1: bold marks the title.
		if bold {
			kept := cands[:0]
			for _, i := range cands {
				if page.Lines[i].IsBold {
					kept = append(kept, i)
				}
			}
			cands = kept
		}
	}
	if len(cands) == 0 {
		return t
	}

	sort.SliceStable(cands, func(a, b int) bool {
		return page.Lines[cands[a]].BBox.Y0 < page.Lines[cands[b]].BBox.Y0
	})

	group := []int{cands[0]}
	for _, i := range cands[1:] {
		prev := page.Lines[group[len(group)-1]]
		cur := page.Lines[i]
		if c.hist.Key(prev.FontSize) != c.hist.Key(cur.FontSize) {
			break
		}
		height := prev.BBox.Height()
		if height <= 0 {
			height = prev.FontSize
		}
		if cur.BBox.Y0-prev.BBox.Y1 >= height {
			break
		}
		group = append(group, i)
	}

	parts := make([]string, 0, len(group))
	for _, i := range group {
		parts = append(parts, page.Lines[i].Text)
		t.Consumed[i] = true
	}
	t.Text = strings.TrimSpace(strings.Join(parts, " "))
	t.FontSize = page.Lines[group[0]].FontSize
	return t
}
