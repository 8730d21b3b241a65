package outline

import (
	"fmt"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// Heading ranks. Rank 0 is the title tier, ranks 1..3 are H1..H3.
const (
	RankTitle = 0
	MaxRank   = 3
)

// SizeCluster is a run of font sizes treated as one structural level.
type SizeCluster struct {
	Representative float64
	Members        []float64 // descending
	Rank           int
	Lines          int
	Chars          int
}

// Classification maps font sizes to heading ranks for one document.
type Classification struct {
	Baseline  float64
	Clusters  []SizeCluster // ranked clusters, largest first
	TitleTier bool          // Clusters[0] is rank 0
	Discarded int           // clusters dropped beyond MaxRank

	hist  *Histogram
	ranks map[int64]int
}

// ClassifyLevels clusters the sizes above the body baseline and assigns
// ranks. The largest cluster becomes the title tier only when all of its
// lines are on page 0. When the largest size recurs on later pages, as with
// chapter headings set at the title size, ranks start at 1 and the title
// resolver reuses rank 1 for the page-0 title.
func ClassifyLevels(pages []PageLines, hist *Histogram, cfg Config) (*Classification, error) {
	c := &Classification{
		Baseline: hist.Baseline(),
		hist:     hist,
		ranks:    make(map[int64]int),
	}

	clusters := mergeSizes(hist.Above(c.Baseline), cfg)
	if len(clusters) == 0 {
		return c, nil
	}

	c.TitleTier = confinedToFirstPage(pages, hist, clusters[0])
	first := 1
	if c.TitleTier {
		first = RankTitle
	}
	for i := range clusters {
		rank := first + i
		if rank > MaxRank {
			c.Discarded = len(clusters) - i
			break
		}
		clusters[i].Rank = rank
		c.Clusters = append(c.Clusters, clusters[i])
		for _, m := range clusters[i].Members {
			c.ranks[hist.Key(m)] = rank
		}
	}

	if err := c.check(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// mergeSizes greedily merges descending sizes into clusters. A size joins the
// current cluster while it is within the merge epsilon of the cluster's
// representative, its largest member.
func mergeSizes(sizes []SizeCount, cfg Config) []SizeCluster {
	var out []SizeCluster
	for _, s := range sizes {
		if n := len(out); n > 0 {
			cur := &out[n-1]
			if cur.Representative-s.Size < cfg.mergeEpsilon(cur.Representative) {
				cur.Members = append(cur.Members, s.Size)
				cur.Lines += s.Lines
				cur.Chars += s.Chars
				continue
			}
		}
		out = append(out, SizeCluster{
			Representative: s.Size,
			Members:        []float64{s.Size},
			Lines:          s.Lines,
			Chars:          s.Chars,
		})
	}
	return out
}

func confinedToFirstPage(pages []PageLines, hist *Histogram, cl SizeCluster) bool {
	members := make(map[int64]bool, len(cl.Members))
	for _, m := range cl.Members {
		members[hist.Key(m)] = true
	}
	for _, p := range pages {
		for _, l := range p.Lines {
			if l.Noise || !hist.InRange(l.FontSize) || !members[hist.Key(l.FontSize)] {
				continue
			}
			if l.Page != 0 {
				return false
			}
		}
	}
	return true
}

// check verifies the cluster invariants.
func (c *Classification) check(cfg Config) error {
	for i, cl := range c.Clusters {
		if cl.Representative <= c.Baseline {
			return &InvariantError{Msg: fmt.Sprintf("cluster %d representative %.2f not above baseline %.2f", i, cl.Representative, c.Baseline)}
		}
		if i == 0 {
			continue
		}
		prev := c.Clusters[i-1]
		if cl.Rank != prev.Rank+1 {
			return &InvariantError{Msg: fmt.Sprintf("cluster ranks %d and %d are not consecutive", prev.Rank, cl.Rank)}
		}
		if prev.Members[len(prev.Members)-1] <= cl.Representative {
			return &InvariantError{Msg: fmt.Sprintf("clusters %d and %d overlap", i-1, i)}
		}
		if prev.Representative-cl.Representative < cfg.mergeEpsilon(prev.Representative) {
			return &InvariantError{Msg: fmt.Sprintf("clusters %d and %d closer than merge epsilon", i-1, i)}
		}
	}
	return nil
}

// Rank returns the rank of a font size, or false when the size is body text,
// out of range or in a discarded cluster.
func (c *Classification) Rank(size float64) (int, bool) {
	if !c.hist.InRange(size) {
		return 0, false
	}
	r, ok := c.ranks[c.hist.Key(size)]
	return r, ok
}

// Level maps a line to its heading level. Noise lines are never headings.
func (c *Classification) Level(l doctree.Line) doctree.Level {
	if l.Noise {
		return doctree.LevelNone
	}
	r, ok := c.Rank(l.FontSize)
	if !ok {
		return doctree.LevelNone
	}
	if r == RankTitle {
		return doctree.LevelTitle
	}
	return doctree.LevelForDepth(r)
}

// Cluster returns the cluster with the given rank.
func (c *Classification) Cluster(rank int) (SizeCluster, bool) {
	for _, cl := range c.Clusters {
		if cl.Rank == rank {
			return cl, true
		}
	}
	return SizeCluster{}, false
}
