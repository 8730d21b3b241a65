package doctree

import "strings"

// BBox is an axis-aligned box in top-down page coordinates: Y0 is the top
// edge measured from the top of the page, Y1 the bottom edge.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

func (b BBox) Width() float64   { return b.X1 - b.X0 }
func (b BBox) Height() float64  { return b.Y1 - b.Y0 }
func (b BBox) CenterY() float64 { return (b.Y0 + b.Y1) / 2 }

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: min(b.X0, o.X0),
		Y0: min(b.Y0, o.Y0),
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
	}
}

// Fragment is a positioned run of text with uniform font attributes.
type Fragment struct {
	Text     string
	FontSize float64
	FontName string
	IsBold   bool
	IsItalic bool
	Page     int // 0-indexed
	BBox     BBox
}

// Page is everything a source delivers for a single page.
type Page struct {
	Index     int
	Width     float64
	Height    float64
	Fragments []Fragment
}

// Line is a set of co-linear fragments ordered left to right.
type Line struct {
	Fragments []Fragment
	Text      string
	FontSize  float64 // size of the dominant fragment
	IsBold    bool
	IsItalic  bool
	Page      int
	BBox      BBox

	// Noise is set by the noise filter when the line is a repeated
	// header, footer or stamp.
	Noise bool
}

// Chars returns the number of non-space runes in the line text.
func (l Line) Chars() int {
	n := 0
	for _, r := range l.Text {
		if r != ' ' {
			n++
		}
	}
	return n
}

// Level is the structural level assigned to a heading.
type Level int

const (
	LevelNone Level = iota
	LevelTitle
	LevelH1
	LevelH2
	LevelH3
)

func (l Level) String() string {
	switch l {
	case LevelTitle:
		return "TITLE"
	case LevelH1:
		return "H1"
	case LevelH2:
		return "H2"
	case LevelH3:
		return "H3"
	default:
		return "NONE"
	}
}

// Depth returns 1 for H1, 2 for H2 and 3 for H3, 0 otherwise.
func (l Level) Depth() int {
	switch l {
	case LevelH1:
		return 1
	case LevelH2:
		return 2
	case LevelH3:
		return 3
	}
	return 0
}

// LevelForDepth is the inverse of Depth. Depths outside 1..3 map to LevelNone.
func LevelForDepth(d int) Level {
	switch d {
	case 1:
		return LevelH1
	case 2:
		return LevelH2
	case 3:
		return LevelH3
	}
	return LevelNone
}

// ParseLevel accepts "H1".."H3" and "TITLE", case-insensitively.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TITLE":
		return LevelTitle
	case "H1":
		return LevelH1
	case "H2":
		return LevelH2
	case "H3":
		return LevelH3
	}
	return LevelNone
}

// Heading is a detected heading. Order is its order-of-appearance index in
// the document and breaks ties between headings on the same page and level.
type Heading struct {
	Text     string
	Level    Level
	Page     int
	Order    int
	FontSize float64
}

// Outline is the final artifact of a document run.
type Outline struct {
	Title    string
	Headings []Heading
}
