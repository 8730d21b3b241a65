package outline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

const (
	testPageWidth  = 612.0
	testPageHeight = 792.0
)

// frag builds a fragment whose top edge is at y and whose width follows the
// usual half-em glyph estimate.
func frag(text string, size, x, y float64, bold bool) doctree.Fragment {
	w := float64(utf8.RuneCountInString(text)) * size * 0.5
	return doctree.Fragment{
		Text:     text,
		FontSize: size,
		FontName: "Helvetica",
		IsBold:   bold,
		BBox:     doctree.BBox{X0: x, Y0: y, X1: x + w, Y1: y + size},
	}
}

func page(index int, frags ...doctree.Fragment) doctree.Page {
	for i := range frags {
		frags[i].Page = index
	}
	return doctree.Page{Index: index, Width: testPageWidth, Height: testPageHeight, Fragments: frags}
}

// body returns n long body-text lines starting at y.
func body(size, y float64, n int, seed string) []doctree.Fragment {
	var out []doctree.Fragment
	for i := range n {
		text := fmt.Sprintf("%s paragraph line %d with enough words to dominate the histogram", seed, i)
		out = append(out, frag(text, size, 72, y+float64(i)*size*1.4, false))
	}
	return out
}

type fakeSource struct {
	pages  []doctree.Page
	delay  time.Duration
	failAt int
	block  bool
}

func newFakeSource(pages ...doctree.Page) *fakeSource {
	return &fakeSource{pages: pages, failAt: -1}
}

func (s *fakeSource) PageCount() int { return len(s.pages) }

func (s *fakeSource) Page(ctx context.Context, i int) (doctree.Page, error) {
	if s.block {
		select {} // ignores ctx on purpose
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return doctree.Page{}, ctx.Err()
		}
	}
	if i == s.failAt {
		return doctree.Page{}, fmt.Errorf("corrupt page object")
	}
	return s.pages[i], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 4
	return cfg
}

// annualReport is the three-page round-trip document.
func annualReport() []doctree.Page {
	p0 := append([]doctree.Fragment{
		frag("Annual Report", 24, 72, 100, true),
		frag("Introduction", 18, 72, 180, false),
	}, body(12, 220, 10, "intro")...)
	p1 := append([]doctree.Fragment{
		frag("Methodology", 18, 72, 120, false),
	}, body(12, 160, 12, "method")...)
	p2 := append([]doctree.Fragment{
		frag("Results", 18, 72, 120, false),
	}, body(12, 160, 12, "results")...)
	return []doctree.Page{page(0, p0...), page(1, p1...), page(2, p2...)}
}

func run(pages ...doctree.Page) (*Result, error) {
	return NewEngine(testConfig(), testLogger()).Run(context.Background(), newFakeSource(pages...))
}

func headingTexts(o doctree.Outline) []string {
	out := make([]string, 0, len(o.Headings))
	for _, h := range o.Headings {
		out = append(out, h.Level.String()+":"+h.Text)
	}
	return out
}

func containsText(o doctree.Outline, s string) bool {
	if strings.Contains(o.Title, s) {
		return true
	}
	for _, h := range o.Headings {
		if strings.Contains(h.Text, s) {
			return true
		}
	}
	return false
}
