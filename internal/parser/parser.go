package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// Parser reads an outline from a document that carries explicit heading
// markup. PDFs have no such markup and go through OpenPDF and the engine.
type Parser interface {
	Parse(r io.Reader, filename string) (doctree.Outline, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

// ForFile returns the markup parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("no markup parser for extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// IsPDF reports whether filename has a .pdf extension.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// outlineBuilder collects headings from native markup. A level-1 heading
// that opens the document becomes the title unless the format supplied one
// already; levels deeper than 3 are dropped.
type outlineBuilder struct {
	title      string
	headings   []doctree.Heading
	sawHeading bool
}

func (b *outlineBuilder) setTitle(s string) {
	if b.title == "" {
		b.title = cleanText(s)
	}
}

func (b *outlineBuilder) heading(level int, s string) {
	text := cleanText(s)
	if text == "" {
		return
	}
	first := !b.sawHeading
	b.sawHeading = true
	if first && level == 1 && b.title == "" {
		b.title = text
		return
	}
	lvl := doctree.LevelForDepth(level)
	if lvl == doctree.LevelNone {
		return
	}
	b.headings = append(b.headings, doctree.Heading{
		Text:  text,
		Level: lvl,
		Order: len(b.headings),
	})
}

func (b *outlineBuilder) outline() doctree.Outline {
	headings := b.headings
	if headings == nil {
		headings = []doctree.Heading{}
	}
	return doctree.Outline{Title: b.title, Headings: headings}
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
