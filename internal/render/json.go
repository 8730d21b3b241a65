package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// Document is the serialised outline.
type Document struct {
	Title   string  `json:"title"`
	Outline []Entry `json:"outline"`
}

// Entry is one heading in a Document.
type Entry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// NewDocument converts o for serialisation. Outline is never nil.
func NewDocument(o doctree.Outline, opts Options) Document {
	doc := Document{Title: o.Title, Outline: make([]Entry, 0, len(o.Headings))}
	for _, h := range o.Headings {
		if h.Level.Depth() == 0 {
			continue
		}
		doc.Outline = append(doc.Outline, Entry{
			Level: h.Level.String(),
			Text:  h.Text,
			Page:  h.Page + opts.PageBase,
		})
	}
	return doc
}

// ToOutline converts a decoded document back, undoing pageBase. Unknown
// levels are skipped.
func (d Document) ToOutline(pageBase int) doctree.Outline {
	o := doctree.Outline{Title: d.Title, Headings: make([]doctree.Heading, 0, len(d.Outline))}
	for _, e := range d.Outline {
		lvl := doctree.ParseLevel(e.Level)
		if lvl.Depth() == 0 {
			continue
		}
		o.Headings = append(o.Headings, doctree.Heading{
			Text:  e.Text,
			Level: lvl,
			Page:  e.Page - pageBase,
			Order: len(o.Headings),
		})
	}
	return o
}

// JSON encodes o with two-space indentation and HTML escaping off, and
// checks the result against the outline schema.
func JSON(o doctree.Outline, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(o, opts)); err != nil {
		return nil, fmt.Errorf("encode outline: %w", err)
	}
	if err := Validate(buf.Bytes(), opts.PageBase); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
