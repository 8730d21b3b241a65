package parser

import (
	"io"

	"github.com/dgallion1/pdfoutline/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (doctree.Outline, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return doctree.Outline{}, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var b outlineBuilder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			b.heading(h.Level, inlineText(h, src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return doctree.Outline{}, err
	}
	return b.outline(), nil
}

// inlineText concatenates the text segments below n.
func inlineText(n ast.Node, src []byte) string {
	var buf []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf = append(buf, t.Segment.Value(src)...)
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf = append(buf, ' ')
			}
		case *ast.String:
			buf = append(buf, t.Value...)
		default:
			buf = append(buf, inlineText(c, src)...)
		}
	}
	return string(buf)
}
