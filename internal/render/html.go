package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// HTML renders the Markdown form of o as a standalone HTML page.
func HTML(o doctree.Outline, opts Options) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert(Markdown(o, opts), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	title := o.Title
	if title == "" {
		title = "Outline"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}
