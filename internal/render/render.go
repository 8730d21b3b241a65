// Package render serialises outlines as JSON, Markdown or HTML and writes
// them atomically.
package render

import (
	"fmt"
	"strings"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Options control serialisation.
type Options struct {
	// PageBase is added to every page number on output. Pages are 0-indexed
	// internally.
	PageBase int
}

// ParseFormat accepts json, markdown (or md) and html, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	}
	return ".json"
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/json"
}

// Render serialises o in format f.
func Render(o doctree.Outline, f Format, opts Options) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(o, opts)
	case FormatMarkdown:
		return Markdown(o, opts), nil
	case FormatHTML:
		return HTML(o, opts)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}
