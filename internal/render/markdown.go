package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// Markdown renders o as a "#" title followed by a nested bullet list.
func Markdown(o doctree.Outline, opts Options) []byte {
	var buf bytes.Buffer
	if o.Title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", escapeMarkdown(o.Title))
	}
	doctree.Nest(o).Walk(func(n *doctree.Node, depth int) {
		fmt.Fprintf(&buf, "%s- %s (p. %d)\n",
			strings.Repeat("  ", depth),
			escapeMarkdown(n.Heading.Text),
			n.Heading.Page+opts.PageBase,
		)
	})
	return buf.Bytes()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"#", `\#`,
)

// orderedMarker matches text that would otherwise start a nested list, as in
// "1. Introduction" or "+ Appendix".
var orderedMarker = regexp.MustCompile(`^(\d+)([.)])|^([-+])(\s)`)

func escapeMarkdown(s string) string {
	s = markdownEscaper.Replace(s)
	return orderedMarker.ReplaceAllString(s, `$1\$2$3$4`)
}
