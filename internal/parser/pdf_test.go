package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/pdfoutline/internal/doctree"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// textOp places one string on a page. Y is the baseline from the bottom
// edge, as in the content stream.
type textOp struct {
	bold bool
	size float64
	x, y float64
	text string
}

// buildPDF writes a minimal PDF with Helvetica and Helvetica-Bold, every
// glyph 500 units wide. The MediaBox lives on the page tree root so pages
// inherit it.
func buildPDF(pages [][]textOp) []byte {
	return buildPDFBox(pages, letterBox)
}

func buildPDFBox(pages [][]textOp, box pageBox) []byte {
	var objs []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}

	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))
	font := func(base string) string {
		return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>", base, widths)
	}

	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [%g %g %g %g] >>", strings.Join(kids, " "), len(pages), box.llx, box.lly, box.urx, box.ury),
		font("Helvetica"),
		font("Helvetica-Bold"),
	)
	for i, ops := range pages {
		var cs strings.Builder
		for _, op := range ops {
			f := "F1"
			if op.bold {
				f = "F2"
			}
			fmt.Fprintf(&cs, "BT /%s %g Tf %g %g Td (%s) Tj ET\n", f, op.size, op.x, op.y, op.text)
		}
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R /F2 4 0 R >> >> /Contents %d 0 R >>", 6+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", cs.Len(), cs.String()),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func writePDF(t *testing.T, pages [][]textOp) string {
	t.Helper()
	return writePDFBox(t, pages, letterBox)
}

func writePDFBox(t *testing.T, pages [][]textOp, box pageBox) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buildPDFBox(pages, box), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func bodyOps(top float64, n int, seed string) []textOp {
	var ops []textOp
	for i := range n {
		ops = append(ops, textOp{
			size: 12,
			x:    72,
			y:    top - float64(i)*16,
			text: fmt.Sprintf("%s paragraph line %d with enough words to dominate", seed, i),
		})
	}
	return ops
}

func reportPDF() [][]textOp {
	return [][]textOp{
		append([]textOp{
			{bold: true, size: 24, x: 72, y: 700, text: "Annual Report"},
			{size: 18, x: 72, y: 640, text: "Introduction"},
		}, bodyOps(600, 10, "intro")...),
		append([]textOp{{size: 18, x: 72, y: 700, text: "Methodology"}}, bodyOps(660, 12, "method")...),
		append([]textOp{{size: 18, x: 72, y: 700, text: "Results"}}, bodyOps(660, 12, "results")...),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenPDF_Missing(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "nope.pdf"), PDFOptions{Logger: quietLogger()})
	var ie *outline.InputError
	if !errors.As(err, &ie) || ie.Reason != outline.ReasonMissing {
		t.Fatalf("expected missing InputError, got %v", err)
	}
}

func TestOpenPDF_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenPDF(path, PDFOptions{Logger: quietLogger()})
	var ie *outline.InputError
	if !errors.As(err, &ie) || ie.Reason != outline.ReasonUnreadable {
		t.Fatalf("expected unreadable InputError, got %v", err)
	}
}

func TestOpenPDF_Directory(t *testing.T) {
	_, err := OpenPDF(t.TempDir(), PDFOptions{Logger: quietLogger()})
	var ie *outline.InputError
	if !errors.As(err, &ie) || ie.Reason != outline.ReasonUnreadable {
		t.Fatalf("expected unreadable InputError, got %v", err)
	}
}

func TestOpenPDF_TooManyPages(t *testing.T) {
	path := writePDF(t, reportPDF())
	_, err := OpenPDF(path, PDFOptions{MaxPages: 2, Logger: quietLogger()})
	var ie *outline.InputError
	if !errors.As(err, &ie) || ie.Reason != outline.ReasonTooManyPages {
		t.Fatalf("expected too_many_pages InputError, got %v", err)
	}
}

func TestOpenPDF_Encrypted(t *testing.T) {
	tests := []struct {
		name string
		conf *model.Configuration
	}{
		{"aes-256", model.NewAESConfiguration("reader", "owner", 256)},
		{"aes-128", model.NewAESConfiguration("reader", "owner", 128)},
		{"rc4-128", model.NewRC4Configuration("reader", "owner", 128)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locked := filepath.Join(t.TempDir(), "locked.pdf")
			if err := api.EncryptFile(writePDF(t, reportPDF()), locked, tt.conf); err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			_, err := OpenPDF(locked, PDFOptions{Logger: quietLogger()})
			var ie *outline.InputError
			if !errors.As(err, &ie) || ie.Reason != outline.ReasonEncrypted {
				t.Fatalf("expected encrypted InputError, got %v", err)
			}
		})
	}
}

func TestIsPasswordError(t *testing.T) {
	if !isPasswordError(fmt.Errorf("read: %w", pdfcpu.ErrWrongPassword)) {
		t.Error("expected wrapped ErrWrongPassword to match")
	}
	if !isPasswordError(errors.New("pdfcpu: please provide the owner password with -opw")) {
		t.Error("expected owner password error to match")
	}
	if isPasswordError(errors.New("pdfcpu: corrupt xref")) {
		t.Error("expected unrelated error not to match")
	}
}

func TestPDFSource_Page(t *testing.T) {
	src, err := OpenPDF(writePDF(t, reportPDF()), PDFOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", src.PageCount())
	}
	p, err := src.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if p.Width != 612 || p.Height != 792 {
		t.Errorf("expected inherited 612x792 MediaBox, got %vx%v", p.Width, p.Height)
	}
	if len(p.Fragments) == 0 {
		t.Fatal("expected fragments")
	}

	first := p.Fragments[0]
	if !strings.HasPrefix(first.Text, "Annual") {
		t.Errorf("expected first run to start with %q, got %q", "Annual", first.Text)
	}
	if !first.IsBold || first.FontSize != 24 {
		t.Errorf("expected 24pt bold, got %vpt bold=%v", first.FontSize, first.IsBold)
	}
	if first.BBox.Y1 != 92 || first.BBox.Y0 != 68 {
		t.Errorf("expected top-down bbox 68..92, got %+v", first.BBox)
	}
	if first.BBox.X0 != 72 {
		t.Errorf("expected run to start at x=72, got %+v", first.BBox)
	}
}

func TestPDFSource_PageOutOfRange(t *testing.T) {
	src, err := OpenPDF(writePDF(t, reportPDF()), PDFOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	_, err = src.Page(context.Background(), 7)
	var ee *outline.ExtractionError
	if !errors.As(err, &ee) || ee.Page != 7 {
		t.Fatalf("expected ExtractionError for page 7, got %v", err)
	}
}

func TestPDFSource_EngineRoundTrip(t *testing.T) {
	src, err := OpenPDF(writePDF(t, reportPDF()), PDFOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	res, err := outline.NewEngine(outline.DefaultConfig(), quietLogger()).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Outline.Title != "Annual Report" {
		t.Errorf("expected title %q, got %q", "Annual Report", res.Outline.Title)
	}
	var got []string
	for _, h := range res.Outline.Headings {
		got = append(got, fmt.Sprintf("%s:%s:%d", h.Level, h.Text, h.Page))
	}
	want := []string{"H1:Introduction:0", "H1:Methodology:1", "H1:Results:2"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// shiftedBox is a Letter page whose MediaBox origin sits 200pt up.
var shiftedBox = pageBox{llx: 0, lly: 200, urx: 612, ury: 992}

func TestPDFSource_OffsetMediaBox(t *testing.T) {
	page := append([]textOp{{bold: true, size: 18, x: 72, y: 880, text: "Overview"}}, bodyOps(860, 4, "body")...)
	page = append(page, textOp{size: 10, x: 300, y: 220, text: "Footnote"})

	src, err := OpenPDF(writePDFBox(t, [][]textOp{page}, shiftedBox), PDFOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	p, err := src.Page(context.Background(), 0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if p.Width != 612 || p.Height != 792 {
		t.Errorf("expected 612x792, got %vx%v", p.Width, p.Height)
	}
	first, last := p.Fragments[0], p.Fragments[len(p.Fragments)-1]
	if first.BBox.Y0 != 94 || first.BBox.Y1 != 112 {
		t.Errorf("expected heading at 94..112 from the top, got %+v", first.BBox)
	}
	if last.Text != "Footnote" || last.BBox.Y0 != 762 || last.BBox.Y1 != 772 {
		t.Errorf("expected footer at 762..772 from the top, got %q %+v", last.Text, last.BBox)
	}
}

func TestPDFSource_OffsetMediaBoxFooterNoise(t *testing.T) {
	var pages [][]textOp
	for i := range 5 {
		ops := append([]textOp{{bold: true, size: 18, x: 72, y: 880, text: fmt.Sprintf("Chapter %c", 'A'+i)}},
			bodyOps(850, 12, "body")...)
		ops = append(ops, textOp{size: 10, x: 300, y: 220, text: fmt.Sprintf("Page %d", i+1)})
		pages = append(pages, ops)
	}

	src, err := OpenPDF(writePDFBox(t, pages, shiftedBox), PDFOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	res, err := outline.NewEngine(outline.DefaultConfig(), quietLogger()).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.NoiseLines != 5 {
		t.Errorf("expected only the 5 footers marked as noise, got %d", res.NoiseLines)
	}
	for _, h := range res.Outline.Headings {
		if strings.HasPrefix(h.Text, "Page") || strings.Contains(h.Text, "paragraph") {
			t.Errorf("unexpected heading %+v", h)
		}
	}
}

func TestCoalesceGlyphs_OffsetOrigin(t *testing.T) {
	glyphs := []pdflib.Text{{Font: "Helvetica", FontSize: 10, X: 150, Y: 300, W: 5, S: "x"}}
	frags := coalesceGlyphs(glyphs, pageBox{llx: 100, lly: 200, urx: 712, ury: 992}, 0)
	if len(frags) != 1 {
		t.Fatalf("expected one run, got %d", len(frags))
	}
	want := doctree.BBox{X0: 50, Y0: 682, X1: 55, Y1: 692}
	if frags[0].BBox != want {
		t.Errorf("expected %+v, got %+v", want, frags[0].BBox)
	}
}

func TestCoalesceGlyphs(t *testing.T) {
	glyphs := []pdflib.Text{
		{Font: "Times-Bold", FontSize: 10, X: 10, Y: 700, W: 5, S: "H"},
		{Font: "Times-Bold", FontSize: 10, X: 15, Y: 700, W: 5, S: "i"},
		// Word gap.
		{Font: "Times-Bold", FontSize: 10, X: 25, Y: 700, W: 5, S: "y"},
		// Font change.
		{Font: "Times-Roman", FontSize: 10, X: 30, Y: 700, W: 5, S: "o"},
		// Baseline change.
		{Font: "Times-Roman", FontSize: 10, X: 35, Y: 690, W: 5, S: "u"},
	}
	frags := coalesceGlyphs(glyphs, letterBox, 2)
	var texts []string
	for _, f := range frags {
		texts = append(texts, f.Text)
	}
	if strings.Join(texts, "|") != "Hi|y|o|u" {
		t.Fatalf("unexpected runs %v", texts)
	}
	if frags[0].BBox.X1 != 20 || !frags[0].IsBold || frags[0].Page != 2 {
		t.Errorf("unexpected first run %+v", frags[0])
	}
	if !frags[1].IsBold || frags[2].IsBold {
		t.Errorf("expected bold to follow the font name, got %v and %v", frags[1].IsBold, frags[2].IsBold)
	}
}

func TestFontStyle(t *testing.T) {
	tests := []struct {
		name         string
		bold, italic bool
	}{
		{"Helvetica", false, false},
		{"Helvetica-Bold", true, false},
		{"ABCDEF+Arial-BoldItalicMT", true, true},
		{"Times-Oblique", false, true},
		{"SourceSansPro-Semibold", true, false},
		{"Futura-Heavy", true, false},
		{"Garamond-Demi", true, false},
		{"Inter-Black", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bold, italic := fontStyle(tt.name)
			if bold != tt.bold || italic != tt.italic {
				t.Errorf("fontStyle(%q) = %v, %v; want %v, %v", tt.name, bold, italic, tt.bold, tt.italic)
			}
		})
	}
}
