package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dgallion1/pdfoutline/internal/doctree"
	"github.com/dgallion1/pdfoutline/internal/outline"
)

// US Letter, used when a page has no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// pageBox is a normalised MediaBox in PDF user space.
type pageBox struct {
	llx, lly, urx, ury float64
}

var letterBox = pageBox{urx: defaultPageWidth, ury: defaultPageHeight}

func (b pageBox) width() float64  { return b.urx - b.llx }
func (b pageBox) height() float64 { return b.ury - b.lly }

// PDFOptions configures OpenPDF.
type PDFOptions struct {
	// MaxPages rejects documents with more pages. Zero means no limit.
	MaxPages int
	Logger   *slog.Logger
}

// PDFSource decodes positioned glyphs from a PDF file. The decoder is not
// safe for concurrent use, so Page calls are serialised; line assembly on the
// returned fragments can still run in parallel.
type PDFSource struct {
	path  string
	file  *os.File
	pages int
	log   *slog.Logger

	mu     sync.Mutex
	reader *pdflib.Reader
}

// OpenPDF opens path and checks that it can be decoded. Failures are
// returned as *outline.InputError with a reason the caller can report.
func OpenPDF(path string, opts PDFOptions) (src *PDFSource, err error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &outline.InputError{Path: path, Reason: outline.ReasonMissing, Err: err}
		}
		return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnreadable, Err: err}
	}
	if info.IsDir() {
		return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnreadable, Err: errors.New("is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnreadable, Err: err}
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	preflight, perr := preflightPageCount(f)
	if perr != nil {
		if isPasswordError(perr) {
			return nil, &outline.InputError{Path: path, Reason: outline.ReasonEncrypted, Err: perr}
		}
		log.Warn("pdf preflight failed, using decoder page count", "file", path, "error", perr)
	}

	reader, err := newReader(f, info.Size())
	if err != nil {
		if errors.Is(err, pdflib.ErrInvalidPassword) || isEncryptionError(err) {
			return nil, &outline.InputError{Path: path, Reason: outline.ReasonEncrypted, Err: err}
		}
		return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnreadable, Err: err}
	}

	n := reader.NumPage()
	if perr == nil && preflight != n {
		log.Warn("page count mismatch", "file", path, "preflight", preflight, "decoder", n)
	}
	if opts.MaxPages > 0 && n > opts.MaxPages {
		return nil, &outline.InputError{
			Path:   path,
			Reason: outline.ReasonTooManyPages,
			Err:    fmt.Errorf("%d pages, limit %d", n, opts.MaxPages),
		}
	}

	log.Debug("pdf opened", "file", path, "pages", n, "bytes", info.Size())
	return &PDFSource{path: path, file: f, pages: n, log: log, reader: reader}, nil
}

// preflightPageCount asks pdfcpu for the page count with relaxed
// validation and rewinds f.
func preflightPageCount(f *os.File) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(f, conf)
	if _, serr := f.Seek(0, io.SeekStart); serr != nil && err == nil {
		err = serr
	}
	return n, err
}

// isPasswordError reports whether pdfcpu refused the file for want of a
// password. The owner password variant has no sentinel.
func isPasswordError(err error) bool {
	if errors.Is(err, pdfcpu.ErrWrongPassword) {
		return true
	}
	return strings.Contains(err.Error(), "password")
}

// isEncryptionError matches the decoder's errors for encryption schemes it
// cannot handle, such as "unsupported PDF: encryption version V=4".
func isEncryptionError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "encryption")
}

func newReader(f *os.File, size int64) (r *pdflib.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("decoder panic: %v", p)
		}
	}()
	return pdflib.NewReader(f, size)
}

// Path returns the file the source reads.
func (s *PDFSource) Path() string { return s.path }

func (s *PDFSource) PageCount() int { return s.pages }

// Page decodes the 0-indexed page. A missing page object yields an empty
// page rather than an error.
func (s *PDFSource) Page(ctx context.Context, index int) (page doctree.Page, err error) {
	if err := ctx.Err(); err != nil {
		return doctree.Page{}, err
	}
	if index < 0 || index >= s.pages {
		return doctree.Page{}, &outline.ExtractionError{Page: index, Err: errors.New("page out of range")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			page = doctree.Page{}
			err = &outline.ExtractionError{Page: index, Err: fmt.Errorf("decoder panic: %v", p)}
		}
	}()

	p := s.reader.Page(index + 1)
	page = doctree.Page{Index: index, Width: defaultPageWidth, Height: defaultPageHeight}
	if p.V.IsNull() {
		s.log.Debug("page object missing", "file", s.path, "page", index)
		return page, nil
	}
	box, ok := mediaBox(p.V)
	if !ok {
		box = letterBox
	}
	page.Width, page.Height = box.width(), box.height()
	page.Fragments = coalesceGlyphs(p.Content().Text, box, index)
	return page, nil
}

// Close releases the underlying file.
func (s *PDFSource) Close() error {
	return s.file.Close()
}

// mediaBox returns the page's MediaBox with its corners ordered, following
// the Parent chain for an inherited box.
func mediaBox(v pdflib.Value) (pageBox, bool) {
	for depth := 0; depth < 16 && !v.IsNull(); depth++ {
		arr := v.Key("MediaBox")
		if arr.Kind() == pdflib.Array && arr.Len() == 4 {
			x0, y0 := arr.Index(0).Float64(), arr.Index(1).Float64()
			x1, y1 := arr.Index(2).Float64(), arr.Index(3).Float64()
			box := pageBox{
				llx: math.Min(x0, x1), lly: math.Min(y0, y1),
				urx: math.Max(x0, x1), ury: math.Max(y0, y1),
			}
			if box.width() > 0 && box.height() > 0 {
				return box, true
			}
		}
		v = v.Key("Parent")
	}
	return pageBox{}, false
}

// touchTolerance is the horizontal slack, as a fraction of the font size,
// within which consecutive glyphs count as touching.
const touchTolerance = 0.1

// coalesceGlyphs merges consecutive glyphs sharing font, size and baseline
// whose X extents touch. The decoder reports positions in user space with
// baselines bottom-up; fragments are returned in top-down coordinates
// relative to the MediaBox origin.
func coalesceGlyphs(glyphs []pdflib.Text, box pageBox, index int) []doctree.Fragment {
	var out []doctree.Fragment
	var cur *pdflib.Text
	var sb strings.Builder

	flush := func() {
		if cur == nil {
			return
		}
		text := sb.String()
		if strings.TrimSpace(text) != "" && cur.FontSize > 0 {
			bold, italic := fontStyle(cur.Font)
			out = append(out, doctree.Fragment{
				Text:     text,
				FontSize: cur.FontSize,
				FontName: cur.Font,
				IsBold:   bold,
				IsItalic: italic,
				Page:     index,
				BBox: doctree.BBox{
					X0: cur.X - box.llx,
					Y0: box.ury - cur.Y - cur.FontSize,
					X1: cur.X + cur.W - box.llx,
					Y1: box.ury - cur.Y,
				},
			})
		}
		cur = nil
		sb.Reset()
	}

	for i := range glyphs {
		g := glyphs[i]
		if cur != nil && sameRun(*cur, g) {
			sb.WriteString(g.S)
			cur.W = g.X + g.W - cur.X
			continue
		}
		flush()
		run := g
		cur = &run
		sb.WriteString(g.S)
	}
	flush()
	return out
}

func sameRun(cur, g pdflib.Text) bool {
	if cur.Font != g.Font || cur.FontSize != g.FontSize {
		return false
	}
	if math.Abs(cur.Y-g.Y) > 0.01 {
		return false
	}
	gap := g.X - (cur.X + cur.W)
	return math.Abs(gap) <= touchTolerance*g.FontSize
}

var (
	boldMarkers   = []string{"bold", "black", "heavy", "semibold", "demi"}
	italicMarkers = []string{"italic", "oblique"}
)

// fontStyle infers weight and slant from a base font name such as
// "ABCDEF+Helvetica-BoldOblique".
func fontStyle(name string) (bold, italic bool) {
	if i := strings.IndexByte(name, '+'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			bold = true
			break
		}
	}
	for _, m := range italicMarkers {
		if strings.Contains(name, m) {
			italic = true
			break
		}
	}
	return bold, italic
}
