package parser

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/pdfoutline/internal/outline"
)

// openPDF is swapped in tests to simulate a slow open.
var openPDF = OpenPDF

// Extract produces the outline of the file at path. PDFs run through the
// engine; markup formats are read from their own heading structure. The
// engine deadline covers the whole call, including opening the file.
func Extract(ctx context.Context, path string, engine *outline.Engine, log *slog.Logger) (*outline.Result, error) {
	if log == nil {
		log = slog.Default()
	}
	if !IsSupportedExtension(path) {
		return nil, &outline.InputError{
			Path:   path,
			Reason: outline.ReasonUnsupported,
			Err:    errors.New("unsupported extension " + filepath.Ext(path)),
		}
	}

	ctx, cancel := engine.WithDeadline(ctx)
	defer cancel()

	if IsPDF(path) {
		opts := PDFOptions{MaxPages: engine.Config().MaxPages, Logger: log}
		src, err := bounded(ctx,
			func() (*PDFSource, error) { return openPDF(path, opts) },
			func(s *PDFSource) { s.Close() },
		)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return engine.Run(ctx, src)
	}
	return bounded(ctx, func() (*outline.Result, error) {
		return extractMarkup(ctx, path, log)
	}, nil)
}

type outcome[T any] struct {
	v   T
	err error
}

// bounded runs fn on its own goroutine and gives up when ctx ends. A value
// that arrives after the caller gave up is passed to release.
func bounded[T any](ctx context.Context, fn func() (T, error), release func(T)) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := fn()
		done <- outcome[T]{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil && release != nil {
				release(r.v)
			}
		}()
		var zero T
		return zero, outline.DeadlineErr(ctx)
	}
}

func extractMarkup(ctx context.Context, path string, log *slog.Logger) (*outline.Result, error) {
	start := time.Now()
	p, err := ForFile(path)
	if err != nil {
		return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnsupported, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		reason := outline.ReasonUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			reason = outline.ReasonMissing
		}
		return nil, &outline.InputError{Path: path, Reason: reason, Err: err}
	}
	defer f.Close()

	o, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnreadable, Err: err}
	}
	if err := outline.DeadlineErr(ctx); err != nil {
		return nil, err
	}

	res := &outline.Result{Outline: o, Elapsed: time.Since(start)}
	log.Debug("markup outline read", "file", path, "headings", len(o.Headings))
	return res, nil
}
