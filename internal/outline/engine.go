package outline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/pdfoutline/internal/doctree"
)

// Source supplies the fragments of a document page by page. Page may be
// called concurrently for different indexes.
type Source interface {
	PageCount() int
	Page(ctx context.Context, index int) (doctree.Page, error)
}

// Result is the outline of one document plus the statistics behind it.
type Result struct {
	Outline    doctree.Outline
	Pages      int
	EmptyPages int
	NoiseLines int
	Baseline   float64
	Clusters   []SizeCluster
	Elapsed    time.Duration
}

// Engine runs the outline pipeline for one document at a time. It holds no
// per-document state and may be shared.
type Engine struct {
	cfg Config
	log *slog.Logger
}

func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// WithDeadline bounds ctx by the per-document deadline. Work done before Run,
// such as opening the file, shares the returned context with Run so that the
// whole document runs against one budget.
func (e *Engine) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.Deadline)
}

// Run extracts and classifies every page of src within the configured
// deadline. It returns either a complete outline or an error; never a
// partial outline.
func (e *Engine) Run(ctx context.Context, src Source) (*Result, error) {
	start := time.Now()
	ctx, cancel := e.WithDeadline(ctx)
	defer cancel()

	n := src.PageCount()
	if n > e.cfg.MaxPages {
		return nil, &InputError{Reason: ReasonTooManyPages, Err: fmt.Errorf("%d pages, limit %d", n, e.cfg.MaxPages)}
	}

	pages, err := e.assemble(ctx, src, n)
	if err != nil {
		return nil, err
	}

	// Whole-document phase: single writer, no locking.
	res := &Result{Pages: n}
	for _, p := range pages {
		if p.Empty {
			res.EmptyPages++
		}
	}
	res.NoiseLines = MarkNoise(pages, e.cfg)
	hist := ProfileFonts(pages, e.cfg)
	cls, err := ClassifyLevels(pages, hist, e.cfg)
	if err != nil {
		return nil, err
	}
	res.Baseline = cls.Baseline
	res.Clusters = cls.Clusters
	if len(cls.Clusters) == 0 {
		e.log.Debug("no sizes above baseline", "baseline", cls.Baseline)
	}

	title := ResolveTitle(pages, cls)
	res.Outline = BuildOutline(pages, cls, title, e.cfg)
	if err := DeadlineErr(ctx); err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	e.log.Debug("outline built",
		"pages", n,
		"empty_pages", res.EmptyPages,
		"noise_lines", res.NoiseLines,
		"baseline", res.Baseline,
		"clusters", len(res.Clusters),
		"discarded_clusters", cls.Discarded,
		"headings", len(res.Outline.Headings),
		"duration_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// assemble fetches and assembles all pages on a bounded worker pool. The
// wait happens off the calling goroutine so that a source ignoring ctx
// cannot hold the run past its deadline.
func (e *Engine) assemble(ctx context.Context, src Source, n int) ([]PageLines, error) {
	pages := make([]PageLines, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	done := make(chan error, 1)
	go func() {
		for i := range n {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p, err := src.Page(gctx, i)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					var ee *ExtractionError
					if errors.As(err, &ee) {
						return err
					}
					return &ExtractionError{Page: i, Err: err}
				}
				p.Index = i
				pages[i] = AssembleLines(p, e.cfg)
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if derr := DeadlineErr(ctx); derr != nil {
			return nil, derr
		}
		if err != nil {
			return nil, err
		}
		return pages, nil
	case <-ctx.Done():
		return nil, DeadlineErr(ctx)
	}
}

// DeadlineErr translates a finished context into the engine's error
// taxonomy: nil while ctx is live, ErrDeadlineExceeded once it timed out.
func DeadlineErr(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrDeadlineExceeded
	default:
		return err
	}
}
