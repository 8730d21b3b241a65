package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/parser"
	"github.com/dgallion1/pdfoutline/internal/pathstore"
	"github.com/dgallion1/pdfoutline/internal/render"
)

const publishTimeout = 30 * time.Second

// Worker runs uploaded documents through the outline pipeline.
type Worker struct {
	cfg       *config.Manager
	pathstore *pathstore.Client
	stats     *Stats
	log       *slog.Logger
}

// NewWorker creates a worker. ps may be nil, which disables publishing and
// duplicate lookups.
func NewWorker(cfg *config.Manager, ps *pathstore.Client, stats *Stats, log *slog.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		pathstore: ps,
		stats:     stats,
		log:       log,
	}
}

// Process runs a queued job to completion or failure.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "file", job.Filename)
	job.SetStatus(StatusRunning)

	if w.pathstore != nil && w.reuse(ctx, job, log) {
		return
	}

	res, err := w.Extract(ctx, job.Filename, job.FileData())
	if err != nil {
		log.Warn("outline failed", "failure", ClassifyError(err), "error", err)
		job.Fail(err)
		return
	}
	job.Complete(res.Outline, res.Pages, res.Elapsed)
	log.Info("outline complete",
		"pages", res.Pages,
		"headings", len(res.Outline.Headings),
		"duration_ms", res.Elapsed.Milliseconds(),
	)

	if w.pathstore != nil {
		if err := w.publish(ctx, job, res); err != nil {
			log.Error("publish failed", "error", err)
			job.SetPublishError(err)
		}
	}
}

// Extract runs data through the pipeline under the current configuration.
// The extension of filename selects the parser.
func (w *Worker) Extract(ctx context.Context, filename string, data []byte) (*outline.Result, error) {
	start := time.Now()
	res, err := w.extract(ctx, filename, data)
	if err != nil {
		var ie *outline.InputError
		if errors.As(err, &ie) {
			ie.Path = filename
		}
		w.stats.RecordFailure(time.Since(start).Milliseconds())
		return nil, err
	}
	w.stats.Record(time.Since(start).Milliseconds(), res.Pages)
	return res, nil
}

func (w *Worker) extract(ctx context.Context, filename string, data []byte) (*outline.Result, error) {
	if !parser.IsSupportedExtension(filename) {
		return nil, &outline.InputError{
			Path:   filename,
			Reason: outline.ReasonUnsupported,
			Err:    fmt.Errorf("unsupported file type: %s", filepath.Ext(filename)),
		}
	}

	tmp, err := os.CreateTemp("", "pdfoutline-upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	engine := outline.NewEngine(w.cfg.Get().Outline(), w.log)
	return parser.Extract(ctx, tmp.Name(), engine, w.log)
}

// reuse completes job from an outline published earlier for the same
// content. Lookup failures fall through to a fresh run.
func (w *Worker) reuse(ctx context.Context, job *Job, log *slog.Logger) bool {
	rec, err := w.pathstore.FindByHash(ctx, job.ContentHash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
		return false
	}
	if rec == nil {
		return false
	}

	var doc render.Document
	if err := json.Unmarshal(rec.Document, &doc); err != nil {
		log.Warn("stored outline unreadable, proceeding", "existing_doc_id", rec.DocID, "error", err)
		return false
	}
	job.CompleteDuplicate(doc.ToOutline(rec.PageBase), rec.Pages, rec.DocID)
	log.Info("duplicate document, reusing outline", "existing_doc_id", rec.DocID)
	return true
}

func (w *Worker) publish(ctx context.Context, job *Job, res *outline.Result) error {
	opts := w.cfg.Get().RenderOptions()
	data, err := json.Marshal(render.NewDocument(res.Outline, opts))
	if err != nil {
		return fmt.Errorf("marshal outline: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return w.pathstore.PublishOutline(ctx, pathstore.OutlineRecord{
		DocID:       job.DocID,
		Filename:    job.Filename,
		ContentHash: job.ContentHash,
		Pages:       res.Pages,
		PageBase:    opts.PageBase,
		Document:    data,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}
