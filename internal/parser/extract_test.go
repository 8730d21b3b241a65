package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/pdfoutline/internal/outline"
)

func TestExtract_Markdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\n## First\n\n## Second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	engine := outline.NewEngine(outline.DefaultConfig(), quietLogger())
	res, err := Extract(context.Background(), path, engine, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outline.Title != "Notes" || len(res.Outline.Headings) != 2 {
		t.Errorf("unexpected outline %+v", res.Outline)
	}
}

func TestExtract_PDF(t *testing.T) {
	engine := outline.NewEngine(outline.DefaultConfig(), quietLogger())
	res, err := Extract(context.Background(), writePDF(t, reportPDF()), engine, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outline.Title != "Annual Report" {
		t.Errorf("expected title %q, got %q", "Annual Report", res.Outline.Title)
	}
}

func TestExtract_InputErrors(t *testing.T) {
	dir := t.TempDir()
	engine := outline.NewEngine(outline.DefaultConfig(), quietLogger())

	tests := []struct {
		path   string
		reason outline.InputReason
	}{
		{filepath.Join(dir, "data.csv"), outline.ReasonUnsupported},
		{filepath.Join(dir, "gone.md"), outline.ReasonMissing},
		{filepath.Join(dir, "gone.pdf"), outline.ReasonMissing},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			_, err := Extract(context.Background(), tt.path, engine, quietLogger())
			var ie *outline.InputError
			if !errors.As(err, &ie) || ie.Reason != tt.reason {
				t.Fatalf("expected %s InputError, got %v", tt.reason, err)
			}
		})
	}
}

func TestExtract_DeadlineCoversOpen(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	orig := openPDF
	openPDF = func(string, PDFOptions) (*PDFSource, error) {
		<-release
		return nil, errors.New("released")
	}
	defer func() { openPDF = orig }()

	cfg := outline.DefaultConfig()
	cfg.Deadline = 20 * time.Millisecond
	engine := outline.NewEngine(cfg, quietLogger())

	start := time.Now()
	_, err := Extract(context.Background(), "stalled.pdf", engine, quietLogger())
	if !errors.Is(err, outline.ErrDeadlineExceeded) {
		t.Fatalf("expected ErrDeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("open was not bounded by the deadline, took %s", elapsed)
	}
}
