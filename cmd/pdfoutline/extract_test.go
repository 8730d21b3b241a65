package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/doctree"
	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/render"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected no file at %s, stat error %v", path, err)
	}
}

// stubExtract replaces the document extractor for one test.
func stubExtract(t *testing.T, fn func(ctx context.Context, path string, engine *outline.Engine, log *slog.Logger) (*outline.Result, error)) {
	t.Helper()
	orig := extractDocument
	extractDocument = fn
	t.Cleanup(func() { extractDocument = orig })
}

// stalledSource never delivers a page before its context ends.
type stalledSource struct{}

func (stalledSource) PageCount() int { return 3 }

func (stalledSource) Page(ctx context.Context, i int) (doctree.Page, error) {
	<-ctx.Done()
	return doctree.Page{}, ctx.Err()
}

func TestRunExtract_Markdown(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "guide.md")
	if err := os.WriteFile(in, []byte("# Guide\n\n## Install\n\n## Usage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := defaultOutputPath(in, render.FormatJSON)

	if err := runExtract(context.Background(), in, out, render.FormatJSON, config.DefaultConfig(), quietLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc render.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.Title != "Guide" || len(doc.Outline) != 2 || doc.Outline[0].Level != "H2" {
		t.Errorf("unexpected document %+v", doc)
	}
}

func TestRunExtract_MissingInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "absent.pdf")
	out := filepath.Join(dir, "absent.json")

	err := runExtract(context.Background(), in, out, render.FormatJSON, config.DefaultConfig(), quietLogger())
	if code := exitCode(err); code != exitInput {
		t.Fatalf("expected exit %d, got %d (%v)", exitInput, code, err)
	}
	assertNoFile(t, out)
}

func TestRunExtract_UnreadablePDF(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "junk.pdf")
	if err := os.WriteFile(in, []byte("%PDF-1.4 truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "junk.json")

	err := runExtract(context.Background(), in, out, render.FormatJSON, config.DefaultConfig(), quietLogger())
	if code := exitCode(err); code != exitInput {
		t.Fatalf("expected exit %d, got %d (%v)", exitInput, code, err)
	}
	assertNoFile(t, out)
}

func TestRunExtract_DeadlineLeavesNoOutput(t *testing.T) {
	stubExtract(t, func(ctx context.Context, path string, engine *outline.Engine, log *slog.Logger) (*outline.Result, error) {
		return engine.Run(ctx, stalledSource{})
	})

	cfg := config.DefaultConfig()
	cfg.Engine.Deadline = 20 * time.Millisecond
	out := filepath.Join(t.TempDir(), "slow.json")

	start := time.Now()
	err := runExtract(context.Background(), "slow.pdf", out, render.FormatJSON, cfg, quietLogger())
	if code := exitCode(err); code != exitDeadline {
		t.Fatalf("expected exit %d, got %d (%v)", exitDeadline, code, err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("deadline not enforced: took %s", elapsed)
	}
	assertNoFile(t, out)
}

func TestRunExtract_InvariantIsInternal(t *testing.T) {
	stubExtract(t, func(ctx context.Context, path string, engine *outline.Engine, log *slog.Logger) (*outline.Result, error) {
		return nil, &outline.InvariantError{Msg: "levels out of order"}
	})
	out := filepath.Join(t.TempDir(), "x.json")
	err := runExtract(context.Background(), "x.pdf", out, render.FormatJSON, config.DefaultConfig(), quietLogger())
	if code := exitCode(err); code != exitInternal {
		t.Fatalf("expected exit %d, got %d (%v)", exitInternal, code, err)
	}
	assertNoFile(t, out)
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in     string
		format render.Format
		want   string
	}{
		{"docs/report.pdf", render.FormatJSON, filepath.Join("docs", "report.json")},
		{"report.PDF", render.FormatMarkdown, "report.md"},
		{"/tmp/a.b.pdf", render.FormatHTML, "/tmp/a.b.html"},
	}
	for _, tt := range tests {
		if got := defaultOutputPath(tt.in, tt.format); got != tt.want {
			t.Errorf("defaultOutputPath(%q, %s) = %q, want %q", tt.in, tt.format, got, tt.want)
		}
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestBatch(t *testing.T) {
	stubExtract(t, func(ctx context.Context, path string, engine *outline.Engine, log *slog.Logger) (*outline.Result, error) {
		if strings.HasPrefix(filepath.Base(path), "bad") {
			return nil, &outline.InputError{Path: path, Reason: outline.ReasonUnreadable}
		}
		return &outline.Result{Outline: doctree.Outline{
			Title:    filepath.Base(path),
			Headings: []doctree.Heading{{Text: "Intro", Level: doctree.LevelH1}},
		}}, nil
	})

	in := t.TempDir()
	for _, name := range []string{"b-good.pdf", "a-good.PDF", "bad.pdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(in, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(t.TempDir(), "json")

	_, err := execute(t, "batch", in, "--output-dir", out)
	if code := exitCode(err); code != exitInput {
		t.Fatalf("expected exit %d, got %d (%v)", exitInput, code, err)
	}
	for _, name := range []string{"a-good.json", "b-good.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	assertNoFile(t, filepath.Join(out, "bad.json"))
	assertNoFile(t, filepath.Join(out, "notes.json"))
}

func TestBatch_MissingDir(t *testing.T) {
	_, err := execute(t, "batch", filepath.Join(t.TempDir(), "nope"))
	if code := exitCode(err); code != exitInput {
		t.Fatalf("expected exit %d, got %d (%v)", exitInput, code, err)
	}
}

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.pdf", "a.pdf", "b.txt"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0o644)
	}
	os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755)

	got, err := listPDFs(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "c.pdf")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfoutline.yaml")

	if _, err := execute(t, "config", "init", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := config.NewManager(path, quietLogger()); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	_, err := execute(t, "config", "init", path)
	if code := exitCode(err); code != exitInput {
		t.Fatalf("expected refusal to overwrite, got %d (%v)", code, err)
	}
	if _, err := execute(t, "config", "init", path, "--force"); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "pdfoutline dev") {
		t.Errorf("unexpected version output %q", out)
	}
}
