package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/render"
)

var batchOutputDir string

var batchCmd = &cobra.Command{
	Use:   "batch <input dir>",
	Short: "Extract outlines for every PDF in a directory",
	Long: `Extract the outline of every *.pdf in a directory, in name order, to
<output dir>/<stem>.json. A failing document is logged and skipped; the exit
code is the highest code of any document.`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		dir := args[0]

		inputs, err := listPDFs(dir)
		if err != nil {
			return err
		}
		outDir := batchOutputDir
		if outDir == "" {
			outDir = dir
		}
		if len(inputs) == 0 {
			logger.Warn("no pdf files found", "dir", dir)
			return nil
		}

		worst, failed := exitOK, 0
		for _, in := range inputs {
			if err := cmd.Context().Err(); err != nil {
				return &exitError{code: exitInternal, err: err}
			}
			out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+".json")
			if err := runExtract(cmd.Context(), in, out, render.FormatJSON, cfg, logger); err != nil {
				code := exitCode(err)
				logger.Error("document failed", "file", in, "exit_code", code, "error", err)
				failed++
				worst = max(worst, code)
			}
		}

		logger.Info("batch complete", "documents", len(inputs), "failed", failed)
		if worst != exitOK {
			return &exitError{code: worst, err: fmt.Errorf("%d of %d documents failed", failed, len(inputs))}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "directory for the JSON files (default: the input directory)")

	rootCmd.AddCommand(batchCmd)
}

// listPDFs returns the PDF files directly inside dir, sorted by name.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		reason := outline.ReasonUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			reason = outline.ReasonMissing
		}
		return nil, &outline.InputError{Path: dir, Reason: reason, Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
