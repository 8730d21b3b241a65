package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pdfoutline/internal/config"
	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/parser"
	"github.com/dgallion1/pdfoutline/internal/render"
)

var (
	extractOutput string
	extractFormat string
)

// extractDocument produces the outline of one file.
var extractDocument = parser.Extract

var extractCmd = &cobra.Command{
	Use:   "extract <input.pdf>",
	Short: "Extract the outline of one document",
	Long: `Extract the title and H1-H3 outline of a document.

The result is written to --output, by default next to the input with the
extension of the chosen format. Nothing is written when extraction fails.

Exit codes:
  0  success
  1  missing, unreadable or encrypted input
  2  internal error
  3  deadline exceeded

Examples:
  pdfoutline extract report.pdf
  pdfoutline extract report.pdf --format markdown
  pdfoutline extract report.pdf -o out/report.json`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		name := extractFormat
		if name == "" {
			name = cfg.Output.Format
		}
		format, err := render.ParseFormat(name)
		if err != nil {
			return usageError{err}
		}

		out := extractOutput
		if out == "" {
			out = defaultOutputPath(args[0], format)
		}
		return runExtract(cmd.Context(), args[0], out, format, cfg, logger)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (default: <input dir>/<stem>.<format ext>)")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "", "output format: json, markdown or html (default from config)")

	rootCmd.AddCommand(extractCmd)
}

// defaultOutputPath places the output next to input.
func defaultOutputPath(input string, format render.Format) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+format.Extension())
}

// runExtract extracts input and writes the rendered outline to out. The
// output file is only created once the whole outline is rendered.
func runExtract(ctx context.Context, input, out string, format render.Format, cfg *config.Config, log *slog.Logger) error {
	log = log.With("file", input)
	engine := outline.NewEngine(cfg.Outline(), log)

	res, err := extractDocument(ctx, input, engine, log)
	if err != nil {
		return err
	}

	data, err := render.Render(res.Outline, format, cfg.RenderOptions())
	if err != nil {
		return &exitError{code: exitInternal, err: fmt.Errorf("render %s: %w", input, err)}
	}
	if err := render.WriteFile(out, data); err != nil {
		return &exitError{code: exitInternal, err: err}
	}

	log.Info("outline written",
		"output", out,
		"pages", res.Pages,
		"headings", len(res.Outline.Headings),
		"duration_ms", res.Elapsed.Milliseconds(),
	)
	return nil
}
