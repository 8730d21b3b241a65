package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultValues flattens DefaultConfig into dotted viper keys.
func defaultValues() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"server.port":             d.Server.Port,
		"server.api_key":          d.Server.APIKey,
		"server.worker_count":     d.Server.WorkerCount,
		"server.max_queue_size":   d.Server.MaxQueueSize,
		"server.max_upload_bytes": d.Server.MaxUploadBytes,
		"server.job_ttl":          d.Server.JobTTL,
		"server.stats_window":     d.Server.StatsWindow,

		"pathstore.url":            d.Pathstore.URL,
		"pathstore.api_key":        d.Pathstore.APIKey,
		"pathstore.retry_attempts": d.Pathstore.RetryAttempts,
		"pathstore.retry_delay":    d.Pathstore.RetryDelay,

		"engine.workers":   d.Engine.Workers,
		"engine.deadline":  d.Engine.Deadline,
		"engine.max_pages": d.Engine.MaxPages,

		"heuristics.line_band_ratio":      d.Heuristics.LineBandRatio,
		"heuristics.space_gap_factor":     d.Heuristics.SpaceGapFactor,
		"heuristics.margin_band":          d.Heuristics.MarginBand,
		"heuristics.position_bucket":      d.Heuristics.PositionBucket,
		"heuristics.noise_min_fraction":   d.Heuristics.NoiseMinFraction,
		"heuristics.noise_min_pages":      d.Heuristics.NoiseMinPages,
		"heuristics.size_resolution":      d.Heuristics.SizeResolution,
		"heuristics.min_font_size":        d.Heuristics.MinFontSize,
		"heuristics.max_font_size":        d.Heuristics.MaxFontSize,
		"heuristics.merge_epsilon_points": d.Heuristics.MergeEpsilonPoints,
		"heuristics.merge_epsilon_ratio":  d.Heuristics.MergeEpsilonRatio,
		"heuristics.min_heading_runes":    d.Heuristics.MinHeadingRunes,
		"heuristics.dedupe":               d.Heuristics.Dedupe,

		"output.format":    d.Output.Format,
		"output.page_base": d.Output.PageBase,
	}
}

// defaultDocument nests defaultValues by section for YAML output. Durations
// are written in their string form so the file stays readable.
func defaultDocument() map[string]map[string]any {
	doc := make(map[string]map[string]any)
	for key, value := range defaultValues() {
		section, name, _ := strings.Cut(key, ".")
		if doc[section] == nil {
			doc[section] = make(map[string]any)
		}
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		doc[section][name] = value
	}
	return doc
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	var buf bytes.Buffer
	buf.WriteString(`# pdfoutline configuration
# Every key can be overridden with a PDFOUTLINE_ environment variable,
# e.g. PDFOUTLINE_ENGINE_DEADLINE=5s. API keys use ${ENV_VAR} syntax.

`)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaultDocument()); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
