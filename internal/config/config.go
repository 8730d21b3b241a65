package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/dgallion1/pdfoutline/internal/outline"
	"github.com/dgallion1/pdfoutline/internal/render"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Pathstore  PathstoreConfig  `mapstructure:"pathstore"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Output     OutputConfig     `mapstructure:"output"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// APIKey may reference an environment variable as ${NAME}.
	APIKey         string        `mapstructure:"api_key"`
	WorkerCount    int           `mapstructure:"worker_count"`
	MaxQueueSize   int           `mapstructure:"max_queue_size"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	JobTTL         time.Duration `mapstructure:"job_ttl"`
	StatsWindow    time.Duration `mapstructure:"stats_window"`
}

// PathstoreConfig enables publishing finished outlines. An empty URL
// disables it.
type PathstoreConfig struct {
	URL           string        `mapstructure:"url"`
	APIKey        string        `mapstructure:"api_key"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type EngineConfig struct {
	Workers  int           `mapstructure:"workers"`
	Deadline time.Duration `mapstructure:"deadline"`
	MaxPages int           `mapstructure:"max_pages"`
}

// HeuristicsConfig mirrors the tolerances of outline.Config.
type HeuristicsConfig struct {
	LineBandRatio      float64 `mapstructure:"line_band_ratio"`
	SpaceGapFactor     float64 `mapstructure:"space_gap_factor"`
	MarginBand         float64 `mapstructure:"margin_band"`
	PositionBucket     float64 `mapstructure:"position_bucket"`
	NoiseMinFraction   float64 `mapstructure:"noise_min_fraction"`
	NoiseMinPages      int     `mapstructure:"noise_min_pages"`
	SizeResolution     float64 `mapstructure:"size_resolution"`
	MinFontSize        float64 `mapstructure:"min_font_size"`
	MaxFontSize        float64 `mapstructure:"max_font_size"`
	MergeEpsilonPoints float64 `mapstructure:"merge_epsilon_points"`
	MergeEpsilonRatio  float64 `mapstructure:"merge_epsilon_ratio"`
	MinHeadingRunes    int     `mapstructure:"min_heading_runes"`
	Dedupe             bool    `mapstructure:"dedupe"`
}

type OutputConfig struct {
	Format   string `mapstructure:"format"`
	PageBase int    `mapstructure:"page_base"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	oc := outline.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:           "8090",
			APIKey:         "${PDFOUTLINE_API_KEY}",
			WorkerCount:    4,
			MaxQueueSize:   100,
			MaxUploadBytes: 52428800, // 50MB
			JobTTL:         time.Hour,
			StatsWindow:    time.Hour,
		},
		Pathstore: PathstoreConfig{
			APIKey:        "${PATHSTORE_API_KEY}",
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
		},
		Engine: EngineConfig{
			Workers:  oc.Workers,
			Deadline: oc.Deadline,
			MaxPages: oc.MaxPages,
		},
		Heuristics: HeuristicsConfig{
			LineBandRatio:      oc.LineBandRatio,
			SpaceGapFactor:     oc.SpaceGapFactor,
			MarginBand:         oc.MarginBand,
			PositionBucket:     oc.PositionBucket,
			NoiseMinFraction:   oc.NoiseMinFraction,
			NoiseMinPages:      oc.NoiseMinPages,
			SizeResolution:     oc.SizeResolution,
			MinFontSize:        oc.MinFontSize,
			MaxFontSize:        oc.MaxFontSize,
			MergeEpsilonPoints: oc.MergeEpsilonPoints,
			MergeEpsilonRatio:  oc.MergeEpsilonRatio,
			MinHeadingRunes:    oc.MinHeadingRunes,
			Dedupe:             oc.Dedupe,
		},
		Output: OutputConfig{
			Format: string(render.FormatJSON),
		},
	}
}

// applyFallbacks replaces non-positive sizes and limits with defaults.
func (c *Config) applyFallbacks() {
	d := DefaultConfig()
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	if c.Server.WorkerCount <= 0 {
		c.Server.WorkerCount = d.Server.WorkerCount
	}
	if c.Server.MaxQueueSize <= 0 {
		c.Server.MaxQueueSize = d.Server.MaxQueueSize
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = d.Server.MaxUploadBytes
	}
	if c.Server.JobTTL <= 0 {
		c.Server.JobTTL = d.Server.JobTTL
	}
	if c.Server.StatsWindow <= 0 {
		c.Server.StatsWindow = d.Server.StatsWindow
	}
	if c.Pathstore.RetryAttempts <= 0 {
		c.Pathstore.RetryAttempts = d.Pathstore.RetryAttempts
	}
	if c.Pathstore.RetryDelay <= 0 {
		c.Pathstore.RetryDelay = d.Pathstore.RetryDelay
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = d.Engine.Workers
	}
	if c.Engine.Deadline <= 0 {
		c.Engine.Deadline = d.Engine.Deadline
	}
	if c.Engine.MaxPages <= 0 {
		c.Engine.MaxPages = d.Engine.MaxPages
	}
	if c.Output.Format == "" {
		c.Output.Format = d.Output.Format
	}
}

// Outline returns the engine configuration.
func (c *Config) Outline() outline.Config {
	h := c.Heuristics
	return outline.Config{
		LineBandRatio:      h.LineBandRatio,
		SpaceGapFactor:     h.SpaceGapFactor,
		MarginBand:         h.MarginBand,
		PositionBucket:     h.PositionBucket,
		NoiseMinFraction:   h.NoiseMinFraction,
		NoiseMinPages:      h.NoiseMinPages,
		SizeResolution:     h.SizeResolution,
		MinFontSize:        h.MinFontSize,
		MaxFontSize:        h.MaxFontSize,
		MergeEpsilonPoints: h.MergeEpsilonPoints,
		MergeEpsilonRatio:  h.MergeEpsilonRatio,
		MinHeadingRunes:    h.MinHeadingRunes,
		Dedupe:             h.Dedupe,
		Workers:            c.Engine.Workers,
		Deadline:           c.Engine.Deadline,
		MaxPages:           c.Engine.MaxPages,
	}
}

// RenderOptions returns the serialisation options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{PageBase: c.Output.PageBase}
}

// Validate reports settings that cannot produce a sensible run.
func (c *Config) Validate() error {
	if err := c.Outline().Validate(); err != nil {
		return err
	}
	if _, err := render.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Output.PageBase < 0 {
		return fmt.Errorf("output page_base must not be negative, got %d", c.Output.PageBase)
	}
	return nil
}

// ValidateServer additionally checks the settings `serve` needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ServerAPIKey() == "" {
		return fmt.Errorf("server.api_key is required (PDFOUTLINE_API_KEY)")
	}
	if c.Pathstore.URL != "" && c.PathstoreAPIKey() == "" {
		return fmt.Errorf("pathstore.api_key is required when pathstore.url is set")
	}
	return nil
}

// ServerAPIKey returns the resolved server API key.
func (c *Config) ServerAPIKey() string { return ResolveEnvVars(c.Server.APIKey) }

// PathstoreAPIKey returns the resolved pathstore API key.
func (c *Config) PathstoreAPIKey() string { return ResolveEnvVars(c.Pathstore.APIKey) }

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
