package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// External encoder binaries
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Where exported clips land by default
	OutputDir string `yaml:"output_dir"`

	// Data directory (content-plan database lives here)
	DataDir string `yaml:"data_dir"`

	Detector DetectorConfig `yaml:"detector"`
	Export   ExportConfig   `yaml:"export"`
	Planner  PlannerConfig  `yaml:"planner"`
}

// DetectorConfig holds highlight-detection tunables
type DetectorConfig struct {
	// Scene-change sensitivity on the 0-100 scale the settings UI used;
	// normalized to ffmpeg's 0-1 scene score at the encoder boundary.
	Threshold float64 `yaml:"threshold"`
	// Minimum detected-scene length, seconds
	MinSceneSec float64 `yaml:"min_scene_sec"`
	// Scenes shorter than this never become highlights, seconds
	MinHighlightSec float64 `yaml:"min_highlight_sec"`
}

// ExportConfig holds export-run settings
type ExportConfig struct {
	DefaultPreset       string `yaml:"default_preset"`
	CutTimeoutSec       int    `yaml:"cut_timeout_sec"`
	TranscodeTimeoutSec int    `yaml:"transcode_timeout_sec"`
}

// PlannerConfig holds content-plan generation defaults
type PlannerConfig struct {
	PostsPerDay  int      `yaml:"posts_per_day"`
	StartHour    int      `yaml:"start_hour"`
	Platforms    []string `yaml:"platforms"`
	BaseHashtags []string `yaml:"base_hashtags"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyFallbacks()
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DBPath returns the full path to the content-plan database
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "clipforge.db")
}

func defaultConfig() *Config {
	return &Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		OutputDir:   defaultOutputDir(),
		DataDir:     defaultDataDir(),
		Detector: DetectorConfig{
			Threshold:       27.0,
			MinSceneSec:     2.0,
			MinHighlightSec: 3.0,
		},
		Export: ExportConfig{
			DefaultPreset:       "original",
			CutTimeoutSec:       120,
			TranscodeTimeoutSec: 180,
		},
		Planner: PlannerConfig{
			PostsPerDay:  1,
			StartHour:    10,
			Platforms:    []string{"Instagram Reels", "YouTube Shorts", "TikTok"},
			BaseHashtags: []string{"#clipforge", "#highlights", "#shorts"},
		},
	}
}

// applyFallbacks fills fields a partial config file left empty
func (c *Config) applyFallbacks() {
	d := defaultConfig()
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.FFprobePath == "" {
		c.FFprobePath = d.FFprobePath
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Detector.Threshold <= 0 {
		c.Detector.Threshold = d.Detector.Threshold
	}
	if c.Detector.MinSceneSec <= 0 {
		c.Detector.MinSceneSec = d.Detector.MinSceneSec
	}
	if c.Detector.MinHighlightSec <= 0 {
		c.Detector.MinHighlightSec = d.Detector.MinHighlightSec
	}
	if c.Export.DefaultPreset == "" {
		c.Export.DefaultPreset = d.Export.DefaultPreset
	}
	if c.Export.CutTimeoutSec <= 0 {
		c.Export.CutTimeoutSec = d.Export.CutTimeoutSec
	}
	if c.Export.TranscodeTimeoutSec <= 0 {
		c.Export.TranscodeTimeoutSec = d.Export.TranscodeTimeoutSec
	}
	if c.Planner.PostsPerDay <= 0 {
		c.Planner.PostsPerDay = d.Planner.PostsPerDay
	}
	if c.Planner.StartHour <= 0 {
		c.Planner.StartHour = d.Planner.StartHour
	}
	if len(c.Planner.Platforms) == 0 {
		c.Planner.Platforms = d.Planner.Platforms
	}
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(home, ".clipforge", "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./clipforge_output"
	}
	return filepath.Join(home, "Videos", "clipforge_output")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipforge"
	}
	return filepath.Join(home, ".clipforge")
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
