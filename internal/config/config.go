package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"blockpad/internal/editor"
	"blockpad/internal/gesture"
	"blockpad/internal/logship"
	"blockpad/internal/sketch"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "BLOCKPAD_CONFIG"

// Config represents the blockpad configuration
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Storage  StorageConfig  `yaml:"storage"`
	History  HistoryConfig  `yaml:"history"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Sketch   SketchConfig   `yaml:"sketch"`
	Logship  LogshipConfig  `yaml:"logship"`
}

// StorageConfig selects the document store. Driver is one of "sqlite",
// "postgres", "mysql" or "mongo". When DSN is empty the connection string is
// built from the individual fields.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn,omitempty"`
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	Database    string `yaml:"database,omitempty"`
	Username    string `yaml:"username,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"` // env var holding the password
	SSLMode     string `yaml:"ssl_mode,omitempty"`
}

type HistoryConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type AutosaveConfig struct {
	Schedule string `yaml:"schedule"` // cron schedule, "" disables autosave
}

type ViewerConfig struct {
	MaxScaleFactor   float64 `yaml:"max_scale_factor"`
	MinScaleHeadroom float64 `yaml:"min_scale_headroom"`
	TouchSlop        float64 `yaml:"touch_slop"`
	DoubleTapTimeout string  `yaml:"double_tap_timeout"` // e.g. "300ms"
	DoubleTapSlop    float64 `yaml:"double_tap_slop"`
}

type SketchConfig struct {
	StrokeWidth float64 `yaml:"stroke_width"`
	Color       string  `yaml:"color"` // #rgb or #rrggbb
}

// LogshipConfig configures both the shipping client (URL) and the optional
// collector (Listen, UploadURL).
type LogshipConfig struct {
	URL            string  `yaml:"url,omitempty"`
	InitialBackoff string  `yaml:"initial_backoff"`
	MaxBackoff     string  `yaml:"max_backoff"`
	Listen         string  `yaml:"listen,omitempty"`
	UploadURL      string  `yaml:"upload_url,omitempty"`
	UploadRate     float64 `yaml:"upload_rate,omitempty"` // uploads per second, 0 unlimited
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(homeDir, ".local", "share", "blockpad"),
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		History: HistoryConfig{
			MaxDepth: editor.DefaultMaxHistory,
		},
		Autosave: AutosaveConfig{
			Schedule: "@every 30s",
		},
		Viewer: ViewerConfig{
			MaxScaleFactor:   4,
			MinScaleHeadroom: 0.5,
			TouchSlop:        8,
			DoubleTapTimeout: "300ms",
			DoubleTapSlop:    100,
		},
		Sketch: SketchConfig{
			StrokeWidth: 6,
			Color:       "#000000",
		},
		Logship: LogshipConfig{
			InitialBackoff: "500ms",
			MaxBackoff:     "30s",
		},
	}
}

// Path returns the config file location: $BLOCKPAD_CONFIG, or
// ~/.config/blockpad/config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "blockpad", "config.yaml")
}

// Load reads the configuration from a YAML file. A missing file yields the
// defaults; fields absent from the file keep their default values.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", "sqlite", "postgres", "mysql", "mongo":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if c.Storage.Port < 0 || c.Storage.Port > 65535 {
		return fmt.Errorf("storage.port: %d out of range", c.Storage.Port)
	}
	if c.History.MaxDepth != 0 && c.History.MaxDepth < 2 {
		return fmt.Errorf("history.max_depth: must be at least 2, got %d", c.History.MaxDepth)
	}
	if c.Viewer.MaxScaleFactor < 0 || c.Viewer.MinScaleHeadroom < 0 {
		return fmt.Errorf("viewer: scale limits must not be negative")
	}
	if c.Sketch.StrokeWidth < 0 {
		return fmt.Errorf("sketch.stroke_width: must not be negative")
	}
	if c.Sketch.Color != "" {
		if _, err := sketch.ParseColor(c.Sketch.Color); err != nil {
			return fmt.Errorf("sketch.color: %w", err)
		}
	}
	durations := map[string]string{
		"viewer.double_tap_timeout": c.Viewer.DoubleTapTimeout,
		"logship.initial_backoff":   c.Logship.InitialBackoff,
		"logship.max_backoff":       c.Logship.MaxBackoff,
	}
	for name, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Logship.UploadRate < 0 {
		return fmt.Errorf("logship.upload_rate: must not be negative")
	}
	return nil
}

// GetDriver returns the storage driver (default: sqlite)
func (c StorageConfig) GetDriver() string {
	if c.Driver == "" {
		return "sqlite"
	}
	return c.Driver
}

// GetPassword reads the password from the configured environment variable.
func (c StorageConfig) GetPassword() string {
	if c.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.PasswordEnv)
}

// GetMaxDepth returns the history depth (default: editor.DefaultMaxHistory)
func (c HistoryConfig) GetMaxDepth() int {
	if c.MaxDepth < 2 {
		return editor.DefaultMaxHistory
	}
	return c.MaxDepth
}

// DatabasePath returns the SQLite file used by the default store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "blockpad.db")
}

// ExportDir returns the directory exported markup files are written to.
func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "documents")
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Gesture converts the viewer section, falling back to defaults per field.
func (c ViewerConfig) Gesture() gesture.Config {
	cfg := gesture.DefaultConfig()
	if c.MaxScaleFactor > 0 {
		cfg.MaxScaleFactor = c.MaxScaleFactor
	}
	if c.MinScaleHeadroom > 0 {
		cfg.MinScaleHeadroom = c.MinScaleHeadroom
	}
	if c.TouchSlop > 0 {
		cfg.TouchSlop = c.TouchSlop
	}
	cfg.DoubleTapTimeout = parseDuration(c.DoubleTapTimeout, cfg.DoubleTapTimeout)
	if c.DoubleTapSlop > 0 {
		cfg.DoubleTapSlop = c.DoubleTapSlop
	}
	return cfg
}

// Style returns the stroke style; an unparsable color keeps the default.
func (c SketchConfig) Style() sketch.Style {
	style := sketch.DefaultStyle()
	if c.StrokeWidth > 0 {
		style.Width = c.StrokeWidth
	}
	if c.Color != "" {
		if col, err := sketch.ParseColor(c.Color); err == nil {
			style.Color = col
		}
	}
	return style
}

// Client returns the shipping client settings.
func (c LogshipConfig) Client() logship.Config {
	cfg := logship.DefaultConfig()
	cfg.InitialBackoff = parseDuration(c.InitialBackoff, cfg.InitialBackoff)
	cfg.MaxBackoff = parseDuration(c.MaxBackoff, cfg.MaxBackoff)
	return cfg
}

// IsEnabled returns true if entries should be shipped.
func (c LogshipConfig) IsEnabled() bool {
	return c.URL != ""
}

// IsCollectorEnabled returns true if the local collector should run.
func (c LogshipConfig) IsCollectorEnabled() bool {
	return c.Listen != "" && c.UploadURL != ""
}
