package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvAPIURL   = "LIMA_API_URL"
	EnvLogLevel = "LIMA_LOG_LEVEL"
)

const defaultAPIURL = "http://localhost:6767"

type Config struct {
	APIURL string `yaml:"api_url"`
	Editor string `yaml:"editor"`

	// Listing
	PageSize         int `yaml:"page_size"`
	SearchDebounceMS int `yaml:"search_debounce_ms"`

	// Uploads
	UploadDebounceMS int  `yaml:"upload_debounce_ms"`
	JournalEnabled   bool `yaml:"journal_enabled"`

	// Query cache
	CacheSize       int `yaml:"cache_size"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// UI Settings
	DisplayDateFormat  string `yaml:"display_date_format"`
	ColorTheme         string `yaml:"color_theme"`
	SyntaxHighlighting bool   `yaml:"syntax_highlighting"`

	// Export
	DefaultExportFormat string `yaml:"default_export_format"`

	Log LogConfig `yaml:"log"`
}

// LogConfig controls the rotating log file
type LogConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	MaxSize  int    `yaml:"max_size_mb"`
	MaxFiles int    `yaml:"max_files"`
	KeepDays int    `yaml:"keep_days"`
	Console  bool   `yaml:"console"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		APIURL:              defaultAPIURL,
		Editor:              "",
		PageSize:            50,
		SearchDebounceMS:    250,
		UploadDebounceMS:    300,
		JournalEnabled:      true,
		CacheSize:           128,
		CacheTTLSeconds:     300,
		DisplayDateFormat:   "2006-01-02 15:04",
		ColorTheme:          "auto",
		SyntaxHighlighting:  true,
		DefaultExportFormat: "json",
		Log: LogConfig{
			Level:    "info",
			File:     "",
			MaxSize:  10,
			MaxFiles: 3,
			KeepDays: 14,
			Console:  false,
		},
	}
}

// Load reads configuration from the specified file path, then applies
// environment overrides. A .env file in the working directory is loaded
// first when present.
func Load(path string) (*Config, error) {
	// Ignore a missing .env
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.repair()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// repair applies defaults for essential values that are missing or invalid
func (c *Config) repair() {
	defaults := DefaultConfig()

	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = defaults.APIURL
	}
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	if c.PageSize > 200 {
		c.PageSize = 200
	}
	if c.SearchDebounceMS <= 0 {
		c.SearchDebounceMS = defaults.SearchDebounceMS
	}
	if c.UploadDebounceMS <= 0 {
		c.UploadDebounceMS = defaults.UploadDebounceMS
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaults.CacheSize
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = defaults.CacheTTLSeconds
	}
	if c.DisplayDateFormat == "" {
		c.DisplayDateFormat = defaults.DisplayDateFormat
	}
	if c.ColorTheme == "" {
		c.ColorTheme = defaults.ColorTheme
	}
	if !isValidExportFormat(c.DefaultExportFormat) {
		c.DefaultExportFormat = defaults.DefaultExportFormat
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.MaxSize <= 0 {
		c.Log.MaxSize = defaults.Log.MaxSize
	}
	if c.Log.MaxFiles <= 0 {
		c.Log.MaxFiles = defaults.Log.MaxFiles
	}
	if c.Log.KeepDays <= 0 {
		c.Log.KeepDays = defaults.Log.KeepDays
	}
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SearchDebounce returns the list search debounce
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

// UploadDebounce returns the bundle upload debounce
func (c *Config) UploadDebounce() time.Duration {
	return time.Duration(c.UploadDebounceMS) * time.Millisecond
}

// CacheTTL returns how long cached reads stay fresh
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ExportFormats lists the formats accepted by export
var ExportFormats = []string{"json", "yaml", "parquet"}

func isValidExportFormat(format string) bool {
	for _, valid := range ExportFormats {
		if format == valid {
			return true
		}
	}
	return false
}
