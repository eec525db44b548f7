package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"slices"
	"time"

	"github.com/justyntemme/kolnovel-t/internal/ui/styles"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL          = "https://kolbook.xyz"
	DefaultAdvanceThreshold = 60
	DefaultMaxDisplayed     = 3
	DefaultDebounceMS       = 300
	DefaultTheme            = "dark"
	DefaultLogLevel         = "info"
	configFileName          = "config.yaml"
	configDirName           = "kolnovel-t"
	dbFileName              = "library.db"
	logFileName             = "kolnovel-t.log"
)

// Config holds the application configuration
type Config struct {
	BaseURL          string `yaml:"base_url"`
	APIURL           string `yaml:"api_url,omitempty"`
	UserAgent        string `yaml:"user_agent,omitempty"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`

	AutoLoaderEnabled    bool    `yaml:"auto_loader"`
	AdvanceThresholdPct  float64 `yaml:"advance_threshold_pct"`
	MaxDisplayedChapters int     `yaml:"max_displayed_chapters"`
	DebounceMS           int     `yaml:"debounce_ms"`

	Theme           string `yaml:"theme"`
	HideBold        bool   `yaml:"hide_bold"`
	HideItalic      bool   `yaml:"hide_italic"`
	DisableComments bool   `yaml:"disable_comments"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`
	DBPath   string `yaml:"db_path,omitempty"`

	// Path to config file (not persisted)
	path string `yaml:"-"`
}

// Options are command line overrides applied on top of the file
type Options struct {
	Path    string
	BaseURL string
	Debug   bool
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BaseURL:              DefaultBaseURL,
		CloudflareBypass:     true,
		AutoLoaderEnabled:    true,
		AdvanceThresholdPct:  DefaultAdvanceThreshold,
		MaxDisplayedChapters: DefaultMaxDisplayed,
		DebounceMS:           DefaultDebounceMS,
		Theme:                DefaultTheme,
		LogLevel:             DefaultLogLevel,
	}
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// Config doesn't exist, return defaults
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.path = path
	cfg.normalize()
	return cfg, nil
}

// LoadMerged loads the config file and applies command line overrides
func LoadMerged(opts Options) (*Config, error) {
	path := opts.Path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
		cfg.APIURL = ""
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func (c *Config) normalize() {
	def := Default()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.AdvanceThresholdPct <= 0 || c.AdvanceThresholdPct >= 100 {
		c.AdvanceThresholdPct = def.AdvanceThresholdPct
	}
	if c.MaxDisplayedChapters < 1 {
		c.MaxDisplayedChapters = def.MaxDisplayedChapters
	}
	if c.DebounceMS <= 0 {
		c.DebounceMS = def.DebounceMS
	}
	if c.Theme == "" {
		c.Theme = def.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	// Ensure directory exists
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// Path returns the file the config is saved to
func (c *Config) Path() string {
	return c.path
}

// API returns the REST API root
func (c *Config) API() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	return c.BaseURL + "/wp-json/wp/v2"
}

// Database returns the library database path
func (c *Config) Database() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(filepath.Dir(c.path), dbFileName)
}

// LogPath returns the log file path
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(filepath.Dir(c.path), logFileName)
}

// Reader settings

// AutoLoader reports whether next chapters load while scrolling
func (c *Config) AutoLoader() bool {
	return c.AutoLoaderEnabled
}

// SetAutoLoader updates the auto loader setting and saves
func (c *Config) SetAutoLoader(enabled bool) error {
	c.AutoLoaderEnabled = enabled
	return c.Save()
}

// AdvanceThreshold is the scroll percentage that triggers the next chapter
func (c *Config) AdvanceThreshold() float64 {
	return c.AdvanceThresholdPct
}

// MaxDisplayed is the number of chapters kept on screen
func (c *Config) MaxDisplayed() int {
	return c.MaxDisplayedChapters
}

// DebounceWindow is the quiet time before a scroll is sampled
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// SetTextStyle updates the bold and italic toggles and saves
func (c *Config) SetTextStyle(hideBold, hideItalic bool) error {
	c.HideBold = hideBold
	c.HideItalic = hideItalic
	return c.Save()
}

// SetTheme updates the theme and saves
func (c *Config) SetTheme(name string) error {
	if err := checkTheme(name); err != nil {
		return err
	}
	c.Theme = name
	return c.Save()
}

func checkTheme(name string) error {
	names := styles.GetThemeNames()
	if !slices.Contains(names, name) {
		return fmt.Errorf("unknown theme %q, available: %s", name, strings.Join(names, ", "))
	}
	return nil
}

// Set updates a single setting by its YAML key
func (c *Config) Set(key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s: %q is not a boolean", key, value)
		}
		return b, nil
	}

	var err error
	switch key {
	case "base_url":
		c.BaseURL = strings.TrimRight(value, "/")
	case "api_url":
		c.APIURL = value
	case "user_agent":
		c.UserAgent = value
	case "cloudflare_bypass":
		c.CloudflareBypass, err = parseBool()
	case "auto_loader":
		c.AutoLoaderEnabled, err = parseBool()
	case "advance_threshold_pct":
		var pct float64
		pct, err = strconv.ParseFloat(value, 64)
		if err == nil && (pct <= 0 || pct >= 100) {
			err = fmt.Errorf("%s must be between 0 and 100", key)
		}
		if err == nil {
			c.AdvanceThresholdPct = pct
		}
	case "max_displayed_chapters":
		var n int
		n, err = strconv.Atoi(value)
		if err == nil && n < 1 {
			err = fmt.Errorf("%s must be at least 1", key)
		}
		if err == nil {
			c.MaxDisplayedChapters = n
		}
	case "debounce_ms":
		var n int
		n, err = strconv.Atoi(value)
		if err == nil && n < 1 {
			err = fmt.Errorf("%s must be positive", key)
		}
		if err == nil {
			c.DebounceMS = n
		}
	case "theme":
		if err = checkTheme(value); err == nil {
			c.Theme = value
		}
	case "hide_bold":
		c.HideBold, err = parseBool()
	case "hide_italic":
		c.HideItalic, err = parseBool()
	case "disable_comments":
		c.DisableComments, err = parseBool()
	case "log_level":
		c.LogLevel = value
	case "log_file":
		c.LogFile = value
	case "db_path":
		c.DBPath = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if err != nil {
		return err
	}
	return c.Save()
}

// Print writes the effective configuration
func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, "  base_url:               %s\n", c.BaseURL)
	fmt.Fprintf(w, "  api_url:                %s\n", c.API())
	fmt.Fprintf(w, "  cloudflare_bypass:      %v\n", c.CloudflareBypass)
	fmt.Fprintf(w, "  auto_loader:            %v\n", c.AutoLoaderEnabled)
	fmt.Fprintf(w, "  advance_threshold_pct:  %v\n", c.AdvanceThresholdPct)
	fmt.Fprintf(w, "  max_displayed_chapters: %d\n", c.MaxDisplayedChapters)
	fmt.Fprintf(w, "  debounce_ms:            %d\n", c.DebounceMS)
	fmt.Fprintf(w, "  theme:                  %s\n", c.Theme)
	fmt.Fprintf(w, "  hide_bold:              %v\n", c.HideBold)
	fmt.Fprintf(w, "  hide_italic:            %v\n", c.HideItalic)
	fmt.Fprintf(w, "  disable_comments:       %v\n", c.DisableComments)
	fmt.Fprintf(w, "  log_level:              %s\n", c.LogLevel)
	fmt.Fprintf(w, "  log_file:               %s\n", c.LogPath())
	fmt.Fprintf(w, "  db_path:                %s\n", c.Database())
}

// DefaultPath returns the path to the config file
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}

	return filepath.Join(configDir, configDirName, configFileName), nil
}
