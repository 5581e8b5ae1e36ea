// Package config loads the sandbox server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/fileutil"
	"github.com/alnah/go-pdfsandbox/internal/logger"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidConfig   = errors.New("invalid config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// Field length limits.
const (
	MaxPathLength   = 4096
	MaxHostLength   = 253 // RFC 1035
	MaxFamilyLength = 100
)

// Limits on numeric fields.
const (
	MaxWorkers      = 64
	MaxTimeout      = 10 * time.Minute
	MinMaxBodyBytes = 1 << 10
)

// appName is the directory under the user config dir searched for named configs.
const appName = "go-pdfsandbox"

// Config holds the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Renderer RendererConfig `yaml:"renderer"`
	Fonts    FontsConfig    `yaml:"fonts"`
	Examples ExamplesConfig `yaml:"examples"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host              string        `yaml:"host"`              // empty = all interfaces
	Port              int           `yaml:"port"`              // 1-65535 (default: 8080)
	MaxBodyBytes      int64         `yaml:"maxBodyBytes"`      // request body limit (default: 4 MiB)
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`   // default: 30s
}

// RendererConfig defines the shared renderer.
type RendererConfig struct {
	Engine     string        `yaml:"engine"`     // "rod", "chromedp" (default: "rod")
	Workers    int           `yaml:"workers"`    // 0 = auto
	Direction  string        `yaml:"direction"`  // "ltr", "rtl" (default: "ltr")
	PageSize   string        `yaml:"pageSize"`   // "letter", "a4", "legal" (default: "a4")
	FastMode   bool          `yaml:"fastMode"`   // default: true
	Timeout    time.Duration `yaml:"timeout"`    // per render (default: 30s)
	BrowserBin string        `yaml:"browserBin"` // empty = auto-detect
	NoSandbox  bool          `yaml:"noSandbox"`
}

// FontsConfig defines registered fonts.
type FontsConfig struct {
	Dir      string      `yaml:"dir"`      // default: "fonts"
	Families []FontEntry `yaml:"families"` // empty = built-in families
}

// FontEntry maps a CSS family name to a file inside Fonts.Dir.
type FontEntry struct {
	Family string `yaml:"family"`
	File   string `yaml:"file"`
}

// ExamplesConfig defines the example picker.
type ExamplesConfig struct {
	Dir     string `yaml:"dir"`     // overrides bundled samples; empty = bundled only
	Default string `yaml:"default"` // selected when ?file is absent
}

// LogConfig defines logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	fonts := make([]FontEntry, 0, len(pdfsandbox.DefaultFonts))
	for _, f := range pdfsandbox.DefaultFonts {
		fonts = append(fonts, FontEntry{Family: f.Family, File: f.File})
	}

	return &Config{
		Server: ServerConfig{
			Port:              8080,
			MaxBodyBytes:      4 << 20,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Renderer: RendererConfig{
			Engine:    string(pdfsandbox.EngineRod),
			Direction: string(pdfsandbox.LTR),
			PageSize:  string(pdfsandbox.PageSizeA4),
			FastMode:  true,
			Timeout:   30 * time.Second,
		},
		Fonts: FontsConfig{
			Dir:      pdfsandbox.DefaultFontDir,
			Families: fonts,
		},
		Examples: ExamplesConfig{
			Default: "hello-world.htm",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggerConfig converts the log section for the logger package.
func (l LogConfig) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Output = l.Output
	return cfg
}

// Validate checks every section. Called by LoadConfig, and again by the
// CLI after flags and environment overrides are applied.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Renderer.validate(); err != nil {
		return err
	}
	if err := c.Fonts.validate(); err != nil {
		return err
	}
	if err := validateFieldLength("examples.dir", c.Examples.Dir, MaxPathLength); err != nil {
		return err
	}
	if c.Examples.Default != "" && strings.ContainsAny(c.Examples.Default, "/\\") {
		return fmt.Errorf("%w: examples.default: %q must be a file name", ErrInvalidConfig, c.Examples.Default)
	}
	return c.Log.validate()
}

func (s ServerConfig) validate() error {
	if err := validateFieldLength("server.host", s.Host, MaxHostLength); err != nil {
		return err
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%w: server.port: must be between 1 and 65535, got %d", ErrInvalidConfig, s.Port)
	}
	if s.MaxBodyBytes < MinMaxBodyBytes {
		return fmt.Errorf("%w: server.maxBodyBytes: must be at least %d, got %d", ErrInvalidConfig, MinMaxBodyBytes, s.MaxBodyBytes)
	}
	if s.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("%w: server.readHeaderTimeout: must be positive, got %s", ErrInvalidConfig, s.ReadHeaderTimeout)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: server.shutdownTimeout: must be positive, got %s", ErrInvalidConfig, s.ShutdownTimeout)
	}
	return nil
}

func (r RendererConfig) validate() error {
	if err := pdfsandbox.Engine(r.Engine).Validate(); err != nil {
		return fmt.Errorf("%w: renderer.engine: %v", ErrInvalidConfig, err)
	}
	if err := pdfsandbox.TextDirection(r.Direction).Validate(); err != nil {
		return fmt.Errorf("%w: renderer.direction: %v", ErrInvalidConfig, err)
	}
	if err := pdfsandbox.PageSize(r.PageSize).Validate(); err != nil {
		return fmt.Errorf("%w: renderer.pageSize: %v", ErrInvalidConfig, err)
	}
	if r.Workers < 0 || r.Workers > MaxWorkers {
		return fmt.Errorf("%w: renderer.workers: must be between 0 and %d, got %d", ErrInvalidConfig, MaxWorkers, r.Workers)
	}
	if r.Timeout <= 0 || r.Timeout > MaxTimeout {
		return fmt.Errorf("%w: renderer.timeout: must be in (0, %s], got %s", ErrInvalidConfig, MaxTimeout, r.Timeout)
	}
	return validateFieldLength("renderer.browserBin", r.BrowserBin, MaxPathLength)
}

func (f FontsConfig) validate() error {
	if err := validateFieldLength("fonts.dir", f.Dir, MaxPathLength); err != nil {
		return err
	}
	seen := make(map[string]bool, len(f.Families))
	for i, fam := range f.Families {
		field := fmt.Sprintf("fonts.families[%d]", i)
		if fam.Family == "" || fam.File == "" {
			return fmt.Errorf("%w: %s: family and file are required", ErrInvalidConfig, field)
		}
		if err := validateFieldLength(field+".family", fam.Family, MaxFamilyLength); err != nil {
			return err
		}
		if err := validateFieldLength(field+".file", fam.File, MaxPathLength); err != nil {
			return err
		}
		key := strings.ToLower(fam.Family)
		if seen[key] {
			return fmt.Errorf("%w: %s: duplicate family %q", ErrInvalidConfig, field, fam.Family)
		}
		seen[key] = true
	}
	return nil
}

func (l LogConfig) validate() error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch l.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: log.format: invalid value %q (must be console or json)", ErrInvalidConfig, l.Format)
	}
	return validateFieldLength("log.output", l.Output, MaxPathLength)
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		if configPath, err = resolveConfigPath(nameOrPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/go-pdfsandbox/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appName, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
