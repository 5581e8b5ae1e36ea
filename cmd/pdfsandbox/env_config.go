package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/go-pdfsandbox/internal/config"
)

// ErrInvalidEnv is returned when a PDFSANDBOX_* variable cannot be parsed.
var ErrInvalidEnv = errors.New("invalid environment variable")

const envPrefix = "PDFSANDBOX_"

// Environment variable names.
const (
	envConfig      = "PDFSANDBOX_CONFIG"
	envHost        = "PDFSANDBOX_HOST"
	envPort        = "PDFSANDBOX_PORT"
	envEngine      = "PDFSANDBOX_ENGINE"
	envWorkers     = "PDFSANDBOX_WORKERS"
	envDirection   = "PDFSANDBOX_DIRECTION"
	envPageSize    = "PDFSANDBOX_PAGE_SIZE"
	envFastMode    = "PDFSANDBOX_FAST_MODE"
	envTimeout     = "PDFSANDBOX_TIMEOUT"
	envBrowserBin  = "PDFSANDBOX_BROWSER_BIN"
	envNoSandbox   = "PDFSANDBOX_NO_SANDBOX"
	envFontDir     = "PDFSANDBOX_FONT_DIR"
	envExamplesDir = "PDFSANDBOX_EXAMPLES_DIR"
	envLogLevel    = "PDFSANDBOX_LOG_LEVEL"
	envLogFormat   = "PDFSANDBOX_LOG_FORMAT"
)

// knownEnvVars lists valid PDFSANDBOX_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	envConfig:      true,
	envHost:        true,
	envPort:        true,
	envEngine:      true,
	envWorkers:     true,
	envDirection:   true,
	envPageSize:    true,
	envFastMode:    true,
	envTimeout:     true,
	envBrowserBin:  true,
	envNoSandbox:   true,
	envFontDir:     true,
	envExamplesDir: true,
	envLogLevel:    true,
	envLogFormat:   true,
}

// applyEnvConfig overrides cfg with every PDFSANDBOX_* variable that is set.
// It runs after the config file and before flags.
func applyEnvConfig(getenv func(string) string, cfg *config.Config) error {
	setString(getenv, envHost, &cfg.Server.Host)
	setString(getenv, envEngine, &cfg.Renderer.Engine)
	setString(getenv, envDirection, &cfg.Renderer.Direction)
	setString(getenv, envPageSize, &cfg.Renderer.PageSize)
	setString(getenv, envBrowserBin, &cfg.Renderer.BrowserBin)
	setString(getenv, envFontDir, &cfg.Fonts.Dir)
	setString(getenv, envExamplesDir, &cfg.Examples.Dir)
	setString(getenv, envLogLevel, &cfg.Log.Level)
	setString(getenv, envLogFormat, &cfg.Log.Format)

	if err := setInt(getenv, envPort, &cfg.Server.Port); err != nil {
		return err
	}
	if err := setInt(getenv, envWorkers, &cfg.Renderer.Workers); err != nil {
		return err
	}
	if err := setBool(getenv, envFastMode, &cfg.Renderer.FastMode); err != nil {
		return err
	}
	if err := setBool(getenv, envNoSandbox, &cfg.Renderer.NoSandbox); err != nil {
		return err
	}
	return setDuration(getenv, envTimeout, &cfg.Renderer.Timeout)
}

func setString(getenv func(string) string, name string, dst *string) {
	if v := getenv(name); v != "" {
		*dst = v
	}
}

func setInt(getenv func(string) string, name string, dst *int) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidEnv, name, v)
	}
	*dst = n
	return nil
}

func setBool(getenv func(string) string, name string, dst *bool) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidEnv, name, v)
	}
	*dst = b
	return nil
}

func setDuration(getenv func(string) string, name string, dst *time.Duration) error {
	v := getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a duration (e.g., 30s, 2m)", ErrInvalidEnv, name, v)
	}
	*dst = d
	return nil
}

// warnUnknownEnvVars logs unrecognized PDFSANDBOX_* variables.
// Helps catch typos like PDFSANDBOX_WORKER instead of PDFSANDBOX_WORKERS.
func warnUnknownEnvVars(environ []string, log *zap.Logger) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			log.Warn("unknown environment variable (typo?)", zap.String("name", name))
		}
	}
}
