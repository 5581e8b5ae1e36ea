package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/config"
	"github.com/alnah/go-pdfsandbox/internal/examples"
	"github.com/alnah/go-pdfsandbox/internal/fileutil"
	"github.com/alnah/go-pdfsandbox/internal/hints"
	"github.com/alnah/go-pdfsandbox/internal/logger"
	"github.com/alnah/go-pdfsandbox/internal/server"
)

// warmupDocument is rendered by --warmup to start a browser before the
// listener opens.
const warmupDocument = "<!DOCTYPE html><html><head><title>warmup</title></head><body></body></html>"

// runServe builds the shared renderer, the example store, and the server,
// then serves until ctx is cancelled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, fset, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := resolveConfig(flags.config, env)
	if err != nil {
		return err
	}
	flags.apply(fset, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if flags.printConfig {
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(data)
		return err
	}

	log, err := logger.New(cfg.Log.LoggerConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	defer func() { _ = log.Sync() }()

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	undo, _ := maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))
	defer undo()

	warnUnknownEnvVars(env.Environ(), log)

	fonts := fontSources(cfg.Fonts)
	fontFS := os.DirFS(cfg.Fonts.Dir)
	cache := pdfsandbox.NewFontCache()
	missingFonts := preloadFonts(cache, fontFS, fonts, cfg.Fonts.Dir, log)

	renderer, err := env.NewRenderer(rendererOptions(cfg, fontFS, cache)...)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			log.Warn("closing renderer", zap.Error(err))
		}
	}()

	if flags.warmup {
		if err := warmup(ctx, renderer, cfg.Renderer.Timeout); err != nil {
			return fmt.Errorf("warming up renderer: %w%s", err, renderHint(err, cfg.Renderer.NoSandbox))
		}
		log.Info("renderer ready")
	}

	store, err := examples.LoadWithDir(cfg.Examples.Dir, log)
	if err != nil {
		return fmt.Errorf("loading examples: %w", err)
	}

	srv, err := server.New(server.Options{
		Renderer:     renderer,
		Examples:     store,
		DefaultFile:  cfg.Examples.Default,
		Fonts:        fonts,
		FontDir:      cfg.Fonts.Dir,
		MissingFonts: missingFonts,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	addr := cfg.Server.Addr()
	ln, err := env.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w%s", addr, err, hints.ForListen(addr))
	}

	return srv.Serve(ctx, ln, server.ServeConfig{
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
	})
}

// resolveConfig loads the config named by the flag, or by PDFSANDBOX_CONFIG,
// or the defaults, then applies environment overrides.
func resolveConfig(name string, env *Environment) (*config.Config, error) {
	if name == "" {
		name = env.Getenv(envConfig)
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(configCandidates(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := applyEnvConfig(env.Getenv, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configCandidates returns the per-user location a named config would be read from.
func configCandidates(name string) []string {
	if fileutil.IsFilePath(name) {
		return nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(dir, "go-pdfsandbox", name+".yaml")}
}

// fontSources converts the configured families. An empty list means the
// built-in families.
func fontSources(cfg config.FontsConfig) []pdfsandbox.FontSource {
	if len(cfg.Families) == 0 {
		return pdfsandbox.DefaultFonts
	}
	fonts := make([]pdfsandbox.FontSource, len(cfg.Families))
	for i, f := range cfg.Families {
		fonts[i] = pdfsandbox.FontSource{Family: f.Family, File: f.File}
	}
	return fonts
}

func rendererOptions(cfg *config.Config, fontFS fs.FS, cache *pdfsandbox.FontCache) []pdfsandbox.Option {
	r := cfg.Renderer
	opts := []pdfsandbox.Option{
		pdfsandbox.WithEngine(pdfsandbox.Engine(r.Engine)),
		pdfsandbox.WithWorkers(r.Workers),
		pdfsandbox.WithTextDirection(pdfsandbox.TextDirection(r.Direction)),
		pdfsandbox.WithPageSize(pdfsandbox.PageSize(r.PageSize)),
		pdfsandbox.WithFastMode(r.FastMode),
		pdfsandbox.WithTimeout(r.Timeout),
		pdfsandbox.WithBrowserBin(r.BrowserBin),
		pdfsandbox.WithNoSandbox(r.NoSandbox),
		pdfsandbox.WithFontFS(fontFS),
		pdfsandbox.WithFontCache(cache),
	}
	for _, f := range cfg.Fonts.Families {
		opts = append(opts, pdfsandbox.WithFont(f.Family, f.File))
	}
	return opts
}

// preloadFonts fills the cache at startup and returns the families that
// failed. Missing files are logged; the families stay registered and fail
// again at render time.
func preloadFonts(cache *pdfsandbox.FontCache, fsys fs.FS, fonts []pdfsandbox.FontSource, dir string, log *zap.Logger) []string {
	var missing []string
	for _, src := range fonts {
		if _, err := cache.Load(fsys, src); err != nil {
			missing = append(missing, src.Family)
			log.Warn("font unavailable",
				zap.String("family", src.Family),
				zap.String("file", src.File),
				zap.Error(err),
				zap.String("hint", strings.TrimSpace(hints.ForFontFile(dir))),
			)
		}
	}
	stats := cache.Stats()
	log.Debug("fonts loaded", zap.Int("entries", stats.Entries), zap.Int64("bytes", stats.Bytes))
	return missing
}

// warmup renders an empty document so browser problems surface at startup.
func warmup(ctx context.Context, r server.Renderer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Render(ctx, pdfsandbox.Request{HTML: warmupDocument})
}

// renderHint returns an actionable hint for a failed render, or "".
func renderHint(err error, noSandbox bool) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, pdfsandbox.ErrBrowserConnect):
		return hints.ForBrowserConnect(noSandbox)
	default:
		return ""
	}
}
