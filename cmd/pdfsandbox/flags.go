package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-pdfsandbox/internal/config"
)

// ErrUsage wraps flag parsing failures.
var ErrUsage = errors.New("invalid usage")

// serveFlags holds flags for the serve command. Values only override the
// configuration when the flag was set explicitly.
type serveFlags struct {
	config      string
	printConfig bool
	warmup      bool

	host         string
	port         int
	maxBodyBytes int64

	engine     string
	workers    int
	direction  string
	pageSize   string
	fastMode   bool
	timeout    time.Duration
	browserBin string
	noSandbox  bool

	fontDir     string
	examplesDir string
	defaultFile string

	logLevel  string
	logFormat string
	logOutput string
}

// parseServeFlags parses serve flags. The returned FlagSet reports which
// flags were set.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &serveFlags{}

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config and exit")
	fs.BoolVar(&f.warmup, "warmup", false, "start a browser before accepting requests")

	fs.StringVar(&f.host, "host", "", "listen host (empty = all interfaces)")
	fs.IntVarP(&f.port, "port", "p", 0, "listen port")
	fs.Int64Var(&f.maxBodyBytes, "max-body-bytes", 0, "request body limit in bytes")

	fs.StringVar(&f.engine, "engine", "", "browser driver: rod, chromedp")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser instances (0 = auto)")
	fs.StringVar(&f.direction, "direction", "", "default text direction: ltr, rtl")
	fs.StringVar(&f.pageSize, "page-size", "", "default page size: letter, a4, legal")
	fs.BoolVar(&f.fastMode, "fast-mode", true, "skip waiting for network idle")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "per-render timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chrome/Chromium executable")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox")

	fs.StringVar(&f.fontDir, "font-dir", "", "directory holding registered font files")
	fs.StringVar(&f.examplesDir, "examples-dir", "", "directory overriding bundled examples")
	fs.StringVar(&f.defaultFile, "default-file", "", "example selected when ?file is absent")

	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console, json")
	fs.StringVar(&f.logOutput, "log-output", "", "log output: stderr, stdout, or file path")

	fs.Usage = func() { printServeUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return f, fs, nil
}

// apply copies explicitly set flags into cfg.
func (f *serveFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	set := fs.Changed

	if set("host") {
		cfg.Server.Host = f.host
	}
	if set("port") {
		cfg.Server.Port = f.port
	}
	if set("max-body-bytes") {
		cfg.Server.MaxBodyBytes = f.maxBodyBytes
	}

	if set("engine") {
		cfg.Renderer.Engine = f.engine
	}
	if set("workers") {
		cfg.Renderer.Workers = f.workers
	}
	if set("direction") {
		cfg.Renderer.Direction = f.direction
	}
	if set("page-size") {
		cfg.Renderer.PageSize = f.pageSize
	}
	if set("fast-mode") {
		cfg.Renderer.FastMode = f.fastMode
	}
	if set("timeout") {
		cfg.Renderer.Timeout = f.timeout
	}
	if set("browser-bin") {
		cfg.Renderer.BrowserBin = f.browserBin
	}
	if set("no-sandbox") {
		cfg.Renderer.NoSandbox = f.noSandbox
	}

	if set("font-dir") {
		cfg.Fonts.Dir = f.fontDir
	}
	if set("examples-dir") {
		cfg.Examples.Dir = f.examplesDir
	}
	if set("default-file") {
		cfg.Examples.Default = f.defaultFile
	}

	if set("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if set("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if set("log-output") {
		cfg.Log.Output = f.logOutput
	}
}
