package pdfsandbox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Request is a single render call. Only the document and its sinks vary
// between calls; everything else comes from the shared Renderer.
type Request struct {
	// HTML is the document to render, forwarded as submitted.
	HTML string

	// Output receives the PDF stream. Nil discards it.
	Output io.Writer

	// Diagnostics receives messages produced during this render. May be nil.
	Diagnostics DiagnosticConsumer
}

// TextDirection is the default base direction of documents that do not declare one.
type TextDirection string

// Supported text directions.
const (
	LTR TextDirection = "ltr"
	RTL TextDirection = "rtl"
)

// Validate checks that the direction is supported.
func (d TextDirection) Validate() error {
	switch d {
	case LTR, RTL:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be ltr or rtl)", ErrInvalidDirection, string(d))
	}
}

// PageSize names the paper used when a document has no CSS @page size.
type PageSize string

// Supported page sizes.
const (
	PageSizeLetter PageSize = "letter"
	PageSizeA4     PageSize = "a4"
	PageSizeLegal  PageSize = "legal"
)

// Paper dimensions in inches.
var pageDimensions = map[PageSize]struct{ width, height float64 }{
	PageSizeLetter: {8.5, 11},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14},
}

// Validate checks that the page size is supported.
func (p PageSize) Validate() error {
	if _, ok := pageDimensions[PageSize(strings.ToLower(string(p)))]; !ok {
		return fmt.Errorf("%w: %q (must be letter, a4, or legal)", ErrInvalidPageSize, string(p))
	}
	return nil
}

// Engine selects the browser driver.
type Engine string

// Supported engines.
const (
	EngineRod      Engine = "rod"
	EngineChromedp Engine = "chromedp"
)

// Validate checks that the engine is supported.
func (e Engine) Validate() error {
	switch e {
	case EngineRod, EngineChromedp:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be rod or chromedp)", ErrInvalidEngine, string(e))
	}
}

// FontSource registers a font file under a CSS font-family name.
type FontSource struct {
	Family string
	File   string // path inside the font filesystem
}

// DefaultFonts are the families available to every document.
var DefaultFonts = []FontSource{
	{Family: "handwriting", File: "JustAnotherHand.ttf"},
	{Family: "arabic", File: "NotoNaskhArabic-Regular.ttf"},
	{Family: "deja-sans", File: "DejaVuSans.ttf"},
	{Family: "cjk", File: "NotoSansCJKtc-Regular.ttf"},
}

// DefaultFontDir is where DefaultFonts are looked up when no font FS is set.
const DefaultFontDir = "fonts"

// Option configures a Renderer.
type Option func(*rendererConfig)

// rendererConfig holds the shared, read-only renderer settings.
type rendererConfig struct {
	timeout    time.Duration
	direction  TextDirection
	pageSize   PageSize
	fastMode   bool
	resolver   URIResolver
	fontFS     fs.FS
	fonts      []FontSource
	fontsSet   bool
	cache      *FontCache
	engine     Engine
	workers    int
	browserBin string
	noSandbox  bool

	// newEngine overrides engine construction (tests).
	newEngine func() engine
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 30 * time.Second

func defaultRendererConfig() rendererConfig {
	return rendererConfig{
		timeout:   defaultTimeout,
		direction: LTR,
		pageSize:  PageSizeA4,
		fastMode:  true,
		resolver:  DenyAll,
		engine:    EngineRod,
	}
}

func (c *rendererConfig) validate() error {
	if err := c.direction.Validate(); err != nil {
		return err
	}
	if err := c.pageSize.Validate(); err != nil {
		return err
	}
	return c.engine.Validate()
}

// registeredFonts returns the configured fonts, or the defaults.
func (c *rendererConfig) registeredFonts() []FontSource {
	if c.fontsSet {
		return c.fonts
	}
	return DefaultFonts
}

// WithTimeout sets the per-render timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("pdfsandbox: WithTimeout duration must be positive")
	}
	return func(c *rendererConfig) {
		c.timeout = d
	}
}

// WithTextDirection sets the direction applied to documents without a dir attribute.
func WithTextDirection(d TextDirection) Option {
	return func(c *rendererConfig) {
		c.direction = TextDirection(strings.ToLower(string(d)))
	}
}

// WithPageSize sets the fallback paper size.
func WithPageSize(p PageSize) Option {
	return func(c *rendererConfig) {
		c.pageSize = PageSize(strings.ToLower(string(p)))
	}
}

// WithFastMode controls whether printing waits for web fonts to finish loading.
func WithFastMode(fast bool) Option {
	return func(c *rendererConfig) {
		c.fastMode = fast
	}
}

// WithURIResolver replaces the default deny-all resolver.
func WithURIResolver(r URIResolver) Option {
	return func(c *rendererConfig) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithFontFS sets the filesystem font files are read from.
func WithFontFS(fsys fs.FS) Option {
	return func(c *rendererConfig) {
		c.fontFS = fsys
	}
}

// WithFont registers a font family. The first call replaces DefaultFonts.
func WithFont(family, file string) Option {
	return func(c *rendererConfig) {
		c.fontsSet = true
		c.fonts = append(c.fonts, FontSource{Family: family, File: file})
	}
}

// WithoutFonts registers no font families.
func WithoutFonts() Option {
	return func(c *rendererConfig) {
		c.fontsSet = true
		c.fonts = nil
	}
}

// WithFontCache shares an existing font cache.
func WithFontCache(cache *FontCache) Option {
	return func(c *rendererConfig) {
		c.cache = cache
	}
}

// WithEngine selects the browser driver.
func WithEngine(e Engine) Option {
	return func(c *rendererConfig) {
		c.engine = Engine(strings.ToLower(string(e)))
	}
}

// WithWorkers sets the number of browser instances (0 = auto).
func WithWorkers(n int) Option {
	return func(c *rendererConfig) {
		c.workers = n
	}
}

// WithBrowserBin uses a pre-installed browser instead of the managed download.
func WithBrowserBin(path string) Option {
	return func(c *rendererConfig) {
		c.browserBin = path
	}
}

// WithNoSandbox disables the Chrome sandbox (containers, CI).
func WithNoSandbox(noSandbox bool) Option {
	return func(c *rendererConfig) {
		c.noSandbox = noSandbox
	}
}

// resolveFontFS returns the configured font filesystem or the default directory.
func (c *rendererConfig) resolveFontFS() fs.FS {
	if c.fontFS != nil {
		return c.fontFS
	}
	return os.DirFS(DefaultFontDir)
}
