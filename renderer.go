package pdfsandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alnah/go-pdfsandbox/internal/pipeline"
)

// Renderer turns HTML documents into PDFs. One Renderer is built at startup
// and shared by every request; only Request varies between calls.
// Safe for concurrent use. Call Close when done.
type Renderer struct {
	cfg       rendererConfig
	fonts     []FontSource
	fontIndex map[string]FontSource
	fontRules []pipeline.FontFaceRule
	fontFS    fs.FS
	cache     *FontCache
	pool      *enginePool
	closed    atomic.Bool
}

// NewRenderer creates a Renderer. Browsers start lazily on first render.
// Returns an error if an option value is invalid or a font file type is unsupported.
func NewRenderer(opts ...Option) (*Renderer, error) {
	cfg := defaultRendererConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		cfg:       cfg,
		fontIndex: make(map[string]FontSource),
		fontFS:    cfg.resolveFontFS(),
		cache:     cfg.cache,
	}
	if r.cache == nil {
		r.cache = NewFontCache()
	}

	for _, src := range cfg.registeredFonts() {
		if strings.TrimSpace(src.Family) == "" {
			return nil, fmt.Errorf("%w: empty family for %q", ErrFontLoad, src.File)
		}
		_, format, ok := fontType(src.File)
		if !ok {
			return nil, fmt.Errorf("%w: %q: unsupported font type", ErrFontLoad, src.File)
		}
		if _, dup := r.fontIndex[src.Family]; dup {
			continue
		}
		r.fonts = append(r.fonts, src)
		r.fontIndex[src.Family] = src
		r.fontRules = append(r.fontRules, pipeline.FontFaceRule{
			Family: src.Family,
			URL:    FontURL(src.Family),
			Format: format,
		})
	}

	factory := cfg.newEngine
	if factory == nil {
		factory = func() engine { return newEngine(&r.cfg) }
	}
	r.pool = newEnginePool(ResolvePoolSize(cfg.workers), factory)
	return r, nil
}

// newEngine builds the configured browser driver.
func newEngine(cfg *rendererConfig) engine {
	if cfg.engine == EngineChromedp {
		return newChromedpEngine(cfg)
	}
	return newRodEngine(cfg)
}

// Render prepares req.HTML and prints it to req.Output.
// Diagnostics are delivered to req.Diagnostics until Render returns.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (r *Renderer) Render(ctx context.Context, req Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()

	if r.closed.Load() {
		return ErrRendererClosed
	}

	diag := newEmitter(req.Diagnostics)
	defer diag.close()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	doc, err := pipeline.PrepareDocument(ctx, req.HTML, pipeline.PrepareOptions{
		Direction: string(r.cfg.direction),
		Fonts:     r.fontRules,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		diag.emit(LevelSevere, err.Error())
		return fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}

	for _, note := range doc.Notes {
		diag.emit(LevelInfo, note)
	}
	for _, warning := range doc.Warnings {
		diag.emit(LevelWarning, warning)
	}
	if r.cfg.fastMode {
		diag.emit(LevelInfo, "Using fast renderer")
	}
	for _, f := range r.fonts {
		diag.emit(LevelFine, fmt.Sprintf("Registered font family '%s' from %s", f.Family, f.File))
	}

	eng, err := r.pool.acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// Fails only after Close, when the engine is shut down on return.
		_ = r.pool.release(eng)
	}()

	out := req.Output
	if out == nil {
		out = io.Discard
	}

	j := &job{
		html:         doc.HTML,
		declarations: doc.Declarations,
		fastMode:     r.cfg.fastMode,
		pageSize:     r.cfg.pageSize,
		resolver:     r.cfg.resolver,
		fonts:        r.fontIndex,
		fontFS:       r.fontFS,
		cache:        r.cache,
		diag:         diag,
	}

	if err := eng.Render(ctx, j, out); err != nil {
		r.reportFailure(diag, err)
		// A browser that cannot open pages is relaunched on next use.
		if errors.Is(err, ErrPageCreate) {
			_ = eng.Close()
		}
		return err
	}
	return nil
}

// reportFailure turns a render error into a SEVERE diagnostic.
func (r *Renderer) reportFailure(diag *emitter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		diag.emit(LevelSevere, fmt.Sprintf("Rendering timed out after %s", r.cfg.timeout.Round(time.Millisecond)))
		return
	}
	diag.emit(LevelSevere, err.Error())
}

// Close shuts down idle browsers. Renders in progress finish and their
// browsers shut down on return. New renders fail with ErrRendererClosed.
// Close is idempotent.
func (r *Renderer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.pool.close()
}

// FontCache returns the cache shared by every render.
func (r *Renderer) FontCache() *FontCache {
	return r.cache
}

// Fonts returns the registered font families in registration order.
func (r *Renderer) Fonts() []FontSource {
	out := make([]FontSource, len(r.fonts))
	copy(out, r.fonts)
	return out
}

// PoolSize returns the maximum number of browsers.
func (r *Renderer) PoolSize() int {
	return r.pool.Size()
}
