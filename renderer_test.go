package pdfsandbox

// Notes:
// - Renderer tests replace the browser with fakeEngine, which simulates what a
//   real page does with a job: request subresources, report CSS support, print.
// - Real browser behavior is covered by the integration tests.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeEngine simulates a browser page.
type fakeEngine struct {
	requests []string // URLs the "page" requests
	codes    func(n int) []int
	err      error
	delay    time.Duration
	pdf      string

	mu      sync.Mutex
	lastJob *job
	closed  int
}

func (f *fakeEngine) Render(ctx context.Context, j *job, out io.Writer) error {
	f.mu.Lock()
	f.lastJob = j
	f.mu.Unlock()

	for _, u := range f.requests {
		j.intercept(u)
	}
	if f.codes != nil {
		j.reportCSSSupport(f.codes(len(j.declarations)))
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	pdf := f.pdf
	if pdf == "" {
		pdf = "%PDF-1.7 fake"
	}
	_, err := io.WriteString(out, pdf)
	return err
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) job() *job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastJob
}

// withFakeEngine makes every pooled engine the given fake.
func withFakeEngine(f *fakeEngine) Option {
	return func(c *rendererConfig) {
		c.newEngine = func() engine { return f }
	}
}

func newTestRenderer(t *testing.T, f *fakeEngine, opts ...Option) *Renderer {
	t.Helper()
	opts = append([]Option{withFakeEngine(f), WithFontFS(testFontFS()), WithFont("hand", "Hand.ttf")}, opts...)
	r, err := NewRenderer(opts...)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func messages(diags []Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = fmt.Sprintf("%s %s", d.Level, d.Message)
	}
	return out
}

func containsMessage(diags []Diagnostic, level Level, substr string) bool {
	for _, d := range diags {
		if d.Level == level && strings.Contains(d.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// TestNewRenderer - Construction
// ---------------------------------------------------------------------------

func TestNewRenderer_Defaults(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer(withFakeEngine(&fakeEngine{}))
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	defer r.Close()

	fonts := r.Fonts()
	if len(fonts) != len(DefaultFonts) {
		t.Fatalf("Fonts() = %d families, want %d", len(fonts), len(DefaultFonts))
	}
	for i, f := range fonts {
		if f != DefaultFonts[i] {
			t.Errorf("Fonts()[%d] = %v, want %v", i, f, DefaultFonts[i])
		}
	}
	if r.FontCache() == nil {
		t.Error("FontCache() should never be nil")
	}
	if r.PoolSize() < MinPoolSize {
		t.Errorf("PoolSize() = %d, want >= %d", r.PoolSize(), MinPoolSize)
	}
}

func TestNewRenderer_SharedCache(t *testing.T) {
	t.Parallel()

	cache := NewFontCache()
	r := newTestRenderer(t, &fakeEngine{}, WithFontCache(cache))

	if r.FontCache() != cache {
		t.Error("FontCache() should return the injected cache")
	}
}

func TestNewRenderer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"invalid direction", []Option{WithTextDirection("sideways")}, ErrInvalidDirection},
		{"invalid page size", []Option{WithPageSize("b5")}, ErrInvalidPageSize},
		{"invalid engine", []Option{WithEngine("servo")}, ErrInvalidEngine},
		{"unsupported font type", []Option{WithFont("bitmap", "font.bdf")}, ErrFontLoad},
		{"empty family", []Option{WithFont(" ", "a.ttf")}, ErrFontLoad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewRenderer(tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRenderer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRenderer_DuplicateFamilyKeepsFirst(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{}, WithFont("hand", "Other.ttf"))

	fonts := r.Fonts()
	if len(fonts) != 1 {
		t.Fatalf("Fonts() = %v, want one family", fonts)
	}
	if fonts[0].File != "Hand.ttf" {
		t.Errorf("Fonts()[0].File = %q, want Hand.ttf", fonts[0].File)
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render - Output and Document Preparation
// ---------------------------------------------------------------------------

func TestRenderer_Render_WritesPDF(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{})

	var buf bytes.Buffer
	err := r.Render(context.Background(), Request{HTML: "<p>Hello</p>", Output: &buf})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Errorf("output = %q, want PDF", buf.String())
	}
}

func TestRenderer_Render_NilOutputDiscards(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{})

	if err := r.Render(context.Background(), Request{HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("Render() with nil Output error: %v", err)
	}
}

func TestRenderer_Render_PreparesDocument(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	r := newTestRenderer(t, f, WithTextDirection(RTL))

	err := r.Render(context.Background(), Request{
		HTML: `<p onclick="x()">hi</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	html := f.job().html
	if !strings.Contains(html, `dir="rtl"`) {
		t.Errorf("prepared HTML missing default dir: %s", html)
	}
	if strings.Contains(html, "<script") || strings.Contains(html, "onclick") {
		t.Errorf("prepared HTML still has scripts: %s", html)
	}
	if !strings.Contains(html, FontURL("hand")) {
		t.Errorf("prepared HTML missing @font-face for hand: %s", html)
	}
}

func TestRenderer_Render_ConfigReachesJob(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{}
	r := newTestRenderer(t, f, WithFastMode(false), WithPageSize(PageSizeLegal))

	if err := r.Render(context.Background(), Request{HTML: "x"}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	j := f.job()
	if j.fastMode {
		t.Error("job.fastMode should be false")
	}
	if j.pageSize != PageSizeLegal {
		t.Errorf("job.pageSize = %q, want legal", j.pageSize)
	}
	if _, ok := j.fonts["hand"]; !ok {
		t.Error("job.fonts missing registered family")
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render - Diagnostics
// ---------------------------------------------------------------------------

func TestRenderer_Render_Diagnostics(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{
		requests: []string{"https://example.com/logo.png", FontURL("hand")},
		codes: func(n int) []int {
			// first declaration unknown, the rest supported
			codes := make([]int, n)
			if n > 0 {
				codes[0] = cssUnknownProperty
			}
			return codes
		},
	}
	r := newTestRenderer(t, f)

	var c Collector
	err := r.Render(context.Background(), Request{
		HTML:        `<style>p { colr: red; margin: 0 }</style><p onclick="x()">hi</p><script>1</script>`,
		Diagnostics: c.Consume,
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	diags := c.Diagnostics()
	checks := []struct {
		level  Level
		substr string
	}{
		{LevelInfo, "Using fast renderer"},
		{LevelInfo, "Ignoring <script> element"},
		{LevelInfo, "Ignoring event handler attribute 'onclick' on <p>"},
		{LevelFine, "Registered font family 'hand'"},
		{LevelWarning, "Blocked external resource: https://example.com/logo.png"},
		{LevelFine, "Serving font 'hand'"},
		{LevelWarning, "Unknown CSS property 'colr' in <style> block 1"},
	}
	for _, want := range checks {
		if !containsMessage(diags, want.level, want.substr) {
			t.Errorf("missing %v diagnostic %q in:\n%s", want.level, want.substr, strings.Join(messages(diags), "\n"))
		}
	}
}

func TestRenderer_Render_NoFastModeMessage(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{}, WithFastMode(false))

	var c Collector
	if err := r.Render(context.Background(), Request{HTML: "x", Diagnostics: c.Consume}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if containsMessage(c.Diagnostics(), LevelInfo, "Using fast renderer") {
		t.Error("fast renderer message emitted with fast mode off")
	}
}

func TestRenderer_Render_CSSSyntaxWarning(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{})

	var c Collector
	err := r.Render(context.Background(), Request{
		HTML:        `<style>p { color: red; } }</style>`,
		Diagnostics: c.Consume,
	})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !containsMessage(c.Diagnostics(), LevelWarning, "CSS syntax error") {
		t.Errorf("missing CSS syntax warning in %v", messages(c.Diagnostics()))
	}
}

func TestRenderer_Render_LogsExcludeFine(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{requests: []string{FontURL("hand")}}
	r := newTestRenderer(t, f)

	var c Collector
	if err := r.Render(context.Background(), Request{HTML: "x", Diagnostics: c.Consume}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	body := JoinMessages(FilterDiagnostics(c.Diagnostics(), LevelInfo), "\r\n")
	if strings.Contains(body, "Serving font") || strings.Contains(body, "Registered font family") {
		t.Errorf("filtered log contains FINE messages: %q", body)
	}
	if !strings.Contains(body, "Using fast renderer") {
		t.Errorf("filtered log missing INFO message: %q", body)
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render - Errors
// ---------------------------------------------------------------------------

func TestRenderer_Render_EngineError(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{err: fmt.Errorf("%w: boom", ErrPDFGeneration)}
	r := newTestRenderer(t, f)

	var c Collector
	err := r.Render(context.Background(), Request{HTML: "x", Diagnostics: c.Consume})
	if !errors.Is(err, ErrPDFGeneration) {
		t.Fatalf("Render() error = %v, want ErrPDFGeneration", err)
	}
	if !containsMessage(c.Diagnostics(), LevelSevere, "boom") {
		t.Errorf("missing SEVERE diagnostic in %v", messages(c.Diagnostics()))
	}
	if f.closed != 0 {
		t.Error("engine should stay open after a PDF error")
	}
}

func TestRenderer_Render_PageCreateErrorClosesEngine(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{err: fmt.Errorf("%w: target crashed", ErrPageCreate)}
	r := newTestRenderer(t, f)

	err := r.Render(context.Background(), Request{HTML: "x"})
	if !errors.Is(err, ErrPageCreate) {
		t.Fatalf("Render() error = %v, want ErrPageCreate", err)
	}
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed != 1 {
		t.Errorf("engine closed %d times, want 1", closed)
	}
}

func TestRenderer_Render_Timeout(t *testing.T) {
	t.Parallel()

	f := &fakeEngine{delay: time.Second}
	r := newTestRenderer(t, f, WithTimeout(20*time.Millisecond))

	var c Collector
	err := r.Render(context.Background(), Request{HTML: "x", Diagnostics: c.Consume})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Render() error = %v, want context.DeadlineExceeded", err)
	}
	if !containsMessage(c.Diagnostics(), LevelSevere, "timed out after 20ms") {
		t.Errorf("missing timeout diagnostic in %v", messages(c.Diagnostics()))
	}
}

func TestRenderer_Render_CancelledContext(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Render(ctx, Request{HTML: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestRenderer_Render_AfterClose(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeEngine{})
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	err := r.Render(context.Background(), Request{HTML: "x"})
	if !errors.Is(err, ErrRendererClosed) {
		t.Errorf("Render() error = %v, want ErrRendererClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

type panicEngine struct{}

func (panicEngine) Render(context.Context, *job, io.Writer) error { panic("engine bug") }
func (panicEngine) Close() error                                  { return nil }

func TestRenderer_Render_RecoversPanic(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer(func(c *rendererConfig) {
		c.newEngine = func() engine { return panicEngine{} }
	})
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	defer r.Close()

	err = r.Render(context.Background(), Request{HTML: "x"})
	if err == nil || !strings.Contains(err.Error(), "internal error") {
		t.Errorf("Render() error = %v, want internal error", err)
	}
}

// ---------------------------------------------------------------------------
// TestRenderer_Render - Concurrency
// ---------------------------------------------------------------------------

// TestRenderer_Render_Concurrent checks that concurrent renders keep their
// diagnostics apart and each get a complete PDF.
func TestRenderer_Render_Concurrent(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	r, err := NewRenderer(
		WithWorkers(3),
		WithFontFS(testFontFS()),
		WithFont("hand", "Hand.ttf"),
		func(c *rendererConfig) {
			c.newEngine = func() engine {
				created.Add(1)
				return &fakeEngine{requests: []string{FontURL("hand")}, delay: 2 * time.Millisecond}
			}
		},
	)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			var buf bytes.Buffer
			var c Collector
			html := fmt.Sprintf(`<script>%d</script>`, i)
			if err := r.Render(context.Background(), Request{HTML: html, Output: &buf, Diagnostics: c.Consume}); err != nil {
				t.Errorf("Render(%d) error: %v", i, err)
				return
			}
			if !strings.HasPrefix(buf.String(), "%PDF-") {
				t.Errorf("Render(%d) output = %q", i, buf.String())
			}
			scripts := 0
			for _, d := range c.Diagnostics() {
				if strings.Contains(d.Message, "<script>") {
					scripts++
				}
			}
			if scripts != 1 {
				t.Errorf("Render(%d) saw %d script notes, want exactly its own", i, scripts)
			}
		}(i)
	}
	wg.Wait()

	if got := created.Load(); got > 3 {
		t.Errorf("created %d engines, want at most 3", got)
	}
	if stats := r.FontCache().Stats(); stats.Misses != 1 {
		t.Errorf("font cache misses = %d, want 1", stats.Misses)
	}
}
