package pdfsandbox

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-pdfsandbox/internal/process"
)

// Compile-time interface check
var _ engine = (*rodEngine)(nil)

// rodEngine implements engine using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodEngine struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	browserBin string
	noSandbox  bool
}

func newRodEngine(cfg *rendererConfig) *rodEngine {
	return &rodEngine{browserBin: cfg.browserBin, noSandbox: cfg.noSandbox}
}

// ensureBrowser lazily launches and connects to the browser.
func (e *rodEngine) ensureBrowser() error {
	if e.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	bin := e.browserBin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if e.noSandbox || os.Getenv("CI") == "true" || bin != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		killLauncher(l)
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.launcher = l
	e.browser = browser
	return nil
}

// Close releases browser resources.
func (e *rodEngine) Close() error {
	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.launcher != nil {
		killLauncher(e.launcher)
		e.launcher = nil
	}
	return err
}

// killLauncher stops Chrome and its helper processes.
func killLauncher(l *launcher.Launcher) {
	// Errors are ignored; l.Kill below is the fallback.
	_ = process.KillTree(l.PID())
	l.Kill()
	l.Cleanup()
}

// Render loads the job into a blank page and prints it to out.
// Every subresource request is paused and answered by j.intercept.
func (e *rodEngine) Render(ctx context.Context, j *job, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := e.ensureBrowser(); err != nil {
		return err
	}

	page, err := e.browser.Page(proto.TargetCreateTarget{URL: documentBaseURI})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := page.Context(pageCtx)

	router := p.HijackRequests()
	if err := router.Add("*", "", func(h *rod.Hijack) {
		e.answer(h, j.intercept(h.Request.URL().String()))
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	go p.EachEvent(
		func(ev *proto.RuntimeConsoleAPICalled) {
			args := make([]string, 0, len(ev.Args))
			for _, a := range ev.Args {
				args = append(args, remoteObjectText(a))
			}
			j.emit(consoleLevel(string(ev.Type)), consoleMessage(args))
		},
		func(ev *proto.LogEntryAdded) {
			if ev.Entry == nil || string(ev.Entry.Source) == networkLogSource {
				return
			}
			j.emit(logEntryLevel(string(ev.Entry.Level)), ev.Entry.Text)
		},
		func(ev *proto.RuntimeExceptionThrown) {
			if d := ev.ExceptionDetails; d != nil {
				desc := ""
				if d.Exception != nil {
					desc = d.Exception.Description
				}
				j.emit(LevelSevere, exceptionMessage(d.Text, desc))
			}
		},
	)()

	if err := p.SetDocumentContent(j.html); err != nil {
		return pageError(ctx, err)
	}
	if err := p.WaitLoad(); err != nil {
		return pageError(ctx, err)
	}

	if !j.fastMode {
		if _, err := p.Eval(fontsReadyJS); err != nil {
			return pageError(ctx, err)
		}
	}

	if len(j.declarations) > 0 {
		res, err := p.Eval(cssSupportJS, j.declarations)
		if err != nil {
			return pageError(ctx, err)
		}
		var codes []int
		if err := res.Value.Unmarshal(&codes); err != nil {
			return fmt.Errorf("%w: reading CSS support results: %v", ErrPageLoad, err)
		}
		j.reportCSSSupport(codes)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	reader, err := p.PDF(rodPDFOptions(j))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	defer reader.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("%w: streaming PDF: %v", ErrPDFGeneration, err)
	}
	return nil
}

// answer applies an interception decision to a hijacked request.
func (e *rodEngine) answer(h *rod.Hijack, dec interception) {
	switch dec.action {
	case actionFulfill:
		h.Response.SetHeader(
			"Content-Type", dec.mime,
			"Access-Control-Allow-Origin", "*",
		)
		h.Response.SetBody(dec.body)
	case actionContinue:
		h.ContinueRequest(&proto.FetchContinueRequest{URL: dec.url})
	default:
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
	}
}

// rodPDFOptions builds the print parameters. CSS @page size wins over the fallback paper.
func rodPDFOptions(j *job) *proto.PagePrintToPDF {
	width, height := j.paperSize()
	return &proto.PagePrintToPDF{
		PaperWidth:        floatPtr(width),
		PaperHeight:       floatPtr(height),
		MarginTop:         floatPtr(marginInches),
		MarginBottom:      floatPtr(marginInches),
		MarginLeft:        floatPtr(marginInches),
		MarginRight:       floatPtr(marginInches),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	}
}

// remoteObjectText renders a console argument: primitives by value, objects by description.
func remoteObjectText(o *proto.RuntimeRemoteObject) string {
	if o == nil {
		return ""
	}
	if o.Value.Nil() {
		if o.Description != "" {
			return o.Description
		}
		return string(o.Type)
	}
	return o.Value.Str()
}

// pageError reports the context error when the page failed because the render ran out of time.
func pageError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %v", ErrPageLoad, err)
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
