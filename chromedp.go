package pdfsandbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Compile-time interface check
var _ engine = (*chromedpEngine)(nil)

// loadedJS resolves once the window load event has fired.
const loadedJS = `new Promise(resolve => {
	if (document.readyState === 'complete') { resolve(true); return; }
	window.addEventListener('load', () => resolve(true), { once: true });
})`

// chromedpEngine implements engine using chromedp. Each render runs in a new
// tab of one long-lived browser.
type chromedpEngine struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	browserBin    string
	noSandbox     bool
}

func newChromedpEngine(cfg *rendererConfig) *chromedpEngine {
	return &chromedpEngine{browserBin: cfg.browserBin, noSandbox: cfg.noSandbox}
}

// ensureBrowser lazily starts the browser.
func (e *chromedpEngine) ensureBrowser() error {
	if e.browserCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if e.browserBin != "" {
		opts = append(opts, chromedp.ExecPath(e.browserBin))
	}
	if e.noSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.allocCtx, e.allocCancel = allocCtx, allocCancel
	e.browserCtx, e.browserCancel = browserCtx, browserCancel
	return nil
}

// Close shuts the browser down.
func (e *chromedpEngine) Close() error {
	if e.browserCtx == nil {
		return nil
	}
	err := chromedp.Cancel(e.browserCtx)
	e.browserCancel()
	e.allocCancel()
	e.browserCtx, e.allocCtx = nil, nil
	return err
}

// Render loads the job into a new tab and prints it to out.
func (e *chromedpEngine) Render(ctx context.Context, j *job, out io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := e.ensureBrowser(); err != nil {
		return err
	}

	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch ev := ev.(type) {
		case *fetch.EventRequestPaused:
			// Commands cannot be sent from the listener itself.
			go e.answer(tabCtx, ev.RequestID, j.intercept(ev.Request.URL))
		case *runtime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, a := range ev.Args {
				args = append(args, cdpRemoteObjectText(a))
			}
			j.emit(consoleLevel(string(ev.Type)), consoleMessage(args))
		case *cdplog.EventEntryAdded:
			if ev.Entry == nil || string(ev.Entry.Source) == networkLogSource {
				return
			}
			j.emit(logEntryLevel(string(ev.Entry.Level)), ev.Entry.Text)
		case *runtime.EventExceptionThrown:
			if d := ev.ExceptionDetails; d != nil {
				desc := ""
				if d.Exception != nil {
					desc = d.Exception.Description
				}
				j.emit(LevelSevere, exceptionMessage(d.Text, desc))
			}
		}
	})

	actions := []chromedp.Action{
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}),
		runtime.Enable(),
		cdplog.Enable(),
		chromedp.Navigate(documentBaseURI),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, j.html).Do(ctx)
		}),
		chromedp.Evaluate(loadedJS, nil, awaitPromise),
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return pageError(ctx, err)
	}

	if !j.fastMode {
		expr := fmt.Sprintf("(%s)()", fontsReadyJS)
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(expr, nil, awaitPromise)); err != nil {
			return pageError(ctx, err)
		}
	}

	if len(j.declarations) > 0 {
		payload, err := json.Marshal(j.declarations)
		if err != nil {
			return fmt.Errorf("%w: encoding declarations: %v", ErrPageLoad, err)
		}
		var codes []int
		expr := fmt.Sprintf("(%s)(%s)", cssSupportJS, payload)
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(expr, &codes)); err != nil {
			return pageError(ctx, err)
		}
		j.reportCSSSupport(codes)
	}

	var pdf []byte
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		width, height := j.paperSize()
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPreferCSSPageSize(true).
			WithPaperWidth(width).
			WithPaperHeight(height).
			WithMarginTop(marginInches).
			WithMarginBottom(marginInches).
			WithMarginLeft(marginInches).
			WithMarginRight(marginInches).
			Do(ctx)
		pdf = data
		return err
	}))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	if _, err := out.Write(pdf); err != nil {
		return fmt.Errorf("%w: writing PDF: %v", ErrPDFGeneration, err)
	}
	return nil
}

// answer applies an interception decision to a paused request.
func (e *chromedpEngine) answer(tabCtx context.Context, id fetch.RequestID, dec interception) {
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(tabCtx, c.Target)

	var action chromedp.Action
	switch dec.action {
	case actionFulfill:
		action = fetch.FulfillRequest(id, 200).
			WithResponseHeaders([]*fetch.HeaderEntry{
				{Name: "Content-Type", Value: dec.mime},
				{Name: "Access-Control-Allow-Origin", Value: "*"},
			}).
			WithBody(base64.StdEncoding.EncodeToString(dec.body))
	case actionContinue:
		req := fetch.ContinueRequest(id)
		if dec.url != "" {
			req = req.WithURL(dec.url)
		}
		action = req
	default:
		action = fetch.FailRequest(id, network.ErrorReasonBlockedByClient)
	}
	// Fails only when the tab closed mid-render; nothing is left to answer.
	_ = action.Do(execCtx)
}

// awaitPromise makes Evaluate wait for a returned promise to settle.
func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// cdpRemoteObjectText renders a console argument: primitives by value, objects by description.
func cdpRemoteObjectText(o *runtime.RemoteObject) string {
	if o == nil {
		return ""
	}
	if len(o.Value) == 0 {
		if o.Description != "" {
			return o.Description
		}
		return string(o.Type)
	}
	var s string
	if err := json.Unmarshal([]byte(o.Value), &s); err == nil {
		return s
	}
	return string(o.Value)
}
