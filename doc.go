// Package pdfsandbox renders HTML documents to PDF with headless Chrome and
// reports what happened along the way as diagnostics.
//
// # Quick Start
//
// Create one renderer, share it, and close it when done:
//
//	r, err := pdfsandbox.NewRenderer(
//	    pdfsandbox.WithFontFS(os.DirFS("fonts")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	var logs pdfsandbox.Collector
//	err = r.Render(ctx, pdfsandbox.Request{
//	    HTML:        "<p style='font-family: handwriting'>Hello</p>",
//	    Output:      w,
//	    Diagnostics: logs.Consume,
//	})
//
// # Rendering
//
// Every render follows these stages:
//
//  1. Document preparation (default dir, script removal, @font-face rules)
//  2. Loading into a blank page of a pooled browser
//  3. Request interception: registered fonts are served from the FontCache,
//     everything else goes through the URIResolver (DenyAll by default)
//  4. CSS support checks in the page
//  5. Printing to PDF, streamed into Request.Output
//
// # Diagnostics
//
// Diagnostics have four levels: FINE, INFO, WARNING and SEVERE. Browser console
// output, log entries, blocked resources and unsupported CSS all become
// diagnostics. Use FilterDiagnostics and JoinMessages to present them.
//
// # Configuration
//
// The renderer is configured once with functional options and never mutated
// per request:
//
//	r, err := pdfsandbox.NewRenderer(
//	    pdfsandbox.WithTextDirection(pdfsandbox.RTL),
//	    pdfsandbox.WithPageSize(pdfsandbox.PageSizeLetter),
//	    pdfsandbox.WithFastMode(false),
//	    pdfsandbox.WithEngine(pdfsandbox.EngineChromedp),
//	)
//
// # Concurrency
//
// Renderer is safe for concurrent use. Each render takes one browser from a
// pool sized by ResolvePoolSize and opens a fresh page in it.
package pdfsandbox
