// Package pipeline prepares submitted HTML for the browser and renders the
// sandbox's own Markdown pages.
//
// Document preparation runs once per render:
//   - HTML parsing via golang.org/x/net/html (fragments become full documents)
//   - default text direction on <html>
//   - removal of <script> elements and inline event handlers
//   - @font-face injection for registered font families
//   - collection of author CSS declarations for support checks
//
// The browser itself decides which declarations it supports. This package only
// finds them; the root pdfsandbox package asks the page.
package pipeline
