package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrDocumentParse indicates the submitted HTML could not be parsed or rendered back.
var ErrDocumentParse = errors.New("document parse failed")

// FontFaceRule describes one @font-face rule injected into every document.
type FontFaceRule struct {
	Family string
	URL    string
	Format string
}

// PrepareOptions controls document preparation.
type PrepareOptions struct {
	Direction string // applied to <html> when it has no dir attribute
	Fonts     []FontFaceRule
}

// Document is a submitted page made ready for the browser.
type Document struct {
	HTML         string
	Declarations []Declaration
	Notes        []string // removed scripts and handlers
	Warnings     []string // CSS syntax problems
}

// PrepareDocument parses content, applies the default direction, strips
// scripts, injects font rules, and collects author CSS declarations.
// Fragments are completed to a full document by the HTML parser.
func PrepareDocument(ctx context.Context, content string, opts PrepareOptions) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}

	doc := &Document{}
	p := &preparer{doc: doc}
	p.walk(root)
	for _, n := range p.remove {
		n.Parent.RemoveChild(n)
	}

	if htmlNode := findElement(root, atom.Html); htmlNode != nil && opts.Direction != "" {
		if _, ok := attr(htmlNode, "dir"); !ok {
			htmlNode.Attr = append(htmlNode.Attr, html.Attribute{Key: "dir", Val: opts.Direction})
		}
	}

	// Inject last so the rules are not linted as author CSS.
	if len(opts.Fonts) > 0 {
		if head := findElement(root, atom.Head); head != nil {
			style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
			style.AppendChild(&html.Node{Type: html.TextNode, Data: buildFontFaceCSS(opts.Fonts)})
			head.InsertBefore(style, head.FirstChild)
		}
	}

	var buf strings.Builder
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentParse, err)
	}
	doc.HTML = buf.String()
	return doc, nil
}

// preparer accumulates findings during a single tree walk.
type preparer struct {
	doc        *Document
	remove     []*html.Node
	styleIndex int
}

func (p *preparer) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if n.DataAtom == atom.Script {
			p.doc.Notes = append(p.doc.Notes, "Ignoring <script> element: scripts are not executed")
			p.remove = append(p.remove, n)
			return
		}
		p.stripHandlers(n)
		if style, ok := attr(n, "style"); ok {
			p.scan(style, true, fmt.Sprintf("style attribute of <%s>", n.Data))
		}
		if n.DataAtom == atom.Style {
			p.styleIndex++
			p.scan(textContent(n), false, fmt.Sprintf("<style> block %d", p.styleIndex))
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

// stripHandlers removes inline event handler attributes.
func (p *preparer) stripHandlers(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			p.doc.Notes = append(p.doc.Notes,
				fmt.Sprintf("Ignoring event handler attribute '%s' on <%s>", a.Key, n.Data))
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func (p *preparer) scan(css string, inline bool, location string) {
	decls, errs := ScanDeclarations(css, inline, location)
	p.doc.Declarations = append(p.doc.Declarations, decls...)
	for _, err := range errs {
		p.doc.Warnings = append(p.doc.Warnings, err.Error())
	}
}

// buildFontFaceCSS renders @font-face rules for the registered families.
func buildFontFaceCSS(fonts []FontFaceRule) string {
	var b strings.Builder
	for _, f := range fonts {
		fmt.Fprintf(&b, "@font-face { font-family: '%s'; src: url('%s') format('%s'); }\n",
			escapeCSSString(f.Family), escapeCSSString(f.URL), escapeCSSString(f.Format))
	}
	return sanitizeCSS(b.String())
}

// escapeCSSString escapes a value placed inside single quotes.
func escapeCSSString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// findElement returns the first element with the given atom, depth first.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// attr returns the value of the named attribute.
func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// textContent concatenates the direct text children of n.
func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
