package pdfsandbox

import (
	"fmt"
	"net/url"
	"strings"
)

// URIResolver decides whether the browser may load an external resource.
// It returns the URI to load, possibly rewritten, and whether loading is allowed.
type URIResolver func(baseURI, uri string) (resolved string, ok bool)

// DenyAll refuses every external resource.
func DenyAll(string, string) (string, bool) {
	return "", false
}

// fontOrigin hosts registered fonts. Requests to it never reach the network:
// they are fulfilled from the font cache.
const fontOrigin = "http://fonts.pdfsandbox.internal/"

// documentBaseURI is the base reported to resolvers. Documents are set
// directly into a blank page, so they have no URL of their own.
const documentBaseURI = "about:blank"

// FontURL returns the internal URL a family is served from.
func FontURL(family string) string {
	return fontOrigin + url.PathEscape(family)
}

// interceptAction is what an engine should do with a paused request.
type interceptAction int

const (
	actionBlock interceptAction = iota
	actionContinue
	actionFulfill
)

// interception is an engine-independent decision for one request.
type interception struct {
	action interceptAction
	url    string // rewritten URL for actionContinue, empty to keep the original
	mime   string
	body   []byte
}

// intercept decides how to answer a request the browser paused.
func (j *job) intercept(rawURL string) interception {
	if strings.HasPrefix(rawURL, "data:") {
		return interception{action: actionContinue}
	}

	if strings.HasPrefix(rawURL, fontOrigin) {
		return j.serveFont(rawURL)
	}

	resolved, ok := j.resolver(documentBaseURI, rawURL)
	if !ok {
		j.emit(LevelWarning, "Blocked external resource: "+rawURL)
		return interception{action: actionBlock}
	}

	j.emit(LevelFine, "Loading external resource: "+rawURL)
	if resolved == rawURL {
		resolved = ""
	}
	return interception{action: actionContinue, url: resolved}
}

// serveFont fulfills an internal font request from the cache.
func (j *job) serveFont(rawURL string) interception {
	family, err := url.PathUnescape(strings.TrimPrefix(rawURL, fontOrigin))
	if err != nil {
		j.emit(LevelWarning, fmt.Sprintf("Malformed font URL %q", rawURL))
		return interception{action: actionBlock}
	}

	src, ok := j.fonts[family]
	if !ok {
		j.emit(LevelWarning, fmt.Sprintf("Font family '%s': %v", family, ErrFontNotRegistered))
		return interception{action: actionBlock}
	}

	face, err := j.cache.Load(j.fontFS, src)
	if err != nil {
		j.emit(LevelWarning, fmt.Sprintf("Font '%s' could not be loaded: %v", family, err))
		return interception{action: actionBlock}
	}

	j.emit(LevelFine, fmt.Sprintf("Serving font '%s' from %s (%d bytes)", family, face.File, len(face.Data)))
	return interception{action: actionFulfill, mime: face.MIME, body: face.Data}
}
