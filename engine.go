package pdfsandbox

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/alnah/go-pdfsandbox/internal/pipeline"
)

// engine renders a prepared job in a browser. An engine is used by one
// render at a time; the pool enforces this.
type engine interface {
	Render(ctx context.Context, j *job, out io.Writer) error
	Close() error
}

// job is everything an engine needs for one render.
type job struct {
	html         string
	declarations []pipeline.Declaration
	fastMode     bool
	pageSize     PageSize

	resolver URIResolver
	fonts    map[string]FontSource
	fontFS   fs.FS
	cache    *FontCache

	diag *emitter
}

func (j *job) emit(level Level, msg string) {
	j.diag.emit(level, msg)
}

// PDF margins in inches.
const marginInches = 0.4

// paperSize returns the fallback paper dimensions for the job.
func (j *job) paperSize() (width, height float64) {
	dims, ok := pageDimensions[j.pageSize]
	if !ok {
		dims = pageDimensions[PageSizeA4]
	}
	return dims.width, dims.height
}

// Codes returned by cssSupportJS for each declaration.
const (
	cssSupported       = 0
	cssUnknownProperty = 1
	cssInvalidValue    = 2
)

// cssSupportJS classifies declarations using the page's own CSS engine.
const cssSupportJS = `(decls) => decls.map(d => {
	if (!CSS.supports(d.p, 'initial')) return 1;
	return CSS.supports(d.p, d.v) ? 0 : 2;
})`

// fontsReadyJS resolves once web fonts referenced so far have loaded.
const fontsReadyJS = `() => document.fonts.ready.then(() => true)`

// reportCSSSupport turns support codes into diagnostics.
func (j *job) reportCSSSupport(codes []int) {
	for i, code := range codes {
		if i >= len(j.declarations) {
			return
		}
		d := j.declarations[i]
		switch code {
		case cssUnknownProperty:
			j.emit(LevelWarning, fmt.Sprintf("Unknown CSS property '%s' in %s", d.Property, d.Location))
		case cssInvalidValue:
			j.emit(LevelWarning, fmt.Sprintf("Invalid value '%s' for CSS property '%s' in %s", d.Value, d.Property, d.Location))
		}
	}
}

// consoleLevel maps a console API call type to a diagnostic level.
func consoleLevel(kind string) Level {
	switch kind {
	case "debug", "trace", "dir", "dirxml", "profile", "profileEnd", "count", "timeEnd":
		return LevelFine
	case "warning":
		return LevelWarning
	case "error", "assert":
		return LevelSevere
	default:
		return LevelInfo
	}
}

// logEntryLevel maps a browser log entry level to a diagnostic level.
func logEntryLevel(level string) Level {
	switch level {
	case "verbose":
		return LevelFine
	case "warning":
		return LevelWarning
	case "error":
		return LevelSevere
	default:
		return LevelInfo
	}
}

// Network failures are reported by intercept; the browser repeats them as
// log entries from this source.
const networkLogSource = "network"

// consoleMessage joins rendered console arguments the way DevTools shows them.
func consoleMessage(args []string) string {
	return strings.Join(args, " ")
}

// exceptionMessage prefers the thrown value's description over the generic text.
func exceptionMessage(text, description string) string {
	if description != "" {
		return "Uncaught " + description
	}
	return text
}
