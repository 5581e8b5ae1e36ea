package pdfsandbox

import (
	"strings"
	"sync"
)

// Level is the severity of a rendering diagnostic.
type Level int

// Diagnostic levels, from least to most severe.
const (
	LevelFine Level = iota
	LevelInfo
	LevelWarning
	LevelSevere
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelFine:
		return "FINE"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelSevere:
		return "SEVERE"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is a single message produced during one render call.
type Diagnostic struct {
	Level   Level
	Message string
}

// FormattedMessage returns the text shown to users.
func (d Diagnostic) FormattedMessage() string {
	return d.Message
}

// DiagnosticConsumer receives diagnostics as they are produced.
// The renderer serializes calls, so consumers need no locking of their own.
type DiagnosticConsumer func(Diagnostic)

// Collector accumulates diagnostics in arrival order.
// Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Consume appends d. Its method value is a DiagnosticConsumer.
func (c *Collector) Consume(d Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of everything collected so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// FilterDiagnostics keeps diagnostics at or above minLevel, preserving order.
func FilterDiagnostics(diags []Diagnostic, minLevel Level) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Level >= minLevel {
			out = append(out, d)
		}
	}
	return out
}

// JoinMessages joins formatted messages with sep.
func JoinMessages(diags []Diagnostic, sep string) string {
	msgs := make([]string, len(diags))
	for i, d := range diags {
		msgs[i] = d.FormattedMessage()
	}
	return strings.Join(msgs, sep)
}

// emitter forwards diagnostics to a consumer one at a time and
// drops anything that arrives after close. Browser events are delivered
// on their own goroutines and can trail the end of a render.
type emitter struct {
	mu      sync.Mutex
	consume DiagnosticConsumer
	closed  bool
}

func newEmitter(consume DiagnosticConsumer) *emitter {
	return &emitter{consume: consume}
}

func (e *emitter) emit(level Level, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.consume == nil {
		return
	}
	e.consume(Diagnostic{Level: level, Message: msg})
}

func (e *emitter) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}
