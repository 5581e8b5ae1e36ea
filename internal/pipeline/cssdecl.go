package pipeline

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrCSSSyntax marks a recoverable syntax error in a stylesheet.
var ErrCSSSyntax = errors.New("CSS syntax error")

// maxSyntaxErrors stops a scan of badly broken CSS.
const maxSyntaxErrors = 20

// Declaration is one author property/value pair and where it was written.
type Declaration struct {
	Property string `json:"p"`
	Value    string `json:"v"`
	Location string `json:"-"`
}

// descriptorAtRules hold descriptors rather than properties; CSS.supports
// does not know them, so their bodies are not collected.
var descriptorAtRules = map[string]bool{
	"@font-face":           true,
	"@page":                true,
	"@counter-style":       true,
	"@property":            true,
	"@font-feature-values": true,
}

// ScanDeclarations lists the declarations in a stylesheet or, when inline is
// true, in the value of a style attribute. Custom properties are skipped.
// The parser recovers from syntax errors, so scanning continues past them;
// each one is returned as a single-line error wrapping ErrCSSSyntax.
func ScanDeclarations(src string, inline bool, location string) ([]Declaration, []error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	p := css.NewParser(parse.NewInputString(src), inline)
	var (
		decls     []Declaration
		errs      []error
		skipDepth int
	)

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			err := p.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return decls, errs
			}
			errs = append(errs, syntaxError(err, location))
			if len(errs) >= maxSyntaxErrors {
				return decls, errs
			}
		case css.BeginAtRuleGrammar:
			if skipDepth > 0 || descriptorAtRules[strings.ToLower(string(data))] {
				skipDepth++
			}
		case css.BeginRulesetGrammar:
			if skipDepth > 0 {
				skipDepth++
			}
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if skipDepth > 0 {
				skipDepth--
			}
		case css.DeclarationGrammar:
			if skipDepth > 0 {
				continue
			}
			decls = append(decls, Declaration{
				Property: strings.ToLower(string(data)),
				Value:    declarationValue(p.Values()),
				Location: location,
			})
		}
	}
}

// syntaxError flattens a parser error to one line. parse.Error.Error()
// carries the offending source line and a caret on extra lines.
func syntaxError(err error, location string) error {
	var perr *parse.Error
	if errors.As(err, &perr) {
		return fmt.Errorf("%w in %s at line %d, column %d: %s",
			ErrCSSSyntax, location, perr.Line, perr.Column, oneLine(perr.Message))
	}
	return fmt.Errorf("%w in %s: %s", ErrCSSSyntax, location, oneLine(err.Error()))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// declarationValue joins value tokens and drops a trailing !important.
func declarationValue(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	v := strings.TrimSpace(b.String())

	lower := strings.ToLower(v)
	if idx := strings.LastIndex(lower, "!"); idx != -1 &&
		strings.TrimSpace(lower[idx+1:]) == "important" {
		v = strings.TrimSpace(v[:idx])
	}
	return v
}
