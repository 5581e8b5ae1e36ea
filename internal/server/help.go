package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/pipeline"
)

// renderHelp converts the embedded help text to a complete HTML page.
// The page is static for the server's lifetime, so it is built once.
func renderHelp(fonts fontInfo) ([]byte, error) {
	source, err := templateFS.ReadFile("templates/help.md")
	if err != nil {
		return nil, fmt.Errorf("reading help: %w", err)
	}

	fragment, err := pipeline.NewGoldmarkConverter().ToHTML(context.Background(), string(source)+fontTable(fonts))
	if err != nil {
		return nil, fmt.Errorf("converting help: %w", err)
	}

	page, err := template.ParseFS(templateFS, "templates/help.html")
	if err != nil {
		return nil, fmt.Errorf("parsing help page: %w", err)
	}

	var buf bytes.Buffer
	// #nosec G203 -- fragment comes from embedded Markdown with raw HTML disabled
	if err := page.Execute(&buf, template.HTML(fragment)); err != nil {
		return nil, fmt.Errorf("rendering help page: %w", err)
	}
	return buf.Bytes(), nil
}

// fontInfo is what the help page says about fonts.
type fontInfo struct {
	sources     []pdfsandbox.FontSource
	dir         string
	unavailable map[string]bool // by family
}

// fontTable lists the registered families as a Markdown table.
func fontTable(fonts fontInfo) string {
	var b strings.Builder
	b.WriteString("\n## Fonts\n\n")
	if len(fonts.sources) == 0 {
		b.WriteString("No fonts are registered; documents use the browser defaults.\n")
		return b.String()
	}

	b.WriteString("Font files are not bundled with the sandbox. ")
	if fonts.dir != "" {
		fmt.Fprintf(&b, "They are read from `%s` ", markdownCell(fonts.dir))
	} else {
		b.WriteString("They are read from the configured font directory ")
	}
	b.WriteString("(`fonts.dir`, `--font-dir` or `PDFSANDBOX_FONT_DIR`). ")
	b.WriteString("A family whose file is missing is reported in the logs and falls back to the browser defaults.\n\n")

	b.WriteString("Use these names in `font-family`:\n\n")
	b.WriteString("| Family | File | Status |\n|---|---|---|\n")
	for _, f := range fonts.sources {
		status := "loaded"
		if fonts.unavailable[f.Family] {
			status = "missing"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", markdownCell(f.Family), markdownCell(f.File), status)
	}
	return b.String()
}

func markdownCell(s string) string {
	return strings.NewReplacer("|", `\|`, "`", "", "\n", " ").Replace(s)
}
