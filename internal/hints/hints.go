// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-pdfsandbox/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a common CI environment variable is set.
func InCI() bool {
	return os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""
}

// ForBrowserConnect returns hints for browser launch failures.
// noSandbox reports whether the sandbox is already disabled.
func ForBrowserConnect(noSandbox bool) string {
	var hints []string

	if (InCI() || IsInContainer()) && !noSandbox {
		hints = append(hints, "set PDFSANDBOX_NO_SANDBOX=true or --no-sandbox for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN or --browser-bin to use a specific Chrome")
	}
	hints = append(hints, "run 'pdfsandbox doctor' to check the setup")

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the render timeout.
func ForTimeout() string {
	return format("for heavy documents, raise renderer.timeout or --timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config and creating a config under the user config directory.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "go-pdfsandbox") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForFontFile returns hints for a registered font that cannot be read.
func ForFontFile(dir string) string {
	if !fileutil.DirExists(dir) {
		return format("font directory " + dir + " does not exist; set fonts.dir or PDFSANDBOX_FONT_DIR")
	}
	return format("place the file in " + dir + " or change fonts.families")
}

// ForListen returns hints for listener failures.
func ForListen(addr string) string {
	return format(addr + " may be in use; choose another --port or PDFSANDBOX_PORT")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
