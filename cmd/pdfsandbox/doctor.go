package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-pdfsandbox/internal/config"
	"github.com/alnah/go-pdfsandbox/internal/fileutil"
	"github.com/alnah/go-pdfsandbox/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"`
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	Fonts    fontsInfo  `json:"fonts"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
}

// fontsInfo lists configured font files missing from the font directory.
type fontsInfo struct {
	Dir     string   `json:"dir"`
	Found   int      `json:"found"`
	Missing []string `json:"missing,omitempty"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// doctorDeps are the probes doctor runs, replaceable in tests.
type doctorDeps struct {
	lookPath      func() (string, bool)
	chromeVersion func(path string) (string, error)
	inContainer   func() (bool, string)
	inCI          func() bool
}

func defaultDoctorDeps() doctorDeps {
	return doctorDeps{
		lookPath:      launcher.LookPath,
		chromeVersion: chromeVersion,
		inContainer:   detectContainer,
		inCI:          hints.InCI,
	}
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found, 2 = usage.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	jsonOutput := fs.Bool("json", false, "print results as JSON")
	configName := fs.StringP("config", "c", "", "config file name or path")
	fs.Usage = func() { printDoctorUsage(env.Stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return ExitUsage
	}

	cfg, err := resolveConfig(*configName, env)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	result := runDoctor(cfg, defaultDoctorDeps())

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks against cfg.
func runDoctor(cfg *config.Config, deps doctorDeps) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
		},
	}

	checkEnvironment(result, cfg, deps)
	checkChrome(result, cfg, deps)
	checkFonts(result, cfg)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}
	return result
}

// checkChrome locates the browser the rod engine would launch.
func checkChrome(result *doctorResult, cfg *config.Config, deps doctorDeps) {
	chromePath := cfg.Renderer.BrowserBin
	if chromePath == "" {
		chromePath = os.Getenv("ROD_BROWSER_BIN")
	}
	if chromePath == "" {
		var found bool
		chromePath, found = deps.lookPath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found"+hints.ForBrowserConnect(cfg.Renderer.NoSandbox))
			return
		}
	}

	if !fileutil.FileExists(chromePath) {
		result.Errors = append(result.Errors, fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath
	result.Chrome.Sandbox = !cfg.Renderer.NoSandbox

	version, err := deps.chromeVersion(chromePath)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Could not get Chrome version: %v", err))
		return
	}
	result.Chrome.Version = version
}

func chromeVersion(path string) (string, error) {
	out, err := exec.Command(path, "--version").Output() // #nosec G204 -- path is the configured browser
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, cfg *config.Config, deps doctorDeps) {
	result.Env.Container, result.Env.ContainerHint = deps.inContainer()
	result.Env.CI = deps.inCI()

	if (result.Env.Container || result.Env.CI) && !cfg.Renderer.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is enabled. Set PDFSANDBOX_NO_SANDBOX=true")
	}
}

// detectContainer reports whether we run in a container and which signal
// gave it away.
func detectContainer() (bool, string) {
	if os.Getenv("PDFSANDBOX_CONTAINER") == "1" {
		return true, "PDFSANDBOX_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkFonts verifies every registered family has its file.
func checkFonts(result *doctorResult, cfg *config.Config) {
	result.Fonts.Dir = cfg.Fonts.Dir
	if !fileutil.DirExists(cfg.Fonts.Dir) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Font directory %s not found; documents fall back to system fonts", cfg.Fonts.Dir))
		return
	}

	sources := fontSources(cfg.Fonts)
	files := make([]string, len(sources))
	for i, src := range sources {
		files[i] = src.File
	}
	missing := make(map[string]bool)
	for _, file := range fileutil.MissingFiles(cfg.Fonts.Dir, files) {
		missing[file] = true
	}
	for _, src := range sources {
		if !missing[src.File] {
			result.Fonts.Found++
			continue
		}
		result.Fonts.Missing = append(result.Fonts.Missing, src.Family+" ("+src.File+")")
	}
	if len(result.Fonts.Missing) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Missing font files: %s", strings.Join(result.Fonts.Missing, ", ")))
	}
}

// checkSystem verifies the temp directory is writable.
func checkSystem(result *doctorResult) {
	if err := fileutil.ProbeWritable(""); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s: %v", os.TempDir(), err))
		return
	}
	result.System.TempWritable = true
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "pdfsandbox doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Fonts")
	fmt.Fprintf(w, "  [OK] Directory: %s (%d found)\n", r.Fonts.Dir, r.Fonts.Found)
	for _, m := range r.Fonts.Missing {
		fmt.Fprintf(w, "  [WARN] Missing: %s\n", m)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to serve")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
