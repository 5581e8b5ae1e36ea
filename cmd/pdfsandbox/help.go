package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfsandbox [command] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Run the HTML to PDF sandbox server (default)")
	fmt.Fprintln(w, "  doctor     Check the browser, fonts, and environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pdfsandbox help <command>' for details on a specific command.")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfsandbox serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve the example picker on / and render uploads on /post-pdf and /post-logs.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config:")
	fmt.Fprintln(w, "  -c, --config <name>        Config file name or path")
	fmt.Fprintln(w, "      --print-config         Print the effective config and exit")
	fmt.Fprintln(w, "      --warmup               Start a browser before accepting requests")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "      --host <s>             Listen host (empty = all interfaces)")
	fmt.Fprintln(w, "  -p, --port <n>             Listen port (default: 8080)")
	fmt.Fprintln(w, "      --max-body-bytes <n>   Request body limit (default: 4 MiB)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Renderer:")
	fmt.Fprintln(w, "      --engine <s>           Browser driver: rod, chromedp")
	fmt.Fprintln(w, "  -w, --workers <n>          Browser instances (0 = auto)")
	fmt.Fprintln(w, "      --direction <s>        Default text direction: ltr, rtl")
	fmt.Fprintln(w, "      --page-size <s>        Default page size: letter, a4, legal")
	fmt.Fprintln(w, "      --fast-mode            Skip waiting for network idle (default: true)")
	fmt.Fprintln(w, "  -t, --timeout <d>          Per-render timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --browser-bin <path>   Chrome/Chromium executable")
	fmt.Fprintln(w, "      --no-sandbox           Disable the Chrome sandbox (Docker/CI)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Content:")
	fmt.Fprintln(w, "      --font-dir <path>      Directory holding registered font files")
	fmt.Fprintln(w, "      --examples-dir <path>  Directory overriding bundled examples")
	fmt.Fprintln(w, "      --default-file <name>  Example selected when ?file is absent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Logging:")
	fmt.Fprintln(w, "      --log-level <s>        debug, info, warn, error")
	fmt.Fprintln(w, "      --log-format <s>       console, json")
	fmt.Fprintln(w, "      --log-output <s>       stderr, stdout, or file path")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  PDFSANDBOX_CONFIG, PDFSANDBOX_HOST, PDFSANDBOX_PORT, PDFSANDBOX_ENGINE,")
	fmt.Fprintln(w, "  PDFSANDBOX_WORKERS, PDFSANDBOX_DIRECTION, PDFSANDBOX_PAGE_SIZE,")
	fmt.Fprintln(w, "  PDFSANDBOX_FAST_MODE, PDFSANDBOX_TIMEOUT, PDFSANDBOX_BROWSER_BIN,")
	fmt.Fprintln(w, "  PDFSANDBOX_NO_SANDBOX, PDFSANDBOX_FONT_DIR, PDFSANDBOX_EXAMPLES_DIR,")
	fmt.Fprintln(w, "  PDFSANDBOX_LOG_LEVEL, PDFSANDBOX_LOG_FORMAT")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Precedence: flags > environment > config file > defaults.")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfsandbox doctor [--json] [--config <name>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that Chrome, the font files, and the temp directory are usable.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                 Print results as JSON")
	fmt.Fprintln(w, "  -c, --config <name>        Config file name or path")
}

// runHelp prints help for a command, or the main usage.
func runHelp(args []string, w io.Writer) {
	if len(args) == 0 {
		printUsage(w)
		return
	}
	switch args[0] {
	case "serve":
		printServeUsage(w)
	case "doctor":
		printDoctorUsage(w)
	default:
		printUsage(w)
	}
}
