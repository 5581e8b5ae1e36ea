package main

import (
	"errors"

	"github.com/alnah/go-pdfsandbox"
	"github.com/alnah/go-pdfsandbox/internal/config"
	"github.com/alnah/go-pdfsandbox/internal/examples"
)

// Exit codes for the pdfsandbox CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Clean shutdown
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, environment, or config
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, pdfsandbox.ErrBrowserConnect) ||
		errors.Is(err, pdfsandbox.ErrPageCreate) ||
		errors.Is(err, pdfsandbox.ErrPageLoad) ||
		errors.Is(err, pdfsandbox.ErrPDFGeneration) {
		return ExitBrowser
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidEnv) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, examples.ErrInvalidDir) ||
		errors.Is(err, pdfsandbox.ErrInvalidEngine) ||
		errors.Is(err, pdfsandbox.ErrInvalidDirection) ||
		errors.Is(err, pdfsandbox.ErrInvalidPageSize) {
		return ExitUsage
	}

	return ExitGeneral
}
