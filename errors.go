package pdfsandbox

import "errors"

// Sentinel errors for renderer operations.
var (
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrDocumentParse  = errors.New("failed to prepare document")
	ErrRendererClosed = errors.New("renderer is closed")

	// Configuration validation errors.
	ErrInvalidEngine    = errors.New("invalid engine")
	ErrInvalidDirection = errors.New("invalid text direction")
	ErrInvalidPageSize  = errors.New("invalid page size")

	// Font errors.
	ErrFontNotRegistered = errors.New("font family not registered")
	ErrFontLoad          = errors.New("failed to load font")
)
