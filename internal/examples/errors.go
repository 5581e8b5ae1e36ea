package examples

import "errors"

// Sentinel errors for example loading.
var (
	// ErrInvalidName indicates an example id contains path separators, dots,
	// or is empty.
	ErrInvalidName = errors.New("invalid example name")

	// ErrInvalidDir indicates the override directory is not a readable directory.
	ErrInvalidDir = errors.New("invalid examples directory")

	// ErrExampleRead indicates an I/O error or undecodable content.
	ErrExampleRead = errors.New("failed to read example")

	// ErrPathTraversal indicates an attempt to open a file outside the directory.
	ErrPathTraversal = errors.New("path traversal detected")
)
