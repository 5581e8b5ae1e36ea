package examples

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirFS is a read-only fs.FS rooted at a directory on disk.
// Unlike os.DirFS it refuses symlinks that resolve outside the root.
type DirFS struct {
	basePath string
}

// NewDirFS validates basePath and returns a DirFS rooted there.
// Returns ErrInvalidDir if the path is not a readable directory.
func NewDirFS(basePath string) (*DirFS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidDir)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}

	// Containment checks compare resolved paths.
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = realPath
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: directory does not exist: %s", ErrInvalidDir, absPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidDir, absPath)
	}
	if _, err := os.ReadDir(absPath); err != nil {
		return nil, fmt.Errorf("%w: cannot read directory: %v", ErrInvalidDir, err)
	}

	return &DirFS{basePath: absPath}, nil
}

// Open implements fs.FS.
func (d *DirFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	filePath := filepath.Join(d.basePath, filepath.FromSlash(name))
	if err := d.verifyPathContainment(filePath); err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return os.Open(filePath) // #nosec G304 -- path validated above
}

func (d *DirFS) verifyPathContainment(filePath string) error {
	absFilePath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve path", ErrPathTraversal)
	}

	// A missing file keeps its unresolved path; opening it fails anyway.
	if realPath, err := filepath.EvalSymlinks(absFilePath); err == nil {
		absFilePath = realPath
	}

	if absFilePath != d.basePath && !strings.HasPrefix(absFilePath, d.basePath+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes base directory", ErrPathTraversal)
	}
	return nil
}

// Overlay reads from custom first and falls back to fallback when the
// file does not exist there. Other errors are returned as is.
type Overlay struct {
	custom   fs.FS
	fallback fs.FS
}

// NewOverlay returns an Overlay. A nil custom FS reads only from fallback.
func NewOverlay(custom, fallback fs.FS) *Overlay {
	return &Overlay{custom: custom, fallback: fallback}
}

// Open implements fs.FS.
func (o *Overlay) Open(name string) (fs.File, error) {
	if o.custom == nil {
		return o.fallback.Open(name)
	}

	f, err := o.custom.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return o.fallback.Open(name)
}

var (
	_ fs.FS = (*DirFS)(nil)
	_ fs.FS = (*Overlay)(nil)
)
