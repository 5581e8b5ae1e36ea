// Package fileutil holds the filesystem checks shared by config loading
// and the doctor command.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDir is returned by ProbeWritable when the target is not a directory.
var ErrNotDir = errors.New("not a directory")

// probePattern names the scratch file ProbeWritable creates.
const probePattern = "pdfsandbox-probe-*"

// ProbeWritable creates, writes and removes a scratch file in dir. An empty
// dir means os.TempDir().
func ProbeWritable(dir string) error {
	if dir == "" {
		dir = os.TempDir()
	}
	if !DirExists(dir) {
		return fmt.Errorf("%w: %s", ErrNotDir, dir)
	}

	f, err := os.CreateTemp(dir, probePattern)
	if err != nil {
		return fmt.Errorf("creating probe file: %w", err)
	}
	name := f.Name()
	defer func() { _ = os.Remove(name) }()

	_, err = f.WriteString("pdfsandbox")
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing probe file: %w", err)
	}
	return nil
}

// MissingFiles returns the slash-separated names under dir that are not
// regular files, in input order.
func MissingFiles(dir string, names []string) []string {
	var missing []string
	for _, name := range names {
		if !FileExists(filepath.Join(dir, filepath.FromSlash(name))) {
			missing = append(missing, name)
		}
	}
	return missing
}

// FileExists reports whether path is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsFilePath reports whether s looks like a path ("./dev.yaml",
// "/etc/pdfsandbox/prod.yaml", `C:\cfg\dev.yaml`) rather than a bare
// config name ("dev").
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, `/\`)
}
