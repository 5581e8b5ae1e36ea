package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alnah/go-pdfsandbox/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestProbeWritable - Scratch file probe
// ---------------------------------------------------------------------------

func TestProbeWritable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := fileutil.ProbeWritable(dir); err != nil {
		t.Fatalf("ProbeWritable() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("probe left %d entries behind", len(entries))
	}
}

func TestProbeWritable_NotADirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	for _, target := range []string{file, filepath.Join(dir, "missing")} {
		if err := fileutil.ProbeWritable(target); !errors.Is(err, fileutil.ErrNotDir) {
			t.Errorf("ProbeWritable(%q) = %v, want ErrNotDir", target, err)
		}
	}
}

// NOTE: This test modifies TMPDIR and cannot run in parallel.
func TestProbeWritable_DefaultsToTempDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	if err := fileutil.ProbeWritable(""); err != nil {
		t.Fatalf("ProbeWritable(\"\") error = %v", err)
	}

	t.Setenv("TMPDIR", filepath.Join(dir, "gone"))
	if err := fileutil.ProbeWritable(""); !errors.Is(err, fileutil.ErrNotDir) {
		t.Errorf("ProbeWritable(\"\") with missing TMPDIR = %v, want ErrNotDir", err)
	}
}

// ---------------------------------------------------------------------------
// TestMissingFiles - Font file presence
// ---------------------------------------------------------------------------

func TestMissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "noto"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"DejaVuSans.ttf", "noto/NotoSansCJK.otf"} {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte("font"), 0o600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{name: "all present", files: []string{"DejaVuSans.ttf", "noto/NotoSansCJK.otf"}, want: nil},
		{name: "some missing", files: []string{"Amiri.ttf", "DejaVuSans.ttf", "Caveat.ttf"}, want: []string{"Amiri.ttf", "Caveat.ttf"}},
		{name: "directory is not a file", files: []string{"noto"}, want: []string{"noto"}},
		{name: "no files", files: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := fileutil.MissingFiles(dir, tt.files)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingFiles() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestFileExists, TestDirExists - Path kind checks
// ---------------------------------------------------------------------------

func TestFileExists_DirExists(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "font.ttf")
	if err := os.WriteFile(testFile, []byte("content"), 0o600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		wantFile bool
		wantDir  bool
	}{
		{name: "regular file", path: testFile, wantFile: true, wantDir: false},
		{name: "directory", path: tempDir, wantFile: false, wantDir: true},
		{name: "missing", path: filepath.Join(tempDir, "missing"), wantFile: false, wantDir: false},
		{name: "empty path", path: "", wantFile: false, wantDir: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.FileExists(tt.path); got != tt.wantFile {
				t.Errorf("FileExists(%q) = %v, want %v", tt.path, got, tt.wantFile)
			}
			if got := fileutil.DirExists(tt.path); got != tt.wantDir {
				t.Errorf("DirExists(%q) = %v, want %v", tt.path, got, tt.wantDir)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestIsFilePath - Name vs path detection
// ---------------------------------------------------------------------------

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{input: "sandbox", want: false},
		{input: "my-config", want: false},
		{input: "./sandbox.yaml", want: true},
		{input: "../shared/sandbox.yaml", want: true},
		{input: "/etc/pdfsandbox/prod.yaml", want: true},
		{input: `C:\config\sandbox.yaml`, want: true},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := fileutil.IsFilePath(tt.input); got != tt.want {
				t.Errorf("IsFilePath(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
