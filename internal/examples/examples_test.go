package examples

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// ---------------------------------------------------------------------------
// TestLoad
// ---------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"samples/one.htm":    {Data: []byte("<p>one</p>")},
		"samples/two.htm":    {Data: []byte("<p>two</p>")},
		"samples/binary.htm": {Data: []byte{0xff, 0xfe, 0x00}},
	}
	logger, logs := observedLogger()

	store := Load(fsys, []string{"one", "missing", "two", "binary", "../etc"}, logger)

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	if got, ok := store.Get("one.htm"); !ok || got != "<p>one</p>" {
		t.Errorf("Get(one.htm) = %q, %v", got, ok)
	}
	if got := store.Filenames(); !slices.Equal(got, []string{"one.htm", "two.htm"}) {
		t.Errorf("Filenames() = %v", got)
	}

	skipped := logs.FilterMessage("skipping example").All()
	if len(skipped) != 3 {
		t.Fatalf("logged %d skips, want 3", len(skipped))
	}
	var ids []string
	for _, entry := range skipped {
		if entry.Level != zapcore.WarnLevel {
			t.Errorf("skip logged at %s, want warn", entry.Level)
		}
		ids = append(ids, entry.ContextMap()["id"].(string))
	}
	if !slices.Equal(ids, []string{"missing", "binary", "../etc"}) {
		t.Errorf("skipped ids = %v", ids)
	}
}

func TestLoad_NilLogger(t *testing.T) {
	t.Parallel()

	store := Load(fstest.MapFS{}, []string{"absent"}, nil)
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	store := Load(fstest.MapFS{}, nil, zap.NewNop())
	if got, ok := store.Get(DefaultFile); ok || got != "" {
		t.Errorf("Get() = %q, %v, want empty and false", got, ok)
	}
}

// ---------------------------------------------------------------------------
// TestLoadBundled
// ---------------------------------------------------------------------------

func TestLoadBundled(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	store := LoadBundled(logger)

	if store.Len() != len(Names) {
		t.Errorf("Len() = %d, want %d", store.Len(), len(Names))
	}
	if n := logs.FilterMessage("skipping example").Len(); n != 0 {
		t.Errorf("bundled samples should all load, %d skipped", n)
	}

	content, ok := store.Get(DefaultFile)
	if !ok {
		t.Fatalf("default file %s missing", DefaultFile)
	}
	if !strings.Contains(content, "Hello, World!") {
		t.Errorf("unexpected default content: %s", content)
	}

	filenames := store.Filenames()
	if !slices.IsSorted(filenames) {
		t.Errorf("Filenames() not sorted: %v", filenames)
	}
	for _, id := range Names {
		if !slices.Contains(filenames, Filename(id)) {
			t.Errorf("missing %s", Filename(id))
		}
	}
}

// ---------------------------------------------------------------------------
// TestLoadWithDir
// ---------------------------------------------------------------------------

func TestLoadWithDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "samples"), 0o750); err != nil {
		t.Fatal(err)
	}
	custom := "<h1>Custom hello</h1>"
	if err := os.WriteFile(filepath.Join(dir, "samples", "hello-world.htm"), []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := LoadWithDir(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadWithDir() error: %v", err)
	}
	if got, _ := store.Get(DefaultFile); got != custom {
		t.Errorf("custom file should shadow the bundled one, got %q", got)
	}
	if _, ok := store.Get("cjk.htm"); !ok {
		t.Error("bundled sample should be used when the directory lacks it")
	}
}

func TestLoadWithDir_Empty(t *testing.T) {
	t.Parallel()

	store, err := LoadWithDir("", zap.NewNop())
	if err != nil {
		t.Fatalf("LoadWithDir() error: %v", err)
	}
	if store.Len() != len(Names) {
		t.Errorf("Len() = %d, want %d", store.Len(), len(Names))
	}
}

func TestLoadWithDir_Invalid(t *testing.T) {
	t.Parallel()

	_, err := LoadWithDir(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	if !errors.Is(err, ErrInvalidDir) {
		t.Errorf("LoadWithDir() error = %v, want ErrInvalidDir", err)
	}
}
