package pdfsandbox

import (
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"
)

// countingFS counts opens and can be slowed down to widen race windows.
type countingFS struct {
	fs.FS
	opens atomic.Int32
	delay time.Duration
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.FS.Open(name)
}

func testFontFS() fstest.MapFS {
	return fstest.MapFS{
		"Hand.ttf":   {Data: []byte("ttf-bytes")},
		"Serif.otf":  {Data: []byte("otf-bytes")},
		"Mono.woff2": {Data: []byte("woff2-bytes")},
		"Empty.ttf":  {Data: []byte{}},
		"Readme.txt": {Data: []byte("not a font")},
	}
}

// ---------------------------------------------------------------------------
// TestFontCache_Load - Loading and Classification
// ---------------------------------------------------------------------------

func TestFontCache_Load(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src        FontSource
		wantMIME   string
		wantFormat string
		wantErr    error
	}{
		{
			name:       "truetype",
			src:        FontSource{Family: "hand", File: "Hand.ttf"},
			wantMIME:   "font/ttf",
			wantFormat: "truetype",
		},
		{
			name:       "opentype",
			src:        FontSource{Family: "serif", File: "Serif.otf"},
			wantMIME:   "font/otf",
			wantFormat: "opentype",
		},
		{
			name:       "woff2",
			src:        FontSource{Family: "mono", File: "Mono.woff2"},
			wantMIME:   "font/woff2",
			wantFormat: "woff2",
		},
		{
			name:    "missing file",
			src:     FontSource{Family: "gone", File: "Gone.ttf"},
			wantErr: ErrFontLoad,
		},
		{
			name:    "empty file",
			src:     FontSource{Family: "empty", File: "Empty.ttf"},
			wantErr: ErrFontLoad,
		},
		{
			name:    "unsupported extension",
			src:     FontSource{Family: "text", File: "Readme.txt"},
			wantErr: ErrFontLoad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cache := NewFontCache()
			face, err := cache.Load(testFontFS(), tt.src)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if face.MIME != tt.wantMIME {
				t.Errorf("MIME = %q, want %q", face.MIME, tt.wantMIME)
			}
			if face.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", face.Format, tt.wantFormat)
			}
			if face.Family != tt.src.Family {
				t.Errorf("Family = %q, want %q", face.Family, tt.src.Family)
			}
			if len(face.Data) == 0 {
				t.Error("Data should not be empty")
			}
		})
	}
}

func TestFontCache_Load_NilFS(t *testing.T) {
	t.Parallel()

	_, err := NewFontCache().Load(nil, FontSource{Family: "hand", File: "Hand.ttf"})
	if !errors.Is(err, ErrFontLoad) {
		t.Errorf("Load(nil) error = %v, want ErrFontLoad", err)
	}
}

// ---------------------------------------------------------------------------
// TestFontCache_Stats - Hits, Misses, and Failures
// ---------------------------------------------------------------------------

func TestFontCache_Stats(t *testing.T) {
	t.Parallel()

	cache := NewFontCache()
	fsys := testFontFS()
	src := FontSource{Family: "hand", File: "Hand.ttf"}

	for i := 0; i < 3; i++ {
		if _, err := cache.Load(fsys, src); err != nil {
			t.Fatalf("Load() error: %v", err)
		}
	}

	stats := cache.Stats()
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
	if stats.Bytes != int64(len("ttf-bytes")) {
		t.Errorf("Bytes = %d, want %d", stats.Bytes, len("ttf-bytes"))
	}
}

func TestFontCache_FailuresNotCached(t *testing.T) {
	t.Parallel()

	cache := NewFontCache()
	fsys := fstest.MapFS{}
	src := FontSource{Family: "late", File: "Late.ttf"}

	if _, err := cache.Load(fsys, src); err == nil {
		t.Fatal("first Load() should fail for a missing file")
	}

	fsys["Late.ttf"] = &fstest.MapFile{Data: []byte("arrived")}

	face, err := cache.Load(fsys, src)
	if err != nil {
		t.Fatalf("second Load() error = %v, want success after file appears", err)
	}
	if string(face.Data) != "arrived" {
		t.Errorf("Data = %q, want %q", face.Data, "arrived")
	}
	if got := cache.Stats().Entries; got != 1 {
		t.Errorf("Entries = %d, want 1", got)
	}
}

// ---------------------------------------------------------------------------
// TestFontCache_Concurrent - Single Load Under Contention
// ---------------------------------------------------------------------------

func TestFontCache_ConcurrentLoadReadsOnce(t *testing.T) {
	t.Parallel()

	cache := NewFontCache()
	fsys := &countingFS{FS: testFontFS(), delay: 20 * time.Millisecond}
	src := FontSource{Family: "hand", File: "Hand.ttf"}

	var wg sync.WaitGroup
	faces := make([]*FontFace, 32)
	for i := range faces {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			face, err := cache.Load(fsys, src)
			if err != nil {
				t.Errorf("Load() error: %v", err)
				return
			}
			faces[i] = face
		}(i)
	}
	wg.Wait()

	if got := fsys.opens.Load(); got != 1 {
		t.Errorf("font file opened %d times, want 1", got)
	}
	for i, f := range faces {
		if f != faces[0] {
			t.Errorf("faces[%d] is a different instance", i)
		}
	}
}
