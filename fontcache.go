package pdfsandbox

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// FontFace is a loaded font file ready to be served to the browser.
type FontFace struct {
	Family string
	File   string
	MIME   string
	Format string // CSS format() hint
	Data   []byte
}

// FontCacheStats reports cache effectiveness.
type FontCacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

// FontCache holds font files shared by every render.
// Entries are keyed by file name, so share a cache only between renderers
// reading the same font filesystem. Failed loads are not cached.
// Safe for concurrent use.
type FontCache struct {
	mu     sync.RWMutex
	faces  map[string]*FontFace
	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewFontCache creates an empty cache.
func NewFontCache() *FontCache {
	return &FontCache{faces: make(map[string]*FontFace)}
}

// Load returns the face for src, reading it from fsys on first use.
// Concurrent first loads of the same file share one read.
func (c *FontCache) Load(fsys fs.FS, src FontSource) (*FontFace, error) {
	c.mu.RLock()
	face, ok := c.faces[src.File]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return face, nil
	}

	v, err, _ := c.group.Do(src.File, func() (any, error) {
		// Another caller may have finished loading between the read lock and here.
		c.mu.RLock()
		face, ok := c.faces[src.File]
		c.mu.RUnlock()
		if ok {
			return face, nil
		}

		c.misses.Add(1)
		face, err := readFontFace(fsys, src)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.faces[src.File] = face
		c.mu.Unlock()
		return face, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*FontFace), nil
}

// Stats returns a snapshot of cache counters.
func (c *FontCache) Stats() FontCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := FontCacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: len(c.faces),
	}
	for _, f := range c.faces {
		stats.Bytes += int64(len(f.Data))
	}
	return stats
}

// readFontFace reads and classifies a font file.
func readFontFace(fsys fs.FS, src FontSource) (*FontFace, error) {
	if fsys == nil {
		return nil, fmt.Errorf("%w: %q: no font filesystem", ErrFontLoad, src.File)
	}
	mime, format, ok := fontType(src.File)
	if !ok {
		return nil, fmt.Errorf("%w: %q: unsupported font type", ErrFontLoad, src.File)
	}

	data, err := fs.ReadFile(fsys, src.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontLoad, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %q is empty", ErrFontLoad, src.File)
	}

	return &FontFace{
		Family: src.Family,
		File:   src.File,
		MIME:   mime,
		Format: format,
		Data:   data,
	}, nil
}

// fontType maps a font file extension to its MIME type and CSS format hint.
func fontType(file string) (mime, format string, ok bool) {
	switch strings.ToLower(path.Ext(file)) {
	case ".ttf":
		return "font/ttf", "truetype", true
	case ".otf":
		return "font/otf", "opentype", true
	case ".woff":
		return "font/woff", "woff", true
	case ".woff2":
		return "font/woff2", "woff2", true
	default:
		return "", "", false
	}
}
