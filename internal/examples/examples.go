package examples

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"unicode/utf8"

	"go.uber.org/zap"
)

//go:embed samples/*.htm
var bundled embed.FS

const (
	sampleDir = "samples"
	extension = ".htm"
)

// DefaultFile is the example shown when the picker has no selection.
const DefaultFile = "hello-world.htm"

// Names lists the bundled example ids in picker order.
var Names = []string{
	"hello-world",
	"bidi-arabic",
	"cjk",
	"fonts",
	"page-setup",
	"broken-css",
	"external-resources",
	"scripts",
}

// Filename returns the store key for an example id.
func Filename(id string) string {
	return id + extension
}

// Store maps example filenames to their content.
// It is filled once by Load and only read afterwards.
type Store struct {
	docs map[string]string
}

// Load reads samples/<id>.htm from fsys for every id. Ids that fail
// validation, cannot be read, or are not UTF-8 are logged and skipped.
func Load(fsys fs.FS, names []string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{docs: make(map[string]string, len(names))}
	for _, id := range names {
		content, err := readExample(fsys, id)
		if err != nil {
			logger.Warn("skipping example",
				zap.String("id", id),
				zap.Error(err),
			)
			continue
		}
		s.docs[Filename(id)] = content
	}

	logger.Debug("examples loaded",
		zap.Int("loaded", len(s.docs)),
		zap.Int("requested", len(names)),
	)
	return s
}

// LoadBundled loads Names from the embedded samples.
func LoadBundled(logger *zap.Logger) *Store {
	return Load(bundled, Names, logger)
}

// LoadWithDir loads Names with files in dir taking precedence over the
// embedded samples. An empty dir is the same as LoadBundled.
func LoadWithDir(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return LoadBundled(logger), nil
	}
	custom, err := NewDirFS(dir)
	if err != nil {
		return nil, err
	}
	return Load(NewOverlay(custom, bundled), Names, logger), nil
}

func readExample(fsys fs.FS, id string) (string, error) {
	if err := ValidateName(id); err != nil {
		return "", err
	}

	data, err := fs.ReadFile(fsys, path.Join(sampleDir, Filename(id)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExampleRead, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrExampleRead, Filename(id))
	}
	return string(data), nil
}

// Get returns the content stored under filename.
func (s *Store) Get(filename string) (string, bool) {
	content, ok := s.docs[filename]
	return content, ok
}

// Filenames returns every stored filename in sorted order.
func (s *Store) Filenames() []string {
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of stored examples.
func (s *Store) Len() int {
	return len(s.docs)
}
