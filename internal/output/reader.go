package output

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Reader parses one on-disk output format into a TimeSeries.
type Reader interface {
	// Extensions lists the lowercase file suffixes the reader handles,
	// with the leading dot.
	Extensions() []string
	Read(fs afero.Fs, path string) (*TimeSeries, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Reader{}
)

// RegisterReader installs a reader for its extensions. Later
// registrations win, so callers can override the built-in formats.
func RegisterReader(r Reader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range r.Extensions() {
		registry[strings.ToLower(ext)] = r
	}
}

// ReaderFor picks the reader registered for a path's extension.
func ReaderFor(path string) (Reader, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[strings.ToLower(filepath.Ext(path))]
	return r, ok
}

// SupportedExtensions lists the registered extensions, sorted.
func SupportedExtensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ReadFile parses an output file with whichever reader matches its
// extension.
func ReadFile(fs afero.Fs, path string) (*TimeSeries, error) {
	r, ok := ReaderFor(path)
	if !ok {
		return nil, fmt.Errorf("no reader for %s (supported: %s)", path, strings.Join(SupportedExtensions(), ", "))
	}
	ts, err := r.Read(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ts, nil
}

func init() {
	RegisterReader(textReader{})
	RegisterReader(binaryReader{})
}
