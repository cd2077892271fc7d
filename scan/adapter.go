package scan

import (
	"fmt"
	"sort"
	"sync"
)

// Adapter extracts imports and top-level symbols for one language.
// Implementations must be safe for concurrent ParseFile calls.
type Adapter interface {
	// Language returns a short lowercase identifier ("go", "python", ...).
	Language() string

	// Extensions returns the file extensions this adapter handles,
	// including the leading dot. The first is the canonical one.
	Extensions() []string

	// ParseFile extracts a File descriptor from raw source bytes. The path
	// is relative to the scan root and is recorded on the result verbatim.
	// A syntax error returns a non-nil error; the scanner downgrades it to
	// an extraction warning.
	ParseFile(path string, content []byte) (*File, error)

	// NormalizeImport converts a raw import string into a candidate
	// slash-separated project-relative path, given the directory of the
	// importing file. An empty return means the import cannot refer to a
	// project path and is external by construction.
	NormalizeImport(fromDir, raw string) string
}

// Registry maps file extensions to language adapters. Adapters register
// themselves via init(); first registration wins on extension conflicts.
// Thread-safe for concurrent access.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter // language → adapter
	extMap   map[string]string  // extension → language
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		extMap:   make(map[string]string),
	}
}

// Register adds an adapter under its language name and extensions.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Language()] = a
	for _, ext := range a.Extensions() {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = a.Language()
		}
	}
}

// ForExtension returns the adapter handling a file extension.
func (r *Registry) ForExtension(ext string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lang, ok := r.extMap[ext]
	if !ok {
		return nil, false
	}
	a, ok := r.adapters[lang]
	return a, ok
}

// ForLanguage returns the adapter registered under a language name.
func (r *Registry) ForLanguage(lang string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[lang]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for language %q", lang)
	}
	return a, nil
}

// Languages returns all registered language names, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extensions returns all registered file extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extMap))
	for ext := range r.extMap {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry is the global adapter registry. Language adapters
// register themselves via init() functions.
var DefaultRegistry = NewRegistry()
