// Package module implements the loader cache a Global_Context owns: a
// deduplicating, path-keyed cache of already-loaded script modules. Parsing
// and executing the module body is the job of the (out of scope) parser and
// AVMC engine; this package only owns the part of module loading that is
// part of the value/runtime layer -- path resolution, de-duplication by
// canonical path, and the cached result object each `import` expression
// reuses on a second request for the same file.
package module

import (
	"path/filepath"
	"strings"
	"sync"

	modcheck "golang.org/x/mod/module"

	"asteria/internal/errors"
	"asteria/internal/value"
)

// Loader caches one *value.Object (the module's exports) per resolved path.
// Two imports of the same file, however named in source, share one entry.
type Loader struct {
	mu         sync.Mutex
	searchPath []string
	cache      map[string]*value.Object
	pending    map[string]bool
}

// New creates a loader with the given module search path, searched in order
// when a request is not already an absolute or relative path that exists.
func New(searchPath []string) *Loader {
	return &Loader{
		searchPath: append([]string(nil), searchPath...),
		cache:      make(map[string]*value.Object),
		pending:    make(map[string]bool),
	}
}

// AddSearchPath appends a directory to the search path.
func (l *Loader) AddSearchPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.searchPath = append(l.searchPath, path)
}

// SearchPath returns a copy of the current search path.
func (l *Loader) SearchPath() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.searchPath...)
}

// isPackageStyleName reports whether name looks like a Go-style import path
// (slash-separated, no filesystem markers) rather than a relative or
// absolute file path; only those names are run through CheckImportPath.
func isPackageStyleName(name string) bool {
	if name == "" || filepath.IsAbs(name) {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "..") {
		return false
	}
	return strings.Contains(name, "/")
}

// Resolve locates the file a require/import of name refers to, trying name
// itself (if absolute or relative-and-existing) before each search path
// entry joined with name. Package-style names (e.g. "vendor/acme/util",
// as opposed to "./util" or "/abs/util") are additionally validated with
// golang.org/x/mod/module.CheckImportPath, rejecting the same malformed
// paths (empty segments, reserved characters, "." or ".." components) a Go
// toolchain would refuse to resolve.
func (l *Loader) Resolve(name string, exists func(string) bool) (string, error) {
	if isPackageStyleName(name) {
		if err := modcheck.CheckImportPath(name); err != nil {
			return "", errors.New(errors.IOError, "invalid module path %q: %v", name, err)
		}
	}
	if filepath.IsAbs(name) && exists(name) {
		return filepath.Clean(name), nil
	}
	if exists(name) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", errors.New(errors.IOError, "cannot resolve module path %q: %v", name, err)
		}
		return abs, nil
	}
	for _, dir := range l.SearchPath() {
		candidate := filepath.Join(dir, name)
		if exists(candidate) {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", errors.New(errors.IOError, "cannot resolve module path %q: %v", candidate, err)
			}
			return abs, nil
		}
	}
	return "", errors.New(errors.IOError, "module not found: %s", name)
}

// Lookup returns the cached export object for an already-loaded path.
func (l *Loader) Lookup(resolvedPath string) (*value.Object, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	obj, ok := l.cache[resolvedPath]
	return obj, ok
}

// BeginLoad marks resolvedPath as in progress, detecting circular imports.
// It returns an error if the path is already being loaded on this call
// stack.
func (l *Loader) BeginLoad(resolvedPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending[resolvedPath] {
		return errors.New(errors.IOError, "circular import detected: %s", resolvedPath)
	}
	l.pending[resolvedPath] = true
	return nil
}

// FinishLoad stores the loaded module's exports and clears the in-progress
// marker, regardless of whether loading succeeded.
func (l *Loader) FinishLoad(resolvedPath string, exports *value.Object) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, resolvedPath)
	if exports != nil {
		l.cache[resolvedPath] = exports
	}
}

// Clear empties the cache, forcing every subsequent import to reload.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*value.Object)
}
