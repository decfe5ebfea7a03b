// Package config aggregates a directory of configuration documents into a
// single keyed result. Every recognized file in the directory is decoded
// and stored under its base name, alongside two seeded entries: "pkg", the
// project manifest, and "env", a snapshot of the process environment.
//
// Results are memoized per resolved directory path, so repeated loads of
// the same directory are free and return the same shared Result. Failed
// loads are never cached; the next call retries from scratch.
//
// JSON and YAML documents are recognized out of the box. Further formats
// can be registered per loader with WithDecoder.
package config

import (
	"sync"
)

// Result is the aggregate produced by a load. The keys "pkg" and "env"
// are seeded before the directory is scanned; every other key is a config
// file's base name with the extension stripped. Files are applied in
// lexicographic filename order, so when two files share a base name the
// later one wins, and a file named "pkg" or "env" shadows the seeded
// entry.
//
// A Result returned from a loader is shared with every other caller that
// loads the same directory. Treat it as read-only.
type Result map[string]any

// Pkg returns the decoded project manifest, or nil if the manifest entry
// was shadowed or did not decode to an object.
func (r Result) Pkg() map[string]any {
	m, _ := r["pkg"].(map[string]any)
	return m
}

// Env returns the environment snapshot taken when the directory was
// loaded, or nil if the entry was shadowed.
func (r Result) Env() map[string]string {
	m, _ := r["env"].(map[string]string)
	return m
}

// Value returns the raw entry stored under name.
func (r Result) Value(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// Section returns the entry stored under name when it decoded to an
// object, which is the common shape for config documents.
func (r Result) Section(name string) (map[string]any, bool) {
	m, ok := r[name].(map[string]any)
	return m, ok
}

var (
	defaultMu     sync.Mutex
	defaultLoader *Loader
)

// Default returns the process-wide loader, creating it on first use.
func Default() *Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultLoader == nil {
		defaultLoader = NewLoader()
	}
	return defaultLoader
}

// Load aggregates dir using the process-wide loader. See Loader.Load.
func Load(dir string) (Result, error) {
	return Default().Load(dir)
}
