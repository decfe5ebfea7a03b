package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DecodeFunc unmarshals one config document. It is called with the file
// contents and a *any target; json.Unmarshal and yaml.Unmarshal satisfy
// it directly.
type DecodeFunc func(data []byte, v any) error

// Loader aggregates config directories and memoizes the results, keyed by
// resolved absolute directory path. The zero value is not usable; create
// loaders with NewLoader.
type Loader struct {
	mu       sync.Mutex
	results  map[string]Result
	decoders map[string]DecodeFunc
	manifest string
	environ  func() []string
	log      zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithManifest sets the path of the project manifest seeded under "pkg".
// The default is package.json one level above the loaded directory.
func WithManifest(path string) Option {
	return func(l *Loader) {
		l.manifest = path
	}
}

// WithEnviron fixes the environment snapshot seeded under "env" instead
// of reading the process environment, mainly for tests. Entries use the
// "KEY=value" form of os.Environ.
func WithEnviron(environ []string) Option {
	return func(l *Loader) {
		l.environ = func() []string { return environ }
	}
}

// WithDecoder registers a decoder for a file extension, replacing any
// existing one. The extension match is case-insensitive and the leading
// dot is optional.
func WithDecoder(ext string, fn DecodeFunc) Option {
	return func(l *Loader) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.decoders[strings.ToLower(ext)] = fn
	}
}

// WithLogger sets the logger used for per-file debug lines. The default
// discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a Loader with JSON and YAML decoders registered.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		results: make(map[string]Result),
		decoders: map[string]DecodeFunc{
			".json": json.Unmarshal,
			".yaml": yaml.Unmarshal,
			".yml":  yaml.Unmarshal,
		},
		environ: os.Environ,
		log:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load aggregates the config directory dir into a Result. On the first
// call for a directory the result is built and cached; later calls return
// the cached value. Concurrent calls are serialized, so each directory is
// read exactly once no matter how many goroutines ask for it.
//
// A missing or unreadable directory returns a *DirError. A file that
// cannot be read or decoded aborts the whole load with a *LoadError
// naming the file, and nothing is cached, so a later call starts over.
func (l *Loader) Load(dir string) (Result, error) {
	key, err := filepath.Abs(dir)
	if err != nil {
		return nil, &DirError{Path: dir, Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if res, ok := l.results[key]; ok {
		return res, nil
	}

	res, err := l.load(key)
	if err != nil {
		return nil, err
	}

	l.results[key] = res
	return res, nil
}

// Invalidate drops the cached result for dir, forcing the next Load to
// re-read it.
func (l *Loader) Invalidate(dir string) {
	key, err := filepath.Abs(dir)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.results, key)
}

// Reset drops every cached result.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = make(map[string]Result)
}

func (l *Loader) load(dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &DirError{Path: dir, Err: err}
	}

	res := make(Result, len(entries)+2)

	manifest := l.manifest
	if manifest == "" {
		manifest = filepath.Join(dir, "..", "package.json")
	}
	pkg, err := l.decodeFile(manifest)
	if err != nil {
		return nil, err
	}
	res["pkg"] = pkg
	res["env"] = environMap(l.environ())

	// os.ReadDir returns entries sorted by filename, which fixes the
	// precedence when two files share a base name: the later one wins.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		if base == "" {
			continue
		}
		decode, ok := l.decoders[strings.ToLower(ext)]
		if !ok {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}

		var v any
		if err := decode(data, &v); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}

		res[base] = v
		l.log.Debug().Str("file", name).Str("key", base).Msg("loaded config file")
	}

	return res, nil
}

func (l *Loader) decodeFile(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	decode, ok := l.decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		decode = json.Unmarshal
	}

	var v any
	if err := decode(data, &v); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return v, nil
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
