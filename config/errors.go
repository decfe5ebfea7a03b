package config

import (
	"fmt"
)

// DirError reports that the config directory itself could not be
// resolved or read.
type DirError struct {
	Path string // Directory that was requested
	Err  error  // Underlying error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("config: reading directory %s: %v", e.Path, e.Err)
}

func (e *DirError) Unwrap() error {
	return e.Err
}

// LoadError reports that a single config document could not be read or
// decoded. Path names the failing file; the whole load is aborted and
// nothing is cached.
type LoadError struct {
	Path string // File that failed
	Err  error  // Underlying error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
