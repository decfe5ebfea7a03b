package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Flush writes the current entries to the configured file. It is a
// no-op when persistence is disabled.
func (c *Cache[T]) Flush() error {
	if c.cfg.File == "" {
		return nil
	}

	c.mu.RLock()
	snapshot := make(map[string]Item[T], len(c.items))
	for k, item := range c.items {
		snapshot[k] = item
	}
	c.mu.RUnlock()

	return c.writeFile(snapshot)
}

// writeSnapshotLocked copies the entries for an immediate flush. The
// caller must hold mu. It returns nil when no flush is due, so the
// copy is only paid for when FlushOnWrite is set.
func (c *Cache[T]) writeSnapshotLocked() map[string]Item[T] {
	if !c.cfg.FlushOnWrite || c.cfg.File == "" {
		return nil
	}
	snapshot := make(map[string]Item[T], len(c.items))
	for k, item := range c.items {
		snapshot[k] = item
	}
	return snapshot
}

func (c *Cache[T]) writeSnapshot(snapshot map[string]Item[T]) error {
	if snapshot == nil {
		return nil
	}
	return c.writeFile(snapshot)
}

// writeFile persists items via a temporary file and an atomic rename,
// so a crash mid-write never leaves a truncated cache file behind.
func (c *Cache[T]) writeFile(items map[string]Item[T]) error {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	data, err := msgpack.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(c.cfg.File)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp := c.cfg.File + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, c.cfg.File); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// loadFile restores entries from the configured file. A missing or
// empty file is not an error; a corrupt one is.
func (c *Cache[T]) loadFile() error {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	data, err := os.ReadFile(c.cfg.File)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items map[string]Item[T]
	if err := msgpack.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decoding cache file: %w", err)
	}
	if items == nil {
		return nil
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}
