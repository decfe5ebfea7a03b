package cache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, cfg Config) *Cache[string] {
	t.Helper()

	c, err := New[string](cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	if err := c.Set("greeting", "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := c.Get("greeting")
	if !ok {
		t.Fatal("Get: key missing")
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}

	if err := c.Set("greeting", "hi"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, _ := c.Get("greeting"); got != "hi" {
		t.Errorf("after overwrite got %q, want %q", got, "hi")
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get returned ok for a missing key")
	}
}

func TestExpiry(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	if err := c.Set("short", "lived", 20*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.Get("short"); !ok {
		t.Fatal("entry expired too early")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("entry still readable after its TTL")
	}
}

func TestDefaultTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultTTL = 20 * time.Millisecond
	c := newTestCache(t, cfg)

	if err := c.Set("ephemeral", "x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("pinned", "y", 0); err != nil {
		t.Fatalf("Set with zero TTL: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("ephemeral"); ok {
		t.Error("entry outlived the default TTL")
	}
	if _, ok := c.Get("pinned"); !ok {
		t.Error("zero TTL entry expired")
	}
}

func TestGetOrSet(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	got, loaded, err := c.GetOrSet("k", "first")
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}
	if loaded || got != "first" {
		t.Errorf("got %q loaded=%v, want %q loaded=false", got, loaded, "first")
	}

	got, loaded, err = c.GetOrSet("k", "second")
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}
	if !loaded || got != "first" {
		t.Errorf("got %q loaded=%v, want %q loaded=true", got, loaded, "first")
	}
}

func TestEdit(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	if err := c.Set("counter", "a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Edit("counter", func(v string) string { return v + "b" }); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got, _ := c.Get("counter"); got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}

	err := c.Edit("missing", func(v string) string { return v })
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Edit on missing key: got %v, want ErrKeyNotFound", err)
	}
}

func TestEditExpired(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	if err := c.Set("short", "x", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	err := c.Edit("short", func(v string) string { return v })
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Edit on expired key: got %v, want ErrKeyNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("key readable after Delete")
	}

	if err := c.Delete("never-existed"); err != nil {
		t.Errorf("Delete on missing key: %v", err)
	}
}

func TestLenAndKeys(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(k, "v"); err != nil {
			t.Fatalf("Set %q: %v", k, err)
		}
	}

	if got := c.Len(); got != 3 {
		t.Errorf("Len: got %d, want 3", got)
	}

	keys := c.Keys()
	if len(keys) != 3 {
		t.Fatalf("Keys: got %d entries, want 3", len(keys))
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		seen[k] = true
	}
	for _, k := range []string{"a", "b", "c"} {
		if !seen[k] {
			t.Errorf("Keys missing %q", k)
		}
	}
}

func TestRemoveExpired(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	if err := c.Set("stale", "x", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("fresh", "y"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	c.removeExpired()

	if got := c.Len(); got != 1 {
		t.Errorf("Len after cleanup: got %d, want 1", got)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("cleanup removed a live entry")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "cache.bin")

	cfg := DefaultConfig()
	cfg.File = file

	c, err := New[string](cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set("persisted", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded := newTestCache(t, cfg)
	got, ok := reloaded.Get("persisted")
	if !ok {
		t.Fatal("entry lost across restart")
	}
	if got != "value" {
		t.Errorf("got %q, want %q", got, "value")
	}
}

func TestPersistenceSkipsExpired(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cache.bin")

	cfg := DefaultConfig()
	cfg.File = file

	c, err := New[string](cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set("short", "x", time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	reloaded := newTestCache(t, cfg)
	if _, ok := reloaded.Get("short"); ok {
		t.Error("expired entry readable after restart")
	}
}

func TestFlushOnWrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cache.bin")

	cfg := DefaultConfig()
	cfg.File = file
	cfg.FlushOnWrite = true
	c := newTestCache(t, cfg)

	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := os.Stat(file); err != nil {
		t.Fatalf("cache file not written after Set: %v", err)
	}
	if _, err := os.Stat(file + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind after flush")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cache.bin")
	if err := os.WriteFile(file, []byte("not msgpack"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	cfg := DefaultConfig()
	cfg.File = file
	if _, err := New[string](cfg); err == nil {
		t.Fatal("New succeeded on a corrupt cache file")
	}
}

func TestCloseIdempotent(t *testing.T) {
	c, err := New[string](DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero intervals filled", Config{}, false},
		{"negative ttl", Config{DefaultTTL: -time.Second}, true},
		{"negative interval", Config{CleanupInterval: -time.Second}, true},
		{"nats url without bucket", Config{NATSURL: "nats://localhost:4222"}, true},
		{"nats bucket without url", Config{NATSBucket: "shared"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
			if err == nil && tt.cfg.CleanupInterval == 0 {
				t.Error("Validate left CleanupInterval at zero")
			}
		})
	}
}

func TestStructValues(t *testing.T) {
	type session struct {
		User  string `msgpack:"user"`
		Count int    `msgpack:"count"`
	}

	file := filepath.Join(t.TempDir(), "sessions.bin")
	cfg := DefaultConfig()
	cfg.File = file

	c, err := New[session](cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Set("s1", session{User: "ada", Count: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Edit("s1", func(s session) session {
		s.Count++
		return s
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded, err := New[session](cfg)
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	defer reloaded.Close()

	got, ok := reloaded.Get("s1")
	if !ok {
		t.Fatal("session lost across restart")
	}
	if got.User != "ada" || got.Count != 3 {
		t.Errorf("got %+v, want {User:ada Count:3}", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(t, DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				if err := c.Set(key, "v"); err != nil {
					t.Errorf("Set: %v", err)
					return
				}
				c.Get(key)
				c.Keys()
			}
		}(i)
	}
	wg.Wait()

	if got := c.Len(); got != 8 {
		t.Errorf("Len: got %d, want 8", got)
	}
}
