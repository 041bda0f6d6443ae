package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/exprtrail/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	// Verify the expected structure: $HOME/.cache/exprtrail
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "exprtrail")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(xdg, "exprtrail"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestConfigDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := configDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(xdg, "exprtrail"); dir != want {
		t.Errorf("configDir() = %q, want %q", dir, want)
	}
}

func TestCLICacheDirOverride(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	c.Config.Cache.Dir = "/tmp/elsewhere"

	dir, err := c.cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/elsewhere" {
		t.Errorf("cacheDir() = %q, want configured dir", dir)
	}
}

func TestNewCacheBackends(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	c.Config.Cache.Dir = t.TempDir()
	ctx := context.Background()

	ch, err := c.newCache(ctx, cacheNone)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(cache.NullCache); !ok {
		t.Errorf("none backend = %T, want cache.NullCache", ch)
	}

	ch, err = c.newCache(ctx, cacheMemory)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(*cache.MemoryCache); !ok {
		t.Errorf("memory backend = %T, want *cache.MemoryCache", ch)
	}

	ch, err = c.newCache(ctx, cacheFile)
	if err != nil {
		t.Fatal(err)
	}
	if fc, ok := ch.(*cache.FileCache); !ok || fc.Dir() != c.Config.Cache.Dir {
		t.Errorf("file backend = %T", ch)
	}

	if _, err := c.newCache(ctx, "memcached"); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestClearCacheDir(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := fc.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := clearCacheDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("cleared %d entries, want 3", n)
	}
	if _, ok, _ := fc.Get(ctx, "a"); ok {
		t.Error("entry survived clear")
	}

	n, err = clearCacheDir(filepath.Join(dir, "missing"))
	if err != nil || n != 0 {
		t.Errorf("clearCacheDir(missing) = %d, %v", n, err)
	}
}
