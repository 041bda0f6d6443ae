package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[render]
formats = ["json", "dot"]
detailed = true

[cache]
backend = "none"

[serve]
addr = ":9000"
store = "mongo"

[play]
debounce = "250ms"
`)

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Render.Formats, []string{"json", "dot"}) || !cfg.Render.Detailed {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Cache.Backend != cacheNone {
		t.Errorf("cache backend = %q", cfg.Cache.Backend)
	}
	if cfg.Serve.Addr != ":9000" || cfg.Serve.Store != "mongo" {
		t.Errorf("serve = %+v", cfg.Serve)
	}
	if cfg.Play.Debounce.Duration != 250*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Play.Debounce)
	}
	// Unset values keep their defaults.
	if cfg.Serve.MongoDatabase != "exprtrail" || cfg.Render.Parallelism != 4 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := LoadConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit missing config should not fail: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}

	if _, err := LoadConfig(missing, true); err == nil {
		t.Error("explicit missing config should fail")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown key":  "[render]\ncolour = true\n",
		"bad format":   "[render]\nformats = [\"gif\"]\n",
		"bad duration": "[play]\ndebounce = \"soon\"\n",
		"not toml":     "[render\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content), true); err == nil {
				t.Error("LoadConfig() should fail")
			}
		})
	}
}

func TestLoadConfigDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, appName), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, appName, "config.toml"), []byte("[serve]\naddr = \":7000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("", false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Serve.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000", cfg.Serve.Addr)
	}
}
