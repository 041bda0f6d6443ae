package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/exprtrail/pkg/pipeline"
)

// Config is the optional TOML configuration file. Command-line flags
// override every value.
//
//	[render]
//	formats = ["json", "svg"]
//	detailed = true
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[serve]
//	addr = ":9000"
//	store = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[play]
//	debounce = "250ms"
type Config struct {
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Serve  ServeConfig  `toml:"serve"`
	Play   PlayConfig   `toml:"play"`
}

// RenderConfig holds defaults for render, watch and serve output.
type RenderConfig struct {
	Formats     []string `toml:"formats"`
	Detailed    bool     `toml:"detailed"`
	Parallelism int      `toml:"parallelism"`
}

// CacheConfig selects the artifact cache.
type CacheConfig struct {
	Backend       string `toml:"backend"` // file, memory, redis or none
	Dir           string `toml:"dir"`
	Prefix        string `toml:"prefix"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// ServeConfig configures the HTTP host.
type ServeConfig struct {
	Addr          string `toml:"addr"`
	Store         string `toml:"store"` // memory or mongo
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	Metrics       bool   `toml:"metrics"`
}

// PlayConfig configures the interactive player.
type PlayConfig struct {
	Debounce duration `toml:"debounce"`
}

// duration decodes TOML strings such as "150ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			Formats:     []string{pipeline.FormatSVG},
			Parallelism: pipeline.DefaultParallelism,
		},
		Cache: CacheConfig{Backend: cacheFile, RedisAddr: "localhost:6379"},
		Serve: ServeConfig{Addr: ":8080", Store: "memory", MongoDatabase: "exprtrail", Metrics: true},
		Play:  PlayConfig{Debounce: duration{150 * time.Millisecond}},
	}
}

// LoadConfig reads path on top of the defaults. An empty path means the
// default location. A missing file is only an error when explicit is set.
func LoadConfig(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return DefaultConfig(), nil
	}
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := pipeline.ValidateFormats(cfg.Render.Formats); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
