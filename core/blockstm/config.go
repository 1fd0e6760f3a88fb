package blockstm

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config tunes a batch run without requiring a recompile.
type Config struct {
	// Workers is the number of worker pool goroutines driving the
	// scheduler loop. DefaultConfig sets it to 8; nothing in this package
	// substitutes a value when it is zero.
	Workers int `toml:"workers"`

	// BaseViewDecodedCacheSize is the entry count of the base view's
	// object cache.
	BaseViewDecodedCacheSize int `toml:"base_view_decoded_cache_size"`

	// BaseViewByteCacheBytes is the byte capacity of the base view's raw
	// read cache.
	BaseViewByteCacheBytes int `toml:"base_view_byte_cache_bytes"`

	Aggregator AggregatorConfig `toml:"aggregator"`
}

// AggregatorConfig tunes the proof aggregator.
type AggregatorConfig struct {
	TickEvery time.Duration `toml:"tick_every"`
	Timeout   time.Duration `toml:"timeout"`
}

// DefaultConfig returns sane defaults, including a 100ms aggregator tick.
func DefaultConfig() Config {
	return Config{
		Workers:                  8,
		BaseViewDecodedCacheSize: 4096,
		BaseViewByteCacheBytes:   32 * 1024 * 1024,
		Aggregator: AggregatorConfig{
			TickEvery: 100 * time.Millisecond,
			Timeout:   30 * time.Second,
		},
	}
}

// LoadConfig reads a TOML configuration file, starting from DefaultConfig
// so an omitted field keeps its default rather than zeroing out.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("blockstm: loading config from %q: %w", path, err)
	}

	return &cfg, nil
}
