// Package bootcfg holds the handful of knobs the init sequence needs
// before it can wire the scheduler, pool, and processor together: how
// many kernel test threads to admit, the round-robin quantum, and the
// timer's tick period. Real firmware has no concept of a config file;
// this exists purely so the hosted simulator's demo boot doesn't need to
// be recompiled to explore different thread counts or quanta.
package bootcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the boot-time knobs: the round-robin quantum (max_time),
// the timer's TIMEBASE cycle count, and the number of kernel test
// threads admitted at boot.
type Config struct {
	Threads        int    `yaml:"threads"`
	MaxTimeTicks   uint64 `yaml:"max_time_ticks"`
	TimebaseCycles uint64 `yaml:"timebase_cycles"`
	PoolCapacity   int    `yaml:"pool_capacity"`
}

// Default returns the stock boot defaults: max_time=2, TIMEBASE=100000,
// five demo threads, room for more than that in the pool.
func Default() Config {
	return Config{
		Threads:        5,
		MaxTimeTicks:   2,
		TimebaseCycles: 100_000,
		PoolCapacity:   16,
	}
}

// Load reads a YAML boot configuration from path, filling in any zero
// field from Default(). An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("bootcfg: read %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Config{}, fmt.Errorf("bootcfg: parse %s: %w", path, err)
	}

	if loaded.Threads > 0 {
		cfg.Threads = loaded.Threads
	}
	if loaded.MaxTimeTicks > 0 {
		cfg.MaxTimeTicks = loaded.MaxTimeTicks
	}
	if loaded.TimebaseCycles > 0 {
		cfg.TimebaseCycles = loaded.TimebaseCycles
	}
	if loaded.PoolCapacity > 0 {
		cfg.PoolCapacity = loaded.PoolCapacity
	}
	return cfg, nil
}
