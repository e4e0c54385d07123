// Package config loads bbg.toml, the optional per-project configuration of
// the bbg tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bbgraph/internal/blockgraph"
	"bbgraph/internal/trace"
	"bbgraph/internal/unit"
)

// FileName is the configuration file searched for by Find.
const FileName = "bbg.toml"

// Config mirrors bbg.toml.
type Config struct {
	Graph   GraphConfig   `toml:"graph"`
	Leaders LeadersConfig `toml:"leaders"`
	Run     RunConfig     `toml:"run"`
	Trace   TraceConfig   `toml:"trace"`
	Output  OutputConfig  `toml:"output"`
	Cache   CacheConfig   `toml:"cache"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type GraphConfig struct {
	Kind string `toml:"kind"` // brief|exceptional
}

type LeadersConfig struct {
	Policy string `toml:"policy"` // bigblock|classic
}

type RunConfig struct {
	Jobs int `toml:"jobs"` // 0 = GOMAXPROCS
}

type TraceConfig struct {
	Level    string `toml:"level"`
	Mode     string `toml:"mode"`
	Output   string `toml:"output"`
	RingSize int    `toml:"ring_size"`
}

type OutputConfig struct {
	Color string `toml:"color"` // auto|on|off
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // empty = $XDG_CACHE_HOME/bbg
}

// Default returns the configuration used when no bbg.toml exists.
func Default() Config {
	return Config{
		Graph:   GraphConfig{Kind: unit.GraphBrief.String()},
		Leaders: LeadersConfig{Policy: blockgraph.PolicyBigBlock.String()},
		Trace:   TraceConfig{Level: trace.LevelOff.String(), Mode: trace.ModeStream.String(), Output: "-"},
		Output:  OutputConfig{Color: "auto"},
	}
}

// Find walks from startDir towards the filesystem root looking for bbg.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path on top of the defaults and validates the result.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest bbg.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every enumerated value.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.GraphKind(); err != nil {
		errs = append(errs, fmt.Errorf("[graph].kind: %w", err))
	}
	if _, err := c.LeaderPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("[leaders].policy: %w", err))
	}
	if c.Run.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[run].jobs: must not be negative, got %d", c.Run.Jobs))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	switch strings.ToLower(c.Output.Color) {
	case "", "auto", "on", "off":
	default:
		errs = append(errs, fmt.Errorf("[output].color: invalid value %q (expected: auto|on|off)", c.Output.Color))
	}
	return errors.Join(errs...)
}

// GraphKind returns the configured unit graph kind.
func (c Config) GraphKind() (unit.GraphKind, error) {
	return unit.ParseGraphKind(c.Graph.Kind)
}

// LeaderPolicy returns the configured leader policy.
func (c Config) LeaderPolicy() (blockgraph.Policy, error) {
	return blockgraph.ParsePolicy(c.Leaders.Policy)
}
