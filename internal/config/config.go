// Package config loads KellerStore's database options from a YAML
// document, via gopkg.in/yaml.v3 — the teacher's cmd/repl already pulls
// in this library for its "-format yaml" result rendering; here it does
// the more conventional job of a config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kellerstore/kellerstore/internal/pager"
)

// DefaultPageSize and DefaultCacheCapacity mirror the pager package's own
// zero-value defaults, so a zero-value Options round-trips to the same
// behavior as passing pager.Options{} directly.
const (
	DefaultPageSize      = pager.DefaultPageSize
	DefaultCacheCapacity = 0 // unbounded, matches pager.newCache(0)
	DefaultLogLevel      = "info"
)

// Options is the on-disk shape of a KellerStore config file.
type Options struct {
	PageSize      int    `yaml:"page_size"`
	CacheCapacity int    `yaml:"cache_capacity"`
	DataPath      string `yaml:"data_path"`
	LogLevel      string `yaml:"log_level"`
	LogPretty     bool   `yaml:"log_pretty"`
}

// Defaults returns the compiled-in option set used when no config file is
// present, or when a loaded file leaves fields unset.
func Defaults() Options {
	return Options{
		PageSize:      DefaultPageSize,
		CacheCapacity: DefaultCacheCapacity,
		DataPath:      "kellerdb.db",
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads and parses a YAML config file at path, filling any zero
// field from Defaults(). A missing file is not an error — callers get
// the compiled-in defaults, matching spec.md's "a zero-value Options{}
// falls back to compiled-in defaults" behavior.
func Load(path string) (Options, error) {
	opts := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return opts, nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var loaded Options
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return merge(opts, loaded), nil
}

// merge overlays any non-zero field of override onto base.
func merge(base, override Options) Options {
	if override.PageSize != 0 {
		base.PageSize = override.PageSize
	}
	if override.CacheCapacity != 0 {
		base.CacheCapacity = override.CacheCapacity
	}
	if override.DataPath != "" {
		base.DataPath = override.DataPath
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if override.LogPretty {
		base.LogPretty = true
	}
	return base
}

// PagerOptions projects the subset of Options the pager package
// understands.
func (o Options) PagerOptions() pager.Options {
	return pager.Options{PageSize: o.PageSize, CacheCapacity: o.CacheCapacity}
}

// Save writes opts back out as YAML in the form Load reads.
func Save(path string, opts Options) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
