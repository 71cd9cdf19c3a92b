// File: internal/pacing/settings.go
package pacing

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cadence/internal/config"
)

// Category identifies a pacing scope with independent delay configuration.
type Category string

const (
	CategoryStep   Category = "STEP"
	CategoryAction Category = "ACTION"
	CategoryTask   Category = "TASK"
)

// Categories lists every known pacing category.
var Categories = []Category{CategoryStep, CategoryAction, CategoryTask}

// defaultMinutes is substituted for unset or empty numeric settings.
const defaultMinutes = "0.0"

// Provider supplies a complete delay-settings snapshot. Snapshot is called
// once at construction and again on every Reload; it must return a map the
// caller may retain.
type Provider interface {
	Snapshot() map[Category]config.DelayConfig
}

// EnvProvider reads delay settings from environment variables of the form
// <CATEGORY>_DELAY_MINUTES, <CATEGORY>_MIN_DELAY_MINUTES,
// <CATEGORY>_MAX_DELAY_MINUTES and <CATEGORY>_ENABLE_RANDOM_INTERVAL.
// The lookup function is injectable for tests.
type EnvProvider struct {
	Lookup func(key string) (string, bool)
}

// NewEnvProvider returns an EnvProvider backed by the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{Lookup: os.LookupEnv}
}

// Snapshot reads all categories from the environment. Unset and empty values
// fall back to their defaults; no validation happens here, numeric strings
// are parsed at apply time.
func (p *EnvProvider) Snapshot() map[Category]config.DelayConfig {
	snapshot := make(map[Category]config.DelayConfig, len(Categories))
	for _, category := range Categories {
		prefix := string(category) + "_"
		enableRandom, _ := p.Lookup(prefix + "ENABLE_RANDOM_INTERVAL")
		snapshot[category] = config.DelayConfig{
			EnableRandom:    strings.EqualFold(enableRandom, "true"),
			DelayMinutes:    p.lookupOrDefault(prefix + "DELAY_MINUTES"),
			MinDelayMinutes: p.lookupOrDefault(prefix + "MIN_DELAY_MINUTES"),
			MaxDelayMinutes: p.lookupOrDefault(prefix + "MAX_DELAY_MINUTES"),
		}
	}
	return snapshot
}

func (p *EnvProvider) lookupOrDefault(key string) string {
	value, ok := p.Lookup(key)
	if !ok || value == "" {
		return defaultMinutes
	}
	return value
}

// StaticProvider serves a fixed settings map. It backs config-struct wiring
// and tests.
type StaticProvider map[Category]config.DelayConfig

// Snapshot returns a copy so later mutations of the provider do not leak into
// snapshots already handed out.
func (p StaticProvider) Snapshot() map[Category]config.DelayConfig {
	snapshot := make(map[Category]config.DelayConfig, len(p))
	for category, delays := range p {
		snapshot[category] = normalize(delays)
	}
	return snapshot
}

// FromConfig adapts the pacing section of the application configuration into
// a Provider.
func FromConfig(cfg config.PacingConfig) StaticProvider {
	return StaticProvider{
		CategoryStep:   cfg.Step,
		CategoryAction: cfg.Action,
		CategoryTask:   cfg.Task,
	}
}

// normalize substitutes defaults for empty numeric fields.
func normalize(delays config.DelayConfig) config.DelayConfig {
	if delays.DelayMinutes == "" {
		delays.DelayMinutes = defaultMinutes
	}
	if delays.MinDelayMinutes == "" {
		delays.MinDelayMinutes = defaultMinutes
	}
	if delays.MaxDelayMinutes == "" {
		delays.MaxDelayMinutes = defaultMinutes
	}
	return delays
}

// Settings caches a delay-settings snapshot for the lifetime of a controller.
// Reads never touch the underlying source; Reload swaps the snapshot
// wholesale, so an in-flight delay computation keeps seeing a consistent, if
// stale, view without any locking.
type Settings struct {
	provider Provider
	logger   *zap.Logger
	snapshot atomic.Pointer[map[Category]config.DelayConfig]
}

// NewSettings builds the cache and takes the initial snapshot.
func NewSettings(provider Provider, logger *zap.Logger) *Settings {
	s := &Settings{
		provider: provider,
		logger:   logger.Named("pacing"),
	}
	s.Reload()
	return s
}

// Reload invalidates the cached snapshot and replaces it atomically with a
// fresh read from the provider.
func (s *Settings) Reload() {
	snapshot := s.provider.Snapshot()
	s.snapshot.Store(&snapshot)
	s.logger.Debug("Delay settings cache refreshed", zap.Int("categories", len(snapshot)))
}

// Get returns the cached settings for a category.
func (s *Settings) Get(category Category) (config.DelayConfig, bool) {
	snapshot := s.snapshot.Load()
	if snapshot == nil {
		return config.DelayConfig{}, false
	}
	delays, ok := (*snapshot)[category]
	return delays, ok
}
