// File: internal/pacing/settings_test.go
package pacing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cadence/internal/config"
)

// envFromMap builds an EnvProvider whose lookups hit a plain map instead of
// the process environment.
func envFromMap(vars map[string]string) *EnvProvider {
	return &EnvProvider{
		Lookup: func(key string) (string, bool) {
			value, ok := vars[key]
			return value, ok
		},
	}
}

func TestEnvProviderSnapshot(t *testing.T) {
	t.Run("should default every category when nothing is set", func(t *testing.T) {
		snapshot := envFromMap(nil).Snapshot()

		require.Len(t, snapshot, len(Categories))
		for _, category := range Categories {
			delays := snapshot[category]
			assert.False(t, delays.EnableRandom)
			assert.Equal(t, defaultMinutes, delays.DelayMinutes)
			assert.Equal(t, defaultMinutes, delays.MinDelayMinutes)
			assert.Equal(t, defaultMinutes, delays.MaxDelayMinutes)
		}
	})

	t.Run("should pass through set values without validation", func(t *testing.T) {
		snapshot := envFromMap(map[string]string{
			"STEP_ENABLE_RANDOM_INTERVAL": "TRUE",
			"STEP_MIN_DELAY_MINUTES":      "0.01",
			"STEP_MAX_DELAY_MINUTES":      "not-a-number",
			"ACTION_DELAY_MINUTES":        "1.5",
		}).Snapshot()

		step := snapshot[CategoryStep]
		assert.True(t, step.EnableRandom)
		assert.Equal(t, "0.01", step.MinDelayMinutes)
		// Malformed values survive the snapshot; parsing happens at apply
		// time.
		assert.Equal(t, "not-a-number", step.MaxDelayMinutes)

		assert.Equal(t, "1.5", snapshot[CategoryAction].DelayMinutes)
		assert.False(t, snapshot[CategoryAction].EnableRandom)
	})

	t.Run("should treat empty strings as unset", func(t *testing.T) {
		snapshot := envFromMap(map[string]string{
			"TASK_DELAY_MINUTES": "",
		}).Snapshot()

		assert.Equal(t, defaultMinutes, snapshot[CategoryTask].DelayMinutes)
	})
}

func TestStaticProviderSnapshot(t *testing.T) {
	t.Run("should normalize empty numeric fields", func(t *testing.T) {
		provider := StaticProvider{
			CategoryStep: {EnableRandom: true},
		}
		snapshot := provider.Snapshot()

		step := snapshot[CategoryStep]
		assert.True(t, step.EnableRandom)
		assert.Equal(t, defaultMinutes, step.DelayMinutes)
		assert.Equal(t, defaultMinutes, step.MinDelayMinutes)
		assert.Equal(t, defaultMinutes, step.MaxDelayMinutes)
	})

	t.Run("should hand out an independent copy", func(t *testing.T) {
		provider := StaticProvider{
			CategoryStep: {DelayMinutes: "1.0"},
		}
		snapshot := provider.Snapshot()
		snapshot[CategoryStep] = config.DelayConfig{DelayMinutes: "9.9"}

		assert.Equal(t, "1.0", provider[CategoryStep].DelayMinutes)
	})
}

func TestFromConfig(t *testing.T) {
	provider := FromConfig(config.PacingConfig{
		Step:   config.DelayConfig{DelayMinutes: "0.5"},
		Action: config.DelayConfig{EnableRandom: true, MinDelayMinutes: "0.1", MaxDelayMinutes: "0.2"},
		Task:   config.DelayConfig{DelayMinutes: "2.0"},
	})
	snapshot := provider.Snapshot()

	assert.Equal(t, "0.5", snapshot[CategoryStep].DelayMinutes)
	assert.True(t, snapshot[CategoryAction].EnableRandom)
	assert.Equal(t, "0.2", snapshot[CategoryAction].MaxDelayMinutes)
	assert.Equal(t, "2.0", snapshot[CategoryTask].DelayMinutes)
}

func TestSettingsCaching(t *testing.T) {
	t.Run("should serve the cached snapshot until Reload", func(t *testing.T) {
		vars := map[string]string{"STEP_DELAY_MINUTES": "1.0"}
		settings := NewSettings(envFromMap(vars), zap.NewNop())

		delays, ok := settings.Get(CategoryStep)
		require.True(t, ok)
		assert.Equal(t, "1.0", delays.DelayMinutes)

		// A source change is invisible until the cache is invalidated.
		vars["STEP_DELAY_MINUTES"] = "5.0"
		delays, _ = settings.Get(CategoryStep)
		assert.Equal(t, "1.0", delays.DelayMinutes)

		settings.Reload()
		delays, _ = settings.Get(CategoryStep)
		assert.Equal(t, "5.0", delays.DelayMinutes)
	})

	t.Run("should report unknown categories", func(t *testing.T) {
		settings := NewSettings(StaticProvider{CategoryStep: {}}, zap.NewNop())

		_, ok := settings.Get(CategoryAction)
		assert.False(t, ok)
	})
}
