// File: internal/config/config_test.go
package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/cadence/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := config.NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "cadence", cfg.Logger.ServiceName)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1, cfg.Browser.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavigationTimeout)

	assert.Equal(t, 100, cfg.Agent.MaxSteps)
	assert.Equal(t, 3, cfg.Agent.MaxFailures)
	assert.False(t, cfg.Agent.ValidateOutput)
	assert.Equal(t, "agent_history.gif", cfg.Agent.GIFPath)

	for _, delays := range []config.DelayConfig{cfg.Pacing.Step, cfg.Pacing.Action, cfg.Pacing.Task} {
		assert.False(t, delays.EnableRandom)
		assert.Equal(t, "0.0", delays.DelayMinutes)
		assert.Equal(t, "0.0", delays.MinDelayMinutes)
		assert.Equal(t, "0.0", delays.MaxDelayMinutes)
	}
	assert.Zero(t, cfg.Pacing.StepsPerMinute)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:    "should reject a non-positive step budget",
			mutate:  func(cfg *config.Config) { cfg.Agent.MaxSteps = 0 },
			wantErr: "agent.max_steps",
		},
		{
			name:    "should reject a non-positive failure threshold",
			mutate:  func(cfg *config.Config) { cfg.Agent.MaxFailures = -1 },
			wantErr: "agent.max_failures",
		},
		{
			name:    "should reject a non-positive browser concurrency",
			mutate:  func(cfg *config.Config) { cfg.Browser.Concurrency = 0 },
			wantErr: "browser.concurrency",
		},
		{
			name:    "should reject a negative step rate",
			mutate:  func(cfg *config.Config) { cfg.Pacing.StepsPerMinute = -1 },
			wantErr: "pacing.steps_per_minute",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestFromViper(t *testing.T) {
	t.Run("should pick up the flat pacing environment variables", func(t *testing.T) {
		t.Setenv("STEP_DELAY_MINUTES", "2.5")
		t.Setenv("ACTION_ENABLE_RANDOM_INTERVAL", "true")
		t.Setenv("ACTION_MIN_DELAY_MINUTES", "0.1")
		t.Setenv("ACTION_MAX_DELAY_MINUTES", "0.3")

		v := viper.New()
		config.SetDefaults(v)
		cfg, err := config.FromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "2.5", cfg.Pacing.Step.DelayMinutes)
		assert.True(t, cfg.Pacing.Action.EnableRandom)
		assert.Equal(t, "0.1", cfg.Pacing.Action.MinDelayMinutes)
		assert.Equal(t, "0.3", cfg.Pacing.Action.MaxDelayMinutes)
	})

	t.Run("should keep malformed delay values for apply-time handling", func(t *testing.T) {
		t.Setenv("TASK_DELAY_MINUTES", "soon")

		v := viper.New()
		config.SetDefaults(v)
		cfg, err := config.FromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "soon", cfg.Pacing.Task.DelayMinutes)
	})

	t.Run("should reject invalid values from the config source", func(t *testing.T) {
		v := viper.New()
		config.SetDefaults(v)
		v.Set("agent.max_steps", 0)

		_, err := config.FromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestSkipAPIKeyVerification(t *testing.T) {
	testCases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"t", true},
		{"yes", true},
		{"Y", true},
		{"1", true},
		{"false", false},
		{"no", false},
		{"0", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run("value "+tc.value, func(t *testing.T) {
			t.Setenv("SKIP_LLM_API_KEY_VERIFICATION", tc.value)
			assert.Equal(t, tc.want, config.SkipAPIKeyVerification())
		})
	}
}
