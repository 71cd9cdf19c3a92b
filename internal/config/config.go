// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Pacing  PacingConfig  `mapstructure:"pacing" yaml:"pacing"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser sessions.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// AgentConfig holds settings for the paced run controller.
type AgentConfig struct {
	MaxSteps        int    `mapstructure:"max_steps" yaml:"max_steps"`
	MaxFailures     int    `mapstructure:"max_failures" yaml:"max_failures"`
	ValidateOutput  bool   `mapstructure:"validate_output" yaml:"validate_output"`
	GenerateGIF     bool   `mapstructure:"generate_gif" yaml:"generate_gif"`
	GIFPath         string `mapstructure:"gif_path" yaml:"gif_path"`
	SaveScriptPath  string `mapstructure:"save_script_path" yaml:"save_script_path"`
	SaveHistoryPath string `mapstructure:"save_history_path" yaml:"save_history_path"`
	TaskFile        string `mapstructure:"task_file" yaml:"task_file"`
}

// DelayConfig describes the pacing behavior for a single delay category.
// The numeric fields are kept as raw strings; they are parsed when a delay is
// applied so a malformed value degrades to a warning instead of failing the
// run at load time.
type DelayConfig struct {
	EnableRandom    bool   `mapstructure:"enable_random_interval" yaml:"enable_random_interval"`
	DelayMinutes    string `mapstructure:"delay_minutes" yaml:"delay_minutes"`
	MinDelayMinutes string `mapstructure:"min_delay_minutes" yaml:"min_delay_minutes"`
	MaxDelayMinutes string `mapstructure:"max_delay_minutes" yaml:"max_delay_minutes"`
}

// PacingConfig groups the per-category delay settings and the optional
// step-rate ceiling.
type PacingConfig struct {
	Step   DelayConfig `mapstructure:"step" yaml:"step"`
	Action DelayConfig `mapstructure:"action" yaml:"action"`
	Task   DelayConfig `mapstructure:"task" yaml:"task"`
	// StepsPerMinute caps how many loop iterations may start per minute.
	// Zero disables the ceiling.
	StepsPerMinute float64 `mapstructure:"steps_per_minute" yaml:"steps_per_minute"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cadence")
	v.SetDefault("logger.log_file", "cadence.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.concurrency", 1)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Agent --
	v.SetDefault("agent.max_steps", 100)
	v.SetDefault("agent.max_failures", 3)
	v.SetDefault("agent.validate_output", false)
	v.SetDefault("agent.generate_gif", false)
	v.SetDefault("agent.gif_path", "agent_history.gif")

	// -- Pacing --
	for _, category := range []string{"step", "action", "task"} {
		v.SetDefault("pacing."+category+".enable_random_interval", false)
		v.SetDefault("pacing."+category+".delay_minutes", "0.0")
		v.SetDefault("pacing."+category+".min_delay_minutes", "0.0")
		v.SetDefault("pacing."+category+".max_delay_minutes", "0.0")
	}
	v.SetDefault("pacing.steps_per_minute", 0.0)
}

// BindPacingEnv maps the flat, unprefixed environment variables that the
// pacing subsystem is configured with (STEP_DELAY_MINUTES and friends) onto
// their viper keys. These predate the CADENCE_ prefix and are kept as-is so
// existing deployments keep working.
func BindPacingEnv(v *viper.Viper) {
	for _, category := range []string{"step", "action", "task"} {
		upper := strings.ToUpper(category)
		v.BindEnv("pacing."+category+".enable_random_interval", upper+"_ENABLE_RANDOM_INTERVAL")
		v.BindEnv("pacing."+category+".delay_minutes", upper+"_DELAY_MINUTES")
		v.BindEnv("pacing."+category+".min_delay_minutes", upper+"_MIN_DELAY_MINUTES")
		v.BindEnv("pacing."+category+".max_delay_minutes", upper+"_MAX_DELAY_MINUTES")
	}
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// FromViper creates a validated configuration instance from a viper object.
func FromViper(v *viper.Viper) (*Config, error) {
	BindPacingEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.Agent.MaxFailures <= 0 {
		return fmt.Errorf("agent.max_failures must be a positive integer")
	}
	if c.Browser.Concurrency <= 0 {
		return fmt.Errorf("browser.concurrency must be a positive integer")
	}
	if c.Pacing.StepsPerMinute < 0 {
		return fmt.Errorf("pacing.steps_per_minute must not be negative")
	}
	return nil
}

// SkipAPIKeyVerification reports whether the SKIP_LLM_API_KEY_VERIFICATION
// gate is set. Any value starting with t, y or 1 (case-insensitive) counts as
// enabled.
func SkipAPIKeyVerification() bool {
	value := strings.ToLower(os.Getenv("SKIP_LLM_API_KEY_VERIFICATION"))
	if value == "" {
		return false
	}
	return strings.ContainsRune("ty1", rune(value[0]))
}
