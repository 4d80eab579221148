// Package config loads runner configuration from a YAML file with
// environment-variable overrides.
//
// Precedence, lowest to highest: built-in defaults, the YAML file, then
// AGENTDRIVE_* environment variables. A .env file in the working directory
// is loaded first (best-effort) so local development overrides work without
// exporting anything.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s"
// or "2m". Bare numbers are rejected: a unitless timeout is ambiguous.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode || value.Tag != "!!str" {
		return fmt.Errorf("config: duration must be a string like \"30s\", got %s", value.Tag)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Retry holds retry policy configuration.
type Retry struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// Config is the runner configuration.
type Config struct {
	// Binary is the agent CLI binary name or path.
	Binary string `yaml:"binary"`

	// Model selects the model; empty uses the CLI default.
	Model string `yaml:"model"`

	// SandboxRoot is the parent directory for sandbox scratch dirs.
	// Empty uses the system temp directory.
	SandboxRoot string `yaml:"sandbox_root"`

	// SystemPrompt is passed through to the backend.
	SystemPrompt string `yaml:"system_prompt"`

	// PermissionMode is the backend permission mode name.
	PermissionMode string `yaml:"permission_mode"`

	// MaxTurns bounds agent turns; 0 leaves the CLI default.
	MaxTurns int `yaml:"max_turns"`

	// Timeout bounds a whole run including retries.
	Timeout Duration `yaml:"timeout"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Env holds extra environment overrides for the subprocess.
	Env map[string]string `yaml:"env"`

	Retry Retry `yaml:"retry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Binary:   "claude",
		LogLevel: "info",
		Timeout:  Duration(5 * time.Minute),
		Retry: Retry{
			MaxAttempts:    3,
			InitialBackoff: Duration(time.Second),
			MaxBackoff:     Duration(30 * time.Second),
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// AGENTDRIVE_* environment overrides. A missing file at an explicit path is
// an error; a missing .env is not.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // best-effort

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays AGENTDRIVE_* variables onto cfg.
func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("AGENTDRIVE_BINARY", &cfg.Binary)
	setString("AGENTDRIVE_MODEL", &cfg.Model)
	setString("AGENTDRIVE_SANDBOX_ROOT", &cfg.SandboxRoot)
	setString("AGENTDRIVE_SYSTEM_PROMPT", &cfg.SystemPrompt)
	setString("AGENTDRIVE_PERMISSION_MODE", &cfg.PermissionMode)
	setString("AGENTDRIVE_LOG_LEVEL", &cfg.LogLevel)

	if v, ok := os.LookupEnv("AGENTDRIVE_MAX_TURNS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("config: AGENTDRIVE_MAX_TURNS: invalid value %q", v)
		}
		cfg.MaxTurns = n
	}
	if v, ok := os.LookupEnv("AGENTDRIVE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: AGENTDRIVE_TIMEOUT: %w", err)
		}
		cfg.Timeout = Duration(d)
	}
	return nil
}
