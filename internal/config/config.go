// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/azvaliev/gpterm/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete gpterm configuration.
type Config struct {
	API APIConfig `toml:"api"`
	UI  UIConfig  `toml:"ui"`
	Log LogConfig `toml:"log"`
}

// APIConfig describes the chat completion endpoint.
type APIConfig struct {
	// Endpoint is the full URL of the chat completions resource.
	Endpoint string `toml:"endpoint"`
	// Model is sent as the "model" field of every request.
	Model string `toml:"model"`
	// TokenEnv names the environment variable checked for the API key
	// before ~/.gpterm/token.
	TokenEnv string `toml:"token_env"`
	// TimeoutSecs bounds connection setup and response headers. The body
	// of a streaming reply is not subject to it. 0 disables the limit.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute paces outgoing requests. 0 = unlimited.
	RequestsPerMinute int `toml:"requests_per_minute"`
	// ReadBufferSize is the largest chunk handed to the stream processor.
	ReadBufferSize int `toml:"read_buffer_size"`
}

// UIConfig controls the terminal surface.
type UIConfig struct {
	// Markdown renders each completed reply with glamour instead of
	// printing increments as they arrive.
	Markdown bool `toml:"markdown"`
	// Color enables styled output. NO_COLOR and non-TTY output disable it
	// regardless.
	Color bool `toml:"color"`
	// Prompt is printed before each input line.
	Prompt string `toml:"prompt"`
	// Terminator ends a multi-line message when it closes a line.
	Terminator string `toml:"terminator"`
	// History is the line-editor history file. "~" is expanded.
	History string `toml:"history"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, disabled.
	Level string `toml:"level"`
	// File receives JSON log lines. Empty logs to stderr.
	File string `toml:"file"`
}

// Timeout returns TimeoutSecs as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultEndpoint       = "https://api.openai.com/v1/chat/completions"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultTokenEnv       = "OPENAI_API_TOKEN"
	DefaultTimeoutSecs    = 30
	DefaultReadBufferSize = 4096
	DefaultPrompt         = "> "
	DefaultTerminator     = ";;"
	DefaultHistory        = "~/.gpterm/history"
	DefaultLogLevel       = "warn"

	// Bounds for read_buffer_size.
	MinReadBufferSize = 64
	MaxReadBufferSize = 1 << 20
)

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Endpoint:       DefaultEndpoint,
			Model:          DefaultModel,
			TokenEnv:       DefaultTokenEnv,
			TimeoutSecs:    DefaultTimeoutSecs,
			ReadBufferSize: DefaultReadBufferSize,
		},
		UI: UIConfig{
			Color:      true,
			Prompt:     DefaultPrompt,
			Terminator: DefaultTerminator,
			History:    DefaultHistory,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns ~/.gpterm.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gpterm"), nil
}

// ConfigPath returns ~/.gpterm/config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the history file with "~" expanded. Empty disables
// history.
func (c *Config) HistoryPath() (string, error) {
	return util.ExpandHome(c.UI.History)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.gpterm/config.toml when it exists, then applies environment
// overrides and validates. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := decodeFile(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	return finish(cfg)
}

// LoadFromPath reads the given TOML file. Unlike Load the file must exist.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func decodeFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return ValidationError{
			Field:   strings.Join(keys, ", "),
			Message: "unknown key in " + filepath.Base(path),
		}
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults replaces empty values a file may have set explicitly.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = defaults.API.Endpoint
	}
	if cfg.API.Model == "" {
		cfg.API.Model = defaults.API.Model
	}
	if cfg.API.TokenEnv == "" {
		cfg.API.TokenEnv = defaults.API.TokenEnv
	}
	if cfg.API.ReadBufferSize == 0 {
		cfg.API.ReadBufferSize = defaults.API.ReadBufferSize
	}

	if cfg.UI.Prompt == "" {
		cfg.UI.Prompt = defaults.UI.Prompt
	}
	if cfg.UI.Terminator == "" {
		cfg.UI.Terminator = defaults.UI.Terminator
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// EnvPrefix is prepended to every override variable.
const EnvPrefix = "GPTERM"

type envOverrides struct {
	Model    string `envconfig:"MODEL"`
	Endpoint string `envconfig:"ENDPOINT"`
	TokenEnv string `envconfig:"TOKEN_ENV"`
	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE"`
}

// ApplyEnvOverrides applies GPTERM_MODEL, GPTERM_ENDPOINT, GPTERM_TOKEN_ENV,
// GPTERM_LOG_LEVEL and GPTERM_LOG_FILE. Unset or empty variables leave the
// current value alone.
func (c *Config) ApplyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("error reading configuration from environment: %w", err)
	}

	if env.Model != "" {
		c.API.Model = env.Model
	}
	if env.Endpoint != "" {
		c.API.Endpoint = env.Endpoint
	}
	if env.TokenEnv != "" {
		c.API.TokenEnv = env.TokenEnv
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFile != "" {
		c.Log.File = env.LogFile
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to ~/.gpterm/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with a header comment, owner read/write only.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# gpterm configuration file")
	fmt.Fprintln(&buf, "# Environment variables (GPTERM_*) and flags take precedence over this file.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid setting found by Validate.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.endpoint",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http or https URL", c.API.Endpoint),
		})
	}
	if strings.TrimSpace(c.API.Model) == "" {
		errs = append(errs, ValidationError{Field: "api.model", Message: "must not be empty"})
	}
	if strings.TrimSpace(c.API.TokenEnv) == "" {
		errs = append(errs, ValidationError{Field: "api.token_env", Message: "must not be empty"})
	}
	if c.API.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 0 or positive, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.requests_per_minute",
			Message: fmt.Sprintf("must be 0 or positive, got %d", c.API.RequestsPerMinute),
		})
	}
	if c.API.ReadBufferSize < MinReadBufferSize || c.API.ReadBufferSize > MaxReadBufferSize {
		errs = append(errs, ValidationError{
			Field:   "api.read_buffer_size",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinReadBufferSize, MaxReadBufferSize, c.API.ReadBufferSize),
		})
	}

	if strings.TrimSpace(c.UI.Terminator) == "" {
		errs = append(errs, ValidationError{Field: "ui.terminator", Message: "must contain a visible character"})
	}
	if strings.ContainsAny(c.UI.Terminator, "\r\n") {
		errs = append(errs, ValidationError{Field: "ui.terminator", Message: "must be a single line"})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
