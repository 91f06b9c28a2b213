// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points the home directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range []string{"MODEL", "ENDPOINT", "TOKEN_ENV", "LOG_LEVEL", "LOG_FILE"} {
		t.Setenv(EnvPrefix+"_"+name, "")
	}
	return home
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.API.Endpoint)
	require.Equal(t, "gpt-3.5-turbo", cfg.API.Model)
	require.Equal(t, "OPENAI_API_TOKEN", cfg.API.TokenEnv)
	require.Equal(t, ";;", cfg.UI.Terminator)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, 30*time.Second, cfg.API.Timeout())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_ReadsHomeConfig(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".gpterm")
	require.NoError(t, os.MkdirAll(dir, 0700))
	writeConfig(t, dir, "[api]\nmodel = \"gpt-4o-mini\"\n")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", cfg.API.Model)
	require.Equal(t, DefaultEndpoint, cfg.API.Endpoint)
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), `
[ui]
markdown = true
terminator = "//"

[log]
level = "debug"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.True(t, cfg.UI.Markdown)
	require.True(t, cfg.UI.Color, "unset bool keeps its default")
	require.Equal(t, "//", cfg.UI.Terminator)
	require.Equal(t, DefaultPrompt, cfg.UI.Prompt)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, DefaultReadBufferSize, cfg.API.ReadBufferSize)
}

func TestLoadFromPath_EmptyValuesFilled(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "[api]\nmodel = \"\"\nread_buffer_size = 0\n")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, DefaultModel, cfg.API.Model)
	require.Equal(t, DefaultReadBufferSize, cfg.API.ReadBufferSize)
}

func TestLoadFromPath_Missing(t *testing.T) {
	isolate(t)
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "[api]\nmodle = \"x\"\n")

	_, err := LoadFromPath(path)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Field, "api.modle")
}

func TestLoadFromPath_BadSyntax(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "[api\nmodel = ")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), path)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GPTERM_MODEL", "gpt-4o")
	t.Setenv("GPTERM_ENDPOINT", "http://localhost:8080/v1/chat/completions")
	t.Setenv("GPTERM_TOKEN_ENV", "MY_KEY")
	t.Setenv("GPTERM_LOG_LEVEL", "debug")
	t.Setenv("GPTERM_LOG_FILE", "/tmp/gpterm.log")

	path := writeConfig(t, t.TempDir(), "[api]\nmodel = \"from-file\"\n")
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	require.Equal(t, "gpt-4o", cfg.API.Model, "environment beats file")
	require.Equal(t, "http://localhost:8080/v1/chat/completions", cfg.API.Endpoint)
	require.Equal(t, "MY_KEY", cfg.API.TokenEnv)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/tmp/gpterm.log", cfg.Log.File)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"relative endpoint", func(c *Config) { c.API.Endpoint = "/v1/chat" }, "api.endpoint"},
		{"ftp endpoint", func(c *Config) { c.API.Endpoint = "ftp://example.com/x" }, "api.endpoint"},
		{"blank model", func(c *Config) { c.API.Model = "  " }, "api.model"},
		{"blank token env", func(c *Config) { c.API.TokenEnv = "" }, "api.token_env"},
		{"negative timeout", func(c *Config) { c.API.TimeoutSecs = -1 }, "api.timeout_secs"},
		{"negative rate", func(c *Config) { c.API.RequestsPerMinute = -5 }, "api.requests_per_minute"},
		{"tiny buffer", func(c *Config) { c.API.ReadBufferSize = 8 }, "api.read_buffer_size"},
		{"huge buffer", func(c *Config) { c.API.ReadBufferSize = 4 << 20 }, "api.read_buffer_size"},
		{"blank terminator", func(c *Config) { c.UI.Terminator = " " }, "ui.terminator"},
		{"multiline terminator", func(c *Config) { c.UI.Terminator = ";\n;" }, "ui.terminator"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)

			err := cfg.Validate()
			var errs ValidateErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			require.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.API.Model = ""
	cfg.Log.Level = "nope"

	err := cfg.Validate()
	var errs ValidateErrors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 2)
	require.True(t, strings.Contains(err.Error(), "api.model") && strings.Contains(err.Error(), "log.level"))
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.API.Model = "gpt-4o"
	cfg.API.RequestsPerMinute = 20
	cfg.UI.Markdown = true
	cfg.UI.Color = false
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# gpterm configuration file"))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestHistoryPath(t *testing.T) {
	home := isolate(t)

	cfg := Default()
	path, err := cfg.HistoryPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".gpterm", "history"), path)

	cfg.UI.History = ""
	path, err = cfg.HistoryPath()
	require.NoError(t, err)
	require.Empty(t, path)
}
