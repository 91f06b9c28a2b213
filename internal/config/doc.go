// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves gpterm's settings.
//
// Settings live in ~/.gpterm/config.toml and are grouped into three
// sections: [api] for the completion endpoint, [ui] for the terminal, and
// [log] for diagnostics.
//
// # Precedence
//
// Highest first:
//   - Command-line flags (applied by the cli package)
//   - Environment variables (GPTERM_*)
//   - ~/.gpterm/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := cloud.NewClient(cfg.API, token)
package config
