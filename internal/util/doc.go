// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small filesystem helpers shared by the config and
// credential packages.
//
//   - AtomicWriteFile: crash-safe write (temp file, fsync, chmod, rename)
//   - ExpandHome: resolve a leading "~" against the user's home directory
//
// # Usage
//
//	path, err := util.ExpandHome("~/.gpterm/token")
//	err = util.AtomicWriteFile(path, []byte(token), 0600)
package util
