// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential finds and stores the API key.
//
// The key is taken from an environment variable when set, otherwise from
// <dir>/token. The file is written by Save after the user enters a key at
// the startup prompt.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/azvaliev/gpterm/internal/util"
)

// TokenFile is the file name of the stored key inside the app directory.
const TokenFile = "token"

// ErrEmptyToken is returned by Save for a blank key.
var ErrEmptyToken = errors.New("api key is empty")

// Resolver locates the API key.
type Resolver struct {
	// EnvVar is checked first. Empty skips the environment.
	EnvVar string
	// Dir is the app directory holding TokenFile.
	Dir string
}

// Path returns the token file location.
func (r Resolver) Path() string {
	return filepath.Join(r.Dir, TokenFile)
}

// Resolve returns the key and true, or "" and false when none is set.
// Blank values in either source count as unset.
func (r Resolver) Resolve() (string, bool) {
	if r.EnvVar != "" {
		if token := strings.TrimSpace(os.Getenv(r.EnvVar)); token != "" {
			return token, true
		}
	}

	if r.Dir == "" {
		return "", false
	}
	data, err := os.ReadFile(r.Path())
	if err != nil {
		return "", false
	}
	if token := strings.TrimSpace(string(data)); token != "" {
		return token, true
	}
	return "", false
}

// Save writes token to the token file, owner read/write only, creating
// the directory when needed.
func (r Resolver) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := util.AtomicWriteFile(r.Path(), []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (r Resolver) Clear() error {
	if err := os.Remove(r.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove api key: %w", err)
	}
	return nil
}
