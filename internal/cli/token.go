// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/azvaliev/gpterm/internal/config"
	"github.com/azvaliev/gpterm/internal/credential"
)

const (
	signupPrompt   = "This app requires an OpenAI API key.\nYou can sign up for an OpenAI account for free and get yours using the below link"
	signupLink     = "https://platform.openai.com/account/api-keys"
	enterKeyPrompt = "Please enter your OpenAI API Key:"
)

// keyReader reads one API key from the user.
type keyReader func() (string, error)

// newKeyReader reads without echo when stdin is a terminal, otherwise it
// reads one line.
func newKeyReader(stdio IO) keyReader {
	return func() (string, error) {
		if f, ok := stdio.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			key, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(stdio.Out)
			return string(key), err
		}
		return readLine(stdio.In)
	}
}

// readLine reads up to and excluding '\n' one byte at a time, leaving the
// rest of in for the line editor.
func readLine(in io.Reader) (string, error) {
	var sb strings.Builder
	b := make([]byte, 1)
	for {
		n, err := in.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(b[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
	}
}

// promptForToken explains where to get a key and reads it.
func promptForToken(out io.Writer, read keyReader) (string, error) {
	fmt.Fprintf(out, "%s\n%s\n\n%s ", signupPrompt, LinkStyle.Render(signupLink), enterKeyPrompt)

	key, err := read()
	if err != nil {
		return "", err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", credential.ErrEmptyToken
	}
	return key, nil
}

// ensureToken returns the stored key, prompting for and saving one when
// none is configured. A failed save is reported but not fatal.
func ensureToken(r credential.Resolver, stdio IO, read keyReader) (string, error) {
	if token, ok := r.Resolve(); ok {
		return token, nil
	}

	token, err := promptForToken(stdio.Out, read)
	if err != nil {
		return "", withExitCode(ExitUsage, fmt.Errorf("could not read api key, please try again later: %w", err))
	}
	if err := r.Save(token); err != nil {
		fmt.Fprintln(stdio.Err, WarningStyle.Render("Failed to save api key to disk:"), err)
	}
	return token, nil
}

// =============================================================================
// TOKEN COMMAND
// =============================================================================

func newTokenCommand(opts *options, stdio IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored API key",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Enter and store a new API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, r, err := tokenResolver(cmd, opts)
			if err != nil {
				return err
			}
			token, err := promptForToken(stdio.Out, newKeyReader(stdio))
			if err != nil {
				return withExitCode(ExitUsage, fmt.Errorf("could not read api key: %w", err))
			}
			if err := r.Save(token); err != nil {
				return withExitCode(ExitOSFile, err)
			}
			fmt.Fprintln(stdio.Out, InfoStyle.Render("Saved API key to "+r.Path()))
			if os.Getenv(cfg.API.TokenEnv) != "" {
				fmt.Fprintln(stdio.Err, WarningStyle.Render(cfg.API.TokenEnv+" is set and takes precedence over the stored key"))
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := tokenResolver(cmd, opts)
			if err != nil {
				return err
			}
			if err := r.Clear(); err != nil {
				return withExitCode(ExitOSFile, err)
			}
			fmt.Fprintln(stdio.Out, InfoStyle.Render("Removed stored API key"))
			return nil
		},
	}

	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func tokenResolver(cmd *cobra.Command, opts *options) (*config.Config, credential.Resolver, error) {
	cfg, dir, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, credential.Resolver{}, err
	}
	return cfg, credential.Resolver{EnvVar: cfg.API.TokenEnv, Dir: dir}, nil
}
