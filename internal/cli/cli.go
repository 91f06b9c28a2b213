// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/azvaliev/gpterm/internal/chat"
	"github.com/azvaliev/gpterm/internal/cloud"
	"github.com/azvaliev/gpterm/internal/config"
	"github.com/azvaliev/gpterm/internal/credential"
	"github.com/azvaliev/gpterm/internal/logging"
	"github.com/azvaliev/gpterm/internal/util"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// IO holds the process streams a command reads and writes.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdIO returns the real process streams.
func StdIO() IO {
	return IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type options struct {
	configPath string
	model      string
	logLevel   string
	markdown   bool
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the gpterm command tree.
func NewRootCommand(stdio IO) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "gpterm",
		Short: "Chat with OpenAI models from your terminal",
		Long: `gpterm - chat with OpenAI models from your terminal.

Type a message over one or more lines and finish it with ;; to send it.
Replies are streamed as they are generated. Type 'reset' to start a new
conversation and 'exit' to quit.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			return withExitCode(ExitUsage, cobra.NoArgs(cmd, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, stdio)
		},
	}
	root.SetIn(stdio.In)
	root.SetOut(stdio.Out)
	root.SetErr(stdio.Err)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return withExitCode(ExitUsage, err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.gpterm/config.toml)")
	flags.StringVar(&opts.model, "model", "", "model to chat with")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	root.Flags().BoolVar(&opts.markdown, "markdown", false, "render each reply as markdown once it is complete")

	root.AddCommand(newVersionCommand(stdio))
	root.AddCommand(newTokenCommand(opts, stdio))
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	stdio := StdIO()
	err := NewRootCommand(stdio).Execute()
	if err != nil {
		fmt.Fprintln(stdio.Err, ErrorStyle.Render("Error:"), err)
	}
	return GetExitCode(err)
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig resolves the app directory and the effective configuration,
// flags applied last.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, "", withExitCode(ExitOSFile, fmt.Errorf("could not determine your home directory: %w", err))
	}

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, "", withExitCode(ExitUsage, err)
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.API.Model = opts.model
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("markdown") {
		cfg.UI.Markdown = opts.markdown
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", withExitCode(ExitUsage, fmt.Errorf("invalid flags: %w", err))
	}
	return cfg, dir, nil
}

func runChat(cmd *cobra.Command, opts *options, stdio IO) error {
	cfg, dir, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return withExitCode(ExitOSFile, err)
	}
	defer closer.Close()

	colors := ColorsEnabled(cfg.UI.Color)
	SetColorProfile(ColorProfile(colors))

	resolver := credential.Resolver{EnvVar: cfg.API.TokenEnv, Dir: dir}
	token, err := ensureToken(resolver, stdio, newKeyReader(stdio))
	if err != nil {
		return err
	}

	client := cloud.NewClient(cfg.API, token).WithLogger(logger)
	if watcher, err := credential.NewWatcher(resolver, token, client.SetToken, logger); err != nil {
		logger.Debug().Err(err).Msg("not watching stored api key")
	} else {
		watcher.Start()
		defer watcher.Close()
	}
	session := chat.NewSession(chat.ClientStreamer{Client: client}, stdio.Out, logger)
	if cfg.UI.Markdown {
		renderer, err := chat.NewMarkdownRenderer(colors, TerminalWidth())
		if err != nil {
			logger.Warn().Err(err).Msg("markdown renderer unavailable, printing raw replies")
		} else {
			session.WithMarkdown(renderer)
		}
	}

	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return withExitCode(ExitOSFile, err)
	}
	lines := openLineEditor(historyPath, logger)
	defer lines.Close()

	logger.Debug().
		Str("model", client.Model()).
		Str("endpoint", cfg.API.Endpoint).
		Bool("markdown", cfg.UI.Markdown).
		Msg("starting chat")

	return NewREPL(lines, session, cfg.UI, stdio.Out, stdio.Err, logger).Run(cmd.Context())
}

// =============================================================================
// LINE EDITOR
// =============================================================================

// lineEditor is a liner.State that saves its history on Close.
type lineEditor struct {
	*liner.State
	historyPath string
	log         zerolog.Logger
}

func openLineEditor(historyPath string, logger zerolog.Logger) *lineEditor {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			if _, err := state.ReadHistory(f); err != nil {
				logger.Debug().Err(err).Str("path", historyPath).Msg("could not read history")
			}
			f.Close()
		}
	}
	return &lineEditor{State: state, historyPath: historyPath, log: logger}
}

// Close saves history, owner read/write only, and restores the terminal.
func (e *lineEditor) Close() error {
	if e.historyPath != "" {
		var buf bytes.Buffer
		if _, err := e.State.WriteHistory(&buf); err == nil {
			if err := util.AtomicWriteFile(e.historyPath, buf.Bytes(), 0600); err != nil {
				e.log.Warn().Err(err).Str("path", e.historyPath).Msg("could not save history")
			}
		}
	}
	return e.State.Close()
}
