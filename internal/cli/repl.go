// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"

	"github.com/azvaliev/gpterm/internal/chat"
	"github.com/azvaliev/gpterm/internal/cloud"
	"github.com/azvaliev/gpterm/internal/config"
	"github.com/azvaliev/gpterm/internal/stream"
)

const (
	cmdExit  = "exit"
	cmdReset = "reset"
)

// LineReader reads one line of input. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Submitter runs one conversation turn. *chat.Session satisfies it.
type Submitter interface {
	Submit(ctx context.Context, text string) error
	Reset()
}

// REPL reads messages and hands them to a Submitter until exit or EOF.
type REPL struct {
	lines   LineReader
	session Submitter
	ui      config.UIConfig
	out     io.Writer
	errOut  io.Writer
	log     zerolog.Logger

	// interrupts derives the context for one turn. Ctrl+C cancels it.
	interrupts func(context.Context) (context.Context, context.CancelFunc)
}

// NewREPL wires a REPL. Ctrl+C during a reply cancels that reply only.
func NewREPL(lines LineReader, session Submitter, ui config.UIConfig, out, errOut io.Writer, logger zerolog.Logger) *REPL {
	return &REPL{
		lines:   lines,
		session: session,
		ui:      ui,
		out:     out,
		errOut:  errOut,
		log:     logger,
		interrupts: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
}

// Banner is printed once before the first prompt.
func Banner(terminator string) string {
	return fmt.Sprintf("Type your message - when finished, type %s and press enter", terminator)
}

// Run loops until the user types exit or closes input. Both end the loop
// with a nil error.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, InfoStyle.Render(Banner(r.ui.Terminator)))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		msg, err := r.readMessage()
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C at the prompt drops the message being typed.
			fmt.Fprintln(r.out)
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		switch msg {
		case "":
			continue
		case cmdExit:
			return nil
		case cmdReset:
			r.session.Reset()
			fmt.Fprintln(r.out, InfoStyle.Render("Cleared previous conversation"))
			continue
		}

		r.submit(ctx, msg)
	}
}

// readMessage collects lines until one ends with the terminator. A first
// line that is exactly a command returns immediately without it.
func (r *REPL) readMessage() (string, error) {
	var lines []string
	for {
		line, err := r.lines.Prompt(r.ui.Prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			r.lines.AppendHistory(line)
		}

		if len(lines) == 0 && isCommand(strings.TrimSpace(line)) {
			return strings.TrimSpace(line), nil
		}

		trimmed := strings.TrimRight(line, " \t")
		if strings.HasSuffix(trimmed, r.ui.Terminator) {
			lines = append(lines, strings.TrimSuffix(trimmed, r.ui.Terminator))
			return strings.TrimSpace(strings.Join(lines, "\n")), nil
		}
		lines = append(lines, line)
	}
}

func isCommand(s string) bool {
	return s == cmdExit || s == cmdReset
}

func (r *REPL) submit(parent context.Context, msg string) {
	ctx, stop := r.interrupts(parent)
	defer stop()

	err := r.session.Submit(ctx, msg)
	if err == nil {
		return
	}
	r.log.Debug().Err(err).Str("kind", cloud.Kind(err).String()).Msg("turn failed")
	fmt.Fprintln(r.errOut, describeTurnError(err))
}

// describeTurnError renders a failed turn for the user.
func describeTurnError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "\n" + WarningStyle.Render("[Cancelled]")
	case errors.Is(err, stream.ErrMalformedStream):
		return "\n" + WarningStyle.Render("[Warning] The reply ended unexpectedly and may be incomplete.")
	case errors.Is(err, chat.ErrEmptyReply):
		return WarningStyle.Render("[Warning] The service returned an empty reply.")
	}

	switch cloud.Kind(err) {
	case cloud.KindUnauthorized:
		return ErrorStyle.Render("[Error]") + " Your API key was rejected. Run 'gpterm token set' to enter a new one."
	case cloud.KindRateLimited:
		var rl *cloud.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			return ErrorStyle.Render("[Error]") + fmt.Sprintf(" Rate limited. Try again in %v.", rl.RetryAfter)
		}
		return ErrorStyle.Render("[Error]") + " Rate limited or out of quota. Check your plan and try again later."
	case cloud.KindEncode:
		return ErrorStyle.Render("[Error]") + " Nothing was sent, " + err.Error()
	default:
		return ErrorStyle.Render("[Error]") + " " + err.Error()
	}
}
