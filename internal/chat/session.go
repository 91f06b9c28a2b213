// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs conversation turns: it sends the history upstream,
// streams the reply through the stream package, and prints it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/azvaliev/gpterm/internal/cloud"
	"github.com/azvaliev/gpterm/internal/model"
	"github.com/azvaliev/gpterm/internal/stream"
)

// ErrEmptyReply is returned when a response stream ends without any
// assistant content.
var ErrEmptyReply = errors.New("response contained no reply")

// ByteStream is a finite, non-restartable sequence of raw chunks. Next
// returns io.EOF at the end.
type ByteStream interface {
	Next() ([]byte, error)
	Close() error
}

// Streamer opens a response stream for a conversation.
type Streamer interface {
	OpenStream(ctx context.Context, messages []model.WireMessage) (ByteStream, error)
}

// MarkdownRenderer turns a finished reply into terminal output.
// *glamour.TermRenderer satisfies it.
type MarkdownRenderer interface {
	Render(in string) (string, error)
}

// ClientStreamer adapts a cloud.Client to Streamer.
type ClientStreamer struct {
	Client *cloud.Client
}

// OpenStream implements Streamer.
func (c ClientStreamer) OpenStream(ctx context.Context, messages []model.WireMessage) (ByteStream, error) {
	s, err := c.Client.OpenStream(ctx, messages)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns one conversation and runs its turns one at a time.
type Session struct {
	conv     *model.Conversation
	streamer Streamer
	out      io.Writer
	markdown MarkdownRenderer
	log      zerolog.Logger
}

// NewSession returns a session with an empty conversation that prints
// replies to out as they arrive.
func NewSession(streamer Streamer, out io.Writer, logger zerolog.Logger) *Session {
	return &Session{
		conv:     model.NewConversation(),
		streamer: streamer,
		out:      out,
		log:      logger,
	}
}

// WithMarkdown renders each completed reply through r instead of printing
// increments.
func (s *Session) WithMarkdown(r MarkdownRenderer) *Session {
	s.markdown = r
	return s
}

// Conversation exposes the history.
func (s *Session) Conversation() *model.Conversation {
	return s.conv
}

// Reset clears the history.
func (s *Session) Reset() {
	s.conv.Reset()
	s.log.Debug().Msg("conversation reset")
}

// Submit appends text as a user message and streams the reply into the
// conversation.
//
// If the request cannot be sent or the stream fails midway, the
// conversation is restored to its state before the call and the error is
// returned. A reply whose stream ended with an undecodable fragment is kept
// and stream.ErrMalformedStream is returned.
func (s *Session) Submit(ctx context.Context, text string) error {
	before := s.conv.Len()
	s.conv.AppendUser(text)

	turnLog := s.log.With().Int("turn", before/2+1).Logger()

	bs, err := s.streamer.OpenStream(ctx, s.conv.Wire())
	if err != nil {
		s.rollback(before)
		turnLog.Debug().Err(err).Str("kind", cloud.Kind(err).String()).Msg("could not open response stream")
		return err
	}
	defer bs.Close()

	proc := stream.NewProcessor(s.conv, turnLog)
	for !proc.Done() {
		chunk, err := bs.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.rollback(before)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		for _, text := range proc.Feed(chunk) {
			if s.markdown == nil {
				fmt.Fprint(s.out, text)
			}
		}
	}

	finishErr := proc.Finish()

	if s.conv.Len() == before+1 {
		s.rollback(before)
		if finishErr != nil {
			return finishErr
		}
		return ErrEmptyReply
	}

	s.printReply()
	return finishErr
}

func (s *Session) printReply() {
	if s.markdown == nil {
		fmt.Fprint(s.out, "\n\n")
		return
	}

	rendered, err := s.markdown.Render(s.conv.Last().Content)
	if err != nil {
		s.log.Warn().Err(err).Msg("markdown rendering failed, printing raw reply")
		fmt.Fprint(s.out, s.conv.Last().Content, "\n\n")
		return
	}
	fmt.Fprint(s.out, rendered)
}

// rollback drops everything this turn added.
func (s *Session) rollback(n int) {
	s.conv.Truncate(n)
}
