// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/azvaliev/gpterm/internal/model"
)

// ErrMalformedStream is returned by Finish when the stream ended while a
// fragment was still waiting to be completed, or when carried bytes had to
// be dropped along the way.
var ErrMalformedStream = errors.New("malformed stream")

// Stats counts what happened to the frames of one response.
type Stats struct {
	Chunks    int // chunks fed
	Deltas    int // frames decoded and merged
	Carried   int // times a trailing fragment was carried to the next chunk
	Discarded int // frames dropped as malformed
	Lost      int // carried bytes dropped before they could be decoded
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor consumes the chunks of one response stream in arrival order and
// merges every decoded delta into a conversation.
//
// A Processor is single-use and not safe for concurrent use. It borrows the
// conversation for the duration of each Feed call.
type Processor struct {
	conv      *model.Conversation
	assembler *Assembler
	buffer    PartialBuffer
	done      bool
	stats     Stats
	log       zerolog.Logger
}

// NewProcessor creates a processor that assembles into conv.
func NewProcessor(conv *model.Conversation, logger zerolog.Logger) *Processor {
	return &Processor{
		conv:      conv,
		assembler: NewAssembler(logger),
		log:       logger,
	}
}

// Feed processes one chunk and returns the non-empty text increments in the
// order they were merged. Chunks fed after the sentinel are ignored.
//
// Any pending fragment is prefixed onto the chunk's first frame, unless that
// frame already stands on its own: a sentinel or a decodable frame cannot be
// the rest of a fragment. Frames that were terminated by a delimiter but
// still fail to decode are logged and skipped; the remaining frames of the
// chunk are still processed. The unterminated tail is decoded if possible
// and carried forward otherwise, however long it grows.
func (p *Processor) Feed(chunk []byte) []string {
	if p.done {
		return nil
	}
	p.stats.Chunks++

	pending := p.buffer.TakeAndClear()
	text := string(chunk)
	joined := ""
	if pending != "" {
		switch first := firstCandidate(text); {
		case isSentinel(first):
			// The sentinel leaves the fragment where it is for Finish.
			p.buffer.Append(pending)
			p.markDone()
			return nil
		case standsAlone(first):
			p.drop(pending)
		default:
			text = pending + text
			joined = firstCandidate(text)
		}
	}

	frames, tail := splitChunk(text)

	var out []string
	for i, frame := range frames {
		if isSentinel(frame) {
			p.markDone()
			return out
		}
		delta, err := DecodeFrame(frame)
		if err != nil {
			if i == 0 && joined != "" && frame == joined && !errors.Is(err, ErrNoChoices) {
				// The carried bytes went down with this frame.
				p.stats.Lost += len(pending)
			}
			p.skip(frame, err)
			continue
		}
		out = p.merge(out, delta)
	}

	if tail == "" {
		return out
	}
	if isSentinel(tail) {
		p.markDone()
		return out
	}

	delta, err := DecodeFrame(tail)
	switch {
	case err == nil:
		out = p.merge(out, delta)
	case IsIncomplete(err):
		p.carry(tail)
	default:
		p.skip(tail, err)
	}
	return out
}

// Done reports whether the end-of-response sentinel has been seen.
func (p *Processor) Done() bool {
	return p.done
}

// Stats returns the frame counters collected so far.
func (p *Processor) Stats() Stats {
	return p.stats
}

// Pending returns the size of the fragment waiting for more bytes.
func (p *Processor) Pending() int {
	return p.buffer.Len()
}

// Finish ends the response and closes the open turn. A fragment still
// waiting in the buffer, or carried bytes dropped earlier, are reported as
// ErrMalformedStream.
//
// Every carried fragment was already decoded once when it was carried and
// nothing was appended to it since, so it is not decoded again here.
func (p *Processor) Finish() error {
	p.conv.CloseTurn()

	p.log.Debug().
		Int("chunks", p.stats.Chunks).
		Int("deltas", p.stats.Deltas).
		Int("carried", p.stats.Carried).
		Int("discarded", p.stats.Discarded).
		Int("lost", p.stats.Lost).
		Bool("sentinel", p.done).
		Msg("response stream finished")

	if p.buffer.Pending() {
		rest := p.buffer.TakeAndClear()
		p.stats.Lost += len(rest)
		p.log.Warn().
			Int("bytes", len(rest)).
			Str("fragment", model.Preview(rest, 80)).
			Msg("stream ended with an undecodable fragment")
	}

	if p.stats.Lost == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d bytes could not be decoded", ErrMalformedStream, p.stats.Lost)
}

// =============================================================================
// HELPERS
// =============================================================================

func (p *Processor) merge(out []string, d Delta) []string {
	p.stats.Deltas++
	if text := p.assembler.Merge(p.conv, d); text != "" {
		out = append(out, text)
	}
	return out
}

func (p *Processor) markDone() {
	p.done = true
	p.conv.CloseTurn()
}

func (p *Processor) carry(fragment string) {
	p.stats.Carried++
	p.buffer.Append(fragment)
	p.log.Debug().Int("bytes", len(fragment)).Msg("carrying partial frame to next chunk")
}

// drop discards a carried fragment that the next chunk did not continue.
func (p *Processor) drop(fragment string) {
	p.stats.Discarded++
	p.stats.Lost += len(fragment)
	p.log.Warn().
		Int("bytes", len(fragment)).
		Str("fragment", model.Preview(fragment, 80)).
		Msg("dropping partial frame that was never completed")
}

func (p *Processor) skip(frame string, err error) {
	if errors.Is(err, ErrNoChoices) {
		p.log.Debug().Msg("skipping frame without choices")
		return
	}
	p.stats.Discarded++
	p.log.Warn().
		Err(err).
		Str("frame", model.Preview(frame, 80)).
		Msg("failed to read response frame")
}

// firstCandidate returns the first frame of text, terminated or not.
func firstCandidate(text string) string {
	if i := strings.Index(text, FrameDelimiter); i >= 0 {
		text = text[:i]
	}
	return trimDelimiterResidue(text)
}

// standsAlone reports whether frame is a complete frame by itself.
func standsAlone(frame string) bool {
	_, err := DecodeFrame(frame)
	return err == nil || errors.Is(err, ErrNoChoices)
}
