// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"fmt"
	"io"
)

// Stream yields the raw body of a streaming response one network read at a
// time. Chunk boundaries are arbitrary and may split an event anywhere.
type Stream struct {
	body io.ReadCloser
	buf  []byte
	err  error
}

func newStream(body io.ReadCloser, size int) *Stream {
	return &Stream{body: body, buf: make([]byte, size)}
}

// Next returns the next chunk. The slice is owned by the caller. It returns
// io.EOF once the body is exhausted; after any error every later call
// returns the same error.
func (s *Stream) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	for {
		n, err := s.body.Read(s.buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
			} else {
				s.err = fmt.Errorf("%w: reading response: %w", ErrRequestFailed, err)
			}
		}
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		if s.err != nil {
			return nil, s.err
		}
	}
}

// Close releases the connection.
func (s *Stream) Close() error {
	return s.body.Close()
}
