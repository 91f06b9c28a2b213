// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "strings"

// PartialBuffer holds text that failed to decode at the end of one chunk so
// it can be prefixed onto the next. The zero value is an empty buffer.
type PartialBuffer struct {
	b strings.Builder
}

// Append concatenates fragment onto the pending text.
func (p *PartialBuffer) Append(fragment string) {
	p.b.WriteString(fragment)
}

// TakeAndClear returns the pending text and empties the buffer.
func (p *PartialBuffer) TakeAndClear() string {
	s := p.b.String()
	p.b.Reset()
	return s
}

// Pending reports whether a fragment is waiting.
func (p *PartialBuffer) Pending() bool {
	return p.b.Len() > 0
}

// Len returns the size of the pending fragment in bytes.
func (p *PartialBuffer) Len() int {
	return p.b.Len()
}
