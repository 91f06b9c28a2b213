// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered history of a chat session. Insertion order is
// turn order.
//
// At most one message is open (eligible for further streamed deltas), and
// the open message is always the last one. Openness is tracked apart from
// the message role: a streamed turn stays open whatever role the server
// gave it, and appending any message closes it.
//
// A Conversation is owned by a single flow of control and is not safe for
// concurrent use.
type Conversation struct {
	messages []*Message
	open     bool
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		messages: make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds msg as the last message, closing any open turn. Call
// OpenTurn to let msg receive streamed deltas.
func (c *Conversation) Append(msg *Message) {
	c.open = false
	c.messages = append(c.messages, msg)
}

// AppendUser creates a user message, appends it and returns it.
func (c *Conversation) AppendUser(content string) *Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// Last returns the most recent message, or nil if empty.
func (c *Conversation) Last() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// PopLast removes and returns the last message. The removed message is no
// longer open; callers that reinsert it must call OpenTurn again.
func (c *Conversation) PopLast() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	last := c.messages[len(c.messages)-1]
	c.messages[len(c.messages)-1] = nil
	c.messages = c.messages[:len(c.messages)-1]
	c.open = false
	return last
}

// Truncate drops every message after the first n. Used to roll back a turn
// that failed part way through.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(c.messages) {
		return
	}
	for i := n; i < len(c.messages); i++ {
		c.messages[i] = nil
	}
	c.messages = c.messages[:n]
	c.open = false
}

// Reset removes every message.
func (c *Conversation) Reset() {
	c.messages = make([]*Message, 0)
	c.open = false
}

// =============================================================================
// TURN STATE
// =============================================================================

// OpenTurn marks the last message as open. It is a no-op on an empty
// conversation.
func (c *Conversation) OpenTurn() {
	c.open = c.Last() != nil
}

// CloseTurn closes the open message, if any.
func (c *Conversation) CloseTurn() {
	c.open = false
}

// IsOpen reports whether the last message is open and belongs to turnID.
func (c *Conversation) IsOpen(turnID string) bool {
	last := c.Last()
	return c.open && last != nil && last.ID == turnID
}

// HasOpenTurn reports whether any message is open.
func (c *Conversation) HasOpenTurn() bool {
	return c.open
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Messages returns a snapshot copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = *msg
	}
	return out
}

// Wire returns the history in upstream request form.
func (c *Conversation) Wire() []WireMessage {
	out := make([]WireMessage, len(c.messages))
	for i, msg := range c.messages {
		out[i] = msg.Wire()
	}
	return out
}
