// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: ordered chat history with at most one open streamed turn
//   - Message: single turn with id, role and accumulated content
//   - WireMessage: the upstream {role, content} form of a message
//   - Role: closed set of message authors (user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AppendUser("Hello!")
//	body := conv.Wire() // ids are never part of the wire form
package model
