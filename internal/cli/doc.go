// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the gpterm command line.
//
// Running gpterm with no subcommand starts an interactive chat: the API key
// is resolved (or prompted for on first run), then messages are read line
// by line until one ends with the terminator (";;" by default) and sent.
// Replies stream to stdout as they arrive.
//
// # Commands
//
//	gpterm                 start chatting
//	gpterm token set       enter and store a new API key
//	gpterm token clear     remove the stored API key
//	gpterm version         print version information
//
// # Chat commands
//
// Typed as the whole message:
//   - exit: quit
//   - reset: forget the conversation so far
//
// Ctrl+C cancels a reply in progress or discards the message being typed.
// Ctrl+D quits.
package cli
