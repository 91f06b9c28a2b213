// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a raw server-sent-event byte stream from a chat
// completion endpoint into conversation messages.
//
// Network reads do not line up with event boundaries, so a single JSON
// frame may arrive split across two or more chunks. The pipeline is:
//
//	chunk -> splitChunk -> (PartialBuffer prefix) -> DecodeFrame -> Assembler
//
// # Key Types
//
//   - Processor: drives one response stream, chunk by chunk
//   - Delta: one decoded increment of an assistant turn
//   - PartialBuffer: carries an undecodable trailing fragment to the next chunk
//   - Assembler: folds deltas into a model.Conversation
//
// # Usage
//
//	proc := stream.NewProcessor(conv, logger)
//	for {
//	    chunk, err := body.Next()
//	    if err != nil {
//	        break
//	    }
//	    for _, text := range proc.Feed(chunk) {
//	        fmt.Print(text)
//	    }
//	}
//	if err := proc.Finish(); err != nil {
//	    // stream ended with an undecodable fragment
//	}
package stream
