// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud opens streaming chat completion requests.
//
// The client posts the conversation to an OpenAI-compatible endpoint with
// "stream": true and hands back the raw response body as a sequence of byte
// chunks. Framing and decoding of those chunks belong to the stream package.
//
// # Errors
//
// Failures fall into a small taxonomy, see Kind:
//   - ErrUnauthorized: the key was rejected (HTTP 401)
//   - *RateLimitError: quota or rate exhausted (HTTP 429), matches ErrRateLimited
//   - *APIError and network failures: match ErrRequestFailed
//   - *EncodeError: the request body could not be built; nothing was sent
//
// # Usage
//
//	client := cloud.NewClient(cfg.API, token).WithLogger(logger)
//	s, err := client.OpenStream(ctx, conv.Wire())
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for {
//	    chunk, err := s.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package cloud
