// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader processes newline-delimited JSON from a streaming chat
// response. Each line is a complete JSON object carrying a content
// fragment; the final line has done=true and the token counters.
type StreamReader struct {
	reader *bufio.Reader
}

// NewStreamReader creates a reader over a streaming response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// streamLine mirrors the per-line wire format. Like the non-streaming
// response, the fragment may arrive nested under message or top-level.
type streamLine struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Content string  `json:"content,omitempty"`
	Done    bool    `json:"done"`

	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (l *streamLine) text() string {
	if l.Message.Content != "" {
		return l.Message.Content
	}
	return l.Content
}

// Process reads the stream line by line, invoking the callback for each
// chunk in arrival order. Malformed lines are skipped. An EOF before the
// done marker is treated as normal termination: the model stopped early
// and whatever content arrived stands. An in-band error payload aborts
// the stream with the server's message; line noise does not.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// Flush any trailing partial line, then finish cleanly.
				chunk, serverErr, ok := parseLine(line)
				if serverErr != "" {
					return &ClientError{Type: ErrTypeInvalidResponse, Message: serverErr}
				}
				if ok {
					callback(chunk)
				}
				return nil
			}
			return &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}

		chunk, serverErr, ok := parseLine(line)
		if serverErr != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: serverErr}
		}
		if !ok {
			continue
		}
		callback(chunk)
		if chunk.Done {
			return nil
		}
	}
}

// parseLine decodes one NDJSON line into a StreamChunk. serverErr
// carries an in-band error payload; ok is false for blank or malformed
// lines.
func parseLine(line string) (chunk StreamChunk, serverErr string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return StreamChunk{}, "", false
	}

	var parsed streamLine
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		return StreamChunk{}, "", false
	}
	if parsed.Error != "" {
		return StreamChunk{}, parsed.Error, false
	}

	return StreamChunk{
		Content:          parsed.text(),
		Done:             parsed.Done,
		Model:            parsed.Model,
		PromptTokens:     parsed.PromptEvalCount,
		CompletionTokens: parsed.EvalCount,
	}, "", true
}
