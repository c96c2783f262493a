// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"real key", "sk-test-abc123", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"setup placeholder", "your_openai_api_key_here", false},
		{"padded placeholder", "  your_openai_api_key_here  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidAPIKey(tt.key))
		})
	}
}

func TestNewClientFromEnv_NotConfigured(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNotConfigured)

	t.Setenv(EnvAPIKey, Placeholder)
	_, err = NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewClientFromEnv_Configured(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test-abc123")
	client, err := NewClientFromEnv()
	require.NoError(t, err)
	assert.True(t, client.IsConfigured())
	assert.Equal(t, DefaultModel, client.Model())
}

func TestChat_FailsFastWithoutKey(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient("").WithBaseURL(server.URL)

	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = client.ChatStream(context.Background(), nil, func(chunk StreamChunk) {})
	assert.ErrorIs(t, err, ErrNotConfigured)

	// The unconfigured client must not reach the network at all.
	assert.Equal(t, int32(0), calls.Load())
}

func TestChat_WithUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "Hello!"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL)
	resp, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", resp.GetContent())
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.PromptTokens)
	assert.Equal(t, 4, resp.Usage.CompletionTokens)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
}

func TestChat_UsageAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL)
	resp, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.GetContent())
	assert.Nil(t, resp.Usage, "missing usage block must decode to nil, not zeroes")
}

func TestChat_AuthFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "invalid_api_key", "message": "Incorrect API key provided"}}`))
	}))
	defer server.Close()

	client := NewClient("sk-bad").WithBaseURL(server.URL)
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestChat_SendsConfiguredModelAndTemperature(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL).WithModel("gpt-4o").WithTemperature(0.2)
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Contains(t, gotBody, `"model":"gpt-4o"`)
	assert.Contains(t, gotBody, `"temperature":0.2`)
}

func TestChat_SendsZeroTemperature(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL).WithTemperature(0)
	_, err := client.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	require.NoError(t, err)

	// Greedy sampling is an explicit request; it must reach the wire.
	assert.Contains(t, gotBody, `"temperature":0`)
}

func sseBody(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString("data: " + e + "\n\n")
	}
	return b.String()
}

func TestChatStream_OrderedChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sseBody(
			`{"choices":[{"delta":{"role":"assistant","content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			"[DONE]",
		)))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL)

	var content strings.Builder
	err := client.ChatStream(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		content.WriteString(chunk.GetContent())
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello", content.String())
}

func TestChatStream_SkipsMalformedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"good\"}}]}\n\n"))
		w.Write([]byte("data: not json\n\n"))
		w.Write([]byte(": heartbeat comment\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\" data\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL)

	var content strings.Builder
	err := client.ChatStream(context.Background(), nil, func(chunk StreamChunk) {
		content.WriteString(chunk.GetContent())
	})

	require.NoError(t, err)
	assert.Equal(t, "good data", content.String())
}

func TestChatStream_EOFBeforeDoneIsClean(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Connection drops before [DONE].
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"))
	}))
	defer server.Close()

	client := NewClient("sk-test").WithBaseURL(server.URL)

	var content strings.Builder
	err := client.ChatStream(context.Background(), nil, func(chunk StreamChunk) {
		content.WriteString(chunk.GetContent())
	})

	require.NoError(t, err)
	assert.Equal(t, "partial", content.String())
}

func TestSSEReader_MultiLineAndCRLF(t *testing.T) {
	input := "data: first\r\n\r\ndata: second\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	data, err := reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	data, err = reader.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestKeyFingerprint_NeverContainsKey(t *testing.T) {
	client := NewClient("sk-test-supersecret")
	fp := client.KeyFingerprint()
	assert.NotContains(t, fp, "supersecret")
	assert.Len(t, fp, 8)
}
