// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helwanlabs/campuschat/internal/model"
	"github.com/helwanlabs/campuschat/internal/openai"
)

// resetAfterPartialServer serves one SSE fragment, then resets the
// connection so the client's next read fails with a transport error
// rather than a clean EOF.
func resetAfterPartialServer(t *testing.T, partial string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("server does not support hijacking")
			return
		}
		conn, bufrw, err := hj.Hijack()
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.Close()

		bufrw.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\n\r\n")
		bufrw.WriteString(`data: {"choices":[{"delta":{"content":"` + partial + `"}}]}` + "\n\n")
		bufrw.Flush()

		// Let the client consume the fragment, then abort hard. Linger
		// zero makes the close an RST instead of an orderly FIN.
		time.Sleep(50 * time.Millisecond)
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.SetLinger(0)
		}
	}))
}

func TestHostedBackend_StreamConnectionResetMidStream(t *testing.T) {
	server := resetAfterPartialServer(t, "partial answer")
	defer server.Close()

	backend, err := NewHostedBackend(openai.NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)

	var fragments []string
	comp, err := backend.Stream(context.Background(), []model.Message{
		{Role: model.RoleUser, Content: "hi"},
	}, func(s string) { fragments = append(fragments, s) })

	// A mid-stream transport failure degrades the turn; it never fails it.
	require.NoError(t, err)
	require.NotNil(t, comp)
	assert.True(t, strings.HasPrefix(comp.Content, "partial answer"))
	assert.Contains(t, comp.Content, "\n*Error during streaming: ")
	assert.NotEmpty(t, comp.ErrMsg)

	// The error fragment is delivered live like any other fragment.
	assert.Equal(t, comp.Content, strings.Join(fragments, ""))
}

func TestRunTurn_HostedStreamFailureFallsBackToEstimator(t *testing.T) {
	server := resetAfterPartialServer(t, "partial answer")
	defer server.Close()

	backend, err := NewHostedBackend(openai.NewClient("sk-test").WithBaseURL(server.URL))
	require.NoError(t, err)

	orch := NewOrchestrator(backend, DefaultHistoryWindow)
	conv := model.NewConversation("", nil)

	msg := orch.RunTurn(context.Background(), conv, "hi", TurnOptions{Stream: true})

	assert.Contains(t, msg.Content, "partial answer")
	assert.Contains(t, msg.Content, "Error during streaming")
	require.NotNil(t, msg.Stats)
	assert.NotEmpty(t, msg.Stats.Err)

	// Streaming carries no usage block, so the accumulated content is
	// accounted through the estimator; a partial reply is never free.
	require.NotNil(t, msg.Stats.Tokens)
	assert.Greater(t, *msg.Stats.Tokens, 0)
	_, ok := msg.Stats.CostUSD()
	assert.True(t, ok)
}
